//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// validTableNameRe matches valid MySQL identifier names: letters, digits,
// underscore, dollar sign; must not start with a digit.
var validTableNameRe = regexp.MustCompile(`^[a-zA-Z_$][a-zA-Z0-9_$]*$`)

// FleetTables lists the tables the server migrates, in an order safe for
// truncation with foreign key checks disabled.
var FleetTables = []string{
	"telemetry_readings",
	"vehicle_alerts",
	"maintenance_tasks",
	"vehicles",
	"vehicle_types",
	"playbooks",
	"runbooks",
}

// MySQLContainer wraps a testcontainers MySQL instance with helper methods.
type MySQLContainer struct {
	container *mysql.MySQLContainer
	db        *sql.DB
	dsn       string
}

// MySQLConfig holds configuration for MySQL container creation.
type MySQLConfig struct {
	// Database name (default: "fleetpredict_test")
	Database string
	// Username for the non-root user (default: "fleet")
	Username string
	// Password for the non-root user (default: "fleetpass")
	Password string
	// Image tag (default: "8.0")
	ImageTag string
}

// DefaultMySQLConfig returns a MySQLConfig with sensible defaults.
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Database: "fleetpredict_test",
		Username: "fleet",
		Password: "fleetpass",
		ImageTag: "8.0",
	}
}

// NewMySQLContainer creates and starts a MySQL container with the given
// config. If config is nil, uses DefaultMySQLConfig().
func NewMySQLContainer(ctx context.Context, config *MySQLConfig) (*MySQLContainer, error) {
	if config == nil {
		defaultCfg := DefaultMySQLConfig()
		config = &defaultCfg
	}

	mysqlContainer, err := mysql.RunContainer(ctx,
		mysql.WithDatabase(config.Database),
		mysql.WithUsername(config.Username),
		mysql.WithPassword(config.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	// parseTime is required for GORM to scan DATETIME columns.
	connStr, err := mysqlContainer.ConnectionString(ctx, "parseTime=true", "multiStatements=true")
	if err != nil {
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := sql.Open("mysql", connStr)
	if err != nil {
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = mysqlContainer.Terminate(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLContainer{
		container: mysqlContainer,
		db:        db,
		dsn:       connStr,
	}, nil
}

// GetDB returns the shared database connection. Individual tests must not
// close it.
func (c *MySQLContainer) GetDB(t *testing.T) *sql.DB {
	t.Helper()
	if c.db == nil {
		t.Fatal("database connection is nil")
	}
	return c.db
}

// GetDSN returns the MySQL DSN for the container, suitable for the server's
// database.dsn setting and for gorm.Open.
func (c *MySQLContainer) GetDSN() string {
	return c.dsn
}

// GetHost returns the host address where the container is accessible.
func (c *MySQLContainer) GetHost(ctx context.Context) (string, error) {
	return c.container.Host(ctx)
}

// GetPort returns the mapped port where MySQL is accessible.
func (c *MySQLContainer) GetPort(ctx context.Context) (int, error) {
	mappedPort, err := c.container.MappedPort(ctx, "3306")
	if err != nil {
		return 0, err
	}
	return mappedPort.Int(), nil
}

// HealthCheck verifies the database answers a trivial query.
func (c *MySQLContainer) HealthCheck(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := c.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("health check returned unexpected result: %d", result)
	}
	return nil
}

func isValidTableName(name string) bool {
	if name == "" {
		return false
	}
	return validTableNameRe.MatchString(name)
}

// Reset truncates the given tables with foreign key checks disabled, for
// resetting state between tests. Pass FleetTables for a full wipe.
func (c *MySQLContainer) Reset(ctx context.Context, tables []string) error {
	if c.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	for _, table := range tables {
		if !isValidTableName(table) {
			return fmt.Errorf("invalid table name: %s", table)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("failed to disable foreign key checks: %w", err)
	}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE `%s`", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return fmt.Errorf("failed to enable foreign key checks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Terminate stops and removes the MySQL container and closes the shared
// connection.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			fmt.Printf("Warning: failed to close database connection: %v\n", err)
		}
		c.db = nil
	}
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}
