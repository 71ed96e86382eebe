// Package containers provides testcontainer management for integration tests.
//
// It starts the real backing services the server can be deployed against:
//
//   - MySQL 8.0 as the primary datastore
//   - Eclipse Mosquitto as the alert MQTT broker
//   - ntfy as a push notification target for the shoutrrr provider
//
// Container Lifecycle:
//
// Containers are typically managed using TestMain in integration test packages:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(context.Background(), nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(context.Background())
//	    os.Exit(code)
//	}
//
// Build Tags:
//
// Integration tests using this package should use the "integration" build tag:
//
//	//go:build integration
//
// Run them with:
//
//	go test -tags=integration ./...
package containers
