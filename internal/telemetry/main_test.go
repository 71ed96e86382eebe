package telemetry

import (
	"testing"

	"go.uber.org/goleak"
)

// The pipeline spawns writer and fan-out goroutines; fail the package if a
// test leaves one behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
