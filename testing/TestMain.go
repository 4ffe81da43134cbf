package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode marks the process as under test and points the API at an
// unroutable address so nothing reaches a real backend by accident.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SLOOZE_TEST_MODE", "1")
		if os.Getenv("API_BASE_URL") == "" {
			_ = os.Setenv("API_BASE_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
