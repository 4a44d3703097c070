package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode keeps binaries and upstream clients inert while packages
// importing this one are under test.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SUCURSALES_TEST_MODE", "1")
		if os.Getenv("GEOREF_BASE_URL") == "" {
			_ = os.Setenv("GEOREF_BASE_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("SUCURSALES_API_URL") == "" {
			_ = os.Setenv("SUCURSALES_API_URL", "http://127.0.0.1:0")
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
