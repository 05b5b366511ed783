// Package guard flips the runtime into test mode as an import side effect.
// Test packages blank-import it so a compiled test binary never boots the
// real server.
package guard

import (
	"os"
	"sync"

	"github.com/spacekimchi/tradesalsa/internal/app"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TRADESALSA_TEST_MODE") == "" {
			_ = os.Setenv("TRADESALSA_TEST_MODE", "1")
		}
		app.RefreshTestMode()
	})
}
