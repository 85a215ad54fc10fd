package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ROLEVIZ_TEST_MODE") == "" {
			_ = os.Setenv("ROLEVIZ_TEST_MODE", "1")
		}
	})
}
