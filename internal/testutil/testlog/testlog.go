package testlog

import (
	"testing"

	"github.com/rawbytedev/ipcstruct/internal/logging"
)

func Start(t testing.TB) {
	t.Helper()
	logging.ConfigureTests()
	logging.L().Debug().Str("test", t.Name()).Msg("start")
}
