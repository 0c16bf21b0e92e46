package monitor_test

import (
	"log/slog"

	"github.com/kimhons/lumina-ai-sub002/pkg/log"
)

func testLogger() *slog.Logger {
	return log.NewDiscard()
}
