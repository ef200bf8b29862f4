package fem

import (
	"os"

	"github.com/rs/zerolog"
)

// logger reports assembly milestones. Quiet by default.
var logger = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).
	With().Timestamp().Str("pkg", "fem").Logger()

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
