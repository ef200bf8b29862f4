package mesh

import (
	"os"

	"github.com/rs/zerolog"
)

// logger reports topology construction milestones. Quiet by default;
// raise the level with SetLogger for build diagnostics.
var logger = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).
	With().Timestamp().Str("pkg", "mesh").Logger()

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
