package observability

import (
	"os"

	"github.com/danmuck/ascmdctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime logging profile and returns a logger
// tagged with app. level comes from the config file; ASCMD_LOG_LEVEL wins.
func InitLogger(app string, level string) zerolog.Logger {
	logging.ConfigureRuntime()
	if os.Getenv(logging.EnvLogLevel) == "" {
		if lvl, ok := logging.ParseLevel(level); ok {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return log.Logger.With().Str("app", app).Logger()
}
