package config

import (
	"github.com/arcamlabs/arcam/logging"
)

// InitLogging sets the level of logger from the command line debug flag and the config
// file: debug when either asks for it, info otherwise.
func InitLogging(logger logging.Logger, cmdLineDebug bool, cfg *Config) {
	level := logging.INFO
	if cmdLineDebug || (cfg != nil && cfg.Debug) {
		level = logging.DEBUG
	}
	logger.SetLevel(level)
	logger.Debugw("log level initialized", "level", level)
}
