package config

const (
	defaultDatabasePath = "~/.local/share/taxonid/catalogue.db"
	defaultLogDir       = "~/.local/share/taxonid/logs"
	defaultReportDir    = "/tmp/col/release"
	defaultBatchSize    = 10000
	defaultLogLevel     = "info"

	// LogFormatConsole writes key=value lines.
	LogFormatConsole = "console"
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON = "json"
	// LogFormatAuto picks console on a terminal and JSON otherwise.
	LogFormatAuto = "auto"

	// DatabaseEnv overrides paths.database when set.
	DatabaseEnv = "TAXONID_DATABASE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Database:  defaultDatabasePath,
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
		},
		Release: Release{
			BatchSize: defaultBatchSize,
		},
		Logging: Logging{
			Format: LogFormatAuto,
			Level:  defaultLogLevel,
		},
	}
}
