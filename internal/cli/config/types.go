// Package config loads leapmetrics CLI configuration.
//
// Values come from built-in defaults, a leapmetrics.yaml project file,
// LEAPMETRICS_* environment variables and explicitly set flags, in
// increasing order of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory relative paths are resolved against
	ProjectRoot string `koanf:"-"`

	ModelsDir    string `koanf:"models_dir"`
	StatePath    string `koanf:"state_path"`
	OutputFormat string `koanf:"output"`
	Verbose      bool   `koanf:"verbose"`
	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	// Workers bounds batch parallelism; 1 analyzes units sequentially
	Workers int `koanf:"workers"`
	// Record stores every scan in run history
	Record bool `koanf:"record"`
}

// Default configuration values.
const (
	DefaultModelsDir = "models"
	DefaultStateFile = ".leapmetrics/state.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultWorkers   = 1
)

// ConfigFileNames are the project file names searched for, in order.
var ConfigFileNames = []string{"leapmetrics.yaml", "leapmetrics.yml"}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		ModelsDir:    DefaultModelsDir,
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		Workers:      DefaultWorkers,
	}
}
