package pipeline

import (
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/fedops/mdpipe/pkg/isotime"
)

// Config is the shared configuration for a metadata refresh pipeline. Each
// stage reads the parts it needs; nothing here is process global state.
type Config struct {
	Source    SourceConfig   `yaml:"source"`
	History   HistoryConfig  `yaml:"history"`
	Intervals IntervalConfig `yaml:"intervals"`
}

type SourceConfig struct {
	URL       string `yaml:"url"`
	CacheFile string `yaml:"cacheFile"`
}

type HistoryConfig struct {
	LogFile string `yaml:"logFile"`
}

// IntervalConfig holds the two configurable sub interval lengths as
// ISO-8601 duration literals. An expiration warning length of PT0S disables
// imminent expiration warnings; an empty freshness length disables
// staleness warnings.
type IntervalConfig struct {
	ExpirationWarning string `yaml:"expirationWarning"`
	Freshness         string `yaml:"freshness"`
}

type ConfigurationError struct {
	msg string
}

func NewConfigurationError(format string, args ...any) ConfigurationError {
	return ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

func (ce ConfigurationError) Error() string {
	return ce.msg
}

// LoadConfiguration reads and validates a yaml pipeline configuration.
// Malformed duration literals are rejected here, before any stage spends
// time on fetching or evaluation.
func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, NewConfigurationError("unable to read configuration: %s", err.Error())
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, NewConfigurationError("unable to parse configuration: %s", err.Error())
	}

	if _, _, err := cfg.Intervals.Parse(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigurationFromFile is a convenience wrapper for the stages, which
// receive the configuration path from their environment.
func LoadConfigurationFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewConfigurationError("unable to open configuration file: %s", err.Error())
	}
	defer f.Close()

	return LoadConfiguration(f)
}

// Parse converts the configured literals into durations. The freshness
// interval is optional and comes back as nil when not configured.
func (ic IntervalConfig) Parse() (isotime.Duration, *isotime.Duration, error) {
	expirationWarning := isotime.Duration{}

	if ic.ExpirationWarning != "" {
		var err error
		expirationWarning, err = isotime.ParseDuration(ic.ExpirationWarning)
		if err != nil {
			return isotime.Duration{}, nil, NewConfigurationError("bad expirationWarning interval: %s", err.Error())
		}
	}

	if ic.Freshness == "" {
		return expirationWarning, nil, nil
	}

	freshness, err := isotime.ParseDuration(ic.Freshness)
	if err != nil {
		return isotime.Duration{}, nil, NewConfigurationError("bad freshness interval: %s", err.Error())
	}

	return expirationWarning, &freshness, nil
}
