package pipeline

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestLoadConfig(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(config.Source.URL, "https://metadata.example.org/federation-metadata.xml")
	is.Equal(config.Source.CacheFile, "/var/cache/mdpipe/federation-metadata.xml")
	is.Equal(config.History.LogFile, "/var/log/mdpipe/timestamps.log")
}

func TestLoadIntervals(t *testing.T) {
	is, config := setupConfigTest(t)

	expirationWarning, freshness, err := config.Intervals.Parse()
	is.NoErr(err)

	is.Equal(expirationWarning.Seconds(), int64(2*86400))
	is.True(freshness != nil)
	is.Equal(freshness.Seconds(), int64(14*86400))
}

func TestFreshnessIntervalIsOptional(t *testing.T) {
	is := is.New(t)

	config, err := LoadConfiguration(bytes.NewBufferString("intervals:\n  expirationWarning: PT0S\n"))
	is.NoErr(err)

	expirationWarning, freshness, err := config.Intervals.Parse()
	is.NoErr(err)

	is.True(expirationWarning.IsZero())
	is.Equal(freshness, nil) // staleness warnings disabled
}

func TestBadDurationIsRejectedEagerly(t *testing.T) {
	is := is.New(t)

	_, err := LoadConfiguration(bytes.NewBufferString("intervals:\n  expirationWarning: P1M\n"))

	is.True(err != nil)
	_, ok := err.(ConfigurationError)
	is.True(ok)
}

func setupConfigTest(t *testing.T) (*is.I, *Config) {
	is := is.New(t)
	config, err := LoadConfiguration(bytes.NewBuffer([]byte(configFile)))
	is.NoErr(err)

	return is, config
}

var configFile string = `
source:
  url: https://metadata.example.org/federation-metadata.xml
  cacheFile: /var/cache/mdpipe/federation-metadata.xml
history:
  logFile: /var/log/mdpipe/timestamps.log
intervals:
  expirationWarning: P2D
  freshness: P14D
`
