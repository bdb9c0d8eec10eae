package cli

import (
	"github.com/spf13/pflag"

	"devicelink/internal/platform/config"
)

const (
	flagIn             = "in"
	flagOut            = "out"
	flagWorkers        = "workers"
	flagPace           = "pace"
	flagRetries        = "retries"
	flagRetryDelay     = "retry-delay"
	flagTimeout        = "timeout"
	flagBaseURL        = "base-url"
	flagCache          = "cache"
	flagPublishBrokers = "publish-brokers"
	flagPublishTopic   = "publish-topic"
	flagUpload         = "upload"
	flagAddr           = "addr"
)

func registerIOFlags(fs *pflag.FlagSet) {
	fs.String(flagIn, "", "Input file (.csv or .xlsx).")
	fs.String(flagOut, "", "Output file (.csv or .xlsx).")
}

// registerLookupFlags adds the flags shared by commands that query the lookup
// service. Defaults shown are the built-in ones; unset flags leave the
// configured value alone.
func registerLookupFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.Duration(flagTimeout, def.Lookup.Timeout, "Per-call timeout for lookup requests.")
	fs.Int(flagRetries, def.Lookup.Retries, "Retries per lookup call after a transient failure.")
	fs.Duration(flagRetryDelay, def.Lookup.RetryDelay, "Fixed delay between retries.")
	fs.String(flagBaseURL, def.Lookup.BaseURL, "Lookup service base URL.")
	fs.String(flagCache, def.Cache.Driver, `Resolution cache ("memory", "sqlite", "postgres", "redis", "none").`)
}

func registerBatchFlags(fs *pflag.FlagSet) {
	def := config.Default()
	fs.Int(flagWorkers, def.Batch.Workers, "Rows resolved concurrently.")
	fs.Duration(flagPace, def.Batch.Pace, "Minimum interval between rows; 0 disables pacing.")
	fs.StringSlice(flagPublishBrokers, nil, "Kafka brokers to stream row outcomes to.")
	fs.String(flagPublishTopic, def.Publish.Topic, "Kafka topic for row outcomes.")
	fs.String(flagUpload, "", "Upload the output file to s3://bucket/key when done.")
}

// applyFlags copies explicitly set flags over cfg. Flags that were not
// registered on fs are ignored.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || fs.Lookup(name) == nil || !fs.Changed(name) {
			return
		}
		err = apply()
	}

	set(flagTimeout, func() (e error) { cfg.Lookup.Timeout, e = fs.GetDuration(flagTimeout); return })
	set(flagRetries, func() (e error) { cfg.Lookup.Retries, e = fs.GetInt(flagRetries); return })
	set(flagRetryDelay, func() (e error) { cfg.Lookup.RetryDelay, e = fs.GetDuration(flagRetryDelay); return })
	set(flagBaseURL, func() (e error) { cfg.Lookup.BaseURL, e = fs.GetString(flagBaseURL); return })
	set(flagCache, func() (e error) { cfg.Cache.Driver, e = fs.GetString(flagCache); return })
	set(flagWorkers, func() (e error) { cfg.Batch.Workers, e = fs.GetInt(flagWorkers); return })
	set(flagPace, func() (e error) { cfg.Batch.Pace, e = fs.GetDuration(flagPace); return })
	set(flagPublishBrokers, func() (e error) { cfg.Publish.Brokers, e = fs.GetStringSlice(flagPublishBrokers); return })
	set(flagPublishTopic, func() (e error) { cfg.Publish.Topic, e = fs.GetString(flagPublishTopic); return })
	set(flagAddr, func() (e error) { cfg.Server.Addr, e = fs.GetString(flagAddr); return })
	if err != nil {
		return err
	}
	return cfg.Validate()
}
