package config

import (
	"log/slog"
	"time"

	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Ingest holds CLI flags for the index builder.
type Ingest struct {
	batchSize        int64
	settleDelay      time.Duration
	maxRetries       int64
	retryInterval    time.Duration
	embedConcurrency int64
}

// Flags returns CLI flags for ingest configuration
func (i *Ingest) Flags() []cli.Flag {
	defaults := usecase.DefaultIndexConfig()

	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "ingest-batch-size",
			Usage:       "Number of records per upsert batch",
			Value:       int64(defaults.BatchSize),
			Sources:     cli.EnvVars("BINSIGHT_INGEST_BATCH_SIZE"),
			Destination: &i.batchSize,
		},
		&cli.DurationFlag{
			Name:        "ingest-settle-delay",
			Usage:       "Wait between upsert and read-back verification",
			Value:       defaults.SettleDelay,
			Sources:     cli.EnvVars("BINSIGHT_INGEST_SETTLE_DELAY"),
			Destination: &i.settleDelay,
		},
		&cli.Int64Flag{
			Name:        "ingest-max-retries",
			Usage:       "Verification attempts per batch before giving up",
			Value:       int64(defaults.MaxRetries),
			Sources:     cli.EnvVars("BINSIGHT_INGEST_MAX_RETRIES"),
			Destination: &i.maxRetries,
		},
		&cli.DurationFlag{
			Name:        "ingest-retry-interval",
			Usage:       "Wait between verification attempts",
			Value:       defaults.RetryInterval,
			Sources:     cli.EnvVars("BINSIGHT_INGEST_RETRY_INTERVAL"),
			Destination: &i.retryInterval,
		},
		&cli.Int64Flag{
			Name:        "ingest-embed-concurrency",
			Usage:       "Concurrent embedding requests",
			Value:       int64(defaults.EmbedConcurrency),
			Sources:     cli.EnvVars("BINSIGHT_INGEST_EMBED_CONCURRENCY"),
			Destination: &i.embedConcurrency,
		},
	}
}

// LogAttrs returns log attributes for the ingest configuration
func (i *Ingest) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int64("batch_size", i.batchSize),
		slog.Duration("settle_delay", i.settleDelay),
		slog.Int64("max_retries", i.maxRetries),
		slog.Duration("retry_interval", i.retryInterval),
		slog.Int64("embed_concurrency", i.embedConcurrency),
	}
}

// IndexConfig returns the usecase configuration built from the flags.
func (i *Ingest) IndexConfig() usecase.IndexConfig {
	return usecase.IndexConfig{
		BatchSize:        int(i.batchSize),
		SettleDelay:      i.settleDelay,
		MaxRetries:       uint(i.maxRetries),
		RetryInterval:    i.retryInterval,
		EmbedConcurrency: int(i.embedConcurrency),
	}
}
