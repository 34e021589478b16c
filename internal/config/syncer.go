package config

import "time"

// SyncerConfig tunes the worker that copies records into the Redis read model.
type SyncerConfig struct {
	// Enabled lets a deployment keep the binary but skip the worker loop.
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// Queue consumption.
	PopTimeout     time.Duration `envconfig:"POP_TIMEOUT" default:"5s" validate:"gt=0"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"3" validate:"min=0"`
	BaseRetryDelay time.Duration `envconfig:"BASE_RETRY_DELAY" default:"1s" validate:"gt=0"`

	// Full rebuilds. The marker key is checked every HydrationCheckInterval;
	// placements are read HydrationBatchSize at a time and written by
	// HydrationConcurrency goroutines.
	HydrationCheckInterval time.Duration `envconfig:"HYDRATION_CHECK_INTERVAL" default:"10s" validate:"gt=0"`
	HydrationConcurrency   int           `envconfig:"HYDRATION_CONCURRENCY" default:"10" validate:"min=1"`
	HydrationBatchSize     int           `envconfig:"HYDRATION_BATCH_SIZE" default:"100" validate:"min=1,max=1000"`
}
