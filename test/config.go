package test

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DM_TEST_BUFFER_SIZE sizes the per-subscriber delta queue in scenarios
	BufferSize int `envconfig:"DM_TEST_BUFFER_SIZE" default:"16"`
	// DM_TEST_SINK_TIMEOUT bounds one delta delivery attempt
	SinkTimeout time.Duration `envconfig:"DM_TEST_SINK_TIMEOUT" default:"1s"`
	// DM_TEST_RESTART_INTERVAL is the supervisor's delay before restarting a crashed worker
	RestartInterval time.Duration `envconfig:"DM_TEST_RESTART_INTERVAL" default:"200ms"`
	// DM_TEST_WAIT is the ceiling for asynchronous assertions
	Wait time.Duration `envconfig:"DM_TEST_WAIT" default:"2s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
