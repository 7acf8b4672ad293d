package createconfiguration

import (
	"time"

	"card-program-wizard/internal/common/config"
)

type Config struct {
	Timeout   time.Duration
	CreatedBy string
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout, CreatedBy: "wizard-process"}
}
