package config

import "time"

func applyDefaults(cfg *Config) {
	applyAgentDefaults(&cfg.Agent)
	applySchedulerDefaults(&cfg.Scheduler)
	applySlicerDefaults(&cfg.Slicer)
	applyContextStoreDefaults(&cfg.ContextStore)
	applyLoggingDefaults(&cfg.Logging)
}

func applyAgentDefaults(cfg *AgentConfig) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 50
	}
	if cfg.CallRingCapacity <= 0 {
		cfg.CallRingCapacity = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryBackoff == "" {
		cfg.RetryBackoff = BackoffExponential
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
}

func applySlicerDefaults(cfg *SlicerConfig) {
	if cfg.BudgetTokens <= 0 {
		cfg.BudgetTokens = 32000
	}
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = 0.75
	}
	if cfg.Intensity == "" {
		cfg.Intensity = "deep"
	}
}

func applyContextStoreDefaults(cfg *ContextStoreConfig) {
	if cfg.CleanupMaxAge <= 0 {
		cfg.CleanupMaxAge = 24 * time.Hour
	}
	if cfg.CleanupMaxCount <= 0 {
		cfg.CleanupMaxCount = 50
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}
