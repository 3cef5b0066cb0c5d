package resilience

import (
	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

// FromConfig translates the resilience section of a configuration. Zero
// durations and counts keep the defaults; a disabled retry policy makes a
// single attempt. maxConcurrent bounds parallel storage I/O.
func FromConfig(r domainconfig.ResilienceConfig, maxConcurrent int) ExecutorConfig {
	cfg := DefaultExecutorConfig()

	cfg.RetryMaxAttempts = 1
	if r.Retry.Enabled && r.Retry.MaxAttempts > 0 {
		cfg.RetryMaxAttempts = r.Retry.MaxAttempts
	}
	if d := r.Retry.InitialDelay.Duration(); d > 0 {
		cfg.RetryInitialDelay = d
	}
	if r.Retry.Multiplier > 0 {
		cfg.RetryBackoffMultiplier = r.Retry.Multiplier
	}

	if r.CircuitBreaker.Threshold > 0 {
		cfg.CircuitBreakerThreshold = r.CircuitBreaker.Threshold
	}
	if d := r.CircuitBreaker.Timeout.Duration(); d > 0 {
		cfg.CircuitBreakerTimeout = d
	}

	if d := r.Timeout.Duration(); d > 0 {
		cfg.DefaultTimeout = d
	}
	if maxConcurrent > 0 {
		cfg.MaxConcurrent = maxConcurrent
	}
	return cfg
}
