package api

import (
	"log/slog"
	"math"
	"time"
)

// HTTPServerConfig configures the example store server.
type HTTPServerConfig struct {
	// ListenAddr is the address of the store API.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus endpoint. Empty disables it.
	MetricsAddr string

	// EnablePprof mounts /debug/pprof on the API router.
	EnablePprof bool

	Log *slog.Logger

	// MaxValueSize bounds request bodies. Zero means MaxValueSize; values
	// above math.MaxInt64-1 are clamped so the body reader can look one byte
	// past the limit.
	MaxValueSize int64

	// DrainDuration is how long /drain keeps the server out of rotation
	// before the drain is reported complete.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds in-flight requests on shutdown.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WithDefaults returns a copy of cfg with unset fields filled in.
func (cfg HTTPServerConfig) WithDefaults() *HTTPServerConfig {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	switch {
	case cfg.MaxValueSize <= 0:
		cfg.MaxValueSize = MaxValueSize
	case cfg.MaxValueSize == math.MaxInt64:
		cfg.MaxValueSize = math.MaxInt64 - 1
	}
	if cfg.GracefulShutdownDuration <= 0 {
		cfg.GracefulShutdownDuration = 30 * time.Second
	}
	return &cfg
}
