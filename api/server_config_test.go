package api

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPServerConfig_WithDefaults(t *testing.T) {
	cfg := (&HTTPServerConfig{ListenAddr: ":8080"}).WithDefaults()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.NotNil(t, cfg.Log)
	assert.EqualValues(t, MaxValueSize, cfg.MaxValueSize)
	assert.Equal(t, 30*time.Second, cfg.GracefulShutdownDuration)

	custom := HTTPServerConfig{MaxValueSize: 1024, GracefulShutdownDuration: time.Second}
	cfg = custom.WithDefaults()
	assert.EqualValues(t, 1024, cfg.MaxValueSize)
	assert.Equal(t, time.Second, cfg.GracefulShutdownDuration)

	// The original is left untouched.
	assert.Nil(t, custom.Log)
}

func TestHTTPServerConfig_WithDefaultsClampsMaxValueSize(t *testing.T) {
	cfg := (&HTTPServerConfig{MaxValueSize: math.MaxInt64}).WithDefaults()
	assert.EqualValues(t, int64(math.MaxInt64-1), cfg.MaxValueSize)

	// The body limit is one byte past the value limit and must not wrap.
	assert.Positive(t, cfg.MaxValueSize+1)
}
