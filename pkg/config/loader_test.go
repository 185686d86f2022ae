package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/config"
)

type testConfig struct {
	Addr    string `env:"TEST_HTTP_ADDR" envDefault:":8080"`
	Token   string `env:"TEST_HOTTOK,required"`
	Retries int    `env:"TEST_RETRIES" envDefault:"3"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults and required values", func(t *testing.T) {
		t.Setenv("TEST_HOTTOK", "secret")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "secret", cfg.Token)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("missing required value", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *testConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}
