package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal("0.0.0.0", config.Host)
	req.Equal(4000, config.Port)
	req.Equal("*", config.AllowedOrigin)
	req.Equal(1000, config.HistoryLimit)
	req.Equal(720*time.Hour, config.HistoryTTL)
	req.Equal(5*time.Second, config.DeliveryTimeout)
	req.False(config.Standalone)
	req.False(config.MultiRoom)
	req.Empty(config.AuthSecret)
}

func TestConfig_Reads_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "8080")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("STANDALONE", "true")
	t.Setenv("AUTH_SECRET", "secret")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(8080, config.Port)
	req.Equal(25, config.HistoryLimit)
	req.True(config.Standalone)
	req.Equal("secret", config.AuthSecret)
}
