package nuxeo

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.BaseURL = "https://nuxeo.example.com/nuxeo"
		return cfg
	}

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("MissingBaseURL", func(t *testing.T) {
		cfg := valid()
		cfg.BaseURL = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("BadScheme", func(t *testing.T) {
		cfg := valid()
		cfg.BaseURL = "ldap://directory.example.com"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http or https")
	})

	t.Run("ZeroTimeout", func(t *testing.T) {
		cfg := valid()
		cfg.Timeout = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("NegativeChunkSize", func(t *testing.T) {
		cfg := valid()
		cfg.ChunkSize = -1
		require.Error(t, cfg.Validate())
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultAPIPath, cfg.APIPath)
	assert.Equal(t, DefaultRepository, cfg.Repository)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.EqualValues(t, DefaultChunkSize, cfg.ChunkSize)
	require.NotNil(t, cfg.TLSVerify)
	assert.True(t, *cfg.TLSVerify)
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("VerifiedByDefault", func(t *testing.T) {
		cfg := DefaultConfig()
		client := cfg.NewHTTPClient()
		assert.Equal(t, cfg.Timeout, client.Timeout)
	})

	t.Run("SkipsVerificationWhenDisabled", func(t *testing.T) {
		cfg := DefaultConfig()
		verify := false
		cfg.TLSVerify = &verify

		transport := cfg.NewHTTPClient().Transport.(*http.Transport)
		require.NotNil(t, transport.TLSClientConfig)
		assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
	})
}
