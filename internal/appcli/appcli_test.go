package appcli_test

import (
	"bytes"
	"testing"

	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/config"
	"github.com/suckgeun/mcp-sample/internal/appcli"
	"github.com/urfave/cli/v2"
)

func TestParseLogLevel(t *testing.T) {
	tcases := []struct {
		in    string
		level xlog.LogLevel
		err   string
	}{
		{"DEBUG", xlog.DEBUG, ""},
		{" info ", xlog.INFO, ""},
		{"warn", xlog.WARNING, ""},
		{"trace", xlog.TRACE, ""},
		{"verbose", xlog.INFO, `invalid log level: "verbose"`},
	}
	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			l, err := appcli.ParseLogLevel(tc.in)
			if tc.err != "" {
				require.Error(t, err)
				assert.Equal(t, tc.err, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.level, l)
		})
	}
}

func runSetup(t *testing.T, args ...string) (*config.Config, error) {
	var (
		cfg    *config.Config
		runErr error
	)
	app := &cli.App{
		Name:  "test",
		Flags: appcli.Flags(),
		Action: func(c *cli.Context) error {
			cfg, runErr = appcli.Setup(c, &bytes.Buffer{})
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg, runErr
}

func TestSetup(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := runSetup(t, "--env-file", "missing.env")
		require.NoError(t, err)
		assert.Equal(t, "INFO", cfg.LogLevel)
		assert.Equal(t, 5, cfg.Search.Count)
	})

	t.Run("file", func(t *testing.T) {
		cfg, err := runSetup(t, "--config", "../../config/testdata/config.yaml", "--log-level", "ERROR")
		require.NoError(t, err)
		assert.Equal(t, "tavily", cfg.Search.Backend)
		assert.Equal(t, 8, cfg.Chat.MaxToolCalls)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := runSetup(t, "--log-level", "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := runSetup(t, "--config", "../../config/testdata/invalid.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
