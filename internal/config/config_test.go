// ABOUTME: Tests for configuration loading
// ABOUTME: Validates TOML parsing, env expansion, defaults, and validation failures

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@butler:example.org"
access_token = "syt_secret"
allowed_users = ["@alice:example.org", "@bob:example.org"]

[transmission]
host = "nas.local"
port = 9091
username = "transmission"
password = "hunter2"

[tracker]
host = "torrentday.com"
pass_key = "sekrit"

[extractor]
mode = "http"
timeout = "20s"

[history]
path = "/var/lib/torrentbutler/history.db"

[bridge]
typing_indicator = true

[logging]
level = "debug"
format = "text"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://matrix.example.org", cfg.Matrix.Homeserver)
	assert.Equal(t, []string{"@alice:example.org", "@bob:example.org"}, cfg.Matrix.AllowedUsers)
	assert.Equal(t, "nas.local", cfg.Transmission.Host)
	assert.Equal(t, "torrentday.com", cfg.Tracker.Host)
	assert.Equal(t, 20*time.Second, cfg.Extractor.Timeout)
	assert.True(t, cfg.Bridge.TypingIndicator)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_TB_TOKEN", "expanded_token")

	cfg, err := Load(writeConfig(t, `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@butler:example.org"
access_token = "${TEST_TB_TOKEN}"
allowed_users = ["@alice:example.org"]

[transmission]
host = "nas.local"
`))
	require.NoError(t, err)
	assert.Equal(t, "expanded_token", cfg.Matrix.AccessToken)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[matrix]
homeserver = "https://matrix.example.org"
user_id = "@butler:example.org"
access_token = "tok"
allowed_users = ["@alice:example.org"]

[transmission]
host = "nas.local"
`))
	require.NoError(t, err)

	assert.Equal(t, 9091, cfg.Transmission.Port)
	assert.Equal(t, "http", cfg.Extractor.Mode)
	assert.Equal(t, 15*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.History.Path)
}

func TestLoad_ValidationFailures(t *testing.T) {
	// Drop one required line at a time from an otherwise valid config.
	required := []string{
		`homeserver = "https://matrix.example.org"`,
		`user_id = "@butler:example.org"`,
		`access_token = "syt_secret"`,
		`allowed_users = ["@alice:example.org", "@bob:example.org"]`,
		`host = "nas.local"`,
	}
	for _, line := range required {
		t.Run(line, func(t *testing.T) {
			broken := strings.Replace(validConfig, line, "", 1)
			_, err := Load(writeConfig(t, broken))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadExtractorMode(t *testing.T) {
	bad := strings.Replace(validConfig, `mode = "http"`, `mode = "carrier-pigeon"`, 1)
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	bad := strings.Replace(validConfig, `timeout = "20s"`, `timeout = "soon"`, 1)
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
