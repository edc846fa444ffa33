package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	UserAgent string `json:"user_agent"`
	Timeout   int    `json:"timeout"`
	Debug     bool   `json:"debug"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		user_agent: "stlib/test",
		timeout: 10,
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{timeout: 30}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "stlib/test", cfg.UserAgent)
	require.Equal(t, 30, cfg.Timeout)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigOr(t *testing.T) {
	defaults := testConfig{UserAgent: "default", Timeout: 5}

	cfg, err := ReadConfigOr(filepath.Join(t.TempDir(), "config.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{debug: true}`)
	cfg, err = ReadConfigOr(filepath.Join(dir, "config.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, testConfig{UserAgent: "default", Timeout: 5, Debug: true}, cfg)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "a/b/config.local.json5", localName("a/b/config.json5"))
	require.Equal(t, "config.local", localName("config"))
}
