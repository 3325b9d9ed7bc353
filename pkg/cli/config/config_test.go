package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contech-ims/binsight/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644)).Required()
	return path
}

func loadAppConfig(t *testing.T, path string) (*config.AppConfig, error) {
	t.Helper()
	cfg := &config.AppConfig{}
	cmd := testCommand(cfg.Flags())
	gt.NoError(t, cmd.Run(t.Context(), []string{"test", "--config", path})).Required()
	return cfg.Configure()
}

func TestAppConfigLoadsChatRules(t *testing.T) {
	path := writeConfig(t, `
[chat]
rules = ["Always answer in English.", "Cite CO numbers when available."]
`)

	cfg, err := loadAppConfig(t, path)
	gt.NoError(t, err).Required()
	gt.Array(t, cfg.Chat.Rules).Length(2)
	gt.Value(t, cfg.Chat.Rules[0]).Equal("Always answer in English.")
}

func TestAppConfigMissingFile(t *testing.T) {
	_, err := loadAppConfig(t, filepath.Join(t.TempDir(), "nope.toml"))
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, config.ErrConfigNotFound)).True()
}

func TestAppConfigRejectsEmptyRule(t *testing.T) {
	path := writeConfig(t, `
[chat]
rules = ["  "]
`)

	_, err := loadAppConfig(t, path)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
}

func TestAppConfigWithoutFileIsEmpty(t *testing.T) {
	cfg := &config.AppConfig{}
	cmd := testCommand(cfg.Flags())
	gt.NoError(t, cmd.Run(t.Context(), []string{"test"})).Required()

	loaded, err := cfg.Configure()
	gt.NoError(t, err).Required()
	gt.Array(t, loaded.Chat.Rules).Length(0)
}
