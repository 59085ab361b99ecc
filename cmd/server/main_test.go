package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenproof/greenproof-backend/internal/config"
)

func executeRoot(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRootHelp(t *testing.T) {
	out := executeRoot(t, "--help")
	for _, want := range []string{"serve", "migrate", "seed", "--env-file", "--log-level"} {
		assert.Contains(t, out, want)
	}
}

func TestServeHelp(t *testing.T) {
	out := executeRoot(t, "serve", "--help")
	assert.Contains(t, out, "--port")
}

func TestInitConfigAppliesLogLevelFlag(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("LOG_LEVEL", "info")
	previous := logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetLevel(previous)
		logLevel = ""
		cfg = nil
	})

	logLevel = "debug"
	require.NoError(t, initConfig())
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestConfigureLogging(t *testing.T) {
	previous := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(previous) })

	require.NoError(t, configureLogging(config.LogConfig{Level: "warn", Format: "json"}))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	_, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	assert.Error(t, configureLogging(config.LogConfig{Level: "loud"}))
	logrus.SetFormatter(&logrus.TextFormatter{})
}
