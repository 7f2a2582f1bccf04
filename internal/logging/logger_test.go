package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"consultbot/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{}, config.AppConfig{Name: "consultbot"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_Level(t *testing.T) {
	logger, _, err := New(config.LoggingConfig{Level: " DEBUG "}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	logger, _, err = New(config.LoggingConfig{Level: "nonsense"}, config.AppConfig{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	logger, closer, err := New(
		config.LoggingConfig{Output: "file", FilePath: path},
		config.AppConfig{Name: "consultbot", Environment: "test", Version: "1.0.0"},
	)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Int64("user_id", 555).Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "consultbot", entry["app"])
	assert.Equal(t, "test", entry["env"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.EqualValues(t, 555, entry["user_id"])
}

func TestNew_FileOutputWithoutPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, config.AppConfig{})
	assert.Error(t, err)
}
