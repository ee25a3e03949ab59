package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger_SupportedBackends(t *testing.T) {
	for _, name := range []string{"", "zap", "zerolog"} {
		t.Run(name, func(t *testing.T) {
			logger, err := NewLogger(&LoggerConfig{Logger: name, Level: "error"})

			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info(Room, Join, "member joined", map[ExtraKey]any{MemberName: "alice"})
		})
	}
}

func TestNewLogger_UnknownBackend(t *testing.T) {
	_, err := NewLogger(&LoggerConfig{Logger: "logrus"})

	require.Error(t, err)
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(&LoggerConfig{Logger: "zap", Level: "info", FilePath: dir})
	require.NoError(t, err)

	logger.Info(General, Startup, "hello", nil)
	_ = logger.Sync()

	require.FileExists(t, dir+"/kickroom.log")
}

func TestLogParamsToZapParams(t *testing.T) {
	params := logParamsToZapParams(map[ExtraKey]any{MemberID: "42"})

	require.Equal(t, []any{"MemberId", "42"}, params)
}
