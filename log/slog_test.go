package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitLoggerWithWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithWriter("INFO", "json", &buf, false))

	logger := GetLogger().WithChain("ibc0")
	logger.InfoContext(context.Background(), "chain started", "height", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "chain started", entry["msg"])
	require.Equal(t, "ibc0", entry["chain_id"])
	require.Equal(t, float64(42), entry["height"])
}

func TestInitLoggerValidation(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, InitLoggerWithWriter("VERBOSE", "json", &buf, false))
	require.Error(t, InitLoggerWithWriter("INFO", "logfmt", &buf, false))
	require.Error(t, InitLogger("INFO", "json", "/var/log/relayer.log", false))
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithWriter("WARN", "text", &buf, false))

	logger := GetLogger()
	logger.Debug("ignored")
	logger.Info("ignored")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestErrorIncludesStackTrace(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithWriter("DEBUG", "json", &buf, false))

	GetLogger().Error("relay failed", errors.New("connection refused"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "relay failed", entry["msg"])
	require.Equal(t, "connection refused", entry["error"])
	require.Contains(t, entry["stack"], "connection refused")
}

func TestInitLoggerWithExtraHandlers(t *testing.T) {
	var primary, secondary bytes.Buffer
	extra := slog.NewJSONHandler(&secondary, &slog.HandlerOptions{Level: slog.LevelInfo})
	require.NoError(t, InitLoggerWithWriter("INFO", "text", &primary, false, extra))

	GetLogger().Info("fanned out")
	require.Contains(t, primary.String(), "fanned out")
	require.Contains(t, secondary.String(), "fanned out")
}

func TestWithChannelPair(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithWriter("INFO", "json", &buf, false))

	GetLogger().
		WithChannelPair("ibc0", "transfer", "channel-0", "ibc1", "transfer", "channel-1").
		Info("relaying")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ibc0", entry["src_chain_id"])
	require.Equal(t, "channel-1", entry["dst_channel_id"])
}
