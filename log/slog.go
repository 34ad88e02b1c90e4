package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	slogmulti "github.com/samber/slog-multi"
)

// RelayLogger wraps slog.Logger with relay-specific field helpers.
type RelayLogger struct {
	slog.Logger
}

var relayLogger *RelayLogger

func parseLevel(logLevel string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %v", logLevel, err)
	}
	return level, nil
}

// InitLogger initializes the global logger. The output is either "stdout" or "stderr".
func InitLogger(logLevel, format, output string, addSource bool) error {
	var writer io.Writer
	switch output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		return errors.Newf("invalid log output: %s", output)
	}
	return InitLoggerWithWriter(logLevel, format, writer, addSource)
}

// InitLoggerWithWriter initializes the global logger with a given writer.
// Additional handlers registered via extraHandlers are fanned out with slog-multi.
func InitLoggerWithWriter(logLevel, format string, writer io.Writer, addSource bool, extraHandlers ...slog.Handler) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(writer, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOpts)
	default:
		return errors.Newf("invalid log format: %s", format)
	}

	if len(extraHandlers) > 0 {
		handler = slogmulti.Fanout(append([]slog.Handler{handler}, extraHandlers...)...)
	}

	relayLogger = &RelayLogger{
		*slog.New(handler),
	}
	return nil
}

// GetLogger returns the global logger. InitLogger must be called beforehand.
func GetLogger() *RelayLogger {
	return relayLogger
}

// Error logs an error message with its stack trace.
func (rl *RelayLogger) Error(msg string, err error, otherArgs ...any) {
	rl.ErrorContext(context.Background(), msg, err, otherArgs...)
}

// ErrorContext logs an error message with its stack trace.
func (rl *RelayLogger) ErrorContext(ctx context.Context, msg string, err error, otherArgs ...any) {
	err = errors.WithStackDepth(err, 1)
	args := []any{"error", err, "stack", fmt.Sprintf("%+v", err)}
	args = append(args, otherArgs...)
	rl.Logger.ErrorContext(ctx, msg, args...)
}

// TimeTrack logs the elapsed time since `start` at info level.
func (rl *RelayLogger) TimeTrack(start time.Time, name string, otherArgs ...any) {
	elapsed := time.Since(start)
	args := []any{"name", name, "elapsed", elapsed.Nanoseconds()}
	args = append(args, otherArgs...)
	rl.Logger.Log(context.Background(), slog.LevelInfo, "time track", args...)
}

func (rl *RelayLogger) WithChain(chainID string) *RelayLogger {
	return &RelayLogger{
		*rl.With("chain_id", chainID),
	}
}

func (rl *RelayLogger) WithChainPair(
	srcChainID string,
	dstChainID string,
) *RelayLogger {
	return &RelayLogger{
		*rl.With(
			"src_chain_id", srcChainID,
			"dst_chain_id", dstChainID,
		),
	}
}

func (rl *RelayLogger) WithClientPair(
	srcChainID, srcClientID string,
	dstChainID, dstClientID string,
) *RelayLogger {
	return &RelayLogger{
		*rl.With(
			"src_chain_id", srcChainID,
			"src_client_id", srcClientID,
			"dst_chain_id", dstChainID,
			"dst_client_id", dstClientID,
		),
	}
}

func (rl *RelayLogger) WithChannel(
	chainID, portID, channelID string,
) *RelayLogger {
	return &RelayLogger{
		*rl.With(
			"chain_id", chainID,
			"port_id", portID,
			"channel_id", channelID,
		),
	}
}

func (rl *RelayLogger) WithChannelPair(
	srcChainID, srcPortID, srcChannelID string,
	dstChainID, dstPortID, dstChannelID string,
) *RelayLogger {
	return &RelayLogger{
		*rl.With(
			"src_chain_id", srcChainID,
			"src_port_id", srcPortID,
			"src_channel_id", srcChannelID,
			"dst_chain_id", dstChainID,
			"dst_port_id", dstPortID,
			"dst_channel_id", dstChannelID,
		),
	}
}

func (rl *RelayLogger) WithPacket(
	srcChainID, srcPortID, srcChannelID string,
	sequence uint64,
) *RelayLogger {
	return &RelayLogger{
		*rl.With(
			"src_chain_id", srcChainID,
			"src_port_id", srcPortID,
			"src_channel_id", srcChannelID,
			"sequence", sequence,
		),
	}
}

func (rl *RelayLogger) WithModule(moduleName string) *RelayLogger {
	return &RelayLogger{
		*rl.With("module", moduleName),
	}
}
