package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logTo returns a logger writing plain records to buf
func logTo(t *testing.T, buf *bytes.Buffer, level slog.Level) *slog.Logger {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	return slog.New(NewPrettyHandler(buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: level}}))
}

// fieldsOf decodes the attributes of a single logged line
func fieldsOf(t *testing.T, line string) map[string]interface{} {
	start := strings.Index(line, "{")
	require.GreaterOrEqual(t, start, 0, "Expected attributes in %q", line)

	fields := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(line[start:])), &fields), "Expected the attributes to be JSON")
	return fields
}

func TestPrettyHandlerHandle(t *testing.T) {
	t.Run("Valid call move record", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logTo(t, &buf, slog.LevelDebug)

		logger.Info("Challenge solved", slog.String("session", "0b1c"), slog.Int("steps", 3))

		line := buf.String()
		assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\.\d{3}\] INFO: Challenge solved \{`, line, "Expected time, level and message first")
		assert.Equal(t, map[string]interface{}{"session": "0b1c", "steps": float64(3)}, fieldsOf(t, line), "Expected the record attributes")
		assert.Equal(t, 1, strings.Count(line, "\n"), "Expected a single line")
	})

	t.Run("Valid call logger attributes are kept", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logTo(t, &buf, slog.LevelDebug).With(slog.String("room", "r1"))

		logger.Debug("Client joined", slog.String("player", "player1"))
		logger.Warn("Dropping slow client", slog.String("player", "player2"))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2, "Expected two records")
		assert.Contains(t, lines[0], "DEBUG: Client joined", "Expected the pretty format after With")
		assert.Equal(t, map[string]interface{}{"room": "r1", "player": "player1"}, fieldsOf(t, lines[0]), "Expected the room with the first record")
		assert.Contains(t, lines[1], "WARN: Dropping slow client", "Expected the warn level")
		assert.Equal(t, map[string]interface{}{"room": "r1", "player": "player2"}, fieldsOf(t, lines[1]), "Expected the room with the second record")
	})

	t.Run("Valid call groups and errors", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logTo(t, &buf, slog.LevelDebug)

		logger.Error("Error saving high score",
			slog.Group("cache", slog.Int("hits", 4), slog.Int("misses", 1)),
			slog.Any("error", errors.New("store down")),
		)

		fields := fieldsOf(t, buf.String())
		assert.Equal(t, map[string]interface{}{"hits": float64(4), "misses": float64(1)}, fields["cache"], "Expected the group as an object")
		assert.Equal(t, "store down", fields["error"], "Expected the error message")
	})

	t.Run("Valid call record without attributes", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		err := handler.Handle(context.Background(), slog.NewRecord(time.Date(2024, 1, 1, 9, 5, 7, 42e6, time.UTC), slog.LevelInfo, "Graph downloaded", 0))
		require.NoError(t, err, "Expected Handle to not return an error")
		assert.Contains(t, buf.String(), "[09:05:07.042]", "Expected the record time")
		assert.Contains(t, buf.String(), "{}", "Expected an empty attribute object")
	})

	t.Run("Invalid call records below the level are dropped", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logTo(t, &buf, slog.LevelWarn)

		logger.Info("Cache hit", slog.String("key", "search:tom"))
		assert.Empty(t, buf.String(), "Expected info to be dropped at warn level")

		logger.Warn("Dropping corrupt cache entry", slog.String("key", "search:tom"))
		assert.Contains(t, buf.String(), "search:tom", "Expected warn to be written")
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Valid call NewLogger", func(t *testing.T) {
		logger := NewLogger(slog.LevelWarn)
		require.NotNil(t, logger, "Expected NewLogger to return a non-nil logger")
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo), "Expected info to be disabled at warn level")
		assert.True(t, logger.Enabled(context.Background(), slog.LevelError), "Expected error to be enabled at warn level")
	})

	t.Run("Valid call LoggerOrDefault", func(t *testing.T) {
		assert.Equal(t, slog.Default(), LoggerOrDefault(nil), "Expected default logger for nil input")

		logger := NewLogger(slog.LevelInfo)
		assert.Equal(t, logger, LoggerOrDefault(logger), "Expected given logger to be returned")
	})
}
