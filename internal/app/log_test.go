package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLineHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			level:   slog.LevelInfo,
			message: "scan started",
			want:    "2024-06-15T14:30:45Z\tINFO\trun-1\tscan started\n",
		},
		{
			name:    "with record attrs",
			level:   slog.LevelWarn,
			message: "skipping unreadable file",
			attrs:   []slog.Attr{slog.String("path", "docs/a.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tWARN\trun-1\tskipping unreadable file\tpath=docs/a.txt\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLineHandler(&buf, "run-1", slog.LevelDebug)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			require.NoError(t, h.Handle(context.Background(), r))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLineHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLineHandler(&buf, "run-2", slog.LevelInfo)).With("scan_id", "s1")
	logger.Info("flushed")

	assert.True(t, strings.HasSuffix(buf.String(), "\trun-2\tflushed\tscan_id=s1\n"), buf.String())
}

func TestLineHandler_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLineHandler(&buf, "run-3", slog.LevelInfo))
	logger.Debug("excluded", "path", ".DS_Store")
	assert.Empty(t, buf.String())

	logger.Info("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewLoggerWritesFile(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "log")
	var stderr bytes.Buffer

	logger, f, err := newLogger(&stderr, logDir, "run-4", true)
	require.NoError(t, err)
	require.NotNil(t, f)
	logger.Debug("debug line")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(logDir, "dupscan.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG\trun-4\tdebug line")
	assert.Equal(t, string(data), stderr.String())
}

func TestLineHandler_TraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLineHandler(&buf, "run-5", slog.LevelInfo))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "grouped")
	assert.True(t, strings.HasSuffix(buf.String(), "\tgrouped\ttrace_id=4bf92f3577b34da6a3ce929d0e0e4736\n"), buf.String())
}
