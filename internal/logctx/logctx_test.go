package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromContext_NilContext(t *testing.T) {
	// FromContext(nil) should return default logger, not panic
	logger := FromContext(nil)

	// Verify it works by logging something
	var buf bytes.Buffer
	testLogger := logger.Output(&buf)
	testLogger.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestFromContext_ContextWithoutLogger(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// Should return default logger
	var buf bytes.Buffer
	testLogger := logger.Output(&buf)
	testLogger.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestWithLogger_AndFromContext(t *testing.T) {
	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := WithLogger(context.Background(), customLogger)
	logger := FromContext(ctx)

	logger.Info().Msg("test")

	output := buf.String()
	if !strings.Contains(output, `"custom":"field"`) {
		t.Errorf("expected custom field in output, got: %s", output)
	}
}

func TestWithStr(t *testing.T) {
	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), baseLogger)
	ctx = WithStr(ctx, "image", "boot.img")

	logger := FromContext(ctx)
	logger.Info().Msg("test")

	if !strings.Contains(buf.String(), `"image":"boot.img"`) {
		t.Errorf("expected image field in output, got: %s", buf.String())
	}
}

func TestWithInt(t *testing.T) {
	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), baseLogger)
	ctx = WithInt(ctx, "page_size", 2048)

	logger := FromContext(ctx)
	logger.Info().Msg("test")

	if !strings.Contains(buf.String(), `"page_size":2048`) {
		t.Errorf("expected page_size field in output, got: %s", buf.String())
	}
}

func TestNewConfiguredLogger(t *testing.T) {
	// Should not panic in any mode combination.
	for _, debug := range []bool{false, true} {
		for _, human := range []bool{false, true} {
			logger := NewConfiguredLogger(debug, human)
			logger.Info().Msg("configured")
		}
	}
}
