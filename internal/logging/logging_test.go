package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"storefront-payments/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, config.Log{Level: "info", Format: "json"})).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	slog.New(NewHandler(&buf, config.Log{Level: "info", Format: "text"})).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	slog.New(NewHandler(&buf, config.Log{Level: "warn"})).Info("dropped")
	assert.Empty(t, buf.String())
}

func TestFromCtx(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	assert.Same(t, fallback, FromCtx(context.Background(), fallback))
	assert.Same(t, l, FromCtx(WithCtx(context.Background(), l), fallback))
}
