package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type rejection struct{}

func (rejection) Error() string {
	return "duplicate"
}

func (rejection) IsRejection() bool {
	return true
}

func TestWithContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "json")
	defer Initialize("info", "text")

	ctx := WithContextAttrs(context.Background(), "requestID", "req-1")
	ctx = WithContextAttrs(ctx, "userID", "renter-1", "dangling")
	InfoContext(ctx, "HTTP request")

	out := buf.String()
	assert.Contains(t, out, `"requestID":"req-1"`)
	assert.Contains(t, out, `"userID":"renter-1"`)
	assert.NotContains(t, out, "dangling")
}

func TestExitMethodWithErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", "text")
	defer Initialize("info", "text")

	ExitMethodWithError("svc.Create", rejection{})
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	ExitMethodWithError("svc.Create", errors.New("db down"))
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "error", "text")
	defer Initialize("info", "text")

	Info("hidden")
	Warn("hidden too")
	Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
