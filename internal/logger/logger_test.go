package logger

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestSanitizeRedactsCredentials(t *testing.T) {
	l, logs := newObserved()
	l.Info("calling model", "api_key", "sk-123", "model", "llama")

	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "llama", fields["model"])
}

func TestSanitizeHashesUserID(t *testing.T) {
	l, logs := newObserved()
	l.Warn("history append failed", "user_id", "alice")

	got, ok := logs.All()[0].ContextMap()["user_id"].(string)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(got, "hash:"))
	assert.NotContains(t, got, "alice")
	assert.Len(t, got, len("hash:")+12)
}

func TestWithKeepsSanitizing(t *testing.T) {
	l, logs := newObserved()
	l.With("user_id", "bob").Info("ok")
	got := logs.All()[0].ContextMap()["user_id"].(string)
	assert.NotEqual(t, "bob", got)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("  abc ", 10))
	assert.Equal(t, "abcde...", Preview("abcdefgh", 5))

	got := Preview("Hämoglobin 13,5 g/dL", 2)
	assert.Equal(t, "Hä...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "São", Preview("São", 3))
}
