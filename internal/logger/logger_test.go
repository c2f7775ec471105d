package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewModes(t *testing.T) {
	for _, mode := range []string{ModeDev, ModeProd, ModeQuiet, ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestSanitizesLearnerAndSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("completed", "email", "ada@example.com", "api_key", "sk-123", "input_tokens", 42, "lesson", "l1")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, HashValue("ada@example.com"), fields["email"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.EqualValues(t, 42, fields["input_tokens"])
	assert.Equal(t, "l1", fields["lesson"])
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With("component", "server")

	l.Warn("slow request")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "server", logs.All()[0].ContextMap()["component"])
}

func TestHashValue(t *testing.T) {
	assert.Equal(t, "", HashValue(""))
	assert.Equal(t, HashValue("a"), HashValue("a"))
	assert.NotEqual(t, HashValue("a"), HashValue("b"))
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("ignored", "k", "v")
	l.Sync()
}
