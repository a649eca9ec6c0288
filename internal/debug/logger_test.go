package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWithWriter(t *testing.T) {
	t.Cleanup(func() { Init(false) })

	t.Run("enabled writes debug", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(true, &buf)

		Debug("statement executed", "sql", "SELECT 1")
		assert.True(t, Enabled())
		assert.Contains(t, buf.String(), "statement executed")
		assert.Contains(t, buf.String(), "sql=\"SELECT 1\"")
	})

	t.Run("disabled keeps warnings", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(false, &buf)

		Debug("hidden")
		Warn("slow statement")
		assert.False(t, Enabled())
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "slow statement")
	})

	t.Run("component attribute", func(t *testing.T) {
		var buf bytes.Buffer
		InitWithWriter(true, &buf)

		Component("pool").Info("opened")
		assert.Contains(t, buf.String(), "component=pool")
	})
}
