package log

import (
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Run("Should map known spellings regardless of case", func(t *testing.T) {
		assert.Equal(t, LevelDebug, ParseLevel("debug"))
		assert.Equal(t, LevelWarn, ParseLevel(" Warning "))
		assert.Equal(t, LevelError, ParseLevel("ERROR"))
	})

	t.Run("Should fall back to info for unknown values", func(t *testing.T) {
		assert.Equal(t, LevelInfo, ParseLevel(""))
		assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	})
}

func TestToCharmLevel(t *testing.T) {
	t.Run("Should convert every level", func(t *testing.T) {
		assert.Equal(t, charmlog.DebugLevel, toCharmLevel(LevelDebug))
		assert.Equal(t, charmlog.InfoLevel, toCharmLevel(LevelInfo))
		assert.Equal(t, charmlog.WarnLevel, toCharmLevel(LevelWarn))
		assert.Equal(t, charmlog.ErrorLevel, toCharmLevel(LevelError))
		assert.Equal(t, charmlog.InfoLevel, toCharmLevel(Level("other")))
	})
}
