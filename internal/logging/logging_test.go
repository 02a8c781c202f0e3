package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "json"} {
		l, err := New("warn", format)
		require.NoError(t, err, format)
		assert.False(t, l.Core().Enabled(zap.InfoLevel))
		assert.True(t, l.Core().Enabled(zap.WarnLevel))
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}
