package reascript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/reabind/hostfunc"
)

func TestCatalogDeclaresOutputShapes(t *testing.T) {
	tests := []struct {
		name  string
		arity int
	}{
		{"CountTracks", 1},
		{"DeleteTrack", 0},
		{"EnumProjects", 4},
		{"GetProjectName", 3},
		{"GetTrackName", 4},
		{"GetProjExtState", 6},
		{"Envelope_Evaluate", 9},
	}
	for _, tt := range tests {
		sig, ok := Catalog().Lookup(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.arity, sig.Arity(), tt.name)
	}
}

func TestMust(t *testing.T) {
	assert.Equal(t, hostfunc.KindHandle, Must("GetTrack").Returns)
	assert.Panics(t, func() { Must("GetTracks") })
}
