package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFrame(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIdx int
	}{
		{"no frame", "hello world", -1},
		{"frame", "prefix\x00REAB:{}\x00suffix", 6},
		{"frame first", "\x00REAB:{}\x00\x00REAB:{}\x00", 0},
		{"bare nul", "a\x00b", -1},
		{"empty content", "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIdx, findFrame(tt.content))
		})
	}
}

func TestExtractFrame(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		idx           int
		wantPayload   string
		wantRemaining string
		wantOK        bool
	}{
		{
			name:          "valid frame",
			content:       "prefix" + "\x00REAB:{\"fn\":\"CountTracks\"}\x00" + "suffix",
			idx:           6,
			wantPayload:   `{"fn":"CountTracks"}`,
			wantRemaining: "suffix",
			wantOK:        true,
		},
		{
			name:          "incomplete frame",
			content:       "prefix\x00REAB:{partial",
			idx:           6,
			wantPayload:   "",
			wantRemaining: "\x00REAB:{partial",
			wantOK:        false,
		},
		{
			name:          "back to back",
			content:       "\x00REAB:1\x00\x00REAB:2\x00",
			idx:           0,
			wantPayload:   "1",
			wantRemaining: "\x00REAB:2\x00",
			wantOK:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, remaining, ok := extractFrame(tt.content, tt.idx)
			assert.Equal(t, tt.wantPayload, payload)
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestPartialPrefix(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"log line", 0},
		{"log\x00", 1},
		{"log\x00RE", 3},
		{"log\x00REAB", 5},
		{"\x00REAB:", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, partialPrefix(tt.content), "partialPrefix(%q)", tt.content)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var stream bytes.Buffer
	fw := NewFrameWriter(&stream)

	stream.WriteString("starting host\n")
	require.NoError(t, fw.Write(Request{ID: "1", Fn: "CountTracks"}))
	stream.WriteString("between\n")
	require.NoError(t, fw.Write(Request{ID: "2", Fn: "GetTrack"}))
	stream.WriteString("trailing")

	var logs strings.Builder
	// One byte per read splits every prefix across reads.
	fr := NewFrameReader(iotest.OneByteReader(&stream), &logs)

	for _, wantFn := range []string{"CountTracks", "GetTrack"} {
		payload, err := fr.Next()
		require.NoError(t, err)
		var req Request
		require.NoError(t, json.Unmarshal(payload, &req), "payload %q", payload)
		assert.Equal(t, wantFn, req.Fn)
	}

	_, err := fr.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, "starting host\nbetween\ntrailing", logs.String())
}

func TestFramePayloadEscapesNUL(t *testing.T) {
	var stream bytes.Buffer
	require.NoError(t, NewFrameWriter(&stream).Write(map[string]string{"name": "a\x00b"}))
	payload, err := NewFrameReader(&stream, nil).Next()
	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "a\x00b", got["name"])
}
