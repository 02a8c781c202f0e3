package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Frame delimiters. Format: \x00REAB:{json}\x00
//
// encoding/json escapes control characters, so a payload never contains a
// raw NUL and the suffix is unambiguous.
const (
	framePrefix = "\x00REAB:"
	frameSuffix = "\x00"
)

// FrameWriter writes one frame per message. Safe for concurrent use.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Write encodes v as JSON and writes it as a single frame.
func (fw *FrameWriter) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	buf := make([]byte, 0, len(framePrefix)+len(data)+len(frameSuffix))
	buf = append(buf, framePrefix...)
	buf = append(buf, data...)
	buf = append(buf, frameSuffix...)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	_, err = fw.w.Write(buf)
	return err
}

// FrameReader splits a byte stream into frame payloads. Bytes outside any
// frame, such as log lines sharing the stream, are copied to the passthrough
// writer when one is set and dropped otherwise.
type FrameReader struct {
	r           io.Reader
	passthrough io.Writer
	buf         bytes.Buffer
	chunk       []byte
}

func NewFrameReader(r io.Reader, passthrough io.Writer) *FrameReader {
	return &FrameReader{r: r, passthrough: passthrough, chunk: make([]byte, 32*1024)}
}

// Next returns the payload of the next complete frame.
func (fr *FrameReader) Next() ([]byte, error) {
	for {
		if payload, ok := fr.scan(); ok {
			return payload, nil
		}
		n, err := fr.r.Read(fr.chunk)
		if n > 0 {
			fr.buf.Write(fr.chunk[:n])
			continue
		}
		if err != nil {
			if err == io.EOF && fr.buf.Len() > 0 {
				fr.pass(fr.buf.String())
				fr.buf.Reset()
			}
			return nil, err
		}
	}
}

func (fr *FrameReader) scan() ([]byte, bool) {
	content := fr.buf.String()
	idx := findFrame(content)
	if idx == -1 {
		keep := partialPrefix(content)
		fr.pass(content[:len(content)-keep])
		fr.buf.Reset()
		fr.buf.WriteString(content[len(content)-keep:])
		return nil, false
	}

	fr.pass(content[:idx])
	payload, remaining, ok := extractFrame(content, idx)
	fr.buf.Reset()
	fr.buf.WriteString(remaining)
	if !ok {
		return nil, false
	}
	return []byte(payload), true
}

func (fr *FrameReader) pass(s string) {
	if s != "" && fr.passthrough != nil {
		io.WriteString(fr.passthrough, s)
	}
}

// findFrame returns the index of the next frame prefix, or -1.
func findFrame(content string) int {
	return strings.Index(content, framePrefix)
}

// extractFrame returns the payload of the frame starting at idx and the
// content following it. When the frame is incomplete it returns ok=false and
// remaining holds the partial frame.
func extractFrame(content string, idx int) (payload, remaining string, ok bool) {
	start := idx + len(framePrefix)
	end := strings.Index(content[start:], frameSuffix)
	if end == -1 {
		return "", content[idx:], false
	}
	return content[start : start+end], content[start+end+len(frameSuffix):], true
}

// partialPrefix is the length of the longest suffix of content that could
// be the start of a frame prefix split across reads.
func partialPrefix(content string) int {
	limit := min(len(framePrefix)-1, len(content))
	for n := limit; n > 0; n-- {
		if strings.HasPrefix(framePrefix, content[len(content)-n:]) {
			return n
		}
	}
	return 0
}
