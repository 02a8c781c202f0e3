// Package handle encodes the opaque native handles the host hands out for
// projects, tracks, envelopes and items.
//
// A handle prints as "(<Tag>*)0x<16 hex digits>", e.g.
// "(MediaTrack*)0x00000000052A3F70". Handles are never dereferenced by this
// module; they are identities passed back to the host for interpretation.
// The all-zero value is the host's "not found" answer.
package handle

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"

	rerrors "github.com/caffeineduck/reabind/errors"
)

// Tags used by the host for the entities this module wraps.
const (
	TagProject  = "ReaProject"
	TagTrack    = "MediaTrack"
	TagEnvelope = "TrackEnvelope"
	TagItem     = "MediaItem"
	TagTake     = "MediaItem_Take"
)

var (
	pattern = regexp.MustCompile(`^\(([A-Za-z_][A-Za-z0-9_]*)\*\)0x([0-9A-Fa-f]{16})$`)
	tagRE   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Handle is a comparable value identifying one host-side resource.
type Handle struct {
	Tag   string
	Value uint64
}

// New returns the handle for tag and raw. It does not validate tag.
func New(tag string, raw uint64) Handle {
	return Handle{Tag: tag, Value: raw}
}

// Sentinel returns the "not found" handle for tag.
func Sentinel(tag string) Handle {
	return Handle{Tag: tag}
}

func (h Handle) String() string {
	return fmt.Sprintf("(%s*)0x%016X", h.Tag, h.Value)
}

// IsSentinel reports whether h is the host's "not found" value.
func (h Handle) IsSentinel() bool {
	return h.Value == 0
}

// TypeName is the pointer type name the host validates against,
// e.g. "MediaTrack*".
func (h Handle) TypeName() string {
	return h.Tag + "*"
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	d, err := Decode(string(text))
	if err != nil {
		return err
	}
	*h = d
	return nil
}

// IsSentinel reports whether h is the host's "not found" value.
func IsSentinel(h Handle) bool {
	return h.IsSentinel()
}

// Encode produces the canonical string for tag and raw. raw may be any Go
// integer, a *big.Int or a json.Number; negative values and values wider
// than 64 bits fail with a ValueError.
func Encode(tag string, raw any) (string, error) {
	if !tagRE.MatchString(tag) {
		return "", rerrors.Value("handle.Encode", "invalid type tag", tag)
	}
	v, err := toUint64(raw)
	if err != nil {
		return "", err
	}
	return New(tag, v).String(), nil
}

// Decode parses a canonical handle string. Hex digits are accepted in
// either case.
func Decode(s string) (Handle, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Handle{}, rerrors.Format(s, "not a handle of the form (Tag*)0x0123456789ABCDEF")
	}
	v, err := strconv.ParseUint(m[2], 16, 64)
	if err != nil {
		return Handle{}, rerrors.Format(s, err.Error())
	}
	return Handle{Tag: m[1], Value: v}, nil
}

// Looks reports whether s is syntactically a handle.
func Looks(s string) bool {
	return len(s) > 20 && s[0] == '(' && pattern.MatchString(s)
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

func toUint64(raw any) (uint64, error) {
	neg := func() (uint64, error) {
		return 0, rerrors.Value("handle.Encode", "negative raw value", raw)
	}
	switch v := raw.(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uintptr:
		return uint64(v), nil
	case int:
		if v < 0 {
			return neg()
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return neg()
		}
		return uint64(v), nil
	case int32:
		if v < 0 {
			return neg()
		}
		return uint64(v), nil
	case int16:
		if v < 0 {
			return neg()
		}
		return uint64(v), nil
	case int8:
		if v < 0 {
			return neg()
		}
		return uint64(v), nil
	case json.Number:
		b, ok := new(big.Int).SetString(string(v), 10)
		if !ok {
			return 0, rerrors.Value("handle.Encode", "not an integer", raw)
		}
		return toUint64(b)
	case *big.Int:
		if v == nil {
			return 0, rerrors.Value("handle.Encode", "nil raw value", raw)
		}
		if v.Sign() < 0 {
			return neg()
		}
		if v.Cmp(maxUint64) > 0 {
			return 0, rerrors.Value("handle.Encode", "raw value exceeds 64 bits", raw)
		}
		return v.Uint64(), nil
	default:
		return 0, rerrors.Value("handle.Encode", fmt.Sprintf("unsupported raw value type %T", raw), raw)
	}
}
