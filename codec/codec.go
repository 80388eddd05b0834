// Package codec centralizes snapshot and catalog encoding.
//
// Codec selection is a format boundary: snapshots and manifests record the
// codec name in their header and are decoded with the codec of that name,
// so changing Default never breaks existing files.
package codec

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// Codec encodes trees and manifests.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// Name is stored next to encoded data and must never change.
	Name() string
}

// Default is the codec used for new snapshots and manifests.
var Default Codec = GoJSON{}

var builtin = []Codec{GoJSON{}, JSON{}}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	for _, c := range builtin {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Names returns the names of the built-in codecs, Default first.
func Names() []string {
	names := make([]string, len(builtin))
	for i, c := range builtin {
		names[i] = c.Name()
	}
	return names
}

// Resolve returns c, or Default when c is nil.
func Resolve(c Codec) Codec {
	if c == nil {
		return Default
	}
	return c
}

// GoJSON is backed by github.com/goccy/go-json.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }
func (GoJSON) Name() string                       { return "go-json" }

// JSON is backed by encoding/json. For the types stored by sitetree its
// output is byte-compatible with GoJSON, so either reads the other's files.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSON) Name() string                       { return "json" }
