// ABOUTME: Ordered side-map of upstream attributes that are not modeled as core struct fields
// ABOUTME: Decoding splits a JSON object into core fields plus extras; encoding writes core then extras

package pipedrive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Extra preserves upstream fields in wire order as undecoded JSON.
type Extra = orderedmap.OrderedMap[string, json.RawMessage]

// fieldSet is the set of JSON keys a struct models explicitly.
type fieldSet map[string]struct{}

// coreFields collects the json tag names of v's exported fields.
func coreFields(v any) fieldSet {
	set := make(fieldSet)
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

// decodeWithExtra decodes data into dst and returns every top-level key that
// core does not model. dst must point at a type without its own UnmarshalJSON.
func decodeWithExtra(data []byte, core fieldSet, dst any) (*Extra, error) {
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var extra *Extra
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if _, modeled := core[key]; modeled {
			continue
		}
		if extra == nil {
			extra = orderedmap.New[string, json.RawMessage]()
		}
		extra.Set(key, raw)
	}
	return extra, nil
}

// encodeWithExtra marshals core and appends extra's entries to the object.
func encodeWithExtra(core any, extra *Extra) ([]byte, error) {
	b, err := json.Marshal(core)
	if err != nil {
		return nil, err
	}
	if extra == nil || extra.Len() == 0 {
		return b, nil
	}

	var buf bytes.Buffer
	buf.Write(b[:len(b)-1])
	first := len(b) == 2
	for pair := extra.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// attr looks up one extra attribute.
func attr(extra *Extra, key string) (json.RawMessage, bool) {
	if extra == nil {
		return nil, false
	}
	return extra.Get(key)
}
