package odata

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ApplyDelta copies the properties supplied in delta onto target, a pointer
// to an entity struct. Names match et's declared properties ignoring case;
// read-only and unknown names are skipped. Values convert weakly, so "5"
// fills an int and enum members may be given by name.
func ApplyDelta(target any, delta map[string]any, et *EntityType) error {
	filtered := make(map[string]any, len(delta))
	for k, v := range delta {
		p, ok := et.Property(k)
		if !ok || p.ReadOnly {
			continue
		}
		if n, ok := v.(json.Number); ok {
			v = n.String()
		}
		filtered[p.Name] = v
	}
	if len(filtered) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(filtered); err != nil {
		return invalidf("%s: %v", et.Name, err)
	}
	return nil
}

// DeltaKey extracts the key from a delta object, accepting an integral number
// or a numeric string.
func DeltaKey(delta map[string]any, et *EntityType) (int, error) {
	for k, v := range delta {
		if !strings.EqualFold(k, et.Key) {
			continue
		}
		switch id := v.(type) {
		case float64:
			if id != math.Trunc(id) || math.IsInf(id, 0) {
				return 0, invalidf("invalid %s %v", et.Key, id)
			}
			return int(id), nil
		case json.Number:
			n, err := strconv.Atoi(id.String())
			if err != nil {
				return 0, invalidf("invalid %s %q", et.Key, id)
			}
			return n, nil
		case string:
			n, err := strconv.Atoi(id)
			if err != nil {
				return 0, invalidf("invalid %s %q", et.Key, id)
			}
			return n, nil
		}
		return 0, invalidf("invalid %s %v", et.Key, v)
	}
	return 0, invalidf("%s delta without %q", et.Name, et.Key)
}

// KeyFromURL returns the key of the entity an @odata.id or $id URI points at.
// Both "addresses(5)" and "addresses/5" forms are accepted.
func KeyFromURL(uri string) (int, error) {
	s := strings.TrimSpace(uri)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	last := s[strings.LastIndex(s, "/")+1:]
	if open := strings.LastIndex(last, "("); open >= 0 && strings.HasSuffix(last, ")") {
		last = last[open+1 : len(last)-1]
		if eq := strings.Index(last, "="); eq >= 0 {
			last = last[eq+1:]
		}
		last = strings.Trim(last, "'")
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		return 0, invalidf("cannot find a key in %q", uri)
	}
	return n, nil
}

// DecodeEntity unmarshals a full entity body into target, keeping only the
// properties et declares. Properties hidden by a version are dropped.
func DecodeEntity(raw []byte, target any, et *EntityType) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return invalidf("%s body: %v", et.Name, err)
	}
	kept := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		if p, ok := et.Property(k); ok {
			kept[p.Name] = v
		}
	}
	b, err := json.Marshal(kept)
	if err != nil {
		return invalidf("%s body: %v", et.Name, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return invalidf("%s body: %v", et.Name, err)
	}
	return nil
}

// SplitBody returns the elements of a JSON array body, or the body itself
// as a single element. many reports whether the body was an array.
func SplitBody(raw []byte) (items []json.RawMessage, many bool, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, false, invalidf("empty body")
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{json.RawMessage(trimmed)}, false, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, true, invalidf("body: %v", err)
	}
	return items, true, nil
}

// DeltaList parses a bulk delta body: an array of objects or {"value": [...]}.
func DeltaList(raw []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	var deltas []map[string]any
	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Value []map[string]any `json:"value"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, invalidf("body: %v", err)
		}
		deltas = wrapped.Value
	} else if err := json.Unmarshal([]byte(trimmed), &deltas); err != nil {
		return nil, invalidf("body: %v", err)
	}
	if len(deltas) == 0 {
		return nil, invalidf("no deltas supplied")
	}
	return deltas, nil
}
