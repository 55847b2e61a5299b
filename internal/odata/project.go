package odata

import (
	"encoding/json"
	"fmt"
)

// Project serializes v (an entity struct) into the map sent to clients.
// Properties not declared by et are dropped, $select narrows the result
// (the key is always kept) and navigation properties appear only when expanded.
func Project(v any, et *EntityType, q *Query) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", et.Name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", et.Name, err)
	}
	return projectMap(m, et, q), nil
}

// ProjectAll projects every element of a slice of entities.
func ProjectAll[T any](items []T, et *EntityType, q *Query) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		m, err := Project(&items[i], et, q)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func projectMap(m map[string]any, et *EntityType, q *Query) map[string]any {
	out := make(map[string]any, len(m))
	selected := func(name string) bool {
		if q == nil || len(q.Select) == 0 || name == et.Key {
			return true
		}
		for _, s := range q.Select {
			if s == name {
				return true
			}
		}
		return false
	}
	for _, p := range et.Properties {
		if v, ok := m[p.Name]; ok && selected(p.Name) {
			out[p.Name] = v
		}
	}
	for _, nav := range et.Navigations {
		if !q.Expands(nav.Name) {
			continue
		}
		items, _ := m[nav.Name].([]any)
		projected := make([]any, 0, len(items))
		for _, it := range items {
			if child, ok := it.(map[string]any); ok {
				projected = append(projected, projectMap(child, nav.Target, nil))
			}
		}
		out[nav.Name] = projected
	}
	return out
}
