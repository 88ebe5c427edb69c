// Package models defines the values exchanged between the client core, the
// remote store implementations and the backend: schema-less records, query
// descriptors, auth sessions, realtime change events and stored files.
package models

import "slices"

// Record is one schema-less row of a collection.
type Record map[string]any

// ID returns the record's id field, or "" when it is missing or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a deep copy: nested objects and arrays decoded from JSON
// ([]any, map[string]any, Record) are copied too, other values are shared.
// A nil record clones to nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a deep copy of r with the fields of patch applied on top.
func (r Record) Merge(patch Record) Record {
	out := make(Record, len(r)+len(patch))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case Record:
		return v.Clone()
	case map[string]any:
		if v == nil {
			return v
		}
		return map[string]any(Record(v).Clone())
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
