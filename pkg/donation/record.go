package donation

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Status values observed on the list endpoint. The platform owns the set;
// anything else is carried through untouched.
const (
	StatusProcessing = "processing"
	StatusConfirmed  = "confirmed"
	StatusAbandoned  = "abandoned"
)

// Record is a single donation as returned by the platform.
// Only a handful of fields are interpreted; the rest is passed downstream as-is.
type Record map[string]any

// ID returns the record's identifier from "_id", falling back to "id".
// Returns "" when neither field holds a string or number.
func (r Record) ID() string {
	for _, key := range []string{"_id", "id"} {
		switch v := r[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// Status returns the status field, or "" if absent or not a string.
func (r Record) Status() string {
	s, _ := r["status"].(string)
	return s
}

// CreatedAt returns the raw created_at value.
func (r Record) CreatedAt() any { return r["created_at"] }

// UpdatedAt returns the raw updated_at value.
func (r Record) UpdatedAt() any { return r["updated_at"] }

// Edited reports whether created_at and updated_at differ.
func (r Record) Edited() bool {
	return !reflect.DeepEqual(r.CreatedAt(), r.UpdatedAt())
}

// Normalize turns a list-endpoint response body into records.
//
// Accepted shapes are a bare array, an object with a "data" member, or a
// single object. Empty bodies, null and scalars yield no records. A body that
// is not valid JSON is kept as its raw string, which also yields no records.
func Normalize(body []byte) []Record {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return []Record{}
	}

	var parsed any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		parsed = string(body)
	}

	raw := parsed
	if obj, ok := parsed.(map[string]any); ok {
		if data, ok := obj["data"]; ok && data != nil {
			raw = data
		}
	}

	switch v := raw.(type) {
	case []any:
		records := make([]Record, 0, len(v))
		for _, el := range v {
			if obj, ok := el.(map[string]any); ok {
				records = append(records, Record(obj))
			}
		}
		return records
	case map[string]any:
		return []Record{Record(v)}
	default:
		return []Record{}
	}
}

// Item builds the downstream representation: every field of the record plus
// a top-level "id". A non-empty "id" already on the record is kept.
func (r Record) Item() map[string]any {
	out := make(map[string]any, len(r)+1)
	out["id"] = r.ID()
	for k, v := range r {
		if k == "id" && isEmptyID(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isEmptyID(v any) bool {
	s, ok := v.(string)
	return v == nil || (ok && s == "")
}

// String is used in log lines.
func (r Record) String() string {
	return r.ID() + "/" + r.Status()
}
