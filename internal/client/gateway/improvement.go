package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Improvement is the assistant's critique of an idea. Its fields are not
// fixed: improvements may be text or a list, and anything else may appear.
// Accessors never panic on unexpected types.
type Improvement Document

// Field is one top-level entry rendered as text.
type Field struct {
	Key   string
	Value string
}

// DecodeImprovement reads a reply of the improve endpoint. Objects are kept
// as they are, minus any "improvement" envelope; a string that holds a JSON
// object is unwrapped; any other string or list is stored under
// "improvements".
func DecodeImprovement(raw []byte) Improvement {
	raw = bytes.TrimSpace(raw)
	doc := Improvement{}
	if len(raw) == 0 {
		return doc
	}

	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Improvement{}
		}
		return unwrapImprovement(doc)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return doc
		}
		if t := strings.TrimSpace(s); strings.HasPrefix(t, "{") && json.Valid([]byte(t)) {
			return DecodeImprovement([]byte(t))
		}
		if strings.TrimSpace(s) != "" {
			doc["improvements"] = s
		}
		return doc
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err == nil {
			doc["improvements"] = items
		}
		return doc
	default:
		return doc
	}
}

// unwrapImprovement descends through {"improvement": {...}} envelopes. A
// text envelope becomes the summary.
func unwrapImprovement(doc Improvement) Improvement {
	for {
		switch inner := doc["improvement"].(type) {
		case map[string]any:
			doc = Improvement(inner)
			continue
		case string:
			if _, ok := doc["improvements"]; !ok {
				doc["improvements"] = inner
				delete(doc, "improvement")
			}
		}
		return doc
	}
}

// Title returns the "title" field when it is text.
func (d Improvement) Title() string {
	s, _ := d["title"].(string)
	return s
}

// Description returns the "description" field when it is text.
func (d Improvement) Description() string {
	s, _ := d["description"].(string)
	return s
}

// Summary returns "improvements" when the assistant answered in prose.
func (d Improvement) Summary() string {
	s, _ := d["improvements"].(string)
	return strings.TrimSpace(s)
}

// Improvements returns "improvements" when the assistant answered with a list.
func (d Improvement) Improvements() []string {
	return listField(d["improvements"])
}

// TechnicalSuggestions returns the "technical_suggestions" list.
func (d Improvement) TechnicalSuggestions() []string {
	return listField(d["technical_suggestions"])
}

// FeatureSuggestions returns the "feature_suggestions" list.
func (d Improvement) FeatureSuggestions() []string {
	return listField(d["feature_suggestions"])
}

// Technologies returns the "technologies" list.
func (d Improvement) Technologies() []string {
	return listField(d["technologies"])
}

// Structured reports whether any of the well-known sections is present. When
// it is not, callers should render Fields instead.
func (d Improvement) Structured() bool {
	return d.Summary() != "" ||
		len(d.Improvements()) > 0 ||
		len(d.TechnicalSuggestions()) > 0 ||
		len(d.FeatureSuggestions()) > 0
}

// Fields lists every top-level entry sorted by key, values rendered as text.
func (d Improvement) Fields() []Field {
	out := make([]Field, 0, len(d))
	for k, v := range d {
		out = append(out, Field{Key: k, Value: render(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// listField renders a list value as lines, dropping blank items.
func listField(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := render(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// render turns a decoded JSON value into display text. Objects with a
// title/name and description read as "title: description".
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		head := firstString(t, "title", "name", "suggestion", "feature")
		desc := firstString(t, "description", "details", "detail")
		switch {
		case head != "" && desc != "":
			return head + ": " + desc
		case head != "":
			return head
		case desc != "":
			return desc
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := render(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
