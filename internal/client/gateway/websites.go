package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// maxWebsiteNesting bounds how many times a JSON string is unwrapped.
const maxWebsiteNesting = 3

// noteName labels an answer that could not be read as structured data.
const noteName = "AI Response"

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// NormalizeWebsites turns any reply of the websites endpoint into a list.
//
// It tries, in order: use an array as-is; wrap a single object; parse a
// string as JSON (also inside a ```json fence) and start over; and finally
// present the raw string as one note entry. Blank strings, null, numbers and
// booleans give an empty list. The result is never nil.
//
// The reply format is not stable across backend versions.
func NormalizeWebsites(raw []byte) []models.Website {
	return normalizeWebsites(bytes.TrimSpace(raw), 0)
}

func normalizeWebsites(raw []byte, depth int) []models.Website {
	out := []models.Website{}
	if len(raw) == 0 {
		return out
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return out
		}
		for _, item := range items {
			if w, ok := websiteFrom(item); ok {
				out = append(out, w)
			}
		}
		return out
	case '{':
		if w, ok := websiteFrom(raw); ok {
			out = append(out, w)
		}
		return out
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return out
		}
		text := strings.TrimSpace(s)
		if text == "" {
			return out
		}
		if depth < maxWebsiteNesting {
			candidate := text
			if m := jsonFence.FindStringSubmatch(text); m != nil {
				candidate = strings.TrimSpace(m[1])
			}
			if c := []byte(candidate); json.Valid(c) && (c[0] == '[' || c[0] == '{' || c[0] == '"') {
				return normalizeWebsites(c, depth+1)
			}
		}
		return append(out, models.Website{Name: noteName, Description: s})
	default:
		return out
	}
}

// websiteFrom reads one list element. Objects are read field by field so a
// wrongly typed field does not lose the rest; strings become a bare name.
func websiteFrom(raw json.RawMessage) (models.Website, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.Website{}, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return models.Website{}, false
		}
		return models.Website{Name: s}, true
	}
	if raw[0] != '{' {
		return models.Website{}, false
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Website{}, false
	}
	w := models.Website{
		Name:        stringField(fields, "name"),
		URL:         stringField(fields, "url"),
		Description: stringField(fields, "description"),
		Category:    stringField(fields, "category"),
		Note:        stringField(fields, "note"),
	}
	if w.Name == "" {
		w.Name = stringField(fields, "title")
	}
	if w.Name == "" {
		w.Name = w.URL
	}
	if sells, ok := boolField(fields, "sells_project"); ok {
		w.SellsProject = &sells
	}
	return w, true
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func boolField(fields map[string]any, key string) (bool, bool) {
	switch v := fields[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y":
			return true, true
		case "false", "no", "n":
			return false, true
		}
	}
	return false, false
}
