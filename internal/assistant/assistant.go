// Package assistant produces the marketplace's AI replies: project
// suggestions, relevant websites, idea critiques and chat. Model output is
// free text, so every reply is parsed leniently and falls back to wrapping
// the raw text.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Completer sends one prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service turns model completions into the marketplace's reply shapes.
type Service struct {
	model Completer
}

// New returns a Service backed by model.
func New(model Completer) *Service {
	return &Service{model: model}
}

const (
	mentorPrompt    = "You are an expert project mentor. Always return only valid JSON as described."
	helperPrompt    = "You are a helpful assistant. Always return only valid JSON as described."
	reviewerPrompt  = "You are an expert project reviewer. Always return only valid JSON as described."
	chatSystem      = "You are a helpful assistant for a project marketplace platform."
	marketplaceList = "https://projectbazaar.in/, https://www.buyprojectcode.in/, https://www.pantechsolutions.net/, " +
		"https://takeoffprojects.com/, https://www.projectsforyou.com/, https://www.fiverr.com/, " +
		"https://www.upwork.com/, https://github.com/"
)

var (
	fencedJSON = regexp.MustCompile("```json([\\s\\S]*?)```")
	anyJSON    = regexp.MustCompile(`(?s)(\[.*\]|\{.*\})`)
	objectJSON = regexp.MustCompile(`(?s)(\{.*\})`)
)

// Suggestions asks for five project ideas matching query. The reply is the
// list the model produced, a single object wrapped in a list, or one idea
// wrapping the model's text.
func (s *Service) Suggestions(ctx context.Context, query string) (json.RawMessage, error) {
	prompt := "Based on the query '" + query + "', suggest 5 innovative project ideas. " +
		"Format your response as a JSON array with objects containing: title, description, " +
		"difficulty (beginner/intermediate/advanced), technologies (array), estimated_time."
	text, err := s.model.Complete(ctx, mentorPrompt, prompt)
	if err != nil {
		return nil, err
	}

	if raw, ok := extractJSON(text, anyJSON); ok {
		switch bytes.TrimSpace(raw)[0] {
		case '[':
			return raw, nil
		case '{':
			return json.RawMessage("[" + string(raw) + "]"), nil
		}
	}
	return json.Marshal([]map[string]any{{
		"title":          "Project Idea for " + query,
		"description":    truncate(text, 200) + "...",
		"difficulty":     "intermediate",
		"technologies":   []string{"Python", "JavaScript"},
		"estimated_time": "2-4 weeks",
	}})
}

// Websites asks which project marketplaces offer something like query. The
// reply is always a list.
func (s *Service) Websites(ctx context.Context, query string) ([]any, error) {
	prompt := "Check the following websites: " + marketplaceList + " and other similar platforms where " +
		"students can buy, sell, or find academic/engineering projects. For the query '" + query + "', " +
		"search each website and indicate if they are selling or offering this particular project or " +
		"something very similar. For each, return: name, url, description, category, and a field " +
		"'sells_project' (true/false), and a short note on match/finding. If you cannot find the project " +
		"on a site, say so in the note. Format your response as a JSON array as described."
	text, err := s.model.Complete(ctx, helperPrompt, prompt)
	if err != nil {
		return nil, err
	}

	raw, ok := extractJSON(text, anyJSON)
	if !ok {
		return []any{aiResponse(text)}, nil
	}
	var v any
	_ = json.Unmarshal(raw, &v)
	switch v := v.(type) {
	case []any:
		return v, nil
	case map[string]any:
		return []any{v}, nil
	default:
		return []any{aiResponse(fmt.Sprint(v))}, nil
	}
}

// Improve asks for a critique of idea. The reply always carries
// original_idea, improvements, technical_suggestions and feature_suggestions.
func (s *Service) Improve(ctx context.Context, idea string) (map[string]any, error) {
	prompt := "Analyze this project idea and suggest improvements: '" + idea + "'. Provide suggestions for: " +
		"technical enhancements, feature additions, best practices, potential challenges and solutions. " +
		"Format as JSON with keys: improvements, technical_suggestions (array), feature_suggestions (array)."
	text, err := s.model.Complete(ctx, reviewerPrompt, prompt)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"original_idea":         idea,
		"improvements":          text,
		"technical_suggestions": []any{},
		"feature_suggestions":   []any{},
	}
	raw, ok := extractJSON(text, objectJSON)
	if !ok {
		return out, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, nil
	}
	for {
		inner, ok := doc["improvement"].(map[string]any)
		if !ok {
			break
		}
		doc = inner
	}
	out["improvements"] = ""
	for key := range out {
		if v, ok := doc[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// Chat answers a free-form message.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	prompt := "User message: '" + message + "'. Provide a helpful, concise response related to project " +
		"development, programming, or academic guidance."
	return s.model.Complete(ctx, chatSystem, prompt)
}

// extractJSON finds the JSON document in a model reply: a ```json fence
// first, then the widest span matched by fallback, then the whole text.
func extractJSON(text string, fallback *regexp.Regexp) (json.RawMessage, bool) {
	candidate := text
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	} else if m := fallback.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

func aiResponse(text string) map[string]any {
	return map[string]any{"name": "AI Response", "description": text}
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
