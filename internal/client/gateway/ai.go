package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// SearchProjects runs a search over uploaded projects.
func (c *Client) SearchProjects(ctx context.Context, query string) ([]models.SearchResult, error) {
	form := queryForm{Query: query}
	if err := checkForm(form, queryMessages); err != nil {
		return nil, err
	}

	var out struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/search/projects", jsonBody: form}, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []models.SearchResult{}
	}
	return out.Results, nil
}

// Suggestions asks the assistant for project ideas matching query.
func (c *Client) Suggestions(ctx context.Context, query string) ([]models.Suggestion, error) {
	form := queryForm{Query: query}
	if err := checkForm(form, queryMessages); err != nil {
		return nil, err
	}

	var out struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/ai/suggestions", jsonBody: form}, &out); err != nil {
		return nil, err
	}
	if out.Suggestions == nil {
		out.Suggestions = []models.Suggestion{}
	}
	return out.Suggestions, nil
}

// Websites asks the assistant for sites relevant to query. The reply is
// normalized to a list whatever shape the backend used.
func (c *Client) Websites(ctx context.Context, query string) ([]models.Website, error) {
	form := queryForm{Query: query}
	if err := checkForm(form, queryMessages); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/ai/websites", jsonBody: form})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.body) {
		// A body that is not JSON at all is still the assistant's answer.
		return NormalizeWebsites(mustMarshal(string(resp.body))), nil
	}
	return NormalizeWebsites(resp.body), nil
}

type ideaForm struct {
	Idea string `json:"idea" validate:"notblank"`
}

// Improve asks the assistant to critique a project idea.
func (c *Client) Improve(ctx context.Context, idea string) (Improvement, error) {
	form := ideaForm{Idea: idea}
	if err := checkForm(form, map[string]string{"Idea": "Please enter your project idea"}); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/ai/improve", jsonBody: form})
	if err != nil {
		return nil, err
	}
	return DecodeImprovement(resp.body), nil
}

type chatForm struct {
	Message string `json:"message" validate:"notblank"`
}

// Chat sends one message to the assistant and returns its reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	form := chatForm{Message: message}
	if err := checkForm(form, map[string]string{"Message": "Please enter a message"}); err != nil {
		return "", err
	}

	var out struct {
		Response json.RawMessage `json:"response"`
	}
	if err := c.doJSON(ctx, request{method: http.MethodPost, path: "/ai/chat", jsonBody: form}, &out); err != nil {
		return "", err
	}
	var text string
	if err := json.Unmarshal(out.Response, &text); err == nil {
		return text, nil
	}
	// Not a string: show whatever structure came back.
	return strings.TrimSpace(string(out.Response)), nil
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
