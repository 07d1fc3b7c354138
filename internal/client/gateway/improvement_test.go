package gateway

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeImprovement_Structured(t *testing.T) {
	raw := `{
		"title": "Smart Campus",
		"improvements": ["Add offline mode", {"title": "Caching", "description": "cache timetables"}, ""],
		"technical_suggestions": ["Use Postgres"],
		"feature_suggestions": [{"feature": "Push alerts"}],
		"technologies": ["Go", "React"]
	}`
	doc := DecodeImprovement([]byte(raw))

	assert.True(t, doc.Structured())
	assert.Equal(t, "Smart Campus", doc.Title())
	assert.Equal(t, []string{"Add offline mode", "Caching: cache timetables"}, doc.Improvements())
	assert.Equal(t, []string{"Use Postgres"}, doc.TechnicalSuggestions())
	assert.Equal(t, []string{"Push alerts"}, doc.FeatureSuggestions())
	assert.Equal(t, []string{"Go", "React"}, doc.Technologies())
	assert.Empty(t, doc.Summary())
}

func TestDecodeImprovement_Shapes(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		summary      string
		improvements []string
		structured   bool
	}{
		{
			name:       "prose under improvements",
			raw:        `{"improvements":"Narrow the scope."}`,
			summary:    "Narrow the scope.",
			structured: true,
		},
		{
			name:       "bare string",
			raw:        `"Narrow the scope."`,
			summary:    "Narrow the scope.",
			structured: true,
		},
		{
			name:         "string holding an object",
			raw:          `"{\"improvements\":[\"one\",\"two\"]}"`,
			improvements: []string{"one", "two"},
			structured:   true,
		},
		{
			name:         "bare list",
			raw:          `["one", {"name":"two"}]`,
			improvements: []string{"one", "two"},
			structured:   true,
		},
		{name: "blank string", raw: `"  "`},
		{name: "number", raw: `3`},
		{name: "null", raw: `null`},
		{name: "broken", raw: `{"improvements":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := DecodeImprovement([]byte(tt.raw))
			require.NotNil(t, doc)
			assert.Equal(t, tt.summary, doc.Summary())
			if tt.improvements == nil {
				assert.Empty(t, doc.Improvements())
			} else {
				assert.Equal(t, tt.improvements, doc.Improvements())
			}
			assert.Equal(t, tt.structured, doc.Structured())
		})
	}
}

func TestImprovement_FieldsForUnknownShape(t *testing.T) {
	doc := DecodeImprovement([]byte(`{"verdict":"promising","score":8.5,"risks":["time","budget"],"ok":true,"meta":{"x":1}}`))

	assert.False(t, doc.Structured())
	assert.Equal(t, []Field{
		{Key: "meta", Value: `{"x":1}`},
		{Key: "ok", Value: "true"},
		{Key: "risks", Value: "time, budget"},
		{Key: "score", Value: "8.5"},
		{Key: "verdict", Value: "promising"},
	}, doc.Fields())
}

func TestImprovement_WrongTypesDoNotPanic(t *testing.T) {
	doc := DecodeImprovement([]byte(`{"title":5,"description":["x"],"technologies":"Go"}`))
	assert.Empty(t, doc.Title())
	assert.Empty(t, doc.Description())
	assert.Empty(t, doc.Technologies())
}

func TestClient_Improve(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/improve", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"idea":"campus app"}`, string(body))
		_, _ = io.WriteString(w, `{"improvements":["Add maps"]}`)
	})
	c, _ := newTestClient(t, h, "")

	doc, err := c.Improve(context.Background(), "campus app")
	require.NoError(t, err)
	assert.Equal(t, []string{"Add maps"}, doc.Improvements())
}

func TestDecodeImprovement_Envelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Improvement
	}{
		{
			name: "object envelope",
			raw:  `{"improvement":{"original_idea":"x","improvements":"Scope it","technical_suggestions":["Go"]}}`,
			want: Improvement{"original_idea": "x", "improvements": "Scope it", "technical_suggestions": []any{"Go"}},
		},
		{
			name: "nested envelopes",
			raw:  `{"improvement":{"improvement":{"improvements":["a"]}}}`,
			want: Improvement{"improvements": []any{"a"}},
		},
		{
			name: "text envelope",
			raw:  `{"improvement":"Scope it"}`,
			want: Improvement{"improvements": "Scope it"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeImprovement([]byte(tt.raw)))
		})
	}
}
