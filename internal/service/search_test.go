package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"robot arm", "arm robot", 100},
		{"robot  arm", "arm robot", 100},
		{"abc", "abd", 200.0 / 3},
		{"", "abc", 0},
		{"", "", 100},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		got := TokenSortRatio(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TokenSortRatio(%q, %q) = %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSearchService_Search(t *testing.T) {
	repo := &fakeSubmissionRepo{subs: []models.Submission{
		{ID: "1", Title: "Robot Arm Controller", Abstract: "embedded firmware"},
		{ID: "2", Title: "Weather Station", Abstract: "iot sensors"},
		{ID: "3", Title: "Something Else", Abstract: "Arm Robot"},
	}}

	got, err := NewSearchService(repo).Search(context.Background(), "Robot ARM")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d results; want 2: %+v", len(got), got)
	}
	if got[0].ID != "3" || got[0].Score != 100 {
		t.Errorf("first result = %s (%v); want 3 (100)", got[0].ID, got[0].Score)
	}
	if got[1].ID != "1" || got[1].Score < DefaultSearchThreshold || got[1].Score >= 100 {
		t.Errorf("second result = %s (%v); want 1 with a partial score", got[1].ID, got[1].Score)
	}
}

func TestSearchService_NoMatches(t *testing.T) {
	repo := &fakeSubmissionRepo{subs: []models.Submission{{ID: "1", Title: "Weather Station"}}}
	got, err := NewSearchService(repo).Search(context.Background(), "quantum compiler")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search = %#v; want empty non-nil slice", got)
	}
}

func TestSearchService_RepoError(t *testing.T) {
	repo := &fakeSubmissionRepo{err: errors.New("db down")}
	if _, err := NewSearchService(repo).Search(context.Background(), "x"); err != repo.err {
		t.Errorf("Search error = %v; want %v", err, repo.err)
	}
}
