package service

import (
	"context"
	"sort"
	"strings"

	"github.com/atinyakov/ProjectMarket/internal/models"
)

// DefaultSearchThreshold is the lowest score a submission needs to be
// returned by a search.
const DefaultSearchThreshold = 60

// SubmissionLister lists the submissions a search runs over.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
}

// SearchService matches queries against submission titles and abstracts.
type SearchService struct {
	repo      SubmissionLister
	threshold float64
}

// NewSearchService constructs a SearchService with DefaultSearchThreshold.
func NewSearchService(repo SubmissionLister) *SearchService {
	return &SearchService{repo: repo, threshold: DefaultSearchThreshold}
}

// Search scores every submission against query and returns those at or above
// the threshold, best first.
func (s *SearchService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := []models.SearchResult{}
	for _, sub := range subs {
		score := max(
			TokenSortRatio(q, strings.ToLower(sub.Title)),
			TokenSortRatio(q, strings.ToLower(sub.Abstract)),
		)
		if score >= s.threshold {
			results = append(results, models.SearchResult{Submission: sub, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// TokenSortRatio compares a and b after sorting their whitespace-separated
// words, so word order does not matter. The result is in [0, 100].
func TokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) []rune {
	words := strings.Fields(s)
	sort.Strings(words)
	return []rune(strings.Join(words, " "))
}

// ratio is the normalized indel similarity 2*LCS/(len(a)+len(b)), scaled to
// 100. Two empty strings are identical.
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
