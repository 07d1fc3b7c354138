package shell

import (
	"fmt"
	"strings"

	"github.com/atinyakov/ProjectMarket/internal/client/gateway"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

func describeUser(p models.UserProfile) string {
	name := p.Name
	if name == "" {
		name = p.Email
	}
	if name == "" {
		name = "unknown user"
	}
	if p.Role != "" {
		return fmt.Sprintf("%s (%s)", name, p.Role)
	}
	return name
}

func formatSubmission(s models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s %s", s.ID, s.Title)
	if s.StudentName != "" {
		fmt.Fprintf(&b, " by %s", s.StudentName)
		if s.StudentID != "" {
			fmt.Fprintf(&b, " [%s]", s.StudentID)
		}
	}
	if s.FileURL != "" {
		fmt.Fprintf(&b, " file=%s", s.FileURL)
	}
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " uploaded %s", s.CreatedAt.Format("2006-01-02"))
	}
	if s.Abstract != "" {
		fmt.Fprintf(&b, "\n    %s", s.Abstract)
	}
	return b.String()
}

func formatSuggestion(n int, s models.Suggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", n, s.Title)
	if s.Difficulty != "" {
		fmt.Fprintf(&b, " (%s)", s.Difficulty)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "\n   %s", s.Description)
	}
	if len(s.Technologies) > 0 {
		fmt.Fprintf(&b, "\n   Technologies: %s", strings.Join(s.Technologies, ", "))
	}
	if s.EstimatedTime != "" {
		fmt.Fprintf(&b, "\n   Estimated time: %s", s.EstimatedTime)
	}
	return b.String()
}

func formatWebsite(w models.Website) string {
	var b strings.Builder
	b.WriteString("* " + w.Name)
	if w.URL != "" && w.URL != w.Name {
		fmt.Fprintf(&b, " <%s>", w.URL)
	}
	if w.Category != "" {
		fmt.Fprintf(&b, " [%s]", w.Category)
	}
	if w.SellsProject != nil {
		if *w.SellsProject {
			b.WriteString(" (sells projects)")
		} else {
			b.WriteString(" (free)")
		}
	}
	if w.Description != "" {
		fmt.Fprintf(&b, "\n  %s", w.Description)
	}
	if w.Note != "" {
		fmt.Fprintf(&b, "\n  Note: %s", w.Note)
	}
	return b.String()
}

func formatImprovement(d gateway.Improvement) string {
	var b strings.Builder
	if t := d.Title(); t != "" {
		b.WriteString(t + "\n")
	}
	if desc := d.Description(); desc != "" {
		b.WriteString(desc + "\n")
	}

	if !d.Structured() {
		fields := d.Fields()
		if len(fields) == 0 {
			return "The assistant returned no suggestions."
		}
		for _, f := range fields {
			if f.Key == "title" || f.Key == "description" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if s := d.Summary(); s != "" {
		b.WriteString(s + "\n")
	}
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, it := range items {
			b.WriteString("  - " + it + "\n")
		}
	}
	section("Improvements", d.Improvements())
	section("Technical suggestions", d.TechnicalSuggestions())
	section("Feature suggestions", d.FeatureSuggestions())
	section("Technologies", d.Technologies())
	return strings.TrimRight(b.String(), "\n")
}
