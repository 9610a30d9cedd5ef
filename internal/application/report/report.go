// Package report renders analysis outcomes as downloadable plain text.
package report

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/domain/auth"
)

const title = "MetaSelect AI - Analysis Report"

// Export renders entry as a plain-text report. It reads nothing but its
// arguments, so the same input always yields the same bytes. analyst may be nil.
func Export(entry domain.HistoryEntry, analyst *auth.User) []byte {
	var b strings.Builder

	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	fmt.Fprintf(&b, "File: %s\n", entry.FileName)
	fmt.Fprintf(&b, "Date: %s\n", entry.CreatedAt.UTC().Format(time.RFC3339))
	if analyst != nil {
		fmt.Fprintf(&b, "Analyst: %s\n", analystLine(analyst))
	}
	fmt.Fprintf(&b, "Prediction: %s\n", entry.Diagnosis)
	fmt.Fprintf(&b, "Confidence: %.1f%%\n", domain.Percent(entry.Confidence))

	if entry.Result != nil {
		if lvl := entry.Result.Level(); lvl != "" {
			fmt.Fprintf(&b, "Confidence level: %s\n", lvl)
		}
		for _, d := range []domain.Diagnosis{domain.DiagnosisBenign, domain.DiagnosisMalignant} {
			if p, ok := entry.Result.Probability(d); ok {
				fmt.Fprintf(&b, "%s probability: %.1f%%\n", d, domain.Percent(p))
			}
		}
		if ex := entry.Result.Explanations(); len(ex) > 0 {
			b.WriteString("\nAI Explanations:\n")
			for _, e := range ex {
				fmt.Fprintf(&b, "- %s: %s\n", e.Title, e.Description)
			}
		}
	}
	return []byte(b.String())
}

// FileName is the suggested download name for entry's report.
func FileName(entry domain.HistoryEntry) string {
	return fmt.Sprintf("analysis-report-%d.txt", entry.ID)
}

func analystLine(u *auth.User) string {
	name := strings.TrimSpace(u.Name)
	switch {
	case name != "" && u.Email != "":
		return fmt.Sprintf("%s <%s>", name, u.Email)
	case name != "":
		return name
	default:
		return u.Email
	}
}
