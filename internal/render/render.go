// Package render turns rule sets into reports: plain text, a Markdown table,
// or the JSON persistence form.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/policyminer/internal/policy"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists every format accepted by Render.
var Formats = []string{FormatText, FormatMarkdown, FormatJSON}

// DefaultMaxRules caps the rules written by the text and Markdown reports.
const DefaultMaxRules = 50

// IsValidFormat reports whether format is accepted by Render.
func IsValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Render writes rs in the given format. maxRules bounds the number of rules
// in text and Markdown output and is ignored for JSON, which always carries
// the full set.
func Render(w io.Writer, format string, rs *policy.RuleSet, maxRules int) error {
	switch strings.ToLower(format) {
	case FormatText:
		return Text(w, rs, maxRules)
	case FormatMarkdown:
		return Markdown(w, rs, maxRules)
	case FormatJSON:
		return JSON(w, rs)
	default:
		return fmt.Errorf("unknown format %q: must be one of %v", format, Formats)
	}
}

// JSON writes the full rule set in its indented persistence form.
func JSON(w io.Writer, rs *policy.RuleSet) error {
	return policy.Encode(w, rs)
}

// Text writes a plain-text report.
func Text(w io.Writer, rs *policy.RuleSet, maxRules int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Policy Set: %s\n", rs.Name)
	fmt.Fprintf(&b, "Source logs: %d\n", rs.SourceLogs)
	fmt.Fprintf(&b, "Generated at: %s\n", formatTime(rs.GeneratedAt))
	fmt.Fprintf(&b, "Total policies: %d\n", len(rs.Rules))
	b.WriteString(strings.Repeat("-", 60))
	b.WriteByte('\n')

	for _, r := range policy.TopRules(rs, maxRules) {
		fmt.Fprintf(&b, "[%s] %s\n", r.ID, r.Description)
		fmt.Fprintf(&b, "  support=%.4f confidence=%.4f lift=%.4f\n", r.Support, r.Confidence, r.Lift)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown writes a report with a summary list and a rule table.
func Markdown(w io.Writer, rs *policy.RuleSet, maxRules int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rs.Name)
	fmt.Fprintf(&b, "- **Source logs:** %d\n", rs.SourceLogs)
	fmt.Fprintf(&b, "- **Generated at:** %s\n", formatTime(rs.GeneratedAt))
	fmt.Fprintf(&b, "- **Total policies:** %d\n\n", len(rs.Rules))
	b.WriteString("| ID | Antecedent | Consequent | Support | Confidence | Lift |\n")
	b.WriteString("|----|------------|------------|---------|------------|------|\n")

	for _, r := range policy.TopRules(rs, maxRules) {
		key, value := r.Feature()
		fmt.Fprintf(&b, "| %s | %s | %s | %.4f | %.4f | %.4f |\n",
			r.ID, escapeCell(key+"="+value), escapeCell(r.Consequent), r.Support, r.Confidence, r.Lift)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// escapeCell keeps pipes and newlines in values from breaking the table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
