package chat

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/rolodex/core"
)

// NoCandidatesMessage is the answer when retrieval returns no records.
const NoCandidatesMessage = "No suitable candidates found."

// FormatProfile renders a record as a single prompt line.
func FormatProfile(r *core.Record) string {
	return fmt.Sprintf("%s - Skills: %s, %d years experience, Projects: %s, Available: %s",
		r.Name,
		strings.Join(r.Skills, ", "),
		r.ExperienceYears,
		strings.Join(r.Projects, ", "),
		capitalize(string(r.Availability)),
	)
}

// FormatProfiles renders records as prompt context, one blank line between
// profiles.
func FormatProfiles(records []core.Record) string {
	profiles := make([]string, len(records))
	for i := range records {
		profiles[i] = FormatProfile(&records[i])
	}
	return strings.Join(profiles, "\n\n")
}

// FormatCandidate renders a record for terminal output.
func FormatCandidate(r *core.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", r.Name)
	fmt.Fprintf(&b, "• Skills: %s\n", strings.Join(r.Skills, ", "))
	fmt.Fprintf(&b, "• Experience: %d years\n", r.ExperienceYears)
	fmt.Fprintf(&b, "• Projects: %s\n", strings.Join(r.Projects, ", "))
	fmt.Fprintf(&b, "• Availability: %s\n", capitalize(string(r.Availability)))
	return b.String()
}

// FormatCandidates renders records for terminal output, separated by rules.
func FormatCandidates(records []core.Record) string {
	candidates := make([]string, len(records))
	for i := range records {
		candidates[i] = FormatCandidate(&records[i])
	}
	return strings.Join(candidates, "\n---\n")
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}
