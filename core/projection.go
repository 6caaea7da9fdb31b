package core

import (
	"strconv"
	"strings"
)

// ProjectionVersion identifies the wording of RecordText. Embeddings built under
// one version are not comparable with queries encoded against another, so any
// change to RecordText must bump it.
const ProjectionVersion = 1

// RecordText projects a record into the descriptive sentence that is embedded.
// Field order: name, skills, experience, projects, availability.
func RecordText(r *Record) string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(" has skills in ")
	b.WriteString(strings.Join(r.Skills, ", "))
	b.WriteString(", ")
	b.WriteString(strconv.Itoa(r.ExperienceYears))
	b.WriteString(" years experience, worked on ")
	b.WriteString(strings.Join(r.Projects, ", "))
	b.WriteString(", currently ")
	b.WriteString(string(r.Availability))
	b.WriteString(".")
	return b.String()
}

// RecordTexts projects every record in order.
func RecordTexts(records []Record) []string {
	texts := make([]string, len(records))
	for i := range records {
		texts[i] = RecordText(&records[i])
	}
	return texts
}
