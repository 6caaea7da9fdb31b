package core

import (
	"encoding/binary"
	"slices"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for an employee record.
// It comes from the source dataset or is derived from the record content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Availability describes whether an employee can take on new work.
// Values outside the known set are accepted as free text.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityOnLeave   Availability = "on_leave"
)

// Known reports whether a is one of the predefined availability values.
func (a Availability) Known() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityOnLeave:
		return true
	}
	return false
}

// Record represents one employee in the dataset.
// Records are immutable once loaded for an index build.
type Record struct {
	Id              ID           `json:"id" yaml:"id"`
	Name            string       `json:"name" yaml:"name"`
	Skills          []string     `json:"skills" yaml:"skills"`                     // Ordered; order is part of the projection
	ExperienceYears int          `json:"experience_years" yaml:"experience_years"` // Whole years
	Projects        []string     `json:"projects" yaml:"projects"`                 // Ordered; order is part of the projection
	Availability    Availability `json:"availability" yaml:"availability"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() Record {
	c := *r
	c.Skills = slices.Clone(r.Skills)
	c.Projects = slices.Clone(r.Projects)
	return c
}

// SearchResult represents a retrieved record with its index position and
// squared L2 distance to the query. Smaller distance = more similar.
type SearchResult struct {
	Record   Record
	Position int
	Distance float32
}
