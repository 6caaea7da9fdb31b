// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
)

// Retrieval error taxonomy
var (
	// ErrInput indicates malformed or empty caller input (query text, k, dataset).
	// Recoverable: the request is rejected, the service keeps serving.
	ErrInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates an embedding whose length differs from the
	// index dimension. Always fatal to the operation.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrIndexOutOfRange indicates a search position with no metadata record.
	ErrIndexOutOfRange = errors.New("index position out of range")

	// ErrDesynchronized indicates the index and metadata store no longer pair up.
	// The artifact must be rebuilt before serving again.
	ErrDesynchronized = errors.New("index and metadata are desynchronized")

	// ErrArtifact indicates a missing, corrupt or incompatible persisted artifact.
	ErrArtifact = errors.New("invalid artifact")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNegativeExperience indicates ExperienceYears is below zero.
	ErrNegativeExperience = errors.New("experience years cannot be negative")

	// ErrEmptyAvailability indicates the Availability field is empty.
	ErrEmptyAvailability = errors.New("availability cannot be empty")

	// ErrEmptyListEntry indicates a blank skill or project entry.
	ErrEmptyListEntry = errors.New("skills and projects cannot contain empty entries")
)

// DimensionMismatchError reports the expected and actual embedding lengths.
// It matches ErrDimensionMismatch with errors.Is.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch returns a *DimensionMismatchError.
func NewDimensionMismatch(expected, actual int) error {
	return &DimensionMismatchError{Expected: expected, Actual: actual}
}
