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
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - ExperienceYears must not be negative
//   - Availability must not be empty (unknown values are allowed)
//   - Skills and Projects must not contain blank entries
//
// NOT validated:
//   - ID (0 is valid; a content ID is assigned at build time)
//   - Empty Skills or Projects lists
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if strings.TrimSpace(record.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyName)
	}

	if record.ExperienceYears < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrNegativeExperience)
	}

	if strings.TrimSpace(string(record.Availability)) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyAvailability)
	}

	for _, list := range [][]string{record.Skills, record.Projects} {
		for _, entry := range list {
			if strings.TrimSpace(entry) == "" {
				return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyListEntry)
			}
		}
	}

	return nil
}

// ValidateText checks that text can be encoded: non-blank, valid UTF-8.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInput)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInput)
	}
	return nil
}

// ValidateK checks a requested result count.
func ValidateK(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInput, k)
	}
	return nil
}

// IsNil reports whether v is nil or an interface holding a nil pointer, map,
// slice, func or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
