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


package storage

import (
	"fmt"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
)

// FormatVersion is the layout version of stored artifacts. Bump it when the
// metadata codec or key layout changes.
const FormatVersion = 1

// Manifest describes a stored artifact. It is written together with the pair.
type Manifest struct {
	FormatVersion     int       `json:"format_version"`
	ModelID           string    `json:"model_id"`
	Dimension         int       `json:"dimension"`
	Count             int       `json:"count"`
	ProjectionVersion int       `json:"projection_version"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewManifest describes c as produced by the encoder model modelID.
func NewManifest(modelID string, c *corpus.Corpus) Manifest {
	return Manifest{
		FormatVersion:     FormatVersion,
		ModelID:           modelID,
		Dimension:         c.Dim(),
		Count:             c.Len(),
		ProjectionVersion: core.ProjectionVersion,
		CreatedAt:         time.Now().UTC(),
	}
}

// Check reports whether vectors in this artifact are comparable with
// vectors produced by the running encoder.
func (m *Manifest) Check(modelID string) error {
	if m.FormatVersion != FormatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrIncompatibleArtifact, m.FormatVersion, FormatVersion)
	}
	if m.ProjectionVersion != core.ProjectionVersion {
		return fmt.Errorf("%w: projection version %d, want %d", ErrIncompatibleArtifact, m.ProjectionVersion, core.ProjectionVersion)
	}
	if m.ModelID != modelID {
		return fmt.Errorf("%w: built with model %q, encoder uses %q", ErrIncompatibleArtifact, m.ModelID, modelID)
	}
	return nil
}

// ValidatePair checks that an index and a metadata list agree with each
// other and with their manifest.
func ValidatePair(m *Manifest, indexCount, indexDim, metadataCount int) error {
	if indexCount != metadataCount {
		return fmt.Errorf("%w: %w: index holds %d vectors, metadata holds %d records",
			core.ErrArtifact, core.ErrDesynchronized, indexCount, metadataCount)
	}
	if m.Count != indexCount {
		return fmt.Errorf("%w: %w: manifest count %d, artifact holds %d",
			core.ErrArtifact, core.ErrDesynchronized, m.Count, indexCount)
	}
	if m.Dimension != indexDim {
		return fmt.Errorf("%w: manifest dimension %d, index dimension %d", core.ErrArtifact, m.Dimension, indexDim)
	}
	return nil
}
