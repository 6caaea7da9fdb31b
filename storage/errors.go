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
	"errors"
	"fmt"

	"github.com/poiesic/rolodex/core"
)

var (
	// ErrNotFound indicates that no artifact has been saved yet.
	ErrNotFound = fmt.Errorf("%w: artifact not found", core.ErrArtifact)

	// ErrIncompatibleArtifact indicates an artifact built with a different
	// encoder model, projection version or format version.
	ErrIncompatibleArtifact = fmt.Errorf("%w: incompatible artifact", core.ErrArtifact)

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = fmt.Errorf("%w: serialization failed", core.ErrArtifact)

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrLocked indicates another builder holds the store.
	ErrLocked = errors.New("artifact store is locked by another process")
)
