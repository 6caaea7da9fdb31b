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
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
	"github.com/poiesic/rolodex/index"
)

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *core.Record) []byte {
	buf := make([]byte, core.RecordMUS.Size(*record))
	core.RecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	record, n, err := core.RecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: record: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &record, nil
}

// MarshalRecords serializes a record list as a count followed by the records.
func MarshalRecords(records []core.Record) []byte {
	size := varint.PositiveInt.Size(len(records))
	for i := range records {
		size += core.RecordMUS.Size(records[i])
	}

	buf := make([]byte, size)
	n := varint.PositiveInt.Marshal(len(records), buf)
	for i := range records {
		n += core.RecordMUS.Marshal(records[i], buf[n:])
	}
	return buf
}

// UnmarshalRecords deserializes a list written by MarshalRecords. The data
// must hold exactly the declared number of records.
func UnmarshalRecords(data []byte) ([]core.Record, error) {
	count, n, err := varint.PositiveInt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: record count: %w", ErrSerializationFailed, err)
	}
	if count < 0 || count > len(data)-n {
		return nil, fmt.Errorf("%w: record count %d exceeds %d bytes", ErrSerializationFailed, count, len(data)-n)
	}

	records := make([]core.Record, count)
	for i := range records {
		var n1 int
		records[i], n1, err = core.RecordMUS.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrSerializationFailed, i, err)
		}
		n += n1
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d records", ErrSerializationFailed, len(data)-n, count)
	}
	return records, nil
}

// MarshalManifest encodes m as indented JSON.
func MarshalManifest(m *Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalManifest decodes a manifest written by MarshalManifest.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrSerializationFailed, err)
	}
	return &m, nil
}

// Decode rebuilds a corpus from its stored parts and validates the pair
// against the manifest.
func Decode(m *Manifest, indexBlob []byte, records []core.Record) (*corpus.Corpus, error) {
	idx, err := index.Deserialize(indexBlob)
	if err != nil {
		return nil, err
	}
	if err := ValidatePair(m, idx.Len(), idx.Dim(), len(records)); err != nil {
		return nil, err
	}
	return corpus.Assemble(idx, records)
}
