package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []core.Record {
	return []core.Record{
		{
			Id:              core.IDFromContent("alice"),
			Name:            "Alice Johnson",
			Skills:          []string{"Python", "React", "AWS"},
			ExperienceYears: 5,
			Projects:        []string{"E-commerce Platform", "Healthcare Dashboard"},
			Availability:    core.AvailabilityAvailable,
		},
		{
			Id:           2,
			Name:         "Zoë Ångström",
			Skills:       []string{"Go"},
			Projects:     []string{},
			Availability: core.Availability("from March"),
		},
		{
			Id:              18446744073709551615,
			Name:            "Bob",
			Skills:          []string{},
			ExperienceYears: 40,
			Projects:        []string{},
			Availability:    core.AvailabilityOnLeave,
		},
	}
}

func TestMarshalUnmarshalRecord(t *testing.T) {
	for _, record := range sampleRecords() {
		t.Run(record.Name, func(t *testing.T) {
			data := MarshalRecord(&record)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalRecord(data)
			require.NoError(t, err)
			assert.Equal(t, record, *decoded)
		})
	}
}

func TestMarshalRecord_PreservesListOrder(t *testing.T) {
	record := core.Record{
		Name:         "Carol",
		Skills:       []string{"NLP", "Python", "NLP"},
		Projects:     []string{"b", "a"},
		Availability: core.AvailabilityBusy,
	}

	decoded, err := UnmarshalRecord(MarshalRecord(&record))
	require.NoError(t, err)
	assert.Equal(t, []string{"NLP", "Python", "NLP"}, decoded.Skills)
	assert.Equal(t, []string{"b", "a"}, decoded.Projects)
	assert.Equal(t, core.RecordText(&record), core.RecordText(decoded))
}

func TestMarshalRecord_EmptyLists(t *testing.T) {
	record := core.Record{
		Name:         "Dana",
		Skills:       []string{"Go"},
		Projects:     []string{},
		Availability: core.AvailabilityAvailable,
	}

	decoded, err := UnmarshalRecord(MarshalRecord(&record))
	require.NoError(t, err)
	assert.NotNil(t, decoded.Projects)
	assert.Empty(t, decoded.Projects)

	before, err := json.Marshal(record)
	require.NoError(t, err)
	after, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Contains(t, string(after), `"projects":[]`)

	t.Run("nil list decodes as empty", func(t *testing.T) {
		record.Skills = nil
		decoded, err := UnmarshalRecord(MarshalRecord(&record))
		require.NoError(t, err)
		assert.Equal(t, []string{}, decoded.Skills)
	})
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	record := sampleRecords()[0]
	good := MarshalRecord(&record)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", good[:len(good)/2]},
		{"trailing bytes", append(append([]byte(nil), good...), 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecord(tt.data)
			assert.ErrorIs(t, err, core.ErrArtifact)
		})
	}
}

func TestMarshalUnmarshalRecords(t *testing.T) {
	records := sampleRecords()

	decoded, err := UnmarshalRecords(MarshalRecords(records))
	require.NoError(t, err)
	assert.Equal(t, records, decoded)

	empty, err := UnmarshalRecords(MarshalRecords(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUnmarshalRecords_Invalid(t *testing.T) {
	good := MarshalRecords(sampleRecords())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", nil},
		{"truncated", good[:len(good)-1]},
		{"trailing bytes", append(append([]byte(nil), good...), 0)},
		{"count larger than data", []byte{0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecords(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
			assert.ErrorIs(t, err, core.ErrArtifact)
		})
	}
}

func TestMarshalUnmarshalManifest(t *testing.T) {
	m := &Manifest{
		FormatVersion:     FormatVersion,
		ModelID:           "openai:all-minilm",
		Dimension:         384,
		Count:             12,
		ProjectionVersion: core.ProjectionVersion,
		CreatedAt:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := MarshalManifest(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model_id": "openai:all-minilm"`)

	decoded, err := UnmarshalManifest(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)

	_, err = UnmarshalManifest([]byte("{"))
	assert.ErrorIs(t, err, core.ErrArtifact)
}

func TestDecode(t *testing.T) {
	c, err := corpus.New(2)
	require.NoError(t, err)
	require.NoError(t, c.Append(sampleRecords(), [][]float32{{0, 0}, {1, 1}, {2, 2}}))
	blob, err := c.MarshalIndex()
	require.NoError(t, err)
	m := NewManifest("mock", c)

	t.Run("valid pair", func(t *testing.T) {
		loaded, err := Decode(&m, blob, sampleRecords())
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Len())
		assert.Equal(t, sampleRecords(), loaded.Records())
	})

	t.Run("metadata shorter than index", func(t *testing.T) {
		_, err := Decode(&m, blob, sampleRecords()[:2])
		assert.ErrorIs(t, err, core.ErrArtifact)
		assert.ErrorIs(t, err, core.ErrDesynchronized)
	})

	t.Run("corrupt index", func(t *testing.T) {
		_, err := Decode(&m, blob[:3], sampleRecords())
		assert.ErrorIs(t, err, core.ErrArtifact)
	})
}
