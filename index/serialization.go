package index

import (
	"fmt"
	"math"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/rolodex/core"
)

const (
	magic = "RDXI"

	// FormatVersion is written after the magic and must match on read.
	FormatVersion byte = 1
)

// MarshalBinary encodes the index. It implements encoding.BinaryMarshaler.
func (x *Index) MarshalBinary() ([]byte, error) {
	size := len(magic) + 1 +
		varint.Uint64.Size(uint64(x.dim)) +
		varint.Uint64.Size(uint64(x.n)) +
		len(x.data)*raw.Float32.Size(0)

	bs := make([]byte, size)
	n := copy(bs, magic)
	bs[n] = FormatVersion
	n++
	n += varint.Uint64.Marshal(uint64(x.dim), bs[n:])
	n += varint.Uint64.Marshal(uint64(x.n), bs[n:])
	for _, f := range x.data {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return bs[:n], nil
}

// UnmarshalBinary replaces x with the decoded index. It implements
// encoding.BinaryUnmarshaler.
func (x *Index) UnmarshalBinary(data []byte) error {
	decoded, err := Deserialize(data)
	if err != nil {
		return err
	}
	*x = *decoded
	return nil
}

// Deserialize decodes an index written by MarshalBinary. Truncated input,
// trailing bytes and unknown versions are reported as core.ErrArtifact.
func Deserialize(data []byte) (*Index, error) {
	if len(data) < len(magic)+1 || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: not an index blob", core.ErrArtifact)
	}
	if v := data[len(magic)]; v != FormatVersion {
		return nil, fmt.Errorf("%w: index format version %d, want %d", core.ErrArtifact, v, FormatVersion)
	}
	n := len(magic) + 1

	dim, n1, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index dimension: %w", core.ErrArtifact, err)
	}
	n += n1
	count, n1, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: index count: %w", core.ErrArtifact, err)
	}
	n += n1

	if dim == 0 || dim > math.MaxInt32 {
		return nil, fmt.Errorf("%w: invalid index dimension %d", core.ErrArtifact, dim)
	}
	floatSize := uint64(raw.Float32.Size(0))
	remaining := uint64(len(data) - n)
	rowSize := dim * floatSize
	if count > remaining/rowSize || count*rowSize != remaining {
		return nil, fmt.Errorf("%w: index holds %d bytes of vectors, header says %d x %d",
			core.ErrArtifact, remaining, count, dim)
	}

	idx := &Index{dim: int(dim), n: int(count), data: make([]float32, count*dim)}
	for i := range idx.data {
		idx.data[i], n1, err = raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: index vector data: %w", core.ErrArtifact, err)
		}
		n += n1
	}
	return idx, nil
}
