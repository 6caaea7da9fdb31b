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


package index

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/rolodex/core"
)

// Hit is one search result: a row position and its squared L2 distance
// to the query.
type Hit struct {
	Position int
	Distance float32
}

// Index is an exact flat squared-L2 index.
type Index struct {
	dim  int
	n    int
	data []float32
}

// New creates an empty index for vectors of dimension dim.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: index dimension must be positive, got %d", core.ErrInput, dim)
	}
	return &Index{dim: dim}, nil
}

// Build creates an index from embeddings. The dimension is taken from the
// first embedding, so at least one is required; use New for an empty index.
func Build(embeddings [][]float32) (*Index, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: cannot infer dimension from zero embeddings", core.ErrInput)
	}
	idx, err := New(len(embeddings[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(embeddings); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends embeddings in order. Every embedding is checked before any is
// stored, so on error the index is unchanged.
func (x *Index) Add(embeddings [][]float32) error {
	for _, e := range embeddings {
		if len(e) != x.dim {
			return core.NewDimensionMismatch(x.dim, len(e))
		}
	}

	x.data = slices.Grow(x.data, len(embeddings)*x.dim)
	for _, e := range embeddings {
		x.data = append(x.data, e...)
	}
	x.n += len(embeddings)
	return nil
}

// Search returns the k rows closest to query. If k exceeds Len, all rows are
// returned. NaN distances rank after every other distance.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if err := core.ValidateK(k); err != nil {
		return nil, err
	}
	if len(query) != x.dim {
		return nil, core.NewDimensionMismatch(x.dim, len(query))
	}

	hits := make([]Hit, x.n)
	for i := range x.n {
		hits[i] = Hit{Position: i, Distance: SquaredL2(query, x.row(i))}
	}
	slices.SortFunc(hits, compareHits)

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func compareHits(a, b Hit) int {
	aNaN, bNaN := isNaN(a.Distance), isNaN(b.Distance)
	switch {
	case aNaN && !bNaN:
		return 1
	case !aNaN && bNaN:
		return -1
	case !aNaN && a.Distance != b.Distance:
		return cmp.Compare(a.Distance, b.Distance)
	}
	return cmp.Compare(a.Position, b.Position)
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	return x.n
}

// Dim returns the vector dimension.
func (x *Index) Dim() int {
	return x.dim
}

// Vector returns a copy of row i.
func (x *Index) Vector(i int) ([]float32, error) {
	if i < 0 || i >= x.n {
		return nil, fmt.Errorf("%w: position %d, index holds %d", core.ErrIndexOutOfRange, i, x.n)
	}
	return slices.Clone(x.row(i)), nil
}

func (x *Index) row(i int) []float32 {
	return x.data[i*x.dim : (i+1)*x.dim]
}

// SquaredL2 returns the squared Euclidean distance between a and b, which
// must have the same length. Accumulation is in float32.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
