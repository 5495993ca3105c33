// Package matcher implements exact 1-nearest-neighbour classification of face
// vectors under Euclidean distance.
package matcher

import (
	"math"

	"github.com/andresmejia3/rollcall/internal/apperrors"
	"github.com/andresmejia3/rollcall/internal/gallery"
	"github.com/andresmejia3/rollcall/internal/logger"
	"github.com/andresmejia3/rollcall/internal/vector"
)

// Model is a fitted gallery. It is read-only and safe for concurrent Predict calls.
type Model struct {
	dim     int
	vectors [][]uint8
	labels  []string
}

// Match is the outcome of one prediction.
type Match struct {
	Label    string
	Index    int     // gallery position of the winning vector
	Distance float64 // Euclidean distance to the probe
}

// Fit captures the gallery vectors and labels. The gallery must be non-empty.
func Fit(g *gallery.Gallery) (*Model, error) {
	if g == nil || g.Len() == 0 {
		return nil, apperrors.New(apperrors.EmptyGallery, "cannot fit an empty gallery", nil)
	}
	dim := g.Dimension
	if dim == 0 {
		dim = vector.Dimension
	}

	m := &Model{
		dim:     dim,
		vectors: make([][]uint8, g.Len()),
		labels:  make([]string, g.Len()),
	}
	for i, e := range g.Entries {
		m.vectors[i] = e.Vector
		m.labels[i] = e.Label
	}
	return m, nil
}

// Size returns the number of reference vectors.
func (m *Model) Size() int {
	return len(m.vectors)
}

// Predict returns the label of the closest gallery vector (k = 1).
// Equidistant candidates resolve to the lowest gallery index.
func (m *Model) Predict(probe []uint8) Match {
	if len(probe) != m.dim {
		var repair vector.Repair
		probe, repair = vector.Normalize(probe, m.dim)
		logger.Warning("probe vector normalized",
			logger.LoggerOptions{Key: "action", Data: string(repair.Action)},
			logger.LoggerOptions{Key: "from", Data: repair.Original},
			logger.LoggerOptions{Key: "to", Data: repair.Final},
		)
	}

	best := -1
	var bestDist uint64 = math.MaxUint64
	for i, v := range m.vectors {
		// Strict less-than keeps the earliest index on ties.
		if d := vector.SquaredDistance(probe, v); d < bestDist {
			bestDist = d
			best = i
		}
	}

	return Match{
		Label:    m.labels[best],
		Index:    best,
		Distance: math.Sqrt(float64(bestDist)),
	}
}
