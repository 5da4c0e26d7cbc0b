// Package series aligns multi-series chart data onto a shared position domain
// and assigns stacking offsets so each series can be drawn on top of the
// series before it.
//
// Align and Stack never mutate their input: they return fresh collections,
// so both are safe to call concurrently on shared data.
package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Sentinel validation errors.
var (
	// ErrDuplicatePosition indicates two points of one series share a position.
	ErrDuplicatePosition = errors.New("duplicate position in series")
	// ErrUnsortedPositions indicates a series' positions are not ascending.
	ErrUnsortedPositions = errors.New("series positions are not ascending")
	// ErrUnaligned indicates series do not share an identical position domain.
	ErrUnaligned = errors.New("series are not aligned")
	// ErrNonFinitePosition indicates a position is NaN or infinite.
	ErrNonFinitePosition = errors.New("position is not finite")
)

// Point is one sample of a series.
type Point struct {
	Position float64 `json:"position"           yaml:"position"`
	Time     float64 `json:"time"               yaml:"time"`
	Value    float64 `json:"value"              yaml:"value"`
	Offset   float64 `json:"offset"             yaml:"offset"`
	Missing  bool    `json:"missing,omitempty"  yaml:"missing,omitempty"`
}

// Top returns the upper visual extent of a stacked point.
func (p Point) Top() float64 {
	return p.Offset + p.contribution()
}

// contribution is the amount the point adds to a stack.
func (p Point) contribution() float64 {
	if p.Missing {
		return 0
	}

	return p.Value
}

// Series is a named sequence of points plotted as one line or band.
type Series struct {
	Name       string  `json:"name"             yaml:"name"`
	ColumnSlug string  `json:"column,omitempty" yaml:"column,omitempty"`
	Color      string  `json:"color,omitempty"  yaml:"color,omitempty"`
	Points     []Point `json:"points"           yaml:"points"`
}

// withPoints returns a copy of s that owns the given points.
func (s Series) withPoints(points []Point) Series {
	return Series{
		Name:       s.Name,
		ColumnSlug: s.ColumnSlug,
		Color:      s.Color,
		Points:     points,
	}
}

// Positions returns the positions of s in order.
func Positions(s Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Position
	}

	return out
}

// CheckFinite rejects NaN and infinite positions, which have no place on a
// domain.
func CheckFinite(in []Series) error {
	for _, s := range in {
		for i, p := range s.Points {
			if math.IsNaN(p.Position) || math.IsInf(p.Position, 0) {
				return fmt.Errorf("%w: %q at index %d", ErrNonFinitePosition, s.Name, i)
			}
		}
	}

	return nil
}

// Validate checks that every position is finite and every series has
// strictly increasing positions.
func Validate(in []Series) error {
	err := CheckFinite(in)
	if err != nil {
		return err
	}

	var errs []error

	for _, s := range in {
		for i := 1; i < len(s.Points); i++ {
			prev, cur := s.Points[i-1].Position, s.Points[i].Position

			switch {
			case cur == prev:
				errs = append(errs, fmt.Errorf("%w: %q at %v", ErrDuplicatePosition, s.Name, cur))
			case cur < prev:
				errs = append(errs, fmt.Errorf("%w: %q at index %d", ErrUnsortedPositions, s.Name, i))
			}
		}
	}

	return errors.Join(errs...)
}

// Sort returns a copy of in with every series' points ordered by position.
// When two points share a position the last one wins.
func Sort(in []Series) []Series {
	out := make([]Series, len(in))

	for i, s := range in {
		points := make([]Point, len(s.Points))
		copy(points, s.Points)

		sort.SliceStable(points, func(a, b int) bool {
			return points[a].Position < points[b].Position
		})

		deduped := points[:0]
		for _, p := range points {
			if n := len(deduped); n > 0 && deduped[n-1].Position == p.Position {
				deduped[n-1] = p

				continue
			}

			deduped = append(deduped, p)
		}

		out[i] = s.withPoints(deduped)
	}

	return out
}

// Extent returns the smallest offset and the largest stack top across all
// points. Empty input yields (0, 0).
func Extent(in []Series) (lo, hi float64) {
	first := true

	for _, s := range in {
		for _, p := range s.Points {
			bottom, top := min(p.Offset, p.Top()), max(p.Offset, p.Top())

			if first {
				lo, hi = bottom, top
				first = false

				continue
			}

			lo = min(lo, bottom)
			hi = max(hi, top)
		}
	}

	return lo, hi
}
