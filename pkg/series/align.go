package series

import (
	"math"
	"slices"
)

// FillPolicy selects how positions absent from a series are filled.
type FillPolicy string

const (
	// FillZero synthesizes points with value 0.
	FillZero FillPolicy = "zero"
	// FillMissing synthesizes points with value 0 flagged as missing.
	FillMissing FillPolicy = "missing"
)

// uniformStep is the spacing between positions of a uniform domain.
const uniformStep = 1.0

// AlignOptions configures Align.
type AlignOptions struct {
	// EnforceUniformSpacing fills every step between the smallest and largest
	// position, even where no series has data.
	EnforceUniformSpacing bool
	// Fill selects the filler for synthesized points. Empty means FillZero.
	Fill FillPolicy
}

// ParseFillPolicy maps a config string to a FillPolicy. Unknown values
// report false.
func ParseFillPolicy(s string) (FillPolicy, bool) {
	switch FillPolicy(s) {
	case "", FillZero:
		return FillZero, true
	case FillMissing:
		return FillMissing, true
	default:
		return "", false
	}
}

// Domain returns the shared ascending position domain of in.
func Domain(in []Series, uniform bool) []float64 {
	seen := make(map[float64]struct{})

	var positions []float64

	for _, s := range in {
		for _, p := range s.Points {
			if _, ok := seen[p.Position]; ok {
				continue
			}

			seen[p.Position] = struct{}{}
			positions = append(positions, p.Position)
		}
	}

	slices.Sort(positions)

	if !uniform || len(positions) == 0 {
		return positions
	}

	lo, hi := positions[0], positions[len(positions)-1]
	prev := math.Inf(-1)

	// Steps are computed by index. Past float64 integer precision lo+i stops
	// growing, which ends the fill, as does a NaN bound.
	for i := range uniformCount(lo, hi) {
		step := lo + float64(i)*uniformStep
		if !(step > prev && step <= hi) {
			break
		}

		prev = step

		if _, ok := seen[step]; ok {
			continue
		}

		seen[step] = struct{}{}
		positions = append(positions, step)
	}

	// Fractional inputs keep their own positions next to the integer steps.
	slices.Sort(positions)

	return positions
}

// UniformSteps returns how many positions a uniform domain over in would
// span, so callers can bound the allocation before aligning. Spans too wide
// to count, including non-finite ones, saturate at math.MaxInt.
func UniformSteps(in []Series) int {
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, s := range in {
		for _, p := range s.Points {
			lo = min(lo, p.Position)
			hi = max(hi, p.Position)
		}
	}

	if lo > hi {
		return 0
	}

	return uniformCount(lo, hi)
}

func uniformCount(lo, hi float64) int {
	span := math.Floor((hi - lo) / uniformStep)
	if math.IsNaN(span) || span >= math.MaxInt {
		return math.MaxInt
	}

	return int(span) + 1
}

// Align returns copies of in that all carry a point at every position of the
// shared domain. Existing points are kept unchanged; absent positions get a
// synthesized point with value 0 and offset 0. Series order and identifying
// fields are preserved.
func Align(in []Series, opts AlignOptions) []Series {
	out := make([]Series, 0, len(in))
	if len(in) == 0 {
		return out
	}

	domain := Domain(in, opts.EnforceUniformSpacing)
	missing := opts.Fill == FillMissing

	for _, s := range in {
		byPosition := make(map[float64]Point, len(s.Points))
		for _, p := range s.Points {
			byPosition[p.Position] = p
		}

		points := make([]Point, len(domain))

		for i, pos := range domain {
			if p, ok := byPosition[pos]; ok {
				points[i] = p

				continue
			}

			points[i] = Point{Position: pos, Time: pos, Missing: missing}
		}

		out = append(out, s.withPoints(points))
	}

	return out
}
