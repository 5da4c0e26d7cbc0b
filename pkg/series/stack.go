package series

import "fmt"

// Stack assigns each point the running total of the values of all preceding
// series at the same index. Series are stacked in input order, bottom first.
// Negative values lower the running total; there is no separate negative
// baseline.
//
// Input must come from Align. Unaligned input is stacked index by index up to
// each series' own length without panicking, which gives meaningless offsets;
// use StackStrict to reject it instead.
func Stack(in []Series) []Series {
	out := make([]Series, 0, len(in))

	var running []float64

	for _, s := range in {
		if n := len(s.Points); n > len(running) {
			running = append(running, make([]float64, n-len(running))...)
		}

		points := make([]Point, len(s.Points))

		for i, p := range s.Points {
			p.Offset = running[i]
			running[i] += p.contribution()
			points[i] = p
		}

		out = append(out, s.withPoints(points))
	}

	return out
}

// CheckAligned reports ErrUnaligned unless every series has the same
// positions in the same order.
func CheckAligned(in []Series) error {
	if len(in) == 0 {
		return nil
	}

	ref := in[0]

	for _, s := range in[1:] {
		if len(s.Points) != len(ref.Points) {
			return fmt.Errorf("%w: %q has %d points, %q has %d",
				ErrUnaligned, s.Name, len(s.Points), ref.Name, len(ref.Points))
		}

		for i := range s.Points {
			if s.Points[i].Position != ref.Points[i].Position {
				return fmt.Errorf("%w: %q and %q differ at index %d",
					ErrUnaligned, s.Name, ref.Name, i)
			}
		}
	}

	return nil
}

// StackStrict is Stack with the alignment precondition checked.
func StackStrict(in []Series) ([]Series, error) {
	err := CheckAligned(in)
	if err != nil {
		return nil, err
	}

	return Stack(in), nil
}

// AlignAndStack aligns in and stacks the result.
func AlignAndStack(in []Series, opts AlignOptions) []Series {
	return Stack(Align(in, opts))
}

// Totals returns the stack top at each index of aligned input.
func Totals(in []Series) []float64 {
	var totals []float64

	for _, s := range in {
		if n := len(s.Points); n > len(totals) {
			totals = append(totals, make([]float64, n-len(totals))...)
		}

		for i, p := range s.Points {
			totals[i] += p.contribution()
		}
	}

	return totals
}
