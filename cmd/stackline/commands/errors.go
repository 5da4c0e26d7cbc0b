package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	errInvalidFill    = errors.New("fill must be zero or missing")
	errInvalidSize    = errors.New("invalid size")
	errDomainTooLarge = errors.New("uniform domain too large")
	errNoOutput       = errors.New("output file is required (use --output)")
	errNoSlug         = errors.New("chart slug is required")
)

func parseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", errInvalidSize, s, err)
	}

	return int64(n), nil //nolint:gosec // sizes beyond int64 are not meaningful input limits.
}
