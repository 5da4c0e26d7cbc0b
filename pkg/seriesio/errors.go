package seriesio

import "fmt"

func errorAt(err error, index int) error {
	return fmt.Errorf("%w: series #%d", err, index)
}

func errorAtName(err error, name string) error {
	return fmt.Errorf("%w: %q", err, name)
}
