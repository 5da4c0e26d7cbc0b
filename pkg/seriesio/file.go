package seriesio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// StdioPath names stdin or stdout in place of a file path.
const StdioPath = "-"

// DefaultMaxBytes bounds decoded chart input.
const DefaultMaxBytes = 64 << 20

const writeFilePerm = 0o644

// ReadOptions configures ReadFile.
type ReadOptions struct {
	// MaxBytes bounds the decompressed input size. Zero means DefaultMaxBytes.
	MaxBytes int64
	// Schema validates JSON documents against the chart schema before decoding.
	Schema bool
}

// ReadFile loads a chart document from path, or JSON from stdin for "-".
func ReadFile(path string, opts ReadOptions) (*Chart, error) {
	format, compressed := FormatJSON, false

	var src io.Reader

	if path == StdioPath {
		src = os.Stdin
	} else {
		var err error

		format, compressed, err = FormatFromPath(path)
		if err != nil {
			return nil, err
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open chart: %w", err)
		}
		defer f.Close()

		src = f
	}

	if compressed {
		src = lz4.NewReader(src)
	}

	data, err := readLimited(src, opts.MaxBytes)
	if err != nil {
		return nil, err
	}

	return Parse(data, format, opts.Schema)
}

// Parse decodes an in-memory chart document, validating JSON against the
// chart schema first when schema is set.
func Parse(data []byte, format Format, schema bool) (*Chart, error) {
	if schema && format == FormatJSON {
		err := ValidateJSON(data)
		if err != nil {
			return nil, err
		}
	}

	return Decode(bytes.NewReader(data), format)
}

// WriteFile writes a chart document to path, or JSON to stdout for "-".
// The format comes from the extension; a .lz4 suffix compresses the output.
func WriteFile(path string, c *Chart) error {
	if path == StdioPath {
		return Encode(os.Stdout, c, FormatJSON)
	}

	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	err = encodeMaybeCompressed(&buf, c, format, compressed)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, buf.Bytes(), writeFilePerm)
	if err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	return nil
}

func encodeMaybeCompressed(w io.Writer, c *Chart, format Format, compressed bool) error {
	if !compressed {
		return Encode(w, c, format)
	}

	zw := lz4.NewWriter(w)

	err := Encode(zw, c, format)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("close lz4 frame: %w", err)
	}

	return nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read chart: %w", err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, limit)
	}

	return data, nil
}
