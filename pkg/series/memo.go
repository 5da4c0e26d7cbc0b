package series

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/Sumatoshi-tech/stackline/pkg/lru"
)

// DefaultMemoEntries is the default capacity of a Memo.
const DefaultMemoEntries = 256

// Memo caches AlignAndStack results keyed by a fingerprint of the input
// series and options, so repeated renders of unchanged data reuse the
// previous result. Returned slices are shared and must not be modified.
type Memo struct {
	cache *lru.Cache[uint64, memoEntry]
}

// memoEntry keeps the input shape next to the result so a fingerprint
// collision between different charts is detected instead of served.
type memoEntry struct {
	shape []seriesShape
	out   []Series
}

type seriesShape struct {
	name   string
	points int
}

func shapeOf(in []Series) []seriesShape {
	shape := make([]seriesShape, len(in))
	for i, s := range in {
		shape[i] = seriesShape{name: s.Name, points: len(s.Points)}
	}

	return shape
}

func (e memoEntry) matches(in []Series) bool {
	if len(e.shape) != len(in) {
		return false
	}

	for i, s := range in {
		if e.shape[i].name != s.Name || e.shape[i].points != len(s.Points) {
			return false
		}
	}

	return true
}

// NewMemo creates a Memo holding at most entries results.
func NewMemo(entries int) *Memo {
	if entries <= 0 {
		entries = DefaultMemoEntries
	}

	return &Memo{cache: lru.New(lru.WithMaxEntries[uint64, memoEntry](entries))}
}

// AlignAndStack returns the cached result for (in, opts), computing and
// storing it on a miss.
func (m *Memo) AlignAndStack(in []Series, opts AlignOptions) []Series {
	return m.alignAndStack(Fingerprint(in, opts), in, opts)
}

func (m *Memo) alignAndStack(key uint64, in []Series, opts AlignOptions) []Series {
	if e, ok := m.cache.Get(key); ok && e.matches(in) {
		return e.out
	}

	out := AlignAndStack(in, opts)
	m.cache.Put(key, memoEntry{shape: shapeOf(in), out: out})

	return out
}

// Stats returns the memo hit and miss counters.
func (m *Memo) Stats() lru.Stats {
	return m.cache.Stats()
}

// Fingerprint hashes every field that influences AlignAndStack.
func Fingerprint(in []Series, opts AlignOptions) uint64 {
	h := fnv.New64a()

	var buf [8]byte

	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}

	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(s))
	}

	if opts.EnforceUniformSpacing {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}

	writeString(string(opts.Fill))

	for _, s := range in {
		writeString(s.Name)
		writeString(s.ColumnSlug)
		writeString(s.Color)
		writeFloat(float64(len(s.Points)))

		for _, p := range s.Points {
			writeFloat(p.Position)
			writeFloat(p.Time)
			writeFloat(p.Value)

			if p.Missing {
				_, _ = h.Write([]byte{1})
			} else {
				_, _ = h.Write([]byte{0})
			}
		}
	}

	return h.Sum64()
}
