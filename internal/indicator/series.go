package indicator

// Point is one element of an indicator series. Warm-up entries stay invalid;
// they are never coerced to zero.
type Point struct {
	Value float64
	Valid bool
}

// Series is an indicator output aligned 1:1 with the input bars.
type Series []Point

// NewSeries returns an all-undefined series of length n.
func NewSeries(n int) Series {
	return make(Series, n)
}

// At returns the value at i and whether it is defined. Out-of-range indexes
// read as undefined so callers can probe i-1 without guarding.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	p := s[i]
	return p.Value, p.Valid
}

// Defined reports whether the value at i is defined.
func (s Series) Defined(i int) bool {
	_, ok := s.At(i)
	return ok
}

func (s Series) set(i int, v float64) {
	s[i] = Point{Value: v, Valid: true}
}

// FromValues wraps raw values into a fully defined series.
func FromValues(values []float64) Series {
	out := NewSeries(len(values))
	for i, v := range values {
		out.set(i, v)
	}
	return out
}
