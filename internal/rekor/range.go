package rekor

import "fmt"

// IndexRange is the half-open interval [Start, End) of log indexes.
type IndexRange struct {
	Start uint64
	End   uint64
}

// NewIndexRange returns [start, end). It fails if end precedes start.
func NewIndexRange(start, end uint64) (IndexRange, error) {
	if end < start {
		return IndexRange{}, fmt.Errorf("invalid index range: end %d < start %d", end, start)
	}
	return IndexRange{Start: start, End: end}, nil
}

func (r IndexRange) Len() uint64 { return r.End - r.Start }

func (r IndexRange) Empty() bool { return r.End <= r.Start }

// Last returns the final index in the range. It is only meaningful when the
// range is not empty.
func (r IndexRange) Last() uint64 { return r.End - 1 }

// Indexes expands the range into its ascending list of indexes.
func (r IndexRange) Indexes() []uint64 {
	if r.Empty() {
		return nil
	}
	out := make([]uint64, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

// Split breaks the range into consecutive sub-ranges of at most size indexes.
// A size of zero returns the range unchanged.
func (r IndexRange) Split(size uint64) []IndexRange {
	if r.Empty() {
		return nil
	}
	if size == 0 || r.Len() <= size {
		return []IndexRange{r}
	}
	var out []IndexRange
	for start := r.Start; start < r.End; start += size {
		end := start + size
		if end > r.End || end < start {
			end = r.End
		}
		out = append(out, IndexRange{Start: start, End: end})
	}
	return out
}

func (r IndexRange) String() string {
	if r.Empty() {
		return fmt.Sprintf("[%d, %d) (empty)", r.Start, r.End)
	}
	return fmt.Sprintf("%d -> %d (%d)", r.Start, r.Last(), r.Len())
}
