package codec

// Slice-backed sources for callers that assemble field values in memory,
// such as flush paths buffering a small segment, and for tests. Doc ids
// must be strictly increasing; the constructors do not re-sort.

// NewSliceNumeric builds a NumericSource over parallel docID/value slices.
func NewSliceNumeric(docIDs []int, values []int64) NumericSource {
	return func() (NumericCursor, error) {
		return &sliceNumericCursor{docIDs: docIDs, values: values, idx: -1}, nil
	}
}

type sliceNumericCursor struct {
	docIDs []int
	values []int64
	idx    int
}

func (c *sliceNumericCursor) NextDoc() (int, error) {
	c.idx++
	if c.idx >= len(c.docIDs) {
		return NoMoreDocs, nil
	}
	return c.docIDs[c.idx], nil
}

func (c *sliceNumericCursor) Value() (int64, error) {
	return c.values[c.idx], nil
}

func (c *sliceNumericCursor) Cost() int64 {
	return int64(len(c.docIDs))
}

// NewSliceBinary builds a BinarySource over parallel docID/value slices.
func NewSliceBinary(docIDs []int, values [][]byte) BinarySource {
	return func() (BinaryCursor, error) {
		return &sliceBinaryCursor{docIDs: docIDs, values: values, idx: -1}, nil
	}
}

type sliceBinaryCursor struct {
	docIDs []int
	values [][]byte
	idx    int
}

func (c *sliceBinaryCursor) NextDoc() (int, error) {
	c.idx++
	if c.idx >= len(c.docIDs) {
		return NoMoreDocs, nil
	}
	return c.docIDs[c.idx], nil
}

func (c *sliceBinaryCursor) Value() ([]byte, error) {
	return c.values[c.idx], nil
}

func (c *sliceBinaryCursor) Cost() int64 {
	return int64(len(c.docIDs))
}

// NewSliceSortedNumeric builds a SortedNumericSource over parallel
// docID/values slices. Every per-document slice must be non-empty and
// already ordered.
func NewSliceSortedNumeric(docIDs []int, values [][]int64) SortedNumericSource {
	var cost int64
	for _, vs := range values {
		cost += int64(len(vs))
	}
	return func() (SortedNumericCursor, error) {
		return &sliceSortedNumericCursor{docIDs: docIDs, values: values, cost: cost, idx: -1}, nil
	}
}

type sliceSortedNumericCursor struct {
	docIDs []int
	values [][]int64
	cost   int64
	idx    int
	vidx   int
}

func (c *sliceSortedNumericCursor) NextDoc() (int, error) {
	c.idx++
	c.vidx = 0
	if c.idx >= len(c.docIDs) {
		return NoMoreDocs, nil
	}
	return c.docIDs[c.idx], nil
}

func (c *sliceSortedNumericCursor) ValueCount() int {
	return len(c.values[c.idx])
}

func (c *sliceSortedNumericCursor) NextValue() (int64, error) {
	v := c.values[c.idx][c.vidx]
	c.vidx++
	return v, nil
}

func (c *sliceSortedNumericCursor) Cost() int64 {
	return c.cost
}

// sliceTermCursor iterates a term list in slice order.
type sliceTermCursor struct {
	terms [][]byte
	idx   int
}

func (c *sliceTermCursor) Next() ([]byte, error) {
	if c.idx >= len(c.terms) {
		return nil, nil
	}
	t := c.terms[c.idx]
	c.idx++
	return t, nil
}

// NewSliceSorted builds SortedValues from the sorted distinct term list and
// parallel docID/ordinal slices.
func NewSliceSorted(terms [][]byte, docIDs []int, ords []int64) SortedValues {
	return &sliceSorted{terms: terms, docIDs: docIDs, ords: ords}
}

type sliceSorted struct {
	terms  [][]byte
	docIDs []int
	ords   []int64
}

func (s *sliceSorted) TermCount() int64 {
	return int64(len(s.terms))
}

func (s *sliceSorted) Terms() (TermCursor, error) {
	return &sliceTermCursor{terms: s.terms}, nil
}

func (s *sliceSorted) Docs() (SortedDocCursor, error) {
	return &sliceSortedCursor{docIDs: s.docIDs, ords: s.ords, idx: -1}, nil
}

type sliceSortedCursor struct {
	docIDs []int
	ords   []int64
	idx    int
}

func (c *sliceSortedCursor) NextDoc() (int, error) {
	c.idx++
	if c.idx >= len(c.docIDs) {
		return NoMoreDocs, nil
	}
	return c.docIDs[c.idx], nil
}

func (c *sliceSortedCursor) Ord() (int64, error) {
	return c.ords[c.idx], nil
}

func (c *sliceSortedCursor) Cost() int64 {
	return int64(len(c.docIDs))
}

// NewSliceSortedSet builds SortedSetValues from the sorted distinct term
// list and parallel docID/ordinal-set slices. Every per-document ordinal
// slice must be non-empty and ascending.
func NewSliceSortedSet(terms [][]byte, docIDs []int, ords [][]int64) SortedSetValues {
	return &sliceSortedSet{terms: terms, docIDs: docIDs, ords: ords}
}

type sliceSortedSet struct {
	terms  [][]byte
	docIDs []int
	ords   [][]int64
}

func (s *sliceSortedSet) TermCount() int64 {
	return int64(len(s.terms))
}

func (s *sliceSortedSet) Terms() (TermCursor, error) {
	return &sliceTermCursor{terms: s.terms}, nil
}

func (s *sliceSortedSet) Docs() (SortedSetDocCursor, error) {
	return &sliceSortedSetCursor{docIDs: s.docIDs, ords: s.ords, idx: -1}, nil
}

type sliceSortedSetCursor struct {
	docIDs []int
	ords   [][]int64
	idx    int
	oidx   int
}

func (c *sliceSortedSetCursor) NextDoc() (int, error) {
	c.idx++
	c.oidx = 0
	if c.idx >= len(c.docIDs) {
		return NoMoreDocs, nil
	}
	return c.docIDs[c.idx], nil
}

func (c *sliceSortedSetCursor) OrdCount() int {
	return len(c.ords[c.idx])
}

func (c *sliceSortedSetCursor) NextOrd() (int64, error) {
	o := c.ords[c.idx][c.oidx]
	c.oidx++
	return o, nil
}

func (c *sliceSortedSetCursor) Cost() int64 {
	var n int64
	for _, os := range c.ords {
		n += int64(len(os))
	}
	return n
}
