package codec

import "math"

// NoMoreDocs is returned by NextDoc when a cursor is exhausted.
const NoMoreDocs = math.MaxInt32

// NumericCursor iterates documents carrying a single int64 value, in
// strictly increasing doc order. Documents without a value are skipped.
type NumericCursor interface {
	// NextDoc advances to the next document and returns its id, or
	// NoMoreDocs when the cursor is exhausted.
	NextDoc() (int, error)

	// Value returns the current document's value.
	Value() (int64, error)

	// Cost returns the total number of documents with a value.
	Cost() int64
}

// NumericSource produces a fresh NumericCursor over identical content on
// every call. The writer iterates a field several times: statistics first,
// then presence, then the data pass.
type NumericSource func() (NumericCursor, error)

// BinaryCursor iterates documents carrying a single byte-string value.
type BinaryCursor interface {
	NextDoc() (int, error)
	Value() ([]byte, error)
	Cost() int64
}

// BinarySource produces a fresh BinaryCursor on every call.
type BinarySource func() (BinaryCursor, error)

// SortedNumericCursor iterates documents carrying one or more int64 values.
// Values within a document are already ordered. NextDoc discards any
// unconsumed values of the current document.
type SortedNumericCursor interface {
	NextDoc() (int, error)

	// ValueCount returns the number of values of the current document,
	// always at least 1.
	ValueCount() int

	// NextValue returns the next value of the current document. It must be
	// called at most ValueCount times per document.
	NextValue() (int64, error)

	// Cost returns the total value count across all documents.
	Cost() int64
}

// SortedNumericSource produces a fresh SortedNumericCursor on every call.
type SortedNumericSource func() (SortedNumericCursor, error)

// TermCursor iterates the distinct terms of a field in ascending byte
// order. Next returns nil when the cursor is exhausted. Ordinals are
// assigned implicitly: the k-th term returned has ordinal k.
type TermCursor interface {
	Next() ([]byte, error)
}

// SortedDocCursor iterates documents of a Sorted field together with the
// ordinal of their single term.
type SortedDocCursor interface {
	NextDoc() (int, error)
	Ord() (int64, error)
	Cost() int64
}

// SortedValues describes a Sorted field: at most one term per document,
// stored as an ordinal into the field's sorted term dictionary. Terms and
// Docs return fresh cursors on every call.
type SortedValues interface {
	TermCount() int64
	Terms() (TermCursor, error)
	Docs() (SortedDocCursor, error)
}

// SortedSetDocCursor iterates documents of a SortedSet field together with
// their ordinals, ascending within each document. NextDoc discards any
// unconsumed ordinals of the current document.
type SortedSetDocCursor interface {
	NextDoc() (int, error)
	OrdCount() int
	NextOrd() (int64, error)
	Cost() int64
}

// SortedSetValues describes a SortedSet field: zero or more terms per
// document via ordinals. Terms and Docs return fresh cursors on every call.
type SortedSetValues interface {
	TermCount() int64
	Terms() (TermCursor, error)
	Docs() (SortedSetDocCursor, error)
}

// singletonCursor adapts a NumericCursor to the SortedNumericCursor shape
// used by the shared numeric encoder.
type singletonCursor struct {
	nc NumericCursor
}

func (c *singletonCursor) NextDoc() (int, error)     { return c.nc.NextDoc() }
func (c *singletonCursor) ValueCount() int           { return 1 }
func (c *singletonCursor) NextValue() (int64, error) { return c.nc.Value() }
func (c *singletonCursor) Cost() int64               { return c.nc.Cost() }

func singletonSource(src NumericSource) SortedNumericSource {
	return func() (SortedNumericCursor, error) {
		nc, err := src()
		if err != nil {
			return nil, err
		}
		return &singletonCursor{nc: nc}, nil
	}
}

// sortedOrdCursor exposes the ordinals of a Sorted field as a
// single-valued numeric stream.
type sortedOrdCursor struct {
	sc SortedDocCursor
}

func (c *sortedOrdCursor) NextDoc() (int, error)     { return c.sc.NextDoc() }
func (c *sortedOrdCursor) ValueCount() int           { return 1 }
func (c *sortedOrdCursor) NextValue() (int64, error) { return c.sc.Ord() }
func (c *sortedOrdCursor) Cost() int64               { return c.sc.Cost() }

func sortedOrdsSource(vals SortedValues) SortedNumericSource {
	return func() (SortedNumericCursor, error) {
		sc, err := vals.Docs()
		if err != nil {
			return nil, err
		}
		return &sortedOrdCursor{sc: sc}, nil
	}
}

// sortedSetOrdCursor exposes the ordinals of a SortedSet field as a
// multi-valued numeric stream.
type sortedSetOrdCursor struct {
	sc SortedSetDocCursor
}

func (c *sortedSetOrdCursor) NextDoc() (int, error)     { return c.sc.NextDoc() }
func (c *sortedSetOrdCursor) ValueCount() int           { return c.sc.OrdCount() }
func (c *sortedSetOrdCursor) NextValue() (int64, error) { return c.sc.NextOrd() }
func (c *sortedSetOrdCursor) Cost() int64               { return c.sc.Cost() }

func sortedSetOrdsSource(vals SortedSetValues) SortedNumericSource {
	return func() (SortedNumericCursor, error) {
		sc, err := vals.Docs()
		if err != nil {
			return nil, err
		}
		return &sortedSetOrdCursor{sc: sc}, nil
	}
}

// minSelectedSorted views a single-valued SortedSet field as a Sorted
// field, selecting each document's minimum ordinal. Ordinals ascend within
// a document, so the first one is the minimum.
type minSelectedSorted struct {
	vals SortedSetValues
}

func (v minSelectedSorted) TermCount() int64           { return v.vals.TermCount() }
func (v minSelectedSorted) Terms() (TermCursor, error) { return v.vals.Terms() }

func (v minSelectedSorted) Docs() (SortedDocCursor, error) {
	sc, err := v.vals.Docs()
	if err != nil {
		return nil, err
	}
	return &minSelectedCursor{sc: sc}, nil
}

type minSelectedCursor struct {
	sc SortedSetDocCursor
}

func (c *minSelectedCursor) NextDoc() (int, error) { return c.sc.NextDoc() }
func (c *minSelectedCursor) Ord() (int64, error)   { return c.sc.NextOrd() }
func (c *minSelectedCursor) Cost() int64           { return c.sc.Cost() }
