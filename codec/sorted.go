package codec

import (
	"github.com/arloliu/colvals/format"
	"github.com/arloliu/colvals/internal/packed"
)

// addSortedField feeds the field's ordinals through the numeric pipeline,
// then writes the term dictionary over the distinct sorted term list.
func (w *Writer) addSortedField(vals SortedValues) error {
	if _, _, err := w.writeValues(sortedOrdsSource(vals), true); err != nil {
		return err
	}

	return w.addTermsDict(vals.TermCount(), vals.Terms)
}

// addSortedNumericField writes the numeric stream, then, for multi-valued
// fields, a monotonic table of cumulative per-document value counts so the
// values of doc i are the slice [addr[i], addr[i+1]).
func (w *Writer) addSortedNumericField(src SortedNumericSource, ords bool) error {
	numDocsWithField, numValues, err := w.writeValues(src, ords)
	if err != nil {
		return err
	}

	if err := w.meta.WriteInt32(int32(numDocsWithField)); err != nil {
		return err
	}
	if numValues == int64(numDocsWithField) {
		return nil
	}

	start := w.data.Position()
	if err := w.meta.WriteInt64(start); err != nil { // addrStart
		return err
	}
	if err := w.meta.WriteUvarint(format.DirectMonotonicBlockShift); err != nil {
		return err
	}

	writer, err := packed.NewDirectMonotonicWriter(
		w.meta, w.data, int64(numDocsWithField)+1, format.DirectMonotonicBlockShift)
	if err != nil {
		return err
	}

	var addr int64
	if err := writer.Add(addr); err != nil {
		return err
	}
	values, err := src()
	if err != nil {
		return err
	}
	for {
		doc, err := values.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			break
		}
		addr += int64(values.ValueCount())
		if err := writer.Add(addr); err != nil {
			return err
		}
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	return w.meta.WriteInt64(w.data.Position() - start) // addrLength
}

// addSortedSetField collapses single-valued fields to the Sorted layout
// behind a marker byte; multi-valued fields go through the SortedNumeric
// pipeline on ordinals, then the term dictionary.
func (w *Writer) addSortedSetField(vals SortedSetValues) error {
	singleValued, err := isSingleValued(vals)
	if err != nil {
		return err
	}

	if singleValued {
		if err := w.meta.WriteByte(0); err != nil { // multiValued = 0
			return err
		}
		return w.addSortedField(minSelectedSorted{vals: vals})
	}

	if err := w.meta.WriteByte(1); err != nil { // multiValued = 1
		return err
	}
	if err := w.addSortedNumericField(sortedSetOrdsSource(vals), true); err != nil {
		return err
	}

	return w.addTermsDict(vals.TermCount(), vals.Terms)
}

func isSingleValued(vals SortedSetValues) (bool, error) {
	docs, err := vals.Docs()
	if err != nil {
		return false, err
	}
	for {
		doc, err := docs.NextDoc()
		if err != nil {
			return false, err
		}
		if doc == NoMoreDocs {
			return true, nil
		}
		if docs.OrdCount() > 1 {
			return false, nil
		}
	}
}
