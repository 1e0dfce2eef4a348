package codec

import (
	"math"

	"github.com/arloliu/colvals/format"
	"github.com/arloliu/colvals/internal/disi"
	"github.com/arloliu/colvals/internal/packed"
)

// writeBinary concatenates the raw values, emits the presence descriptor,
// and, when lengths vary, a monotonic address table of cumulative offsets.
// Fixed-length fields omit the table; the reader reconstructs positions by
// multiplication.
func (w *Writer) writeBinary(src BinarySource) error {
	values, err := src()
	if err != nil {
		return err
	}

	start := w.data.Position()
	if err := w.meta.WriteInt64(start); err != nil { // dataOffset
		return err
	}

	numDocsWithField := 0
	minLength := math.MaxInt32
	maxLength := 0
	for {
		doc, err := values.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			break
		}
		numDocsWithField++
		v, err := values.Value()
		if err != nil {
			return err
		}
		if err := w.data.WriteBytes(v); err != nil {
			return err
		}
		minLength = min(minLength, len(v))
		maxLength = max(maxLength, len(v))
	}

	if err := w.meta.WriteInt64(w.data.Position() - start); err != nil { // dataLength
		return err
	}

	err = w.writePresence(numDocsWithField, func() (disi.NextDocFunc, error) {
		cur, err := src()
		if err != nil {
			return nil, err
		}
		return binaryDocIDNexter(cur), nil
	})
	if err != nil {
		return err
	}

	if err := w.meta.WriteInt32(int32(numDocsWithField)); err != nil {
		return err
	}
	if err := w.meta.WriteInt32(int32(minLength)); err != nil {
		return err
	}
	if err := w.meta.WriteInt32(int32(maxLength)); err != nil {
		return err
	}

	if maxLength <= minLength {
		return nil
	}

	// Variable lengths: record cumulative offsets 0, len0, len0+len1, ...
	// so value i spans [addr[i], addr[i+1]).
	start = w.data.Position()
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
	values, err = src()
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
		v, err := values.Value()
		if err != nil {
			return err
		}
		addr += int64(len(v))
		if err := writer.Add(addr); err != nil {
			return err
		}
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	return w.meta.WriteInt64(w.data.Position() - start) // addrLength
}

func binaryDocIDNexter(cur BinaryCursor) disi.NextDocFunc {
	return func() (int, error) {
		doc, err := cur.NextDoc()
		if err != nil {
			return 0, err
		}
		if doc == NoMoreDocs {
			return -1, nil
		}
		return doc, nil
	}
}
