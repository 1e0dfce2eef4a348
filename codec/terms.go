package codec

import (
	"bytes"
	"fmt"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/format"
	"github.com/arloliu/colvals/internal/packed"
	"github.com/arloliu/colvals/store"
)

// TermSource produces a fresh cursor over the sorted distinct term list on
// every call.
type TermSource func() (TermCursor, error)

// addTermsDict writes the block-compressed term dictionary.
//
// Terms are grouped into blocks of TermsDictBlockSize. The first term of a
// block goes to the data stream raw (uvarint length plus bytes) and is also
// copied into the scratch buffer, where it serves as the LZ4 dictionary for
// the block's remaining terms. Those are appended to the scratch buffer
// front-coded against their predecessor; at block end the buffered
// remainder is LZ4-compressed together with its leading dictionary bytes.
func (w *Writer) addTermsDict(size int64, terms TermSource) error {
	if err := w.meta.WriteUvarint(uint64(size)); err != nil {
		return err
	}
	if err := w.meta.WriteInt32(format.DirectMonotonicBlockShift); err != nil {
		return err
	}

	addressBuffer := store.NewBufferOutput()
	defer addressBuffer.Release()

	numBlocks := (size + format.TermsDictBlockMask) >> format.TermsDictBlockShift
	writer, err := packed.NewDirectMonotonicWriter(
		w.meta, addressBuffer, numBlocks, format.DirectMonotonicBlockShift)
	if err != nil {
		return err
	}

	iterator, err := terms()
	if err != nil {
		return err
	}

	buffered := w.termsDict
	buffered.Reset()

	var previous []byte
	var ord int64
	start := w.data.Position()
	maxLength, maxBlockLength := 0, 0
	dictLength := 0

	for {
		term, err := iterator.Next()
		if err != nil {
			return err
		}
		if term == nil {
			break
		}
		if ord > 0 && bytes.Compare(previous, term) >= 0 {
			return fmt.Errorf("%w: %q does not follow %q", errs.ErrTermOrder, term, previous)
		}

		if ord&format.TermsDictBlockMask == 0 {
			if ord != 0 {
				// Flush the previous block.
				uncompressedLength, err := w.flushTermsDictBlock(dictLength)
				if err != nil {
					return err
				}
				maxBlockLength = max(maxBlockLength, uncompressedLength)
				buffered.Reset()
			}

			if err := writer.Add(w.data.Position() - start); err != nil {
				return err
			}
			// Write the first term both to the data stream and to the
			// buffer, where it is the dictionary for compressing the rest
			// of the block.
			if err := w.data.WriteUvarint(uint64(len(term))); err != nil {
				return err
			}
			if err := w.data.WriteBytes(term); err != nil {
				return err
			}
			buffered.MustWrite(term)
			dictLength = len(term)
		} else {
			prefixLength := commonPrefixLength(previous, term)
			suffixLength := len(term) - prefixLength // > 0, terms are distinct

			buffered.B = append(buffered.B,
				byte(min(prefixLength, 15)|min(15, suffixLength-1)<<4))
			if prefixLength >= 15 {
				buffered.B = appendUvarint(buffered.B, uint64(prefixLength-15))
			}
			if suffixLength >= 16 {
				buffered.B = appendUvarint(buffered.B, uint64(suffixLength-16))
			}
			buffered.MustWrite(term[prefixLength:])
		}
		maxLength = max(maxLength, len(term))
		previous = append(previous[:0], term...)
		ord++
	}

	if ord != size {
		return fmt.Errorf("%w: term cursor yielded %d of %d terms", errs.ErrInvariant, ord, size)
	}

	// Compress and write out the last block, unless it holds only its
	// dictionary term.
	if buffered.Len() > dictLength {
		uncompressedLength, err := w.flushTermsDictBlock(dictLength)
		if err != nil {
			return err
		}
		maxBlockLength = max(maxBlockLength, uncompressedLength)
	}

	if err := writer.Finish(); err != nil {
		return err
	}

	if err := w.meta.WriteInt32(int32(maxLength)); err != nil {
		return err
	}
	if err := w.meta.WriteInt32(int32(maxBlockLength)); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(start); err != nil { // dictStart
		return err
	}
	if err := w.meta.WriteInt64(w.data.Position() - start); err != nil { // dictLength
		return err
	}

	addrStart := w.data.Position()
	if err := addressBuffer.CopyTo(w.data); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(addrStart); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(w.data.Position() - addrStart); err != nil {
		return err
	}

	return w.writeTermsIndex(size, terms)
}

// flushTermsDictBlock writes one compressed block record: the uvarint
// length of the front-coded remainder, then the LZ4 stream. The stream
// covers the scratch buffer including its leading dictionary bytes; the
// reader drops the first dictLength bytes after inflating.
func (w *Writer) flushTermsDictBlock(dictLength int) (int, error) {
	uncompressedLength := w.termsDict.Len() - dictLength
	if err := w.data.WriteUvarint(uint64(uncompressedLength)); err != nil {
		return 0, err
	}

	compressed, err := w.lz4.CompressBlock(w.termsDict.Bytes(), w.lz4Dst)
	if err != nil {
		return 0, err
	}
	w.lz4Dst = compressed[:0]

	if err := w.data.WriteBytes(compressed); err != nil {
		return 0, err
	}

	return uncompressedLength, nil
}

// writeTermsIndex writes the sparse reverse index: one sort key per group
// of TermsDictReverseIndexSize terms, with a monotonic offset table.
func (w *Writer) writeTermsIndex(size int64, terms TermSource) error {
	if err := w.meta.WriteInt32(format.TermsDictReverseIndexShift); err != nil {
		return err
	}
	start := w.data.Position()

	numBlocks := 1 + ((size + format.TermsDictReverseIndexMask) >> format.TermsDictReverseIndexShift)
	addressBuffer := store.NewBufferOutput()
	defer addressBuffer.Release()

	writer, err := packed.NewDirectMonotonicWriter(
		w.meta, addressBuffer, numBlocks, format.DirectMonotonicBlockShift)
	if err != nil {
		return err
	}

	iterator, err := terms()
	if err != nil {
		return err
	}

	var previous []byte
	var offset, ord int64
	for {
		term, err := iterator.Next()
		if err != nil {
			return err
		}
		if term == nil {
			break
		}

		if ord&format.TermsDictReverseIndexMask == 0 {
			if err := writer.Add(offset); err != nil {
				return err
			}
			sortKeyLen := 0
			if ord != 0 {
				sortKeyLen = sortKeyLength(previous, term)
			}
			offset += int64(sortKeyLen)
			if err := w.data.WriteBytes(term[:sortKeyLen]); err != nil {
				return err
			}
		} else if ord&format.TermsDictReverseIndexMask == format.TermsDictReverseIndexMask {
			previous = append(previous[:0], term...)
		}
		ord++
	}

	// Terminating offset so the last sort key's length is recoverable.
	if err := writer.Add(offset); err != nil {
		return err
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	if err := w.meta.WriteInt64(start); err != nil { // sortKeysStart
		return err
	}
	if err := w.meta.WriteInt64(w.data.Position() - start); err != nil { // sortKeysLength
		return err
	}

	addrStart := w.data.Position()
	if err := addressBuffer.CopyTo(w.data); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(addrStart); err != nil {
		return err
	}

	return w.meta.WriteInt64(w.data.Position() - addrStart)
}

// commonPrefixLength returns the length of the longest common prefix of a
// and b.
func commonPrefixLength(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}

	return n
}

// sortKeyLength returns the length of the shortest prefix of current that
// is strictly greater than prior. current must sort after prior.
func sortKeyLength(prior, current []byte) int {
	n := min(len(prior), len(current))
	for i := 0; i < n; i++ {
		if prior[i] != current[i] {
			return i + 1
		}
	}

	// prior is a proper prefix of current; one extra byte breaks the tie.
	return n + 1
}

func appendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}
