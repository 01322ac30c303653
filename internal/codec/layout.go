package codec

import (
	"fmt"
	"sort"
)

// Field is one enabled scan element: a channel or the timestamp.
type Field struct {
	Index int
	Type  DatumType
}

// Layout places fields in ascending scan index order, each aligned to its
// own storage size.
type Layout struct {
	fields  []Field
	offsets map[int]int
	size    int
}

// NewLayout computes the byte offset of every field and the record size.
func NewLayout(fields []Field) (*Layout, error) {
	sorted := append([]Field(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	l := &Layout{fields: sorted, offsets: make(map[int]int, len(sorted))}
	for _, f := range sorted {
		if _, dup := l.offsets[f.Index]; dup {
			return nil, fmt.Errorf("duplicate scan index %d", f.Index)
		}
		l.size += Padding(l.size, f.Type.StorageBits)
		l.offsets[f.Index] = l.size
		l.size += f.Type.Size()
	}
	return l, nil
}

// Size is the record length in bytes.
func (l *Layout) Size() int { return l.size }

// offset returns the byte offset of the field at scan index idx.
func (l *Layout) offset(idx int) (int, bool) {
	off, ok := l.offsets[idx]
	return off, ok
}

// Decode extracts every field of record, keyed by scan index.
func (l *Layout) Decode(record []byte) (map[int]int64, error) {
	if len(record) < l.size {
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrShortRecord, len(record), l.size)
	}
	out := make(map[int]int64, len(l.fields))
	for _, f := range l.fields {
		off, _ := l.offset(f.Index)
		out[f.Index] = DecodeSample(record[off:off+f.Type.Size()], f.Type)
	}
	return out, nil
}
