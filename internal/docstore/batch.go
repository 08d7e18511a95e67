package docstore

type writeKind int

const (
	writeSet writeKind = iota
	writeUpdate
	writeDelete
)

type write struct {
	kind       writeKind
	collection string
	id         string
	fields     Fields
	pre        preconditions
}

type docKey struct {
	collection string
	id         string
}

// writeBuffer queues batch writes, coalescing writes that target the same
// document so each document is written at most once per commit:
//   - update after set or update merges fields into the earlier write
//   - set replaces any earlier write
//   - delete replaces any earlier write
//   - update after delete fails the commit with ErrNotFound
//
// The first precondition queued for a document is kept.
type writeBuffer struct {
	order  []docKey
	writes map[docKey]*write
	err    error
}

func newWriteBuffer() writeBuffer {
	return writeBuffer{writes: map[docKey]*write{}}
}

func (b *writeBuffer) queue(w write) {
	if w.collection == "" || w.id == "" {
		b.err = ErrInvalidWrite
		return
	}
	key := docKey{w.collection, w.id}
	prev, exists := b.writes[key]
	if !exists {
		b.order = append(b.order, key)
		w.fields = w.fields.Clone()
		b.writes[key] = &w
		return
	}
	if !prev.pre.hasVersion {
		prev.pre = w.pre
	}
	switch w.kind {
	case writeUpdate:
		if prev.kind == writeDelete {
			// the document no longer exists when the update applies
			b.err = ErrNotFound
			return
		}
		for k, v := range w.fields {
			prev.fields[k] = cloneValue(v)
		}
	case writeSet:
		prev.kind = writeSet
		prev.fields = w.fields.Clone()
	case writeDelete:
		prev.kind = writeDelete
		prev.fields = nil
	}
}

func (b *writeBuffer) Set(collection, id string, fields Fields) {
	b.queue(write{kind: writeSet, collection: collection, id: id, fields: fields})
}

func (b *writeBuffer) Update(collection, id string, fields Fields, preconds ...Precondition) {
	b.queue(write{kind: writeUpdate, collection: collection, id: id, fields: fields, pre: applyPreconditions(preconds)})
}

func (b *writeBuffer) Delete(collection, id string, preconds ...Precondition) {
	b.queue(write{kind: writeDelete, collection: collection, id: id, pre: applyPreconditions(preconds)})
}

func (b *writeBuffer) Len() int {
	return len(b.order)
}

// list returns the queued writes in first-queued order.
func (b *writeBuffer) list() []*write {
	out := make([]*write, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, b.writes[key])
	}
	return out
}
