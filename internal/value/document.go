package value

// Document is a mapping from string key to Value. Keys are unique within
// a document; iteration order is never observable through the wire
// protocol.
type Document map[string]Value

// ContainsArray reports whether doc (or any nested object within it)
// contains an Array value anywhere in its tree. Persisted documents must
// not contain arrays, since the wire codec has no Array frame.
func (d Document) ContainsArray() bool {
	for _, v := range d {
		if valueContainsArray(v) {
			return true
		}
	}
	return false
}

func valueContainsArray(v Value) bool {
	switch v.kind {
	case KindArray:
		return true
	case KindObject:
		for _, e := range v.obj {
			if valueContainsArray(e) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of doc's top-level map. Value itself is
// immutable once constructed, so only the map needs copying.
func (d Document) Clone() Document {
	cp := make(Document, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// FromValue converts a parsed object-kind Value into a Document.
func FromValue(v Value) (Document, error) {
	m, err := v.AsObject()
	if err != nil {
		return nil, err
	}
	return Document(m), nil
}

// ToValue renders doc as an Object Value.
func (d Document) ToValue() Value {
	return Object(map[string]Value(d))
}
