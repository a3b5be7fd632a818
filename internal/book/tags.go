package book

// Tags is an insertion-ordered string map. Updating an existing key keeps its
// original position so serialization stays deterministic.
type Tags struct {
	keys   []string
	values map[string]string
}

// NewTags returns an empty tag list.
func NewTags() *Tags {
	return &Tags{values: make(map[string]string)}
}

// Set inserts or updates key.
func (t *Tags) Set(key, value string) {
	if t.values == nil {
		t.values = make(map[string]string)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

// Get returns the value stored for key.
func (t *Tags) Get(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.values[key]
	return v, ok
}

// Len reports the number of tags.
func (t *Tags) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the tag keys in insertion order.
func (t *Tags) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Each calls fn for every tag in insertion order.
func (t *Tags) Each(fn func(key, value string)) {
	if t == nil {
		return
	}
	for _, key := range t.keys {
		fn(key, t.values[key])
	}
}
