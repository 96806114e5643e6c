package index

// Ordered is a string-keyed map that remembers insertion order, so tables
// serialize in the order the corpus was walked.
type Ordered[V any] struct {
	keys   []string
	values map[string]V
}

func NewOrdered[V any]() *Ordered[V] {
	return &Ordered[V]{values: make(map[string]V)}
}

func (o *Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Ordered[V]) Set(key string, v V) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Keys returns the keys in insertion order. The slice must not be modified.
func (o *Ordered[V]) Keys() []string { return o.keys }

func (o *Ordered[V]) Len() int { return len(o.keys) }
