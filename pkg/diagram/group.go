package diagram

// ordered groups values by key, remembering the order in which keys were
// first seen.
type ordered[V any] struct {
	keys  []string
	items map[string][]V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{items: make(map[string][]V)}
}

// add appends v to key's group and returns its 1-based position in it.
func (o *ordered[V]) add(key string, v V) int {
	if _, ok := o.items[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.items[key] = append(o.items[key], v)
	return len(o.items[key])
}

func (o *ordered[V]) get(key string) []V { return o.items[key] }

func (o *ordered[V]) len() int { return len(o.keys) }
