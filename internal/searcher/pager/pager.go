// Package pager reveals a result list in fixed-size batches.
package pager

// DefaultBatchSize is how many items one "more" request reveals.
const DefaultBatchSize = 19

// Pager tracks how much of a list has been shown. It is not safe for
// concurrent use; sessions guard their pagers.
type Pager[T any] struct {
	items []T
	shown int
	batch int
}

// New returns a pager over items that has already revealed the first batch.
// A non-positive batch uses DefaultBatchSize.
func New[T any](items []T, batch int) *Pager[T] {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	p := &Pager[T]{items: items, batch: batch}
	p.Next()
	return p
}

// Next reveals and returns the next batch. It returns nil once everything
// has been shown.
func (p *Pager[T]) Next() []T {
	if p.shown >= len(p.items) {
		return nil
	}
	end := min(p.shown+p.batch, len(p.items))
	out := p.items[p.shown:end]
	p.shown = end
	return out
}

// Visible returns every item revealed so far.
func (p *Pager[T]) Visible() []T {
	return p.items[:p.shown]
}

// Remaining is the number of items not yet revealed.
func (p *Pager[T]) Remaining() int {
	return len(p.items) - p.shown
}

// Total is the length of the underlying list.
func (p *Pager[T]) Total() int {
	return len(p.items)
}
