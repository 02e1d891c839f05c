package upstream

import "context"

// PageFunc fetches the page at cursor ("" for the first page) and returns its
// items and the next cursor ("" when there is none).
type PageFunc[T any] func(ctx context.Context, cursor string) ([]T, string, error)

// Pages is a lazy, finite, non-restartable sequence of cursor pages. It ends
// when a page has no next cursor, when a page is empty, or at the page cap.
type Pages[T any] struct {
	fetch    PageFunc[T]
	maxPages int

	cursor  string
	fetched int
	done    bool
	capped  bool
	err     error
}

// NewPages returns a sequence over fetch. maxPages <= 0 means unbounded.
func NewPages[T any](fetch PageFunc[T], maxPages int) *Pages[T] {
	return &Pages[T]{fetch: fetch, maxPages: maxPages}
}

// Next returns the next non-empty page. It returns false once the sequence
// is exhausted or failed; check Err afterwards.
func (p *Pages[T]) Next(ctx context.Context) ([]T, bool) {
	if p.done {
		return nil, false
	}
	if p.maxPages > 0 && p.fetched >= p.maxPages {
		p.done, p.capped = true, true
		return nil, false
	}
	if err := ctx.Err(); err != nil {
		p.done, p.err = true, err
		return nil, false
	}
	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		p.done, p.err = true, err
		return nil, false
	}
	p.fetched++
	if len(items) == 0 {
		p.done = true
		return nil, false
	}
	if next == "" || next == p.cursor {
		p.done = true
	}
	p.cursor = next
	return items, true
}

// Err is the error that ended the sequence, if any.
func (p *Pages[T]) Err() error { return p.err }

// Fetched counts pages requested from the upstream, including a trailing empty one.
func (p *Pages[T]) Fetched() int { return p.fetched }

// Capped reports whether the page cap ended the sequence.
func (p *Pages[T]) Capped() bool { return p.capped }

// Collect drains p. On error it returns the items gathered so far with the error.
func Collect[T any](ctx context.Context, p *Pages[T]) ([]T, error) {
	var out []T
	for {
		items, ok := p.Next(ctx)
		if !ok {
			return out, p.Err()
		}
		out = append(out, items...)
	}
}
