package pagination

import (
	"context"
	"errors"
)

// ErrDone signals that the pager has no more items.
var ErrDone = errors.New("pagination: done")

// CursorStart is the cursor value that requests the first page.
const CursorStart = "*"

// Page is one page of results as returned by the backend.
type Page[T any] struct {
	Items      []T
	TotalCount int
	NextCursor string
}

// PageRequest describes the page to fetch. In cursor mode only Cursor is set;
// in page-number mode only Page. PerPage is always set.
type PageRequest struct {
	Cursor  string
	Page    int
	PerPage int
}

// FetchFunc fetches a single page. It is typically a closure over the client's
// List or Search call.
type FetchFunc[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// Config holds pager configuration.
type Config struct {
	// PerPage is the page size requested from the backend.
	PerPage int

	// MaxResults caps the total number of items yielded. Zero means no cap.
	MaxResults int

	// UseCursor selects cursor pagination; otherwise numeric pages are used.
	UseCursor bool
}

// DefaultConfig returns safe pager defaults.
func DefaultConfig() Config {
	return Config{
		PerPage:   25,
		UseCursor: true,
	}
}

// Pager lazily walks a paginated result set. Cursor state is consumed as
// pages are fetched: a pager is not restartable, create a new one to
// iterate again.
type Pager[T any] struct {
	fetch  FetchFunc[T]
	config Config

	cursor  string
	page    int
	total   int
	yielded int
	done    bool

	buf []T
}

// New creates a pager over fetch.
func New[T any](fetch FetchFunc[T], config Config) *Pager[T] {
	if config.PerPage <= 0 {
		config.PerPage = 25
	}
	return &Pager[T]{
		fetch:  fetch,
		config: config,
		cursor: CursorStart,
		page:   1,
		total:  -1,
	}
}

// NextPage fetches and returns the next page of items. It returns ErrDone
// when the result set is exhausted or the MaxResults cap is reached.
func (p *Pager[T]) NextPage(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, ErrDone
	}
	if p.config.MaxResults > 0 && p.yielded >= p.config.MaxResults {
		p.done = true
		return nil, ErrDone
	}

	req := PageRequest{PerPage: p.config.PerPage}
	if p.config.UseCursor {
		req.Cursor = p.cursor
	} else {
		req.Page = p.page
	}

	page, err := p.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	items := page.Items
	if len(items) == 0 {
		p.done = true
		return nil, ErrDone
	}

	p.total = page.TotalCount
	if p.config.UseCursor {
		p.cursor = page.NextCursor
		if page.NextCursor == "" {
			p.done = true
		}
	} else {
		if p.page*p.config.PerPage >= page.TotalCount {
			p.done = true
		}
		p.page++
	}

	if p.config.MaxResults > 0 {
		remaining := p.config.MaxResults - p.yielded
		if len(items) >= remaining {
			items = items[:remaining]
			p.done = true
		}
	}

	p.yielded += len(items)
	return items, nil
}

// Next returns the next single item, fetching pages on demand. It returns
// ErrDone when the stream is exhausted.
func (p *Pager[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if len(p.buf) == 0 {
		items, err := p.NextPage(ctx)
		if err != nil {
			return zero, err
		}
		p.buf = items
	}
	item := p.buf[0]
	p.buf = p.buf[1:]
	return item, nil
}

// TotalCount reports the backend's total result count, or -1 before the
// first page has been fetched.
func (p *Pager[T]) TotalCount() int {
	return p.total
}

// Yielded reports how many items the pager has produced so far.
func (p *Pager[T]) Yielded() int {
	return p.yielded
}

// All drains the pager into a slice. Set Config.MaxResults to bound memory
// on large result sets.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	for {
		items, err := p.NextPage(ctx)
		if errors.Is(err, ErrDone) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, items...)
	}
}
