package blog

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Page is one page of post summaries as returned by the content source.
// An empty NextToken means there are no further pages.
type Page struct {
	Items     []PostSummary
	NextToken string
}

// PageFetcher fetches the page a continuation token points to.
type PageFetcher interface {
	FetchPage(ctx context.Context, token string) (Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, token string) (Page, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, token string) (Page, error) {
	return f(ctx, token)
}

// PaginationState is the ordered list of posts loaded so far plus the token
// of the next page. Treat it as an immutable snapshot.
type PaginationState struct {
	Items     []PostSummary
	NextToken string
}

// NewPaginationState starts a state from the first page.
func NewPaginationState(first Page) PaginationState {
	items := make([]PostSummary, len(first.Items))
	copy(items, first.Items)
	return PaginationState{Items: items, NextToken: first.NextToken}
}

// HasMore reports whether another page can be fetched.
func (s PaginationState) HasMore() bool {
	return s.NextToken != ""
}

// Advance fetches the page behind state's token and returns a new state with
// that page's items appended. Items are never reordered or deduplicated.
// Without a token Advance returns state as is and does not call fetcher.
// On error the unchanged state is returned with the error.
func Advance(ctx context.Context, state PaginationState, fetcher PageFetcher) (PaginationState, error) {
	if !state.HasMore() {
		return state, nil
	}

	page, err := fetcher.FetchPage(ctx, state.NextToken)
	if err != nil {
		return state, errors.Wrap(err, "can't fetch the next page of posts")
	}

	items := make([]PostSummary, 0, len(state.Items)+len(page.Items))
	items = append(items, state.Items...)
	items = append(items, page.Items...)
	return PaginationState{Items: items, NextToken: page.NextToken}, nil
}

// Paginator owns a PaginationState and serializes advances on it, so
// concurrent "load more" requests keep the append order.
type Paginator struct {
	mu      sync.Mutex
	state   PaginationState
	fetcher PageFetcher
}

func NewPaginator(first Page, fetcher PageFetcher) *Paginator {
	return &Paginator{
		state:   NewPaginationState(first),
		fetcher: fetcher,
	}
}

// State returns the current snapshot.
func (p *Paginator) State() PaginationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LoadMore advances by one page. It is a no-op once pagination is terminal.
func (p *Paginator) LoadMore(ctx context.Context) (PaginationState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := Advance(ctx, p.state, p.fetcher)
	if err != nil {
		return p.state, err
	}
	p.state = next
	return next, nil
}

// Collect advances until there are no more pages or maxPages pages are
// loaded in total. maxPages <= 0 means no limit.
func (p *Paginator) Collect(ctx context.Context, maxPages int) (PaginationState, error) {
	loaded := 1
	for {
		state := p.State()
		if !state.HasMore() || (maxPages > 0 && loaded >= maxPages) {
			return state, nil
		}
		if _, err := p.LoadMore(ctx); err != nil {
			return p.State(), err
		}
		loaded++
	}
}
