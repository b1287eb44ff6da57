package main

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/falconandy/spacetravelling/blog"
	"github.com/falconandy/spacetravelling/prismic"
	"github.com/falconandy/spacetravelling/richtext"
)

// fakeSource serves three pages of posts: hooks, react | app | draft.
type fakeSource struct {
	mu      sync.Mutex
	first   blog.Page
	pages   map[string]blog.Page
	posts   map[string]blog.PostDetail
	err     error
	fetches []string
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 19, 25, 28, 0, time.UTC)
	return &t
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		first: blog.Page{
			Items: []blog.PostSummary{
				{UID: "como-utilizar-hooks", PublicationDate: date(2021, time.March, 15), Title: "Como utilizar Hooks", Subtitle: "Pensando em sincronização", Author: "Joseph Oliveira"},
				{UID: "criando-um-app", PublicationDate: date(2021, time.March, 25), Title: "Criando um app CRA do zero", Subtitle: "Tudo sobre como criar", Author: "Danilo Vieira"},
			},
			NextToken: "page-2",
		},
		pages: map[string]blog.Page{
			"page-2": {
				Items:     []blog.PostSummary{{UID: "mapas-com-react", PublicationDate: date(2021, time.February, 1), Title: "Mapas com React", Author: "Ana"}},
				NextToken: "page-3",
			},
			"page-3": {
				Items: []blog.PostSummary{{UID: "rascunho", Title: "Rascunho", Author: "Ana"}},
			},
		},
		posts: map[string]blog.PostDetail{
			"como-utilizar-hooks": {
				UID:             "como-utilizar-hooks",
				PublicationDate: date(2021, time.March, 15),
				Title:           "Como utilizar <Hooks>",
				Banner:          blog.Image{URL: "https://images.prismic.io/banner.png"},
				Author:          "Joseph Oliveira",
				Content: []blog.ContentBlock{{
					Heading: "Proin et varius",
					Body: richtext.RichText{{
						Type:  richtext.TypeParagraph,
						Text:  "Nullam dolor sapien",
						Spans: []richtext.Span{{Start: 0, End: 6, Type: richtext.SpanStrong}},
					}},
				}},
			},
		},
	}
}

func (s *fakeSource) FirstPage(context.Context) (blog.Page, error) {
	if s.err != nil {
		return blog.Page{}, s.err
	}
	return s.first, nil
}

func (s *fakeSource) FetchPage(_ context.Context, token string) (blog.Page, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, token)
	s.mu.Unlock()

	if s.err != nil {
		return blog.Page{}, s.err
	}
	page, ok := s.pages[token]
	if !ok {
		return blog.Page{}, errors.Wrapf(prismic.ErrInvalidToken, "token %q", token)
	}
	return page, nil
}

func (s *fakeSource) GetPostByUID(_ context.Context, uid string) (blog.PostDetail, error) {
	if s.err != nil {
		return blog.PostDetail{}, s.err
	}
	post, ok := s.posts[uid]
	if !ok {
		return blog.PostDetail{}, errors.Wrapf(prismic.ErrNotFound, "uid %s", uid)
	}
	return post, nil
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetches)
}
