package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/falconandy/spacetravelling/blog"
	"github.com/falconandy/spacetravelling/prismic"
)

func BlogRouter(source ContentSource, renderer *Renderer, provider *RSSProvider, logger *zap.Logger, maxPages int) http.Handler {
	router := &blogRouter{
		source:   source,
		renderer: renderer,
		provider: provider,
		logger:   logger,
		maxPages: maxPages,
	}
	r := chi.NewRouter()
	r.Get("/", router.index)
	r.Get("/post/{slug}", router.post)
	r.Get("/api/posts", router.apiPosts)
	r.Get("/rss.xml", router.rss)
	return r
}

type blogRouter struct {
	source   ContentSource
	renderer *Renderer
	provider *RSSProvider
	logger   *zap.Logger
	maxPages int
}

// index renders the first N pages of posts, N taken from the pages query
// parameter. The "load more" link asks for one page more.
func (br *blogRouter) index(w http.ResponseWriter, r *http.Request) {
	pages := br.pagesParam(r)

	first, err := br.source.FirstPage(r.Context())
	if err != nil {
		br.failure(w, r, "index", err)
		return
	}
	state, err := blog.NewPaginator(first, br.source).Collect(r.Context(), pages)
	if err != nil {
		br.failure(w, r, "index", err)
		return
	}

	loadMoreURL := ""
	if br.maxPages == 0 || pages < br.maxPages {
		loadMoreURL = "/?pages=" + strconv.Itoa(pages+1)
	}
	br.html(w, r, "index", http.StatusOK, func(w io.Writer) error {
		return br.renderer.Index(w, state, loadMoreURL)
	})
}

func (br *blogRouter) pagesParam(r *http.Request) int {
	pages, err := strconv.Atoi(r.URL.Query().Get("pages"))
	if err != nil || pages < 1 {
		return 1
	}
	if br.maxPages > 0 && pages > br.maxPages {
		return br.maxPages
	}
	return pages
}

func (br *blogRouter) post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := br.source.GetPostByUID(r.Context(), slug)
	if errors.Is(err, prismic.ErrNotFound) {
		br.logger.Info("post not found", zap.String("slug", slug))
		br.html(w, r, "error", http.StatusNotFound, func(w io.Writer) error {
			return br.renderer.Error(w, "Post não encontrado", "Não encontramos o post que você procurava.")
		})
		return
	}
	if err != nil {
		br.failure(w, r, "post", err)
		return
	}

	br.html(w, r, "post", http.StatusOK, func(w io.Writer) error {
		return br.renderer.Post(w, post)
	})
}

type apiPost struct {
	UID                  string      `json:"uid"`
	FirstPublicationDate string      `json:"first_publication_date"`
	Data                 apiPostData `json:"data"`
}

type apiPostData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

type apiPage struct {
	NextPage *string   `json:"next_page"`
	Results  []apiPost `json:"results"`
}

// apiPosts returns one page of posts as JSON. Without a token it returns the
// first page, otherwise the page the token points to.
func (br *blogRouter) apiPosts(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	var (
		page blog.Page
		err  error
	)
	if token == "" {
		page, err = br.source.FirstPage(r.Context())
	} else {
		var state blog.PaginationState
		state, err = blog.Advance(r.Context(), blog.PaginationState{NextToken: token}, br.source)
		page = blog.Page{Items: state.Items, NextToken: state.NextToken}
	}
	switch {
	case errors.Is(err, prismic.ErrInvalidToken):
		br.logger.Warn("invalid page token", zap.String("token", prismic.Redact(token)))
		br.json(w, "api_posts", http.StatusBadRequest, map[string]string{"error": "invalid token"})
		return
	case err != nil:
		br.logger.Error("can't load posts", zap.Error(err))
		br.json(w, "api_posts", http.StatusBadGateway, map[string]string{"error": "content API unavailable"})
		return
	}

	resp := apiPage{Results: make([]apiPost, 0, len(page.Items))}
	if page.NextToken != "" {
		resp.NextPage = &page.NextToken
	}
	for _, item := range page.Items {
		resp.Results = append(resp.Results, apiPost{
			UID:                  item.UID,
			FirstPublicationDate: blog.FormatOptionalDate(item.PublicationDate, br.renderer.loc),
			Data: apiPostData{
				Title:    item.Title,
				Subtitle: item.Subtitle,
				Author:   item.Author,
			},
		})
	}
	br.json(w, "api_posts", http.StatusOK, resp)
}

func (br *blogRouter) rss(w http.ResponseWriter, r *http.Request) {
	feed, err := br.provider.Feed(r.Context())
	if err != nil {
		br.logger.Error("can't build feed", zap.Error(err))
		countRendered("rss", http.StatusBadGateway)
		http.Error(w, "content API unavailable", http.StatusBadGateway)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		br.logger.Error("can't encode feed", zap.Error(err))
		countRendered("rss", http.StatusInternalServerError)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	countRendered("rss", http.StatusOK)
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(rss))
}

func (br *blogRouter) failure(w http.ResponseWriter, r *http.Request, page string, err error) {
	br.logger.Error("can't load content",
		zap.String("page", page),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	br.html(w, r, "error", http.StatusBadGateway, func(w io.Writer) error {
		return br.renderer.Error(w, "Erro", "Não foi possível carregar os posts. Tente novamente mais tarde.")
	})
}

func (br *blogRouter) html(w http.ResponseWriter, r *http.Request, page string, status int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		br.logger.Error("can't render page", zap.String("page", page), zap.String("path", r.URL.Path), zap.Error(err))
		countRendered(page, http.StatusInternalServerError)
		http.Error(w, "can't render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	countRendered(page, status)
}

func (br *blogRouter) json(w http.ResponseWriter, page string, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		br.logger.Error("can't encode response", zap.Error(err))
	}
	countRendered(page, status)
}
