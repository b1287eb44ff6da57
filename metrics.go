package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/falconandy/spacetravelling/blog"
	"github.com/falconandy/spacetravelling/prismic"
)

var (
	cmsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetravelling_cms_requests_total",
		Help: "Content API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	cmsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spacetravelling_cms_request_duration_seconds",
		Help:    "Content API call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})

	pagesRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spacetravelling_pages_rendered_total",
		Help: "Rendered pages by template and status code",
	}, []string{"page", "status"})
)

// ContentSource is everything the site needs from the CMS.
type ContentSource interface {
	blog.PageFetcher
	FirstPage(ctx context.Context) (blog.Page, error)
	GetPostByUID(ctx context.Context, uid string) (blog.PostDetail, error)
}

// instrumentedSource records a metric for every call to the wrapped source.
type instrumentedSource struct {
	next ContentSource
}

func instrument(source ContentSource) ContentSource {
	return &instrumentedSource{next: source}
}

func (s *instrumentedSource) FirstPage(ctx context.Context) (blog.Page, error) {
	defer observe("first_page", time.Now())()
	page, err := s.next.FirstPage(ctx)
	count("first_page", err)
	return page, err
}

func (s *instrumentedSource) FetchPage(ctx context.Context, token string) (blog.Page, error) {
	defer observe("fetch_page", time.Now())()
	page, err := s.next.FetchPage(ctx, token)
	count("fetch_page", err)
	return page, err
}

func (s *instrumentedSource) GetPostByUID(ctx context.Context, uid string) (blog.PostDetail, error) {
	defer observe("get_post", time.Now())()
	post, err := s.next.GetPostByUID(ctx, uid)
	count("get_post", err)
	return post, err
}

func observe(operation string, start time.Time) func() {
	return func() {
		cmsDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func count(operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, prismic.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	cmsRequests.WithLabelValues(operation, outcome).Inc()
}

func countRendered(page string, status int) {
	pagesRendered.WithLabelValues(page, strconv.Itoa(status)).Inc()
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
