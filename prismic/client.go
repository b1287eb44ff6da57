// Package prismic reads blog posts from a Prismic-style headless CMS REST API.
package prismic

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/falconandy/spacetravelling/blog"
)

const (
	DefaultDocumentType = "posts"
	DefaultPageSize     = 5
	DefaultTimeout      = 10 * time.Second
)

var (
	// ErrNotFound is returned when no document has the requested UID.
	ErrNotFound = errors.New("post not found")
	// ErrInvalidToken is returned for next page tokens that are not URLs of
	// the configured API.
	ErrInvalidToken = errors.New("invalid next page token")
)

// Config describes how to reach the content API. Endpoint is the API root,
// e.g. https://spacetravelling.cdn.prismic.io/api/v2.
type Config struct {
	Endpoint     string
	AccessToken  string
	DocumentType string
	PageSize     int
	Timeout      time.Duration
}

type Client struct {
	cfg      Config
	endpoint *url.URL
	client   *http.Client
}

var _ blog.PageFetcher = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.DocumentType == "" {
		cfg.DocumentType = DefaultDocumentType
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	endpoint, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || endpoint.Host == "" {
		return nil, errors.Errorf("invalid content API endpoint %q", cfg.Endpoint)
	}

	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 5 * time.Second,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// FirstPage returns the newest posts, ordered by last publication date.
func (c *Client) FirstPage(ctx context.Context) (blog.Page, error) {
	query := fmt.Sprintf(`[[at(document.type,"%s")]]`, c.cfg.DocumentType)
	var resp searchResponse
	if err := c.search(ctx, query, c.cfg.PageSize, &resp); err != nil {
		return blog.Page{}, errors.Wrap(err, "can't fetch the first page of posts")
	}
	return resp.page(), nil
}

// FetchPage follows a next_page URL returned by a previous search.
func (c *Client) FetchPage(ctx context.Context, token string) (blog.Page, error) {
	pageURL, err := c.pageURL(token)
	if err != nil {
		return blog.Page{}, err
	}
	var resp searchResponse
	if err := c.getJSON(ctx, pageURL, &resp); err != nil {
		return blog.Page{}, err
	}
	return resp.page(), nil
}

// GetPostByUID returns the post with the given UID or ErrNotFound.
func (c *Client) GetPostByUID(ctx context.Context, uid string) (blog.PostDetail, error) {
	query := fmt.Sprintf(`[[at(my.%s.uid,"%s")]]`, c.cfg.DocumentType, quoteEscaper.Replace(uid))
	var resp searchResponse
	if err := c.search(ctx, query, 1, &resp); err != nil {
		return blog.PostDetail{}, errors.Wrapf(err, "can't fetch post %s", uid)
	}
	if len(resp.Results) == 0 {
		return blog.PostDetail{}, errors.Wrapf(ErrNotFound, "uid %s", uid)
	}
	return resp.Results[0].detail(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (c *Client) search(ctx context.Context, query string, pageSize int, v interface{}) error {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("ref", ref)
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("orderings", "[document.last_publication_date desc]")
	if c.cfg.AccessToken != "" {
		params.Set("access_token", c.cfg.AccessToken)
	}
	return c.getJSON(ctx, c.endpoint.String()+"/documents/search?"+params.Encode(), v)
}

func (c *Client) masterRef(ctx context.Context) (string, error) {
	apiURL := c.endpoint.String()
	if c.cfg.AccessToken != "" {
		apiURL += "?" + url.Values{"access_token": {c.cfg.AccessToken}}.Encode()
	}

	var info apiInfo
	if err := c.getJSON(ctx, apiURL, &info); err != nil {
		return "", errors.Wrap(err, "can't resolve the master ref")
	}
	for _, ref := range info.Refs {
		if ref.IsMasterRef {
			return ref.Ref, nil
		}
	}
	return "", errors.New("content API returned no master ref")
}

// pageURL checks that a next page token points to the configured API before
// it is requested, and adds the access token when the API left it out.
func (c *Client) pageURL(token string) (string, error) {
	u, err := url.Parse(token)
	if err != nil || u.Scheme != c.endpoint.Scheme || u.Host != c.endpoint.Host {
		return "", errors.Wrapf(ErrInvalidToken, "%q does not point to the content API", token)
	}
	if c.cfg.AccessToken != "" {
		q := u.Query()
		if q.Get("access_token") == "" {
			q.Set("access_token", c.cfg.AccessToken)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, resourceURL string, v interface{}) error {
	content, err := c.download(ctx, resourceURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return errors.Wrapf(err, "can't decode the response of %s", Redact(resourceURL))
	}
	return nil
}

func (c *Client) download(ctx context.Context, resourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create an http request for %s", Redact(resourceURL))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	r, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "can't download from %s", Redact(resourceURL))
	}
	defer func() { _ = r.Body.Close() }()

	if r.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: Redact(resourceURL), StatusCode: r.StatusCode, Status: r.Status}
	}

	var reader io.ReadCloser
	switch r.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(r.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "can't create a gzip reader for %s response", Redact(resourceURL))
		}
		defer func() { _ = reader.Close() }()
	default:
		reader = r.Body
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read the body of %s response", Redact(resourceURL))
	}
	return content, nil
}

// StatusError reports a non-200 answer from the content API.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("can't download %s, unexpected status code %s", e.URL, e.Status)
}

// Redact hides the access token in URLs that end up in errors and logs.
func Redact(resourceURL string) string {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return resourceURL
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return resourceURL
	}
	q.Set("access_token", "xxx")
	u.RawQuery = q.Encode()
	return u.String()
}
