package prismic

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falconandy/spacetravelling/blog"
)

const masterRef = "YHf1-ref"

// fakeAPI imitates the content API: an api root with refs and a search
// endpoint serving two pages of posts plus lookups by uid.
type fakeAPI struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	requests []string
	gzip     bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", api.root)
	mux.HandleFunc("/api/v2/documents/search", api.search)
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) endpoint() string { return a.srv.URL + "/api/v2" }

func (a *fakeAPI) record(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.URL.RequestURI())
}

func (a *fakeAPI) write(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	if !a.gzip {
		_, _ = w.Write([]byte(body))
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	_, _ = gz.Write([]byte(body))
	_ = gz.Close()
}

func (a *fakeAPI) root(w http.ResponseWriter, r *http.Request) {
	a.record(r)
	a.write(w, fmt.Sprintf(`{"refs":[{"id":"preview","ref":"other","isMasterRef":false},{"id":"master","ref":%q,"isMasterRef":true}]}`, masterRef))
}

func (a *fakeAPI) search(w http.ResponseWriter, r *http.Request) {
	a.record(r)
	q := r.URL.Query()
	if q.Get("ref") != masterRef {
		http.Error(w, "bad ref", http.StatusBadRequest)
		return
	}

	switch {
	case strings.Contains(q.Get("q"), "my.posts.uid") && !validUIDPredicate(q.Get("q")):
		http.Error(w, "malformed predicate", http.StatusBadRequest)
	case strings.Contains(q.Get("q"), "my.posts.uid"):
		if strings.Contains(q.Get("q"), `"como-utilizar-hooks"`) {
			a.write(w, `{"page":1,"next_page":null,"results":[`+detailDoc+`]}`)
			return
		}
		a.write(w, `{"page":1,"next_page":null,"results":[]}`)
	case q.Get("page") == "2":
		a.write(w, `{"page":2,"next_page":null,"results":[`+summaryDoc("criando-um-app", "2021-03-25T19:27:35+0000")+`]}`)
	default:
		next := a.srv.URL + "/api/v2/documents/search?" + strings.Replace(r.URL.RawQuery, "pageSize=", "page=2&pageSize=", 1)
		body := fmt.Sprintf(`{"page":1,"next_page":%q,"results":[%s,%s]}`,
			next,
			summaryDoc("como-utilizar-hooks", "2021-03-15T19:25:28+0000"),
			`{"uid":"rascunho","first_publication_date":null,"data":{"title":"Rascunho","subtitle":"","author":"Ana"}}`,
		)
		a.write(w, body)
	}
}

// validUIDPredicate reports whether the quoted uid in q is closed exactly
// once, at the end of the predicate.
func validUIDPredicate(q string) bool {
	const prefix = `[[at(my.posts.uid,"`
	if !strings.HasPrefix(q, prefix) {
		return false
	}
	rest := q[len(prefix):]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++
		case '"':
			return rest[i:] == `")]]`
		}
	}
	return false
}

func summaryDoc(uid, date string) string {
	return fmt.Sprintf(`{"id":"X%s","uid":%q,"type":"posts","first_publication_date":%q,"data":{"title":"Title %s","subtitle":"Subtitle %s","author":"Joseph Oliveira"}}`,
		uid, uid, date, uid, uid)
}

const detailDoc = `{
  "uid": "como-utilizar-hooks",
  "type": "posts",
  "first_publication_date": "2021-03-15T19:25:28+0000",
  "data": {
    "title": "Como utilizar Hooks",
    "subtitle": "Pensando em sincronização em vez de ciclos de vida",
    "author": "Joseph Oliveira",
    "banner": {"url": "https://images.prismic.io/banner.png", "alt": "banner"},
    "content": [
      {
        "heading": "Proin et varius",
        "body": [
          {"type": "paragraph", "text": "Nullam dolor sapien", "spans": [{"start": 0, "end": 6, "type": "strong"}]},
          {"type": "list-item", "text": "item", "spans": []}
        ]
      }
    ]
  }
}`

func newTestClient(t *testing.T, api *fakeAPI, token string) *Client {
	c, err := NewClient(Config{Endpoint: api.endpoint(), AccessToken: token, PageSize: 2, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestClientFirstPageAndFetchPage(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "")

	first, err := c.FirstPage(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.NotEmpty(t, first.NextToken)

	hooks := first.Items[0]
	assert.Equal(t, "como-utilizar-hooks", hooks.UID)
	assert.Equal(t, "Title como-utilizar-hooks", hooks.Title)
	assert.Equal(t, "Joseph Oliveira", hooks.Author)
	require.NotNil(t, hooks.PublicationDate)
	assert.True(t, hooks.PublicationDate.Equal(time.Date(2021, time.March, 15, 19, 25, 28, 0, time.UTC)))
	assert.Nil(t, first.Items[1].PublicationDate)

	second, err := c.FetchPage(context.Background(), first.NextToken)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "criando-um-app", second.Items[0].UID)
	assert.Empty(t, second.NextToken)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.GreaterOrEqual(t, len(api.requests), 3)
	assert.Contains(t, api.requests[1], "pageSize=2")
	assert.Contains(t, api.requests[1], "orderings=")
}

func TestClientAdvanceThroughAllPages(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "")

	first, err := c.FirstPage(context.Background())
	require.NoError(t, err)

	state, err := blog.NewPaginator(first, c).Collect(context.Background(), 0)
	require.NoError(t, err)

	var uids []string
	for _, item := range state.Items {
		uids = append(uids, item.UID)
	}
	assert.Equal(t, []string{"como-utilizar-hooks", "rascunho", "criando-um-app"}, uids)
	assert.False(t, state.HasMore())
}

func TestClientGetPostByUID(t *testing.T) {
	api := newFakeAPI(t)
	api.gzip = true
	c := newTestClient(t, api, "")

	post, err := c.GetPostByUID(context.Background(), "como-utilizar-hooks")
	require.NoError(t, err)

	assert.Equal(t, "Como utilizar Hooks", post.Title)
	assert.Equal(t, "https://images.prismic.io/banner.png", post.Banner.URL)
	require.Len(t, post.Content, 1)
	assert.Equal(t, "Proin et varius", post.Content[0].Heading)
	require.Len(t, post.Content[0].Body, 2)
	assert.Equal(t, "Nullam dolor sapien", post.Content[0].Body[0].Text)
	assert.Equal(t, 1, blog.EstimateMinutes(post.Content))
}

func TestClientGetPostByUIDNotFound(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "")

	_, err := c.GetPostByUID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClientGetPostByUIDEscapesQuotes(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "")

	for _, uid := range []string{`a\`, `a"b`, `x\"y`} {
		_, err := c.GetPostByUID(context.Background(), uid)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound), "uid %q: %v", uid, err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	last, err := url.ParseRequestURI(api.requests[len(api.requests)-1])
	require.NoError(t, err)
	assert.Equal(t, `[[at(my.posts.uid,"x\\\"y")]]`, last.Query().Get("q"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "https://a.io/api/v2?access_token=xxx&page=2", Redact("https://a.io/api/v2?page=2&access_token=secret"))
	assert.Equal(t, "https://a.io/api/v2?page=2", Redact("https://a.io/api/v2?page=2"))
}

func TestClientAccessToken(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "secret-token")

	first, err := c.FirstPage(context.Background())
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), first.NextToken)
	require.NoError(t, err)

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, req := range api.requests {
		assert.Contains(t, req, "access_token=secret-token")
	}
}

func TestClientRejectsForeignToken(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(t, api, "")

	_, err := c.FetchPage(context.Background(), "http://169.254.169.254/latest/meta-data")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.requests)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream err", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL + "/api/v2", AccessToken: "secret"})
	require.NoError(t, err)

	_, err = c.FirstPage(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClientInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.FirstPage(context.Background())
	assert.Error(t, err)
}

func TestClientNoMasterRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"refs": []interface{}{}})
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.GetPostByUID(context.Background(), "any")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestNewClientInvalidEndpoint(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "not a url"})
	assert.Error(t, err)
}
