package main

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"time"

	"github.com/pkg/errors"

	"github.com/falconandy/spacetravelling/blog"
	"github.com/falconandy/spacetravelling/richtext"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFiles embed.FS

func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "web/static")
	if err != nil {
		panic(err)
	}
	return sub
}

type postListItem struct {
	UID      string
	Title    string
	Subtitle string
	Author   string
	Date     string
}

type indexView struct {
	PageTitle   string
	Posts       []postListItem
	LoadMoreURL string
}

type section struct {
	Heading string
	HTML    template.HTML
}

type postView struct {
	PageTitle   string
	Title       string
	BannerURL   string
	BannerAlt   string
	Author      string
	Date        string
	ReadMinutes int
	Sections    []section
}

type errorView struct {
	PageTitle string
	Message   string
}

// Renderer turns posts into HTML pages.
type Renderer struct {
	templates map[string]*template.Template
	loc       *time.Location
}

func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	templates := make(map[string]*template.Template)
	for _, name := range []string{"index", "post", "error"} {
		t, err := template.ParseFS(templateFS, "web/templates/layout.html", "web/templates/"+name+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "can't parse %s template", name)
		}
		templates[name] = t
	}
	return &Renderer{templates: templates, loc: loc}, nil
}

// Index renders the post list. loadMoreURL is empty when there is nothing
// left to load.
func (r *Renderer) Index(w io.Writer, state blog.PaginationState, loadMoreURL string) error {
	view := indexView{
		PageTitle: "Home",
		Posts:     r.listItems(state.Items),
	}
	if state.HasMore() {
		view.LoadMoreURL = loadMoreURL
	}
	return r.execute(w, "index", view)
}

func (r *Renderer) listItems(items []blog.PostSummary) []postListItem {
	out := make([]postListItem, 0, len(items))
	for _, item := range items {
		out = append(out, postListItem{
			UID:      item.UID,
			Title:    item.Title,
			Subtitle: item.Subtitle,
			Author:   item.Author,
			Date:     blog.FormatOptionalDate(item.PublicationDate, r.loc),
		})
	}
	return out
}

// Post renders the detail page of a post.
func (r *Renderer) Post(w io.Writer, post blog.PostDetail) error {
	view := postView{
		PageTitle:   post.Title,
		Title:       post.Title,
		BannerURL:   post.Banner.URL,
		BannerAlt:   post.Banner.Alt,
		Author:      post.Author,
		Date:        blog.FormatOptionalDate(post.PublicationDate, r.loc),
		ReadMinutes: blog.EstimateMinutes(post.Content),
		Sections:    make([]section, 0, len(post.Content)),
	}
	for _, block := range post.Content {
		view.Sections = append(view.Sections, section{
			Heading: block.Heading,
			// AsHTML escapes every text node it emits.
			HTML: template.HTML(richtext.AsHTML(block.Body)),
		})
	}
	return r.execute(w, "post", view)
}

// Error renders a generic failure page.
func (r *Renderer) Error(w io.Writer, title, message string) error {
	return r.execute(w, "error", errorView{PageTitle: title, Message: message})
}

// execute renders into a buffer first so a template error never leaves a
// half written page behind.
func (r *Renderer) execute(w io.Writer, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := r.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return errors.Wrapf(err, "can't render %s page", name)
	}
	_, err := buf.WriteTo(w)
	return err
}
