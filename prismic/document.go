package prismic

import (
	"strings"
	"time"

	"github.com/falconandy/spacetravelling/blog"
	"github.com/falconandy/spacetravelling/richtext"
)

// publicationTimeLayout is how the API writes first_publication_date.
const publicationTimeLayout = "2006-01-02T15:04:05-0700"

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	TotalResultsSize int        `json:"total_results_size"`
	NextPage         *string    `json:"next_page"`
	Results          []document `json:"results"`
}

type document struct {
	ID                   string       `json:"id"`
	UID                  string       `json:"uid"`
	Type                 string       `json:"type"`
	FirstPublicationDate *string      `json:"first_publication_date"`
	Data                 documentData `json:"data"`
}

type documentData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"banner"`
	Content []struct {
		Heading string            `json:"heading"`
		Body    richtext.RichText `json:"body"`
	} `json:"content"`
}

func (r searchResponse) page() blog.Page {
	page := blog.Page{Items: make([]blog.PostSummary, 0, len(r.Results))}
	if r.NextPage != nil {
		page.NextToken = *r.NextPage
	}
	for _, doc := range r.Results {
		page.Items = append(page.Items, doc.summary())
	}
	return page
}

func (d document) summary() blog.PostSummary {
	return blog.PostSummary{
		UID:             d.UID,
		PublicationDate: parsePublicationDate(d.FirstPublicationDate),
		Title:           d.Data.Title,
		Subtitle:        d.Data.Subtitle,
		Author:          d.Data.Author,
	}
}

func (d document) detail() blog.PostDetail {
	post := blog.PostDetail{
		UID:             d.UID,
		PublicationDate: parsePublicationDate(d.FirstPublicationDate),
		Title:           d.Data.Title,
		Banner:          blog.Image{URL: d.Data.Banner.URL, Alt: d.Data.Banner.Alt},
		Author:          d.Data.Author,
		Content:         make([]blog.ContentBlock, 0, len(d.Data.Content)),
	}
	for _, c := range d.Data.Content {
		post.Content = append(post.Content, blog.ContentBlock{Heading: c.Heading, Body: c.Body})
	}
	return post
}

func parsePublicationDate(value *string) *time.Time {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	for _, layout := range []string{publicationTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t
		}
	}
	return nil
}
