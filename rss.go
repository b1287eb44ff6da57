package main

import (
	"context"
	"time"

	"github.com/gorilla/feeds"

	"github.com/falconandy/spacetravelling/blog"
)

type RSSProvider struct {
	source   ContentSource
	siteURL  string
	maxPages int
}

func NewRSSProvider(source ContentSource, siteURL string, maxPages int) *RSSProvider {
	return &RSSProvider{
		source:   source,
		siteURL:  siteURL,
		maxPages: maxPages,
	}
}

// Feed loads every post page and builds the site feed, newest post first.
func (p *RSSProvider) Feed(ctx context.Context) (*feeds.Feed, error) {
	first, err := p.source.FirstPage(ctx)
	if err != nil {
		return nil, err
	}
	state, err := blog.NewPaginator(first, p.source).Collect(ctx, p.maxPages)
	if err != nil {
		return nil, err
	}
	return p.feedOf(state.Items), nil
}

func (p *RSSProvider) feedOf(posts []blog.PostSummary) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "spacetravelling",
		Link:        &feeds.Link{Href: p.siteURL + "/"},
		Description: "Posts do blog spacetravelling",
		Id:          p.siteURL + "/",
	}

	for _, post := range posts {
		link := p.siteURL + "/post/" + post.UID
		item := &feeds.Item{
			Title:       post.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: post.Subtitle,
			Author:      &feeds.Author{Name: post.Author},
		}
		if post.PublicationDate != nil {
			item.Created = *post.PublicationDate
			if feed.Updated.Before(item.Created) {
				feed.Updated = item.Created
			}
		}
		feed.Items = append(feed.Items, item)
	}
	if feed.Updated.IsZero() {
		feed.Updated = time.Now()
	}
	return feed
}
