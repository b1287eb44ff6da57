// Package blog holds the post model and the few computations the site needs:
// incremental pagination, reading-time estimation and date formatting.
package blog

import (
	"time"

	"github.com/falconandy/spacetravelling/richtext"
)

// PostSummary is the listing record of a post.
type PostSummary struct {
	UID             string     `json:"uid"`
	PublicationDate *time.Time `json:"first_publication_date"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Author          string     `json:"author"`
}

// PostDetail is a full post with its content blocks.
type PostDetail struct {
	UID             string         `json:"uid"`
	PublicationDate *time.Time     `json:"first_publication_date"`
	Title           string         `json:"title"`
	Banner          Image          `json:"banner"`
	Author          string         `json:"author"`
	Content         []ContentBlock `json:"content"`
}

type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ContentBlock is one heading plus its rich-text body.
type ContentBlock struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}
