// Package richtext holds the structured text model the CMS delivers for post
// bodies and converts it to plain text and to HTML markup.
package richtext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Block types.
const (
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// RichText is an ordered sequence of blocks.
type RichText []Block

// Block is one styled-text fragment: a paragraph, heading, list item, image
// or embed.
type Block struct {
	Type   string  `json:"type"`
	Text   string  `json:"text,omitempty"`
	Spans  []Span  `json:"spans,omitempty"`
	URL    string  `json:"url,omitempty"`
	Alt    string  `json:"alt,omitempty"`
	Oembed *Oembed `json:"oembed,omitempty"`
}

// Span styles the [Start, End) range of a block's text. Offsets count runes.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

type SpanData struct {
	URL   string `json:"url,omitempty"`
	Label string `json:"label,omitempty"`
}

type Oembed struct {
	EmbedURL string `json:"embed_url"`
	Title    string `json:"title,omitempty"`
}

// AsText returns the plain text of rt: text blocks joined by a single space.
// The text is read back from the rendered blocks, so it is exactly what a
// reader sees on the page.
func AsText(rt RichText) string {
	parts := make([]string, 0, len(rt))
	for _, b := range rt {
		if b.Type == TypeImage || b.Type == TypeEmbed {
			continue
		}
		parts = append(parts, blockText(blockNode(b)))
	}
	return strings.Join(parts, " ")
}

func blockText(n *html.Node) string {
	doc := goquery.NewDocumentFromNode(n)
	doc.Find("br").ReplaceWithNodes(textNode("\n"))
	return doc.Text()
}

func headingLevel(blockType string) (string, bool) {
	if len(blockType) == len("heading1") && strings.HasPrefix(blockType, "heading") {
		level := blockType[len(blockType)-1]
		if level >= '1' && level <= '6' {
			return "h" + string(level), true
		}
	}
	return "", false
}
