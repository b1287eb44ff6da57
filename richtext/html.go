package richtext

import (
	"bytes"
	"net/url"
	"sort"
	"strings"

	"github.com/kyokomi/emoji"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func init() {
	emoji.ReplacePadding = ""
}

// AsHTML renders rt as HTML. All text is escaped; only links with a safe
// scheme are emitted.
func AsHTML(rt RichText) string {
	var buf bytes.Buffer
	for _, n := range Nodes(rt) {
		_ = html.Render(&buf, n)
	}
	return buf.String()
}

// Nodes builds the HTML node trees for rt. Consecutive list items share one
// <ul> or <ol>.
func Nodes(rt RichText) []*html.Node {
	var (
		out  []*html.Node
		list *html.Node
	)
	for _, b := range rt {
		wrapper := listWrapper(b.Type)
		if wrapper == "" {
			list = nil
		} else if list == nil || list.Data != wrapper {
			list = element(wrapper)
			out = append(out, list)
		}

		n := blockNode(b)
		if n == nil {
			continue
		}
		if list != nil {
			list.AppendChild(n)
		} else {
			out = append(out, n)
		}
	}
	return out
}

func listWrapper(blockType string) string {
	switch blockType {
	case TypeListItem:
		return "ul"
	case TypeOListItem:
		return "ol"
	default:
		return ""
	}
}

func blockNode(b Block) *html.Node {
	switch b.Type {
	case TypeImage:
		if !safeURL(b.URL) {
			return nil
		}
		p := element("p", html.Attribute{Key: "class", Val: "block-img"})
		p.AppendChild(element("img",
			html.Attribute{Key: "src", Val: b.URL},
			html.Attribute{Key: "alt", Val: b.Alt},
		))
		return p
	case TypeEmbed:
		if b.Oembed == nil || !safeURL(b.Oembed.EmbedURL) {
			return nil
		}
		div := element("div", html.Attribute{Key: "data-oembed", Val: b.Oembed.EmbedURL})
		a := element("a", html.Attribute{Key: "href", Val: b.Oembed.EmbedURL})
		title := b.Oembed.Title
		if title == "" {
			title = b.Oembed.EmbedURL
		}
		a.AppendChild(textNode(title))
		div.AppendChild(a)
		return div
	case TypeListItem, TypeOListItem:
		return inline(element("li"), b.Text, b.Spans)
	case TypePreformatted:
		return inline(element("pre"), b.Text, b.Spans)
	}
	if tag, ok := headingLevel(b.Type); ok {
		return inline(element(tag), b.Text, b.Spans)
	}
	return inline(element("p"), b.Text, b.Spans)
}

// inline appends the styled text to parent. Spans are nested in start order;
// a span crossing the end of an enclosing one is closed and reopened.
func inline(parent *html.Node, text string, spans []Span) *html.Node {
	runes := []rune(text)
	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > len(runes) {
			s.End = len(runes)
		}
		if s.Start < s.End {
			valid = append(valid, s)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	bounds := []int{0, len(runes)}
	for _, s := range valid {
		bounds = append(bounds, s.Start, s.End)
	}
	sort.Ints(bounds)

	type open struct {
		span int
		node *html.Node
	}
	var stack []open
	top := func() *html.Node {
		if len(stack) == 0 {
			return parent
		}
		return stack[len(stack)-1].node
	}

	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		if from == to {
			continue
		}

		var active []int
		for idx, s := range valid {
			if s.Start <= from && s.End >= to {
				active = append(active, idx)
			}
		}

		keep := 0
		for keep < len(stack) && keep < len(active) && stack[keep].span == active[keep] {
			keep++
		}
		stack = stack[:keep]

		for _, idx := range active[keep:] {
			n := spanNode(valid[idx])
			top().AppendChild(n)
			stack = append(stack, open{span: idx, node: n})
		}

		appendText(top(), string(runes[from:to]))
	}
	return parent
}

func spanNode(s Span) *html.Node {
	switch s.Type {
	case SpanStrong:
		return element("strong")
	case SpanEm:
		return element("em")
	case SpanHyperlink:
		if s.Data != nil && safeURL(s.Data.URL) {
			return element("a", html.Attribute{Key: "href", Val: s.Data.URL})
		}
	case SpanLabel:
		if s.Data != nil && s.Data.Label != "" {
			return element("span", html.Attribute{Key: "class", Val: s.Data.Label})
		}
	}
	return element("span")
}

// appendText adds text to n, turning line breaks into <br> and expanding
// emoji shortcodes.
func appendText(n *html.Node, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			n.AppendChild(element("br"))
		}
		if line == "" {
			continue
		}
		if strings.Count(line, ":") >= 2 {
			line = emoji.Sprint(line)
		}
		n.AppendChild(textNode(line))
	}
}

func safeURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}
