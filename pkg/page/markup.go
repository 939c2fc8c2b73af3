package page

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BodyText converts slide body markup into Markdown suitable for a terminal
// renderer. Paragraphs and headings become blocks, <br> a line break, links
// "text (href)", list items bullets, and emphasis keeps its markers. Scripts
// and styles are dropped. Plain text passes through unchanged.
func BodyText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return strings.TrimSpace(markup)
	}
	w := &mdWriter{}
	for _, n := range nodes {
		w.walk(n)
	}
	return w.String()
}

type mdWriter struct {
	blocks []string
	cur    strings.Builder
	lists  []listState
}

type listState struct {
	ordered bool
	n       int
}

func (w *mdWriter) flush() {
	if t := strings.TrimSpace(w.cur.String()); t != "" {
		w.blocks = append(w.blocks, t)
	}
	w.cur.Reset()
}

func (w *mdWriter) String() string {
	w.flush()
	return strings.Join(w.blocks, "\n\n")
}

func (w *mdWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style:
		return
	case atom.P, atom.Div, atom.Blockquote:
		w.flush()
		w.children(n)
		w.flush()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.flush()
		w.cur.WriteString(strings.Repeat("#", headingLevel(n.DataAtom)) + " ")
		w.children(n)
		w.flush()
	case atom.Br:
		w.cur.WriteString("  \n")
	case atom.Strong, atom.B:
		w.wrap(n, "**")
	case atom.Em, atom.I:
		w.wrap(n, "_")
	case atom.Code:
		w.wrap(n, "`")
	case atom.A:
		text := strings.TrimSpace(textContent(n))
		href := attr(n, "href")
		switch {
		case href == "" || href == text:
			w.text(text)
		case text == "":
			w.text(href)
		default:
			w.text(fmt.Sprintf("%s (%s)", text, href))
		}
	case atom.Ul, atom.Ol:
		w.flush()
		w.lists = append(w.lists, listState{ordered: n.DataAtom == atom.Ol})
		w.children(n)
		w.lists = w.lists[:len(w.lists)-1]
		w.flush()
	case atom.Li:
		w.listItem(n)
	case atom.Img:
		if alt := attr(n, "alt"); alt != "" {
			w.text("[" + alt + "]")
		}
	default:
		w.children(n)
	}
}

func (w *mdWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *mdWriter) wrap(n *html.Node, marker string) {
	inner := strings.TrimSpace(textContent(n))
	if inner == "" {
		return
	}
	w.text(marker + inner + marker)
}

func (w *mdWriter) listItem(n *html.Node) {
	prefix := "- "
	if len(w.lists) > 0 {
		top := &w.lists[len(w.lists)-1]
		top.n++
		if top.ordered {
			prefix = fmt.Sprintf("%d. ", top.n)
		}
	}
	if w.cur.Len() > 0 {
		w.cur.WriteByte('\n')
	}
	w.cur.WriteString(strings.Repeat("  ", max(len(w.lists)-1, 0)) + prefix)
	w.children(n)
}

// text appends s with runs of whitespace collapsed, as a browser would.
func (w *mdWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && w.cur.Len() > 0 && !endsWithSpace(w.cur.String()) {
			w.cur.WriteByte(' ')
		}
		return
	}
	if isSpaceByte(s[0]) && w.cur.Len() > 0 && !endsWithSpace(w.cur.String()) {
		w.cur.WriteByte(' ')
	}
	w.cur.WriteString(strings.Join(fields, " "))
	if isSpaceByte(s[len(s)-1]) {
		w.cur.WriteByte(' ')
	}
}

func endsWithSpace(s string) bool {
	return s != "" && isSpaceByte(s[len(s)-1])
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	}
	return 6
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}
