package mailtm

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const noContent = "No content"

// Body returns the best readable body: the HTML parts flattened to text,
// then the plain text part, then the intro.
func (m Message) Body() string {
	if len(m.HTML) > 0 {
		if s := HTMLToText(strings.Join(m.HTML, "")); s != "" {
			return s
		}
	}
	if m.Text != "" {
		return m.Text
	}
	if m.Intro != "" {
		return m.Intro
	}
	return noContent
}

// HTMLToText renders an HTML fragment as plain text suitable for a terminal.
// Scripts and styles are dropped, block elements break lines and link
// targets follow their text.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		// the tokenizer is lenient; this only happens on reader errors
		return src
	}

	var w textWriter
	w.walk(doc)
	return w.String()
}

type textWriter struct {
	b       strings.Builder
	pending bool // whitespace seen since the last word
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head, atom.Title:
			return
		case atom.Br:
			w.lineBreak()
			return
		}
	}

	brk := w.lineBreak
	if n.Type == html.ElementNode && isParagraph(n.DataAtom) {
		brk = w.paraBreak
	}
	block := n.Type == html.ElementNode && (isParagraph(n.DataAtom) || isLine(n.DataAtom))
	if block {
		brk()
	}
	if n.DataAtom == atom.Li {
		w.b.WriteString("- ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.DataAtom == atom.A {
		if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "#") && !strings.Contains(w.lastLine(), href) {
			w.pending = true
			w.text("(" + href + ")")
		}
	}
	if block {
		brk()
	}
}

func (w *textWriter) text(s string) {
	for i, f := range strings.Fields(s) {
		if (i > 0 || w.pending || startsWithSpace(s)) && !w.atLineStart() {
			w.b.WriteByte(' ')
		}
		w.b.WriteString(f)
		w.pending = false
	}
	if len(s) > 0 && isSpace(s[len(s)-1]) {
		w.pending = true
	}
}

func (w *textWriter) lineBreak() {
	w.pending = false
	s := w.b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	w.b.WriteByte('\n')
}

// paraBreak leaves exactly one blank line.
func (w *textWriter) paraBreak() {
	w.pending = false
	s := w.b.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		w.b.WriteByte('\n')
	default:
		w.b.WriteString("\n\n")
	}
}

func (w *textWriter) atLineStart() bool {
	s := w.b.String()
	return s == "" || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "- ")
}

func (w *textWriter) lastLine() string {
	s := w.b.String()
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (w *textWriter) String() string {
	return strings.TrimSpace(w.b.String())
}

func isParagraph(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Table, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Hr:
		return true
	}
	return false
}

func isLine(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.Tr, atom.Li, atom.Section, atom.Article, atom.Header, atom.Footer:
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func startsWithSpace(s string) bool { return len(s) > 0 && isSpace(s[0]) }

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
