// Package content parses sanitized HTML fragments into the flat list of
// flowable blocks consumed by the measurer, the paginator and the renderer.
//
// Input is assumed to be already sanitized by the caller; no escaping or
// filtering happens here. Each top-level element becomes one Block. List
// containers are the exception: every list item becomes its own block so the
// paginator can break pages between items.
package content

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Kind classifies a block for styling and flow purposes.
type Kind int

const (
	// KindParagraph is plain flowing text.
	KindParagraph Kind = iota
	// KindHeading is a heading; Level holds the depth (1 to 4).
	KindHeading
	// KindListItem is a single list entry; Ordinal is set for ordered lists.
	KindListItem
	// KindQuote is an indented quotation block.
	KindQuote
	// KindRule is a horizontal rule with no text content.
	KindRule
	// KindPre is preformatted text; line breaks are preserved and no
	// wrapping is applied.
	KindPre
)

// Run is a span of text with uniform inline styling.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

// Block is one flowable unit of document content with a stable index.
type Block struct {
	Index   int
	Kind    Kind
	Level   int   // heading depth, 1-4
	Ordinal int   // 1-based position within an ordered list, 0 otherwise
	Runs    []Run // inline content in document order
}

// Text returns the block's plain text with runs joined in order.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// IsEmpty reports whether the block carries no visible content.
func (b Block) IsEmpty() bool {
	if b.Kind == KindRule {
		return false
	}
	return strings.TrimSpace(b.Text()) == ""
}

// Parser turns HTML fragments into blocks.
type Parser struct {
	// Configuration options could be added here
}

// NewParser creates a new fragment parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses a fragment from a string.
func (p *Parser) ParseString(fragment string) ([]Block, error) {
	return p.Parse(strings.NewReader(fragment))
}

// Parse parses a fragment from an io.Reader into an ordered block list.
func (p *Parser) Parse(r io.Reader) ([]Block, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	body := findBody(root)
	if body == nil {
		return nil, nil
	}

	var blocks []Block
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		blocks = appendBlocks(blocks, n)
	}
	for i := range blocks {
		blocks[i].Index = i
	}
	return blocks, nil
}

// findBody locates the body element html.Parse always synthesizes.
func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// appendBlocks converts one top-level node into zero or more blocks.
func appendBlocks(blocks []Block, n *html.Node) []Block {
	switch n.Type {
	case html.TextNode:
		// Stray text between elements becomes its own paragraph.
		runs := collapseRuns([]Run{{Text: collapseSpace(n.Data)}})
		if len(runs) > 0 {
			blocks = append(blocks, Block{Kind: KindParagraph, Runs: runs})
		}
		return blocks
	case html.ElementNode:
		// handled below
	default:
		return blocks
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4":
		level := int(n.Data[1] - '0')
		blocks = append(blocks, Block{Kind: KindHeading, Level: level, Runs: inlineRuns(n)})
	case "ul":
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type == html.ElementNode && li.Data == "li" {
				blocks = append(blocks, Block{Kind: KindListItem, Runs: inlineRuns(li)})
			}
		}
	case "ol":
		ordinal := 0
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type == html.ElementNode && li.Data == "li" {
				ordinal++
				blocks = append(blocks, Block{Kind: KindListItem, Ordinal: ordinal, Runs: inlineRuns(li)})
			}
		}
	case "blockquote":
		blocks = append(blocks, Block{Kind: KindQuote, Runs: inlineRuns(n)})
	case "hr":
		blocks = append(blocks, Block{Kind: KindRule})
	case "pre":
		text := rawText(n)
		text = strings.Trim(text, "\n")
		blocks = append(blocks, Block{Kind: KindPre, Runs: []Run{{Text: text}}})
	default:
		// p, div and any unrecognized element flatten to a paragraph.
		blocks = append(blocks, Block{Kind: KindParagraph, Runs: inlineRuns(n)})
	}
	return blocks
}

// inlineRuns flattens an element's inline content into styled runs with
// whitespace collapsed.
func inlineRuns(n *html.Node) []Run {
	var runs []Run
	collectRuns(n, false, false, &runs)
	return collapseRuns(runs)
}

// collectRuns walks the subtree accumulating text with the active styling.
func collectRuns(n *html.Node, bold, italic bool, out *[]Run) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			*out = append(*out, Run{Text: c.Data, Bold: bold, Italic: italic})
		case html.ElementNode:
			b, i := bold, italic
			switch c.Data {
			case "b", "strong":
				b = true
			case "i", "em":
				i = true
			case "br":
				*out = append(*out, Run{Text: "\n", Bold: bold, Italic: italic})
				continue
			}
			collectRuns(c, b, i, out)
		}
	}
}

// collapseRuns normalizes whitespace across runs and drops empty ones.
// Adjacent runs with identical styling are merged.
func collapseRuns(runs []Run) []Run {
	var merged []Run
	for _, r := range runs {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.Bold == r.Bold && last.Italic == r.Italic {
				last.Text += r.Text
				continue
			}
		}
		merged = append(merged, r)
	}

	out := merged[:0]
	pendingSpace := false
	leading := true
	for _, r := range merged {
		text := collapseSpace(r.Text)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			if !leading && text != "" {
				pendingSpace = true
			}
			continue
		}
		if pendingSpace || (strings.HasPrefix(text, " ") && !leading) {
			trimmed = " " + trimmed
		}
		pendingSpace = strings.HasSuffix(text, " ")
		leading = false
		out = append(out, Run{Text: trimmed, Bold: r.Bold, Italic: r.Italic})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// collapseSpace folds any whitespace sequence into a single space.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !inSpace {
				sb.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// rawText returns the subtree's text content without whitespace collapsing.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
