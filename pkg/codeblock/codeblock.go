// Package codeblock extracts labelled fenced code blocks from model output.
//
// Grammar:
//
//	fence-open  = [prose] "```" label [ws]  ; label is case-insensitive, ends the line
//	body        = *line
//	fence-close = "```"                     ; alone on its line, or ending a body line
//
// Each slot is searched for on its own, so surrounding prose, unlabelled fences
// and wrapper fences such as "```markdown" do not hide a block. Inside a block,
// a line that opens another labelled fence is body text, so blocks never nest.
package codeblock

import (
	"strings"
	"unicode"
)

const (
	// StylePlaceholder replaces a missing stylesheet block.
	StylePlaceholder = "/* CSS code not generated */"
	// ScriptPlaceholder replaces a missing script block.
	ScriptPlaceholder = "// JS code not generated"

	fence = "```"
)

// Kind names an artifact slot.
type Kind string

const (
	Markup Kind = "html"
	Style  Kind = "css"
	Script Kind = "javascript"
)

// labels maps accepted fence labels to slots.
var labels = map[string]Kind{
	"html":       Markup,
	"css":        Style,
	"javascript": Script,
	"js":         Script,
}

// Block is one fenced region with a recognized label.
type Block struct {
	Kind    Kind
	Label   string // label as written
	Content string // trimmed body
}

// Triple is the three website artifacts.
type Triple struct {
	Markup string
	Style  string
	Script string
}

// KindForLabel resolves a fence label. Unknown labels report false.
func KindForLabel(label string) (Kind, bool) {
	k, ok := labels[strings.ToLower(strings.TrimSpace(label))]
	return k, ok
}

// Find returns the first closed block of kind k. Each kind is located on its
// own: other fences, labelled or not, are ignored while searching, and once a
// block opens every line up to its closing fence is body.
func Find(text string, k Kind) (Block, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		label, after, ok := openerFor(raw, k)
		if !ok {
			continue
		}
		// "```css body{margin:0}```" on a single line
		if inner := strings.TrimSpace(after); inner != "" {
			return Block{Kind: k, Label: label, Content: strings.TrimSpace(strings.TrimSuffix(inner, fence))}, true
		}
		if body, closed := bodyUntilClose(lines[i+1:]); closed {
			return Block{Kind: k, Label: label, Content: strings.TrimSpace(body)}, true
		}
	}
	return Block{}, false
}

// openerFor reports whether line opens a fence of kind k. The opener may follow
// prose on the same line; the label must end the line or be followed by
// whitespace and an inline body closed on that line.
func openerFor(line string, k Kind) (label, after string, ok bool) {
	rest := line
	for {
		idx := strings.Index(rest, fence)
		if idx < 0 {
			return "", "", false
		}
		rest = rest[idx+len(fence):]
		n := strings.IndexFunc(rest, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if n < 0 {
			n = len(rest)
		}
		label, after = rest[:n], rest[n:]
		if got, known := KindForLabel(label); !known || got != k {
			continue
		}
		tail := strings.TrimRight(after, " \t")
		if tail == "" {
			return label, "", true
		}
		if (after[0] == ' ' || after[0] == '\t') && strings.HasSuffix(tail, fence) && strings.TrimSpace(strings.TrimSuffix(tail, fence)) != "" {
			return label, tail, true
		}
	}
}

// bodyUntilClose joins lines up to the first closing fence: a line that is
// only "```", or a body line ending in one.
func bodyUntilClose(lines []string) (string, bool) {
	var body []string
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == fence {
			return strings.Join(body, "\n"), true
		}
		if before, ok := strings.CutSuffix(strings.TrimRight(raw, " \t"), fence); ok && !strings.HasPrefix(line, fence) {
			return strings.Join(append(body, before), "\n"), true
		}
		body = append(body, raw)
	}
	return "", false
}

// Extract locates each slot independently; the first block of a kind wins.
// Missing markup yields "", missing style and script yield their placeholders.
func Extract(text string) Triple {
	t := Triple{Style: StylePlaceholder, Script: ScriptPlaceholder}
	if b, ok := Find(text, Markup); ok {
		t.Markup = b.Content
	}
	if b, ok := Find(text, Style); ok {
		t.Style = b.Content
	}
	if b, ok := Find(text, Script); ok {
		t.Script = b.Content
	}
	return t
}

// Format renders t as three labelled fences in markup, style, script order.
func Format(t Triple) string {
	var b strings.Builder
	writeFence(&b, string(Markup), t.Markup)
	b.WriteString("\n")
	writeFence(&b, string(Style), t.Style)
	b.WriteString("\n")
	writeFence(&b, string(Script), t.Script)
	return b.String()
}

func writeFence(b *strings.Builder, label, content string) {
	b.WriteString(fence)
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n")
	b.WriteString(fence)
	b.WriteString("\n")
}
