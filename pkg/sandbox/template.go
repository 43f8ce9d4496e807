package sandbox

import "strings"

// Page template. The script tag follows the body slot so it runs after the
// generated markup is parsed; BodySlot strips it on read-back.
const (
	pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI Generated Website</title>
    <link rel="stylesheet" href="style.css">
</head>
<body>
`
	scriptTag = `<script src="script.js"></script>`
	pageTail  = "\n    " + scriptTag + `
</body>
</html>
`

	// PlaceholderPage is served before the first generation.
	PlaceholderPage = "<!DOCTYPE html>\n<html><head><title>Loading...</title><link rel=\"stylesheet\" href=\"style.css\"></head>" +
		"<body><h1>Agent Initializing...</h1></body></html>\n"

	bodyOpen  = "<body"
	bodyClose = "</body>"
)

// WrapPage places markup in the body slot of the page template.
func WrapPage(markup string) string {
	return pageHead + markup + pageTail
}

// ExtractBody returns the trimmed content between the first body-open tag and
// the first following "</body>". Attributes on the open tag are allowed. A page
// without body markers is returned trimmed and whole.
func ExtractBody(page string) string {
	start := indexBodyOpen(page)
	if start < 0 {
		return strings.TrimSpace(page)
	}
	rest := page[start:]
	end := strings.Index(rest, bodyClose)
	if end < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// BodySlot returns the agent-owned part of the body: ExtractBody without the
// template's trailing script tag.
func BodySlot(page string) string {
	body := ExtractBody(page)
	if slot, ok := strings.CutSuffix(body, scriptTag); ok {
		return strings.TrimSpace(slot)
	}
	return body
}

// indexBodyOpen returns the offset just past the first "<body>" or "<body ...>".
func indexBodyOpen(page string) int {
	from := 0
	for {
		i := strings.Index(page[from:], bodyOpen)
		if i < 0 {
			return -1
		}
		i += from
		after := i + len(bodyOpen)
		if after < len(page) && (page[after] == '>' || page[after] == ' ' || page[after] == '\t' || page[after] == '\n') {
			gt := strings.IndexByte(page[after:], '>')
			if gt < 0 {
				return -1
			}
			return after + gt + 1
		}
		from = after
	}
}
