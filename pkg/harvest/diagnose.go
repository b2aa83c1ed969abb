package harvest

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
)

const snippetWidth = 120

// describeBody summarises a body that failed to parse. Providers under load
// tend to answer with an HTML error page, so its title is preferred over raw
// markup.
func describeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "empty body"
	}
	if looksLikeHTML(trimmed) {
		if title := htmlTitle(trimmed); title != "" {
			return "HTML page: " + title
		}
	}
	flat := strings.Join(strings.Fields(trimmed), " ")
	return runewidth.Truncate(flat, snippetWidth, "...")
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}

func htmlTitle(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
