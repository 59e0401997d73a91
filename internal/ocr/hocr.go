package ocr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHOCR returns the ocrx_word tokens of an hOCR document in document
// order, taking confidence from the x_wconf title property.
func ParseHOCR(data []byte) ([]Token, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	var tokens []Token
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			text := strings.TrimSpace(nodeText(n))
			conf, ok := wordConfidence(attr(n, "title"))
			if text != "" && ok {
				tokens = append(tokens, Token{Text: text, Confidence: scaleConfidence(conf)})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tokens, nil
}

// parseTitle breaks down an hOCR title attribute, e.g.
// "bbox 100 200 300 400; x_wconf 95".
func parseTitle(title string) map[string][]string {
	out := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			out[items[0]] = items[1:]
		}
	}
	return out
}

func wordConfidence(title string) (float64, bool) {
	v := parseTitle(title)["x_wconf"]
	if len(v) == 0 {
		return 0, false
	}
	c, err := strconv.ParseFloat(v[0], 64)
	if err != nil || c < 0 {
		return 0, false
	}
	return c, true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
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

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
