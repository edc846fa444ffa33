package htmlutil

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse reads an html document, the body is expected to already be utf-8.
func Parse(body io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(body)
}

// GetText returns the concatenated text of every text node under `node`.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Scripts returns the text of every <script> element in document order.
func Scripts(doc *goquery.Document) []string {
	nodes := doc.Find("script").Nodes
	scripts := make([]string, len(nodes))
	for i, script := range nodes {
		scripts[i] = GetText(script)
	}
	return scripts
}

// Script returns the text of the <script> element at `index`, ok is false
// when the page has fewer scripts.
func Script(doc *goquery.Document, index int) (string, bool) {
	nodes := doc.Find("script").Nodes
	if index < 0 || index >= len(nodes) {
		return "", false
	}
	return GetText(nodes[index]), true
}
