package htmlutil

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

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

// StrippedText trims every text node under the given node, drops empty
// segments and joins the remainder with sep. Titles and metadata cells
// join with "", cable bodies join with "\n" to keep one line per text
// run.
func StrippedText(node *html.Node, sep string) string {
	var segments []string
	collectStripped(node, &segments)
	return strings.Join(segments, sep)
}

func collectStripped(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		s := strings.TrimSpace(node.Data)
		if s != "" {
			*out = append(*out, s)
		}
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectStripped(child, out)
	}
}
