package browser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// findAll returns every element below root for which match is true, in
// document order.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if all := findAll(root, match); len(all) > 0 {
		return all[0]
	}
	return nil
}

// textContent is the whitespace-collapsed text below n, skipping script,
// style and template elements.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func isField(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Input:
		switch strings.ToLower(attr(n, "type")) {
		case "submit", "button", "reset", "image", "hidden":
			return false
		}
		return true
	case atom.Textarea, atom.Select:
		return true
	}
	return false
}

func isSubmit(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button:
		t := strings.ToLower(attr(n, "type"))
		return t == "" || t == "submit"
	case atom.Input:
		t := strings.ToLower(attr(n, "type"))
		return t == "submit" || t == "image"
	}
	return false
}

// fieldKey is the form key a field submits under.
func fieldKey(n *html.Node) string {
	if name := attr(n, "name"); name != "" {
		return name
	}
	return attr(n, "id")
}

// labelFor finds a field by label text, name, id, placeholder or
// aria-label. Exact matches win over partial ones.
func labelFor(root *html.Node, label string) *html.Node {
	fields := findAll(root, isField)

	labels := make(map[string]string)
	for _, l := range findAll(root, func(n *html.Node) bool { return n.DataAtom == atom.Label }) {
		if id := attr(l, "for"); id != "" {
			labels[id] = textContent(l)
		}
	}

	candidates := func(n *html.Node) []string {
		out := []string{attr(n, "name"), attr(n, "id"), attr(n, "placeholder"), attr(n, "aria-label")}
		if id := attr(n, "id"); id != "" {
			out = append(out, labels[id])
		}
		if l := ancestor(n, atom.Label); l != nil {
			out = append(out, textContent(l))
		}
		return out
	}

	for _, f := range fields {
		for _, c := range candidates(f) {
			if c != "" && strings.EqualFold(c, label) {
				return f
			}
		}
	}
	for _, f := range fields {
		for _, c := range candidates(f) {
			if c != "" && containsFold(c, label) {
				return f
			}
		}
	}
	return nil
}

// clickable finds a link, button or submit input whose text, value,
// aria-label or title contains label.
func clickable(root *html.Node, label string) *html.Node {
	return findFirst(root, func(n *html.Node) bool {
		switch {
		case n.DataAtom == atom.A && hasAttr(n, "href"):
		case n.DataAtom == atom.Button:
		case n.DataAtom == atom.Input && isSubmit(n):
		case hasAttr(n, "data-clipboard-text"):
		default:
			return false
		}
		for _, c := range []string{textContent(n), attr(n, "value"), attr(n, "aria-label"), attr(n, "title")} {
			if c != "" && containsFold(c, label) {
				return true
			}
		}
		return false
	})
}
