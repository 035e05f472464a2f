package dom

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sourceTbodies replays the table start and end tags of body and reports, in
// creation order, whether each tbody the parser will build was written
// explicitly (true) or inserted for a bare row or cell (false).
func sourceTbodies(body []byte) []bool {
	type table struct{ inSection bool }
	var (
		stack   []table
		created []bool
	)
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return created
		}
		if tt != html.StartTagToken && tt != html.EndTagToken {
			continue
		}
		name, _ := z.TagName()
		a := atom.Lookup(name)
		if tt == html.StartTagToken {
			switch a {
			case atom.Table:
				stack = append(stack, table{})
			case atom.Tbody:
				if len(stack) > 0 {
					stack[len(stack)-1].inSection = true
					created = append(created, true)
				}
			case atom.Thead, atom.Tfoot:
				if len(stack) > 0 {
					stack[len(stack)-1].inSection = true
				}
			case atom.Tr, atom.Td, atom.Th:
				if len(stack) > 0 && !stack[len(stack)-1].inSection {
					stack[len(stack)-1].inSection = true
					created = append(created, false)
				}
			}
			continue
		}
		switch a {
		case atom.Table:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case atom.Tbody, atom.Thead, atom.Tfoot:
			if len(stack) > 0 {
				stack[len(stack)-1].inSection = false
			}
		}
	}
}

// unwrapImplicitTbody splices the children of every parser-inserted tbody
// into its table. When the replayed tags disagree with the parsed tree the
// tree is left as parsed.
func unwrapImplicitTbody(root *html.Node, explicit []bool) {
	var tbodies []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tbody {
			tbodies = append(tbodies, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if len(tbodies) != len(explicit) {
		return
	}
	for i, n := range tbodies {
		if explicit[i] || n.Parent == nil {
			continue
		}
		parent := n.Parent
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			parent.InsertBefore(c, n)
			c = next
		}
		parent.RemoveChild(n)
	}
}
