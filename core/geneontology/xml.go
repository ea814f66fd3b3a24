package geneontology

import (
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Top-level collections of an OWL RDF/XML dump.
var (
	classExpr    = xpath.MustCompile("/rdf:RDF/owl:Class")
	propertyExpr = xpath.MustCompile("/rdf:RDF/owl:ObjectProperty")
)

// children returns the element children of n with the given prefix and
// local name.
func children(n *xmlquery.Node, prefix, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local && c.Prefix == prefix {
			out = append(out, c)
		}
	}
	return out
}

// child returns the first matching element child of n, or nil.
func child(n *xmlquery.Node, prefix, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local && c.Prefix == prefix {
			return c
		}
	}
	return nil
}

// childText returns the trimmed text of the first matching child.
func childText(n *xmlquery.Node, prefix, local string) string {
	c := child(n, prefix, local)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.InnerText())
}

// attr returns the value of the attribute with the given local name.
// RDF attributes are matched on local name only, since the namespace form
// stored on the attribute depends on how the document declares it.
func attr(n *xmlquery.Node, local string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// urlToID turns "http://purl.obolibrary.org/obo/GO_0008150" into "GO:0008150".
func urlToID(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		url = url[i+1:]
	}
	if i := strings.LastIndex(url, "#"); i >= 0 {
		url = url[i+1:]
	}
	return strings.ReplaceAll(url, "_", ":")
}
