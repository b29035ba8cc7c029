// Package ingest turns raw PMC article markup into structured documents
// and handles fetching the corpus from NCBI.
package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"medrag/internal/domain"
)

// xmlNode is a minimal DOM over JATS markup. Character data is kept as
// unnamed child nodes so innerText preserves document order across
// inline elements (xref, italic, ...).
type xmlNode struct {
	name     string
	attrs    map[string]string
	text     string
	children []*xmlNode
}

func parseXML(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var root *xmlNode
	var stack []*xmlNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, &xmlNode{text: string(t)})
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty xml document")
	}
	return root, nil
}

func (n *xmlNode) attr(key string) string {
	if n.attrs == nil {
		return ""
	}
	return n.attrs[key]
}

// innerText concatenates all character data beneath n, in order.
func (n *xmlNode) innerText() string {
	var b strings.Builder
	n.appendText(&b)
	return strings.TrimSpace(b.String())
}

func (n *xmlNode) appendText(b *strings.Builder) {
	b.WriteString(n.text)
	for _, c := range n.children {
		c.appendText(b)
	}
}

// find returns the first descendant element with the given name.
func (n *xmlNode) find(name string) *xmlNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if found := c.find(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all descendant elements with the given name, in
// document order.
func (n *xmlNode) findAll(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.findAll(name)...)
	}
	return out
}

// childElements returns direct children with the given name.
func (n *xmlNode) childElements(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func nodeText(n *xmlNode) string {
	if n == nil {
		return ""
	}
	return n.innerText()
}

// ParseArticle parses JATS XML into a document. Sections come out as a
// title/abstract block followed by top-level body sections; articles
// without top-level <sec> elements get a single fallback body section.
func ParseArticle(pmcid string, data []byte) (domain.Document, error) {
	root, err := parseXML(data)
	if err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		ID:      pmcid,
		Title:   nodeText(root.find("article-title")),
		Journal: nodeText(root.find("journal-title")),
	}

	for _, id := range root.findAll("article-id") {
		if id.attr("pub-id-type") == "doi" {
			doc.DOI = id.innerText()
			break
		}
	}

	pubDates := root.findAll("pub-date")
	var pubDate *xmlNode
	for _, pd := range pubDates {
		if pd.attr("pub-type") == "epub" {
			pubDate = pd
			break
		}
	}
	if pubDate == nil && len(pubDates) > 0 {
		pubDate = pubDates[0]
	}
	if pubDate != nil {
		doc.Year = nodeText(pubDate.find("year"))
		doc.Month = nodeText(pubDate.find("month"))
	}

	// Title and abstract form the first section.
	var abstractParts []string
	for _, a := range root.findAll("abstract") {
		text := strings.Join(paragraphTexts(a), "\n")
		if text == "" {
			text = a.innerText()
		}
		if text != "" {
			abstractParts = append(abstractParts, text)
		}
	}
	var taParas []string
	if doc.Title != "" {
		taParas = append(taParas, "TITLE: "+doc.Title)
	}
	if len(abstractParts) > 0 {
		taParas = append(taParas, "ABSTRACT: "+strings.Join(abstractParts, "\n\n"))
	}
	if len(taParas) > 0 {
		doc.Sections = append(doc.Sections, domain.Section{
			Title:      string(domain.SectionTitleAbstract),
			Type:       domain.SectionTitleAbstract,
			Paragraphs: taParas,
		})
	}

	body := root.find("body")
	if body == nil {
		return doc, nil
	}

	topSecs := body.childElements("sec")
	if len(topSecs) == 0 {
		paras := paragraphTexts(body)
		if len(paras) > 0 {
			doc.Sections = append(doc.Sections, domain.Section{
				Title:      "BODY",
				Type:       domain.SectionBodyFallback,
				Paragraphs: paras,
			})
		}
		return doc, nil
	}

	for _, sec := range topSecs {
		title := "SECTION"
		if titles := sec.childElements("title"); len(titles) > 0 {
			if t := titles[0].innerText(); t != "" {
				title = t
			}
		}
		paras := paragraphTexts(sec)
		if len(paras) == 0 {
			continue
		}
		doc.Sections = append(doc.Sections, domain.Section{
			Title:      title,
			Type:       domain.SectionBody,
			Paragraphs: paras,
		})
	}

	return doc, nil
}

func paragraphTexts(n *xmlNode) []string {
	var paras []string
	for _, p := range n.findAll("p") {
		if t := p.innerText(); t != "" {
			paras = append(paras, t)
		}
	}
	return paras
}
