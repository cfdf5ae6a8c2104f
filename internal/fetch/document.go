// Package fetch retrieves pages and exposes them as queryable documents.
// Extraction code only sees the Document and Element interfaces; the HTML
// parser behind them is goquery.
package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is one node matched by a selector.
type Element interface {
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	// Text returns the combined text of the element and its descendants.
	Text() string
	// Find runs selector against the element's descendants.
	Find(selector string) []Element
	// Next returns the following sibling element.
	Next() (Element, bool)
}

// Document is a parsed page.
type Document interface {
	// Find returns every element matching selector in document order.
	Find(selector string) []Element
}

// ParseHTML parses an HTML page into a Document.
func ParseHTML(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &htmlDocument{doc: doc}, nil
}

// ParseHTMLString is ParseHTML for in-memory markup.
func ParseHTMLString(s string) (Document, error) {
	return ParseHTML(strings.NewReader(s))
}

type htmlDocument struct {
	doc *goquery.Document
}

func (d *htmlDocument) Find(selector string) []Element {
	return elements(d.doc.Find(selector))
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e *htmlElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *htmlElement) Text() string {
	return e.sel.Text()
}

func (e *htmlElement) Find(selector string) []Element {
	return elements(e.sel.Find(selector))
}

func (e *htmlElement) Next() (Element, bool) {
	next := e.sel.Next()
	if next.Length() == 0 {
		return nil, false
	}
	return &htmlElement{sel: next}, true
}

func elements(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &htmlElement{sel: s})
	})
	return out
}

// First returns the first element matching selector under root, if any.
func First(root interface{ Find(string) []Element }, selector string) (Element, bool) {
	els := root.Find(selector)
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

// FirstAttr returns attribute name of the first element matching selector.
// Both a missing element and a missing attribute report false.
func FirstAttr(root interface{ Find(string) []Element }, selector, name string) (string, bool) {
	el, ok := First(root, selector)
	if !ok {
		return "", false
	}
	return el.Attr(name)
}
