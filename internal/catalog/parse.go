package catalog

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ParseError means the document is not well-formed XML. A well-formed
// document without a recognized product list is not an error.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed XML: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A generic element. Only direct text is kept, like most feed consumers read it.
type node struct {
	XMLName  xml.Name
	Text     string `xml:",chardata"`
	Children []node `xml:",any"`
}

// Returns the direct children with the given local name, in document order.
func (n node) children(name string) []node {
	var out []node
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

func (n node) child(name string) (node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return node{}, false
}

// A shape matcher reports whether the root holds the product list it knows
// about and returns the list's elements.
type shapeMatcher func(root node) ([]node, bool)

// Tried in order, the first match wins.
var shapes = []shapeMatcher{
	// <products><product/>...</products>
	func(root node) ([]node, bool) {
		els := root.children("product")
		return els, len(els) > 0
	},
	// <catalog><products><product/>...</products></catalog>
	// A present <products> wrapper wins even when it's empty.
	func(root node) ([]node, bool) {
		wrapper, ok := root.child("products")
		if !ok {
			return nil, false
		}
		return wrapper.children("product"), true
	},
	// <products><item/>...</products>
	func(root node) ([]node, bool) {
		els := root.children("item")
		return els, len(els) > 0
	},
}

// Tag synonyms per canonical field, highest priority first.
var (
	idTags          = []string{"id", "product_id", "code"}
	nameTags        = []string{"name", "title", "product_name"}
	descriptionTags = []string{"description", "desc"}
	priceTags       = []string{"price", "amount"}
	stockTags       = []string{"stock", "quantity", "qty"}
)

// Returns the text of the first synonym present on n, even if it's empty.
func (n node) field(tags []string) string {
	for _, tag := range tags {
		if c, ok := n.child(tag); ok {
			return c.Text
		}
	}
	return ""
}

// Parse decodes a feed and maps every entry of the first recognized shape into
// an Item. Missing fields come back as zero values; validation is left to the
// caller.
func Parse(doc []byte) ([]Item, error) {
	root, err := decode(doc)
	if err != nil {
		return nil, err
	}

	var els []node
	for _, match := range shapes {
		if found, ok := match(root); ok {
			els = found
			break
		}
	}

	items := make([]Item, 0, len(els))
	for _, el := range els {
		items = append(items, Item{
			ExternalID:  cleanText(el.field(idTags)),
			Name:        cleanName(el.field(nameTags)),
			Description: cleanMarkup(el.field(descriptionTags)),
			Price:       coercePrice(el.field(priceTags)),
			Stock:       coerceStock(el.field(stockTags)),
		})
	}

	return items, nil
}

func decode(doc []byte) (node, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.CharsetReader = charset.NewReaderLabel

	// Only whitespace, comments, processing instructions and a doctype may
	// come before the root element.
	var start xml.StartElement
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return node{}, &ParseError{Err: errors.New("empty document")}
		}
		if err != nil {
			return node{}, &ParseError{Err: err}
		}
		if t, ok := tok.(xml.CharData); ok && len(bytes.Trim(t, " \t\r\n\ufeff")) > 0 {
			return node{}, &ParseError{Err: errors.New("unexpected text before root")}
		}
		if t, ok := tok.(xml.StartElement); ok {
			start = t
			break
		}
	}

	var root node
	if err := dec.DecodeElement(&root, &start); err != nil {
		return node{}, &ParseError{Err: err}
	}

	// Anything but whitespace, comments and processing instructions after
	// the root element makes the document malformed.
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return node{}, &ParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return node{}, &ParseError{Err: fmt.Errorf("unexpected element <%s> after root", t.Name.Local)}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return node{}, &ParseError{Err: errors.New("unexpected text after root")}
			}
		}
	}

	return root, nil
}
