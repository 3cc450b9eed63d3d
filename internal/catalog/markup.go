package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/i474232898/regional-weather-aggregation/internal/common"
	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

const (
	optionTag   = "div"
	optionClass = "option"

	fieldTag      = "span"
	nameClass     = "stationName"
	identityClass = "stationId"
)

// node is a generic element of the station markup tree. Text holds only the
// character data that precedes the first child element.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []node
}

func (n *node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.XMLName = start.Name
	n.Attrs = start.Attr

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var child node
			if err := d.DecodeElement(&child, &t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			if len(n.Children) == 0 {
				text.Write(t)
			}
		case xml.EndElement:
			n.Text = text.String()
			return nil
		}
	}
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// walk visits n and its descendants in document order.
func (n *node) walk(visit func(*node)) {
	visit(n)
	for i := range n.Children {
		n.Children[i].walk(visit)
	}
}

// findDescendant returns the first descendant (not n itself) with the given
// tag and exact class attribute.
func (n *node) findDescendant(tag, class string) *node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Local == tag && c.attr("class") == class {
			return c
		}
		if found := c.findDescendant(tag, class); found != nil {
			return found
		}
	}
	return nil
}

// ParseMarkup extracts station options from a provider's station picker
// markup and tags each with region.
//
// Every div whose class contains "option" (active and inactive variants alike)
// is a candidate. Its stationName and stationId spans must both hold
// non-blank text or the option is skipped.
func ParseMarkup(r io.Reader, region string) ([]weather.Station, error) {
	root, err := decodeTree(r)
	if err != nil {
		return nil, err
	}

	var stations []weather.Station
	root.walk(func(n *node) {
		if n.XMLName.Local != optionTag || !common.HasAny(n.attr("class"), optionClass) {
			return
		}

		nameElem := n.findDescendant(fieldTag, nameClass)
		idElem := n.findDescendant(fieldTag, identityClass)
		if nameElem == nil || idElem == nil {
			return
		}

		name := strings.TrimSpace(nameElem.Text)
		id := strings.TrimSpace(idElem.Text)
		if name == "" || id == "" {
			return
		}

		stations = append(stations, weather.Station{
			ID:     id,
			Name:   name,
			Region: region,
		})
	})

	return stations, nil
}

// decodeTree decodes a single-rooted element tree. Anything but whitespace,
// comments or processing instructions after the root element is malformed.
func decodeTree(r io.Reader) (*node, error) {
	dec := xml.NewDecoder(r)

	var root node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no element found", weather.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", weather.ErrMalformedInput, err)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrMalformedInput, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("%w: junk after document element <%s>", weather.ErrMalformedInput, t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("%w: text after document element", weather.ErrMalformedInput)
			}
		}
	}

	return &root, nil
}
