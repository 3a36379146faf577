package wsman

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// EndpointReference identifies a remote resource instance: the endpoint
// address, the resource URI of its class, and the selector set that pins
// down one instance.
type EndpointReference struct {
	Address     string
	ResourceURI string
	Selectors   []Selector
}

// Instance is one remote management object: a class name plus its
// properties as returned by the provider. Multi-valued (array) properties
// carry more than one entry. Selectors holds the key selector set when
// the enumeration returned endpoint references alongside the objects;
// it is empty for client-only (embedded) instances.
type Instance struct {
	ClassName  string
	Properties map[string][]string
	Selectors  []Selector
}

// Get returns the first value of the named property, or "" if absent.
func (i *Instance) Get(name string) string {
	if vs, ok := i.Properties[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// GetAll returns every value of the named property.
func (i *Instance) GetAll(name string) []string {
	return i.Properties[name]
}

// Has reports whether the named property was returned at all.
func (i *Instance) Has(name string) bool {
	_, ok := i.Properties[name]
	return ok
}

// ResourceURI builds the WMI resource URI for a class in a CIM namespace.
// The namespace may use backslash or forward-slash separators.
func ResourceURI(namespace, className string) string {
	ns := strings.ReplaceAll(namespace, `\`, "/")
	ns = strings.Trim(ns, "/")
	if className == "" {
		return ResourceURIWMIBase + ns + "/*"
	}
	return ResourceURIWMIBase + ns + "/" + className
}

// MarshalInstance renders an instance body for Create/Put: a single
// element named after the class, in the class resource URI namespace,
// with one child element per property. Properties are emitted in sorted
// order so envelopes are deterministic.
func MarshalInstance(resourceURI, className string, props map[string][]string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<p:` + className + ` xmlns:p="` + resourceURI + `" xmlns:xsi="` + NsXsi + `">`)

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		values := props[name]
		if len(values) == 0 {
			buf.WriteString(`<p:` + name + ` xsi:nil="true"/>`)
			continue
		}
		for _, v := range values {
			buf.WriteString(`<p:` + name + `>`)
			_ = xml.EscapeText(&buf, []byte(v))
			buf.WriteString(`</p:` + name + `>`)
		}
	}

	buf.WriteString(`</p:` + className + `>`)
	return buf.Bytes()
}

// ParseInstances decodes instance elements out of an Items (or Body)
// fragment. Each top-level element becomes one Instance; child elements
// become properties. Elements flagged xsi:nil are skipped so that absent
// and null properties look alike to callers.
//
// Enumerations in EnumerateObjectAndEPR mode wrap each object and its
// EndpointReference in an Item element; those are unwrapped and the
// reference's selector set is attached to the instance.
func ParseInstances(fragment []byte) ([]Instance, error) {
	dec := xml.NewDecoder(bytes.NewReader(fragment))
	var out []Instance

	for {
		tok, err := dec.Token()
		if err != nil {
			break // io.EOF ends the fragment
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if start.Name.Local == "Item" {
			inst, err := parseItem(dec)
			if err != nil {
				return nil, fmt.Errorf("parse item: %w", err)
			}
			if inst != nil {
				out = append(out, *inst)
			}
			continue
		}

		inst, err := parseInstance(dec, start)
		if err != nil {
			return nil, fmt.Errorf("parse instance %s: %w", start.Name.Local, err)
		}
		if inst != nil {
			out = append(out, *inst)
		}
	}

	return out, nil
}

// parseItem consumes one Item wrapper: an instance element followed by
// its EndpointReference.
func parseItem(dec *xml.Decoder) (*Instance, error) {
	var inst *Instance

	for {
		tok, err := dec.Token()
		if err != nil {
			return inst, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "EndpointReference" {
				selectors, err := parseEPRSelectors(dec)
				if err != nil {
					return nil, err
				}
				if inst != nil {
					inst.Selectors = selectors
				}
				continue
			}
			parsed, err := parseInstance(dec, t)
			if err != nil {
				return nil, err
			}
			inst = parsed
		case xml.EndElement:
			// end of the Item wrapper
			return inst, nil
		}
	}
}

// parseEPRSelectors walks an EndpointReference element and collects its
// selector set.
func parseEPRSelectors(dec *xml.Decoder) ([]Selector, error) {
	var selectors []Selector
	depth := 0
	var current *Selector
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return selectors, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "Selector" {
				sel := Selector{}
				for _, attr := range t.Attr {
					if attr.Name.Local == "Name" {
						sel.Name = attr.Value
					}
				}
				current = &sel
				text.Reset()
			}
		case xml.CharData:
			if current != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				// end of the EndpointReference element itself
				return selectors, nil
			}
			if current != nil && t.Name.Local == "Selector" {
				current.Value = text.String()
				selectors = append(selectors, *current)
				current = nil
			}
			depth--
		}
	}
}

// parseInstance consumes one instance element and its children.
func parseInstance(dec *xml.Decoder, start xml.StartElement) (*Instance, error) {
	inst := &Instance{
		ClassName:  start.Name.Local,
		Properties: map[string][]string{},
	}

	depth := 0
	var propName string
	var text strings.Builder
	var propNil bool

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				propName = t.Name.Local
				text.Reset()
				propNil = isNil(t)
			}
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				// end of the instance element itself
				if len(inst.Properties) == 0 && inst.ClassName == "" {
					return nil, nil
				}
				return inst, nil
			}
			if depth == 1 && !propNil {
				inst.Properties[propName] = append(inst.Properties[propName], text.String())
			}
			depth--
		}
	}
}

func isNil(el xml.StartElement) bool {
	for _, attr := range el.Attr {
		if attr.Name.Local == "nil" && (attr.Value == "true" || attr.Value == "1") {
			return true
		}
	}
	return false
}
