package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tabletoptools/scenoforge/internal/domain"
)

// ErrUnsafe indicates an SVG payload containing markup outside the
// allowed subset: foreign tags, event handlers, external references,
// styling hooks, or XML entity machinery.
var ErrUnsafe = fmt.Errorf("%w: unsafe svg", domain.ErrValidation)

var allowedTags = map[string]map[string]bool{
	"svg":     attrSet("xmlns", "width", "height", "viewBox"),
	"g":       attrSet("transform"),
	"rect":    attrSet("x", "y", "width", "height", "fill", "stroke", "stroke-width"),
	"circle":  attrSet("cx", "cy", "r", "fill", "stroke", "stroke-width"),
	"polygon": attrSet("points", "fill", "stroke", "stroke-width"),
	"text": attrSet("x", "y", "fill", "font-size", "font-family",
		"text-anchor", "dominant-baseline", "font-weight"),
}

var integerAttrs = map[string]bool{
	"x": true, "y": true, "width": true, "height": true,
	"cx": true, "cy": true, "r": true,
}

func attrSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Normalize re-parses an SVG document and re-serializes it from the
// parsed tree. Payloads survive only when every tag and attribute sits
// on the allowlist; DOCTYPE and ENTITY declarations, event handlers,
// hyperlinks, styling attributes, and url()/javascript: paints are all
// rejected. Namespace prefixes are stripped so output never carries
// ns0:-style tags.
func Normalize(payload string) (string, error) {
	upper := strings.ToUpper(payload)
	if strings.Contains(upper, "<!DOCTYPE") {
		return "", fmt.Errorf("%w: DOCTYPE declarations are not allowed", ErrUnsafe)
	}
	if strings.Contains(upper, "<!ENTITY") {
		return "", fmt.Errorf("%w: ENTITY declarations are not allowed", ErrUnsafe)
	}

	dec := xml.NewDecoder(strings.NewReader(payload))
	dec.Strict = true
	// Leave Entity nil: undefined entities fail the parse instead of
	// expanding.

	var out strings.Builder
	depth := 0
	seenRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: malformed xml: %v", ErrUnsafe, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return "", fmt.Errorf("%w: multiple root elements", ErrUnsafe)
				}
				if t.Name.Local != "svg" {
					return "", fmt.Errorf("%w: root element must be <svg>, got <%s>", ErrUnsafe, t.Name.Local)
				}
				seenRoot = true
			}
			if err := writeStart(&out, t); err != nil {
				return "", err
			}
			depth++
		case xml.EndElement:
			depth--
			fmt.Fprintf(&out, "</%s>", t.Name.Local)
		case xml.CharData:
			if err := xml.EscapeText(&out, t); err != nil {
				return "", fmt.Errorf("%w: %v", ErrUnsafe, err)
			}
		case xml.Comment, xml.ProcInst:
			// Dropped: neither renders, and comments can smuggle markup
			// past downstream parsers.
		case xml.Directive:
			return "", fmt.Errorf("%w: XML directives are not allowed", ErrUnsafe)
		}
	}

	if !seenRoot {
		return "", fmt.Errorf("%w: empty document", ErrUnsafe)
	}
	return out.String(), nil
}

func writeStart(out *strings.Builder, el xml.StartElement) error {
	tag := el.Name.Local
	allowed, ok := allowedTags[tag]
	if !ok {
		return fmt.Errorf("%w: forbidden tag <%s>", ErrUnsafe, tag)
	}

	fmt.Fprintf(out, "<%s", tag)
	for _, attr := range el.Attr {
		name := attr.Name.Local
		// Prefixed namespace declarations (xmlns:foo) are stripped; the
		// default xmlns survives only where the allowlist permits it.
		if attr.Name.Space == "xmlns" {
			continue
		}
		if err := checkAttr(tag, name, attr.Value, allowed); err != nil {
			return err
		}
		fmt.Fprintf(out, " %s=\"", name)
		if err := xml.EscapeText(out, []byte(attr.Value)); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsafe, err)
		}
		out.WriteString("\"")
	}
	out.WriteString(">")
	return nil
}

func checkAttr(tag, name, value string, allowed map[string]bool) error {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "on"):
		return fmt.Errorf("%w: event handler attribute %q", ErrUnsafe, name)
	case lower == "href" || lower == "src":
		return fmt.Errorf("%w: external reference attribute %q", ErrUnsafe, name)
	case lower == "style" || lower == "class":
		return fmt.Errorf("%w: styling attribute %q", ErrUnsafe, name)
	}
	if !allowed[name] {
		return fmt.Errorf("%w: attribute %q not allowed on <%s>", ErrUnsafe, name, tag)
	}

	if name == "fill" || name == "stroke" {
		v := strings.ToLower(value)
		if strings.Contains(v, "url(") || strings.Contains(v, "javascript:") || strings.Contains(v, "expression(") {
			return fmt.Errorf("%w: forbidden reference in %q paint", ErrUnsafe, name)
		}
	}

	if name == "viewBox" {
		parts := strings.Fields(value)
		if len(parts) != 4 {
			return fmt.Errorf("%w: viewBox must hold 4 integers", ErrUnsafe)
		}
		for _, p := range parts {
			if _, err := strconv.Atoi(p); err != nil {
				return fmt.Errorf("%w: viewBox must hold 4 integers", ErrUnsafe)
			}
		}
		return nil
	}

	if integerAttrs[name] {
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: attribute %q must be an integer", ErrUnsafe, name)
		}
	}

	if tag == "polygon" && name == "points" {
		for _, r := range value {
			if r >= '0' && r <= '9' || r == ' ' || r == ',' || r == '-' {
				continue
			}
			return fmt.Errorf("%w: polygon points contain invalid characters", ErrUnsafe)
		}
	}
	return nil
}
