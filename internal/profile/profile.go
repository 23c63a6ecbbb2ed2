// Package profile parses the XML profile documents an IPC client hands to
// load_profile: an optional prologue, an ordered sequence of per-control
// handler bodies, and an optional epilogue (spec §4.F/§6). No third-party
// XML library exists anywhere in the retrieved corpus (see DESIGN.md), so
// this is one of the few places the daemon reaches for the standard
// library instead of an ecosystem package.
package profile

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/jsprogd/jsprogd/internal/registry"
)

// document is the raw XML shape:
//
//	<profile name="...">
//	  <prologue>...</prologue>
//	  <control type="key" code="BTN_TRIGGER">press_key(KEY_G)</control>
//	  <control type="axis" code="ABS_X">move_rel(REL_X, value)</control>
//	  <epilogue>...</epilogue>
//	</profile>
type document struct {
	XMLName  xml.Name       `xml:"profile"`
	Name     string         `xml:"name,attr"`
	Prologue string         `xml:"prologue"`
	Controls []controlEntry `xml:"control"`
	Epilogue string         `xml:"epilogue"`
}

type controlEntry struct {
	Type string `xml:"type,attr"`
	Code string `xml:"code,attr"`
	Body string `xml:",chardata"`
}

// Binding is one resolved control-body pair, ready to hand to a session's
// LoadProfile.
type Binding struct {
	Type registry.ControlType
	Code uint16
	Body string
}

// Profile is a fully parsed and resolved document.
type Profile struct {
	Name     string
	Prologue string
	Bindings []Binding
	Epilogue string
}

// Parse decodes and resolves an XML profile document. Every <control>'s
// code may be a symbolic name (KEY_A, ABS_X, ...) or a numeric literal
// (decimal or 0x-prefixed hex); an unresolvable code or type is reported
// with the offending entry's index, matching load_profile's "false on
// malformed XML" contract at the caller.
func Parse(xmlDoc []byte) (*Profile, error) {
	var doc document
	if err := xml.Unmarshal(xmlDoc, &doc); err != nil {
		return nil, fmt.Errorf("parse profile xml: %w", err)
	}

	p := &Profile{
		Name:     doc.Name,
		Prologue: strings.TrimSpace(doc.Prologue),
		Epilogue: strings.TrimSpace(doc.Epilogue),
	}

	for i, c := range doc.Controls {
		typ, code, err := resolveControl(c.Type, c.Code)
		if err != nil {
			return nil, fmt.Errorf("control entry %d: %w", i, err)
		}
		p.Bindings = append(p.Bindings, Binding{Type: typ, Code: code, Body: strings.TrimSpace(c.Body)})
	}

	return p, nil
}

func resolveControl(rawType, rawCode string) (registry.ControlType, uint16, error) {
	var typ registry.ControlType
	switch strings.ToLower(rawType) {
	case "key":
		typ = registry.Key
	case "axis":
		typ = registry.Axis
	default:
		return 0, 0, fmt.Errorf("unknown control type %q", rawType)
	}

	if code, err := parseNumericCode(rawCode); err == nil {
		return typ, code, nil
	}

	var code uint16
	var ok bool
	if typ == registry.Key {
		code, ok = registry.KeyFromName(rawCode)
	} else {
		code, ok = registry.AxisFromName(rawCode)
	}
	if !ok {
		return 0, 0, fmt.Errorf("unrecognized control code %q", rawCode)
	}
	return typ, code, nil
}

func parseNumericCode(raw string) (uint16, error) {
	base := 10
	s := raw
	if strings.HasPrefix(strings.ToLower(raw), "0x") {
		base = 16
		s = raw[2:]
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
