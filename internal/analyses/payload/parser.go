package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoStructureFound   = errors.New("no structure found")
	ErrMalformedStructure = errors.New("malformed structure")
)

// ParseError reports why no payload could be recovered. Kind is one of the
// sentinel errors above and is what errors.Is matches.
type ParseError struct {
	Kind   error
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v at offset %d: %v", e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Parsed is the object recovered from model output. Raw is the canonical
// encoding of Tree so every later stage reads the same data.
type Parsed struct {
	Tree Value
	Raw  []byte
}

// Parse strips code fences, isolates the first balanced object and decodes it.
func Parse(raw string) (Parsed, error) {
	candidate, offset, err := extract(raw)
	if err != nil {
		return Parsed{}, err
	}

	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Parsed{}, &ParseError{Kind: ErrMalformedStructure, Offset: offset, Err: err}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return Parsed{}, &ParseError{Kind: ErrMalformedStructure, Offset: offset, Err: errors.New("top level is not an object")}
	}
	tree := FromAny(obj)
	canonical, err := json.Marshal(tree)
	if err != nil {
		return Parsed{}, &ParseError{Kind: ErrMalformedStructure, Offset: offset, Err: err}
	}
	return Parsed{Tree: tree, Raw: canonical}, nil
}

// ExtractObject returns the substring spanning the first balanced {...}.
func ExtractObject(raw string) (string, error) {
	s, _, err := extract(raw)
	return s, err
}

func extract(raw string) (string, int, error) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", 0, &ParseError{Kind: ErrNoStructureFound}
	}
	end := matchBrace(s, start)
	if end < 0 {
		return "", start, &ParseError{Kind: ErrMalformedStructure, Offset: start, Err: errors.New("unbalanced braces")}
	}
	return s[start : end+1], start, nil
}

// stripFences removes a markdown fence opening the text (with its info string,
// e.g. ```json) and a fence closing it. Fences elsewhere are left for the
// brace scan to skip.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimLeft(s[3:], "jsonJSON")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return s
}

type scanState uint8

const (
	scanCode scanState = iota
	scanString
	scanEscape
)

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
// Braces inside string literals do not count.
func matchBrace(s string, start int) int {
	depth := 0
	state := scanCode
	for i := start; i < len(s); i++ {
		c := s[i]
		switch state {
		case scanEscape:
			state = scanString
		case scanString:
			switch c {
			case '\\':
				state = scanEscape
			case '"':
				state = scanCode
			}
		case scanCode:
			switch c {
			case '"':
				state = scanString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}
