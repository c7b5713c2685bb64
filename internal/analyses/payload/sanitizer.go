package payload

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize bounds a payload tree against Schema. See SanitizeWith.
func Sanitize(v Value) Value {
	out, ok := SanitizeWith(v, Schema)
	if !ok {
		return Object(nil)
	}
	return out
}

// SanitizeWith folds v against r. Strings lose control characters (newlines
// stay), get angle brackets neutralized, are trimmed and cut to MaxLen. Lists
// drop wrong-kind and empty items, then are capped. Objects keep only known
// fields of the right kind. Enums are case-folded and must be in the set.
// Numbers are clamped and optionally rounded. The second result is false when
// v itself must be dropped. Applying SanitizeWith to its own output returns
// the same tree.
func SanitizeWith(v Value, r *Rule) (Value, bool) {
	if v.Kind() != r.Kind {
		return Value{}, false
	}
	switch r.Kind {
	case KindString:
		if len(r.Enum) > 0 {
			return sanitizeEnum(v.Str(), r.Enum)
		}
		return String(CleanText(v.Str(), r.MaxLen)), true
	case KindNumber:
		f := v.Num()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, false
		}
		if r.Integer {
			f = math.Round(f)
		}
		return Number(math.Min(math.Max(f, r.Min), r.Max)), true
	case KindList:
		items := make([]Value, 0, min(len(v.Items()), r.MaxItems))
		for _, it := range v.Items() {
			if len(items) == r.MaxItems {
				break
			}
			clean, ok := SanitizeWith(it, r.Item)
			if !ok || clean.Empty() {
				continue
			}
			items = append(items, clean)
		}
		return List(items...), true
	case KindObject:
		fields := make(map[string]Value, len(r.Fields))
		for name, fr := range r.Fields {
			f, present := v.Get(name)
			if !present {
				continue
			}
			if clean, ok := SanitizeWith(f, fr); ok {
				fields[name] = clean
			}
		}
		return Object(fields), true
	}
	return v, true
}

func sanitizeEnum(s string, set []string) (Value, bool) {
	folded := strings.ToLower(strings.TrimSpace(s))
	for _, allowed := range set {
		if folded == allowed {
			return String(allowed), true
		}
	}
	return Value{}, false
}

// CleanText applies the string leaf transform. maxLen <= 0 means unbounded.
func CleanText(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteByte(' ')
		case unicode.IsControl(r) || r == utf8.RuneError:
			continue
		case r == '<':
			b.WriteRune('‹')
		case r == '>':
			b.WriteRune('›')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		out = strings.TrimSpace(string([]rune(out)[:maxLen]))
	}
	return out
}

// Visible reports whether s has any text left after cleaning.
func Visible(s string) bool {
	return CleanText(s, 0) != ""
}

// ErrOutOfBounds is matched by every *BoundError.
var ErrOutOfBounds = errors.New("value out of bounds")

// BoundError names the first node of a tree that breaks its rule.
type BoundError struct {
	Path   string
	Reason string
}

func (e *BoundError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Reason) }

func (e *BoundError) Is(target error) bool { return target == ErrOutOfBounds }

// Conforms checks a whole payload against Schema.
func Conforms(v Value) error {
	return ConformsTo(v, Schema, "$")
}

// ConformsTo reports the first violation of r in v, or nil.
func ConformsTo(v Value, r *Rule, path string) error {
	if v.Kind() != r.Kind {
		return &BoundError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", r.Kind, v.Kind())}
	}
	switch r.Kind {
	case KindString:
		s := v.Str()
		if len(r.Enum) > 0 {
			for _, allowed := range r.Enum {
				if s == allowed {
					return nil
				}
			}
			return &BoundError{Path: path, Reason: fmt.Sprintf("%q not in %v", s, r.Enum)}
		}
		if r.MaxLen > 0 && utf8.RuneCountInString(s) > r.MaxLen {
			return &BoundError{Path: path, Reason: fmt.Sprintf("length %d exceeds %d", utf8.RuneCountInString(s), r.MaxLen)}
		}
		if CleanText(s, 0) != s {
			return &BoundError{Path: path, Reason: "unsanitized characters"}
		}
	case KindNumber:
		f := v.Num()
		if math.IsNaN(f) || f < r.Min || f > r.Max {
			return &BoundError{Path: path, Reason: fmt.Sprintf("%v outside [%v, %v]", f, r.Min, r.Max)}
		}
		if r.Integer && f != math.Trunc(f) {
			return &BoundError{Path: path, Reason: fmt.Sprintf("%v is not an integer", f)}
		}
	case KindList:
		if len(v.Items()) > r.MaxItems {
			return &BoundError{Path: path, Reason: fmt.Sprintf("%d items exceed %d", len(v.Items()), r.MaxItems)}
		}
		for i, it := range v.Items() {
			if err := ConformsTo(it, r.Item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case KindObject:
		for _, key := range v.Keys() {
			fr, known := r.Fields[key]
			if !known {
				return &BoundError{Path: path + "." + key, Reason: "unknown field"}
			}
			f, _ := v.Get(key)
			if err := ConformsTo(f, fr, path+"."+key); err != nil {
				return err
			}
		}
	}
	return nil
}
