package payload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrSchemaViolation is matched by every *ValidationError.
var ErrSchemaViolation = errors.New("schema violation")

// Validation codes, one per failed rule.
const (
	CodeMissingFeedback            = "MISSING_FEEDBACK"
	CodeMissingScore               = "MISSING_SCORE"
	CodeMissingStrengths           = "MISSING_STRENGTHS"
	CodeMissingWeaknesses          = "MISSING_WEAKNESSES"
	CodeMissingImprovements        = "MISSING_IMPROVEMENTS"
	CodeFeedbackEmpty              = "FEEDBACK_EMPTY"
	CodeScoreNotNumeric            = "SCORE_NOT_NUMERIC"
	CodeScoreOutOfRange            = "SCORE_OUT_OF_RANGE"
	CodeStrengthsNotList           = "STRENGTHS_NOT_LIST"
	CodeStrengthsEmpty             = "STRENGTHS_EMPTY"
	CodeWeaknessesNotList          = "WEAKNESSES_NOT_LIST"
	CodeWeaknessesEmpty            = "WEAKNESSES_EMPTY"
	CodeImprovementsNotList        = "IMPROVEMENTS_NOT_LIST"
	CodeImprovementsEmpty          = "IMPROVEMENTS_EMPTY"
	CodeImprovementNotObject       = "IMPROVEMENT_NOT_OBJECT"
	CodeImprovementInvalidPriority = "IMPROVEMENT_INVALID_PRIORITY"
	CodeImprovementMissingTitle    = "IMPROVEMENT_MISSING_TITLE"
	CodeImprovementMissingDesc     = "IMPROVEMENT_MISSING_DESCRIPTION"
	CodeExtractedInfoNotObject     = "EXTRACTED_INFO_NOT_OBJECT"
	CodeAnalyticsNotObject         = "ANALYTICS_NOT_OBJECT"
)

// ValidationError names the single rule a payload failed.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrSchemaViolation }

// Validated is a payload that passed every check. It is not yet bounded.
type Validated struct {
	Tree Value
}

var required = []struct {
	field string
	code  string
}{
	{"feedback", CodeMissingFeedback},
	{"score", CodeMissingScore},
	{"strengths", CodeMissingStrengths},
	{"weaknesses", CodeMissingWeaknesses},
	{"improvements", CodeMissingImprovements},
}

// Validate runs the ordered checks and stops at the first failure. Optional
// sub-objects may be absent or null but must be objects when given.
func Validate(p Parsed) (Validated, error) {
	doc := gjson.ParseBytes(p.Raw)
	if !doc.IsObject() {
		return Validated{}, invalid(CodeMissingFeedback, "feedback", "payload is not an object")
	}

	for _, r := range required {
		if !present(doc.Get(r.field)) {
			return Validated{}, invalid(r.code, r.field, "required field is missing")
		}
	}

	if fb := doc.Get("feedback"); fb.Type != gjson.String || !Visible(fb.Str) {
		return Validated{}, invalid(CodeFeedbackEmpty, "feedback", "feedback must be non-empty text")
	}

	sc := doc.Get("score")
	if sc.Type != gjson.Number {
		return Validated{}, invalid(CodeScoreNotNumeric, "score", "score must be a number")
	}
	if sc.Num < 0 || sc.Num > 100 {
		return Validated{}, invalid(CodeScoreOutOfRange, "score", fmt.Sprintf("score %v outside [0, 100]", sc.Num))
	}

	if err := textList(doc, "strengths", CodeStrengthsNotList, CodeStrengthsEmpty); err != nil {
		return Validated{}, err
	}
	if err := textList(doc, "weaknesses", CodeWeaknessesNotList, CodeWeaknessesEmpty); err != nil {
		return Validated{}, err
	}
	if err := improvements(doc.Get("improvements")); err != nil {
		return Validated{}, err
	}

	if ei := doc.Get("extractedInfo"); present(ei) && !ei.IsObject() {
		return Validated{}, invalid(CodeExtractedInfoNotObject, "extractedInfo", "extractedInfo must be an object")
	}
	if an := doc.Get("analytics"); present(an) && !an.IsObject() {
		return Validated{}, invalid(CodeAnalyticsNotObject, "analytics", "analytics must be an object")
	}
	return Validated{Tree: p.Tree}, nil
}

func textList(doc gjson.Result, field, notList, empty string) error {
	r := doc.Get(field)
	if !r.IsArray() {
		return invalid(notList, field, field+" must be a list")
	}
	for _, it := range r.Array() {
		if it.Type == gjson.String && Visible(it.Str) {
			return nil
		}
	}
	return invalid(empty, field, field+" must contain at least one entry")
}

func improvements(r gjson.Result) error {
	if !r.IsArray() {
		return invalid(CodeImprovementsNotList, "improvements", "improvements must be a list")
	}
	items := r.Array()
	if len(items) == 0 {
		return invalid(CodeImprovementsEmpty, "improvements", "improvements must contain at least one entry")
	}
	for i, it := range items {
		field := fmt.Sprintf("improvements[%d]", i)
		if !it.IsObject() {
			return invalid(CodeImprovementNotObject, field, "improvement must be an object")
		}
		if p := it.Get("priority"); p.Type != gjson.String || !inSet(p.Str, Priorities) {
			return invalid(CodeImprovementInvalidPriority, field+".priority", "priority must be high, medium or low")
		}
		if t := it.Get("title"); t.Type != gjson.String || !Visible(t.Str) {
			return invalid(CodeImprovementMissingTitle, field+".title", "improvement needs a title")
		}
		if d := it.Get("description"); d.Type != gjson.String || !Visible(d.Str) {
			return invalid(CodeImprovementMissingDesc, field+".description", "improvement needs a description")
		}
	}
	return nil
}

func present(r gjson.Result) bool {
	return r.Exists() && r.Type != gjson.Null
}

func inSet(s string, set []string) bool {
	folded := strings.ToLower(strings.TrimSpace(s))
	for _, v := range set {
		if folded == v {
			return true
		}
	}
	return false
}

func invalid(code, field, msg string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: msg}
}
