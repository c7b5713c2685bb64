package payload

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messyPayload = `{
	"feedback": "  <b>Roast</b>\u0007 time\twith tabs\n  ",
	"summary": 42,
	"score": 87.6,
	"strengths": ["", "Good", "   ", 7, "<script>alert(1)</script>", "a", "b", "c", "d", "e", "f", "g", "h", "i"],
	"weaknesses": ["Too long"],
	"improvements": [
		{"priority": "HIGH", "title": "Numbers", "description": "Add them", "bonus": true},
		{"priority": "someday", "title": "Drop", "description": "me"},
		"not an object",
		{}
	],
	"extractedInfo": {
		"name": "Jane",
		"skills": ["Go", "", "Go"],
		"experience": [{"title": "Dev", "salary": 10}, {"salary": 10}]
	},
	"analytics": {
		"experienceLevel": "Senior",
		"atsCompatibility": 180,
		"readability": -4,
		"sectionScores": {"skills": 55.5, "hobbies": 10}
	},
	"model": "gpt"
}`

func messyTree(t *testing.T) Value {
	t.Helper()
	var v Value
	require.NoError(t, json.Unmarshal([]byte(messyPayload), &v))
	return v
}

func TestSanitizeBoundsMessyTree(t *testing.T) {
	out := Sanitize(messyTree(t))

	fb, _ := out.Get("feedback")
	assert.Equal(t, "‹b›Roast‹/b› time with tabs", fb.Str())

	_, ok := out.Get("summary")
	assert.False(t, ok, "wrong kind is dropped")
	_, ok = out.Get("model")
	assert.False(t, ok, "unknown field is dropped")

	score, _ := out.Get("score")
	assert.Equal(t, 88.0, score.Num())

	strengths, _ := out.Get("strengths")
	require.Equal(t, MaxStrengths, strengths.Len())
	assert.Equal(t, "Good", strengths.Items()[0].Str())
	assert.Equal(t, "‹script›alert(1)‹/script›", strengths.Items()[1].Str())

	imps, _ := out.Get("improvements")
	require.Equal(t, 2, imps.Len())
	prio, _ := imps.Items()[0].Get("priority")
	assert.Equal(t, "high", prio.Str())
	_, ok = imps.Items()[0].Get("bonus")
	assert.False(t, ok)
	_, ok = imps.Items()[1].Get("priority")
	assert.False(t, ok, "unknown priority is dropped, the entry stays")

	info, _ := out.Get("extractedInfo")
	exp, _ := info.Get("experience")
	assert.Equal(t, 1, exp.Len())
	skills, _ := info.Get("skills")
	assert.Equal(t, 2, skills.Len())

	an, _ := out.Get("analytics")
	level, _ := an.Get("experienceLevel")
	assert.Equal(t, "senior", level.Str())
	ats, _ := an.Get("atsCompatibility")
	assert.Equal(t, 100.0, ats.Num())
	read, _ := an.Get("readability")
	assert.Equal(t, 0.0, read.Num())
	sections, _ := an.Get("sectionScores")
	assert.Equal(t, []string{"skills"}, sections.Keys())
}

func TestSanitizeIsIdempotent(t *testing.T) {
	once := Sanitize(messyTree(t))
	twice := Sanitize(once)
	assert.True(t, once.Equal(twice))

	a, err := json.Marshal(once)
	require.NoError(t, err)
	b, err := json.Marshal(twice)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSanitizedTreeConforms(t *testing.T) {
	in := messyTree(t)
	assert.ErrorIs(t, Conforms(in), ErrOutOfBounds)
	assert.NoError(t, Conforms(Sanitize(in)))
}

func TestSanitizeCutsLongText(t *testing.T) {
	long := strings.Repeat("é", MaxFeedback+100)
	out := Sanitize(Object(map[string]Value{"feedback": String(long)}))
	fb, _ := out.Get("feedback")
	assert.Equal(t, MaxFeedback, len([]rune(fb.Str())))
	assert.NoError(t, Conforms(out))
}

func TestSanitizeNonObjectFallsBackToEmpty(t *testing.T) {
	out := Sanitize(List(String("x")))
	assert.Equal(t, KindObject, out.Kind())
	assert.Zero(t, out.Len())
}

func TestSanitizeDropsNonFiniteNumbers(t *testing.T) {
	out, ok := SanitizeWith(Number(math.NaN()), score())
	assert.False(t, ok)
	assert.True(t, out.IsNull())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b", CleanText("\x00a\tb\r", 0))
	assert.Equal(t, "line1\nline2", CleanText("line1\nline2\n", 0))
	assert.Equal(t, "ab", CleanText("ab c", 3))
	assert.False(t, Visible("\x01 \t\r"))
	assert.True(t, Visible("x"))
}

func TestConformsReportsPath(t *testing.T) {
	v := Object(map[string]Value{
		"improvements": List(Object(map[string]Value{"priority": String("HIGH")})),
	})
	err := Conforms(v)
	var be *BoundError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "$.improvements[0].priority", be.Path)
}
