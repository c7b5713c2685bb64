package payload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFencedOutputWithBracesInStrings(t *testing.T) {
	raw := "```json\n{\"a\": \"text with { and } inside\", \"b\": 1}\n```"
	p, err := Parse(raw)
	require.NoError(t, err)

	a, ok := p.Tree.Get("a")
	require.True(t, ok)
	assert.Equal(t, "text with { and } inside", a.Str())
	b, _ := p.Tree.Get("b")
	assert.Equal(t, 1.0, b.Num())
	assert.JSONEq(t, `{"a":"text with { and } inside","b":1}`, string(p.Raw))
}

func TestParseSkipsSurroundingProse(t *testing.T) {
	raw := "Sure! Here is the roast:\n{\"feedback\": \"ok\", \"nested\": {\"q\": \"\\\"}\\\"\"}} hope it helps {not json}"
	p, err := Parse(raw)
	require.NoError(t, err)
	nested, ok := p.Tree.Get("nested")
	require.True(t, ok)
	q, _ := nested.Get("q")
	assert.Equal(t, `"}"`, q.Str())
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: ErrNoStructureFound},
		{name: "prose only", raw: "I cannot roast this résumé.", want: ErrNoStructureFound},
		{name: "unbalanced", raw: `{"feedback": "cut off`, want: ErrMalformedStructure},
		{name: "unclosed object", raw: `{"a": {"b": 1}`, want: ErrMalformedStructure},
		{name: "invalid json", raw: `{feedback: 'single quotes'}`, want: ErrMalformedStructure},
		{name: "trailing comma", raw: "```\n{\"a\": 1,}\n```", want: ErrMalformedStructure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParseOverflowingNumberBecomesNull(t *testing.T) {
	p, err := Parse(`{"score": 1e999}`)
	require.NoError(t, err)
	s, ok := p.Tree.Get("score")
	require.True(t, ok)
	assert.True(t, s.IsNull())
	assert.JSONEq(t, `{"score":null}`, string(p.Raw))
}

func TestExtractObject(t *testing.T) {
	s, err := ExtractObject("prefix {\"x\": [1, {\"y\": 2}]} suffix")
	require.NoError(t, err)
	assert.Equal(t, `{"x": [1, {"y": 2}]}`, s)
}
