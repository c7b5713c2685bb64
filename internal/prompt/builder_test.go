package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-roaster/internal/settings"
)

func newTestBuilder(t *testing.T, max int) *Builder {
	t.Helper()
	b, err := NewBuilder(max)
	require.NoError(t, err)
	return b
}

func TestBuildEveryMatrixCell(t *testing.T) {
	b := newTestBuilder(t, 0)
	assert.Equal(t, DefaultMaxInput, b.MaxInput())
	seen := map[string]bool{}
	for _, tone := range settings.Tones {
		for _, lang := range settings.Languages {
			cfg := settings.AnalysisConfig{Tone: tone, Language: lang, Style: settings.StyleFunny, Audience: settings.AudienceOther}
			p := b.Build("Jane Doe\nBackend engineer.", cfg)
			reg := b.matrix[matrixKey{tone: tone, language: lang}]
			require.NotEmpty(t, reg.Greeting, "tone=%s language=%s", tone, lang)
			assert.True(t, strings.HasPrefix(p.Text, reg.Greeting))
			assert.Contains(t, p.Text, reg.Descriptor)
			assert.Len(t, p.Hash, 64)
			assert.False(t, seen[p.Hash], "duplicate prompt for tone=%s language=%s", tone, lang)
			seen[p.Hash] = true
		}
	}
}

func TestBuildContents(t *testing.T) {
	b := newTestBuilder(t, 0)
	cfg := settings.AnalysisConfig{Tone: settings.ToneBrutal, Language: settings.LanguageFrench, Style: settings.StyleSarcastic, Audience: settings.AudienceFemale}
	p := b.Build("Jane Doe\nGo developer", cfg)

	assert.Contains(t, p.Text, "Jane Doe\nGo developer")
	assert.Contains(t, p.Text, "French")
	assert.Contains(t, p.Text, b.styles[settings.StyleSarcastic])
	assert.Contains(t, p.Text, b.audiences[settings.AudienceFemale])
	assert.Contains(t, p.Text, `"improvements"`)
	assert.Contains(t, p.Text, "Do not wrap the output in markdown code fences.")
	assert.Equal(t, 100, p.Retained)
	assert.False(t, p.Truncated())

	again := b.Build("Jane Doe\nGo developer", cfg)
	assert.Equal(t, p.Hash, again.Hash)
}

func TestBuildTruncatesLongInput(t *testing.T) {
	b := newTestBuilder(t, 100)
	p := b.Build(strings.Repeat("a", 400), settings.Default())
	assert.True(t, p.Truncated())
	assert.Equal(t, 25, p.Retained)
	assert.Contains(t, p.Text, "[... résumé truncated: 25% of the original text retained]")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		limit    int
		want     string
		retained int
	}{
		{
			name:     "fits",
			text:     "short text",
			limit:    100,
			want:     "short text",
			retained: 100,
		},
		{
			name:     "paragraph break preferred",
			text:     strings.Repeat("p", 60) + "\n\nSecond paragraph. With sentences here\nand lines " + strings.Repeat("z", 100),
			limit:    100,
			want:     strings.Repeat("p", 60),
			retained: 60 * 100 / 210,
		},
		{
			name:     "sentence below half falls through to line break",
			text:     "Sentence one is here. Then more words\nand a line" + strings.Repeat("x", 100),
			limit:    50,
			want:     "Sentence one is here. Then more words",
			retained: 37 * 100 / 148,
		},
		{
			name:     "word boundary",
			text:     strings.Repeat("word ", 30),
			limit:    52,
			want:     strings.TrimSpace(strings.Repeat("word ", 10)),
			retained: 49 * 100 / 150,
		},
		{
			name:     "hard cut",
			text:     strings.Repeat("a", 200),
			limit:    100,
			want:     strings.Repeat("a", 100),
			retained: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, retained := Truncate(tt.text, tt.limit)
			assert.Equal(t, tt.retained, retained)
			if tt.retained == 100 {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.want+"\n\n[... résumé truncated: "), "got %q", got)
		})
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 80)
	got, retained := Truncate(text, 100)
	assert.Equal(t, text, got)
	assert.Equal(t, 100, retained)
}
