package settings

import (
	"strings"
)

type Tone string

const (
	ToneMild     Tone = "mild"
	ToneBalanced Tone = "balanced"
	ToneBrutal   Tone = "brutal"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
	LanguageFrench  Language = "fr"
)

type Style string

const (
	StyleFunny        Style = "funny"
	StyleSerious      Style = "serious"
	StyleSarcastic    Style = "sarcastic"
	StyleMotivational Style = "motivational"
)

type Audience string

const (
	AudienceMale   Audience = "male"
	AudienceFemale Audience = "female"
	AudienceOther  Audience = "other"
)

// Defaults used when a submitted value is missing or outside its set.
const (
	DefaultTone     = ToneBalanced
	DefaultLanguage = LanguageEnglish
	DefaultStyle    = StyleFunny
	DefaultAudience = AudienceOther
)

var (
	Tones     = []Tone{ToneMild, ToneBalanced, ToneBrutal}
	Languages = []Language{LanguageEnglish, LanguageSpanish, LanguageFrench}
	Styles    = []Style{StyleFunny, StyleSerious, StyleSarcastic, StyleMotivational}
	Audiences = []Audience{AudienceMale, AudienceFemale, AudienceOther}
)

// Raw is the configuration exactly as the caller submitted it.
type Raw struct {
	Tone     string `json:"tone" form:"tone"`
	Language string `json:"language" form:"language"`
	Style    string `json:"style" form:"style"`
	Audience string `json:"audience" form:"audience"`
}

// AnalysisConfig is a resolved configuration; every field is inside its set.
type AnalysisConfig struct {
	Tone     Tone     `json:"tone"`
	Language Language `json:"language"`
	Style    Style    `json:"style"`
	Audience Audience `json:"audience"`
}

// Coercion records a submitted value that was replaced by a default.
type Coercion struct {
	Field string `json:"field"`
	Given string `json:"given"`
	Used  string `json:"used"`
}

// Default returns the configuration used when nothing is submitted.
func Default() AnalysisConfig {
	return AnalysisConfig{
		Tone:     DefaultTone,
		Language: DefaultLanguage,
		Style:    DefaultStyle,
		Audience: DefaultAudience,
	}
}

// Resolve maps raw values onto their enumerations. Empty values silently take the
// default; non-empty values outside the set are coerced and reported.
func Resolve(raw Raw) (AnalysisConfig, []Coercion) {
	var coercions []Coercion
	cfg := AnalysisConfig{
		Tone:     resolveOne(raw.Tone, Tones, DefaultTone, "tone", &coercions),
		Language: resolveOne(raw.Language, Languages, DefaultLanguage, "language", &coercions),
		Style:    resolveOne(raw.Style, Styles, DefaultStyle, "style", &coercions),
		Audience: resolveOne(raw.Audience, Audiences, DefaultAudience, "audience", &coercions),
	}
	return cfg, coercions
}

// Invalid lists the fields whose non-empty value is outside the declared set.
func (r Raw) Invalid() []string {
	var fields []string
	if !validOrEmpty(r.Tone, Tones) {
		fields = append(fields, "tone")
	}
	if !validOrEmpty(r.Language, Languages) {
		fields = append(fields, "language")
	}
	if !validOrEmpty(r.Style, Styles) {
		fields = append(fields, "style")
	}
	if !validOrEmpty(r.Audience, Audiences) {
		fields = append(fields, "audience")
	}
	return fields
}

func resolveOne[T ~string](given string, set []T, def T, field string, coercions *[]Coercion) T {
	clean := canonical(given)
	if clean == "" {
		return def
	}
	for _, v := range set {
		if string(v) == clean {
			return v
		}
	}
	*coercions = append(*coercions, Coercion{Field: field, Given: truncate(given, 40), Used: string(def)})
	return def
}

func validOrEmpty[T ~string](given string, set []T) bool {
	clean := canonical(given)
	if clean == "" {
		return true
	}
	for _, v := range set {
		if string(v) == clean {
			return true
		}
	}
	return false
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
