package security

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-roaster/internal/settings"
)

// Decision is the screener's verdict for a request.
type Decision string

const (
	Allow Decision = "allow"
	Warn  Decision = "warn"
	Block Decision = "block"
)

// Flags attached to an assessment.
const (
	FlagPromptInjection = "prompt_injection"
	FlagScriptToken     = "script_token"
	FlagSymbolRatio     = "symbol_ratio"
	flagInvalidConfig   = "invalid_config:"
)

// Weights and thresholds.
const (
	WeightInjection     = 30
	WeightScriptToken   = 15
	WeightSymbolRatio   = 20
	WeightInvalidConfig = 10

	DefaultWarnThreshold  = 20
	DefaultBlockThreshold = 50

	symbolRatioLimit    = 0.30
	symbolRatioMinRunes = 200
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:the\s+)?(?:previous|prior|above)\s+(?:instructions|prompts?|rules)`),
	regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:the\s+)?(?:previous|prior|above|your)\s+(?:instructions|prompts?|rules)`),
	regexp.MustCompile(`(?i)forget\s+(?:all\s+)?(?:your|the|previous)\s+(?:instructions|rules)`),
	regexp.MustCompile(`(?i)pretend\s+(?:to\s+be|you\s+are)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:in\s+\w+\s+mode|(?:an?\s+)?(?:(?:unrestricted|unfiltered|different|new)\s+)?(?:ai|assistant|chatbot|language\s+model)\b)`),
	regexp.MustCompile(`(?i)act\s+as\s+(?:if\s+you\s+(?:are|were)\b|an?\s+(?:ai|chatbot|language\s+model)\b|(?:my|your)\s+(?:ai|assistant|chatbot)\b)`),
	regexp.MustCompile(`(?i)(?:reveal|print|show)\s+(?:me\s+)?(?:your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)new\s+instructions\s*:`),
	regexp.MustCompile(`(?i)(?:^|\n)\s*(?:system|assistant)\s*:`),
	regexp.MustCompile(`(?i)give\s+(?:me|this\s+r[ée]sum[ée])\s+a\s+(?:score|rating)\s+of\s+100`),
}

var scriptTokens = []string{
	"<script", "javascript:", "eval(", "onclick", "onerror", "onload", "document.cookie", "<iframe", "vbscript:",
}

// Assessment is the outcome of screening one request.
type Assessment struct {
	Score    int      `json:"score"`
	Flags    []string `json:"flags,omitempty"`
	Decision Decision `json:"decision"`
}

// Thresholds configure the decision policy. Scores at or above Block are
// rejected, at or above Warn are allowed but flagged.
type Thresholds struct {
	Warn  int
	Block int
}

// Screener scores input for prompt injection and other malicious patterns.
// It holds no per-call state and is safe for concurrent use.
type Screener struct {
	thresholds Thresholds
}

func NewScreener(t Thresholds) *Screener {
	if t.Block <= 0 {
		t.Block = DefaultBlockThreshold
	}
	if t.Warn <= 0 || t.Warn > t.Block {
		t.Warn = min(DefaultWarnThreshold, t.Block)
	}
	return &Screener{thresholds: t}
}

// Assess scores normalized text together with the configuration exactly as
// the caller submitted it.
func (s *Screener) Assess(text string, raw settings.Raw) Assessment {
	var a Assessment
	add := func(weight int, flag string) {
		a.Score += weight
		for _, f := range a.Flags {
			if f == flag {
				return
			}
		}
		a.Flags = append(a.Flags, flag)
	}

	for _, re := range injectionPatterns {
		for range re.FindAllStringIndex(text, -1) {
			add(WeightInjection, FlagPromptInjection)
		}
	}

	lower := strings.ToLower(text)
	for _, tok := range scriptTokens {
		for n := strings.Count(lower, tok); n > 0; n-- {
			add(WeightScriptToken, FlagScriptToken)
		}
	}

	if symbolRatio(text) > symbolRatioLimit {
		add(WeightSymbolRatio, FlagSymbolRatio)
	}

	for _, field := range raw.Invalid() {
		add(WeightInvalidConfig, flagInvalidConfig+field)
	}

	switch {
	case a.Score >= s.thresholds.Block:
		a.Decision = Block
	case a.Score >= s.thresholds.Warn:
		a.Decision = Warn
	default:
		a.Decision = Allow
	}
	return a
}

// symbolRatio is the share of non-alphanumeric, non-space runes. Short texts
// report zero since a handful of punctuation would dominate them.
func symbolRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total < symbolRatioMinRunes {
		return 0
	}
	symbols := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		symbols++
	}
	return float64(symbols) / float64(total)
}
