package analyses

import (
	"time"

	"resume-roaster/internal/analyses/payload"
	"resume-roaster/internal/security"
	"resume-roaster/internal/settings"
)

// RawText is the normalized résumé as it entered the pipeline.
type RawText struct {
	Content        string `json:"-"`
	Length         int    `json:"length"`
	MaliciousScore int    `json:"maliciousScore"`
}

// FileMeta describes the uploaded document, when there was one.
type FileMeta struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type Improvement struct {
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// Counters are derived from the final record, never from model output.
type Counters struct {
	Skills         int `json:"skills"`
	Experience     int `json:"experience"`
	Education      int `json:"education"`
	Projects       int `json:"projects"`
	Certifications int `json:"certifications"`
	Strengths      int `json:"strengths"`
	Weaknesses     int `json:"weaknesses"`
	Improvements   int `json:"improvements"`
	Words          int `json:"words"`
	Characters     int `json:"characters"`
}

// Record is a completed analysis. It is only ever produced by Assembler and
// is either stored whole or not at all.
type Record struct {
	RequestID   string                  `json:"requestId"`
	ResumeID    string                  `json:"resumeId"`
	ContentHash string                  `json:"contentHash"`
	Config      settings.AnalysisConfig `json:"config"`
	Coercions   []settings.Coercion     `json:"coercions,omitempty"`
	File        FileMeta                `json:"file"`
	Text        RawText                 `json:"text"`

	Feedback      string        `json:"feedback"`
	Summary       string        `json:"summary,omitempty"`
	Score         int           `json:"score"`
	Strengths     []string      `json:"strengths"`
	Weaknesses    []string      `json:"weaknesses"`
	Improvements  []Improvement `json:"improvements"`
	ExtractedInfo payload.Value `json:"extractedInfo"`
	Analytics     payload.Value `json:"analytics"`

	// HeuristicFields lists extractedInfo fields filled in from local
	// extraction because the model left them empty.
	HeuristicFields []string            `json:"heuristicFields,omitempty"`
	Counters        Counters            `json:"counters"`
	Security        security.Assessment `json:"security"`

	Provider      string `json:"provider"`
	Model         string `json:"model,omitempty"`
	PromptHash    string `json:"promptHash"`
	InputRetained int    `json:"inputRetained"`
	Attempts      int    `json:"attempts"`

	ReceivedAt  time.Time `json:"receivedAt"`
	CompletedAt time.Time `json:"completedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Tree rebuilds the payload-shaped view of the record's model-derived fields.
func (r Record) Tree() payload.Value {
	improvements := make([]payload.Value, 0, len(r.Improvements))
	for _, imp := range r.Improvements {
		fields := map[string]payload.Value{
			"priority":    payload.String(imp.Priority),
			"title":       payload.String(imp.Title),
			"description": payload.String(imp.Description),
		}
		if imp.Example != "" {
			fields["example"] = payload.String(imp.Example)
		}
		improvements = append(improvements, payload.Object(fields))
	}
	fields := map[string]payload.Value{
		"feedback":      payload.String(r.Feedback),
		"score":         payload.Number(float64(r.Score)),
		"strengths":     stringList(r.Strengths),
		"weaknesses":    stringList(r.Weaknesses),
		"improvements":  payload.List(improvements...),
		"extractedInfo": r.ExtractedInfo,
		"analytics":     r.Analytics,
	}
	if r.Summary != "" {
		fields["summary"] = payload.String(r.Summary)
	}
	return payload.Object(fields)
}

func stringList(items []string) payload.Value {
	out := make([]payload.Value, 0, len(items))
	for _, s := range items {
		out = append(out, payload.String(s))
	}
	return payload.List(out...)
}
