package analyses

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"resume-roaster/internal/analyses/payload"
	"resume-roaster/internal/heuristic"
	"resume-roaster/internal/prompt"
	"resume-roaster/internal/security"
	"resume-roaster/internal/settings"
	"resume-roaster/internal/shared/util"
	"resume-roaster/internal/text"
)

const DefaultRetentionDays = 30

// AssembleInput carries everything one successful run produced.
type AssembleInput struct {
	RequestID  string
	Text       string
	Config     settings.AnalysisConfig
	Coercions  []settings.Coercion
	File       FileMeta
	Payload    payload.Value // sanitized
	Heuristic  heuristic.Extraction
	Security   security.Assessment
	Prompt     prompt.Prompt
	Provider   string
	Model      string
	Attempts   int
	ReceivedAt time.Time
}

// Assembler merges a sanitized payload with locally extracted data into a
// Record and re-checks the record's invariants.
type Assembler struct {
	retention time.Duration
	now       func() time.Time
	newID     func() string
}

func NewAssembler(retentionDays int) *Assembler {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Assembler{
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Assemble builds the record. An error wraps ErrAssemblyInvariant and means an
// earlier stage let something through that it should not have.
func (a *Assembler) Assemble(in AssembleInput) (Record, error) {
	tree := in.Payload
	info, filled := mergeExtracted(objectField(tree, "extractedInfo"), heuristicInfo(in.Heuristic))

	received := in.ReceivedAt
	if received.IsZero() {
		received = a.now()
	}
	requestID := in.RequestID
	if requestID == "" {
		requestID = a.newID()
	}

	rec := Record{
		RequestID:   requestID,
		ResumeID:    a.newID(),
		ContentHash: util.ContentHash(in.Text),
		Config:      in.Config,
		Coercions:   in.Coercions,
		File:        in.File,
		Text: RawText{
			Content:        in.Text,
			Length:         text.Length(in.Text),
			MaliciousScore: in.Security.Score,
		},
		Feedback:        stringField(tree, "feedback"),
		Summary:         stringField(tree, "summary"),
		Score:           int(math.Round(numberField(tree, "score"))),
		Strengths:       stringItems(tree, "strengths"),
		Weaknesses:      stringItems(tree, "weaknesses"),
		Improvements:    improvementItems(tree),
		ExtractedInfo:   info,
		Analytics:       objectField(tree, "analytics"),
		HeuristicFields: filled,
		Security:        in.Security,
		Provider:        in.Provider,
		Model:           in.Model,
		PromptHash:      in.Prompt.Hash,
		InputRetained:   in.Prompt.Retained,
		Attempts:        in.Attempts,
		ReceivedAt:      received,
		CompletedAt:     a.now(),
		ExpiresAt:       received.Add(a.retention),
	}
	rec.Counters = countersFor(rec)

	if err := rec.Check(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Check re-verifies every record invariant.
func (r Record) Check() error {
	if err := payload.Conforms(r.Tree()); err != nil {
		return fmt.Errorf("%w: %v", ErrAssemblyInvariant, err)
	}
	switch {
	case r.Score < 0 || r.Score > 100:
		return fmt.Errorf("%w: score %d", ErrAssemblyInvariant, r.Score)
	case !payload.Visible(r.Feedback):
		return fmt.Errorf("%w: empty feedback", ErrAssemblyInvariant)
	case len(r.Strengths) == 0:
		return fmt.Errorf("%w: no strengths", ErrAssemblyInvariant)
	case len(r.Weaknesses) == 0:
		return fmt.Errorf("%w: no weaknesses", ErrAssemblyInvariant)
	case len(r.Improvements) == 0:
		return fmt.Errorf("%w: no improvements", ErrAssemblyInvariant)
	case r.ResumeID == "" || r.RequestID == "":
		return fmt.Errorf("%w: missing identifiers", ErrAssemblyInvariant)
	case r.Counters != countersFor(r):
		return fmt.Errorf("%w: counters do not match record", ErrAssemblyInvariant)
	}
	return nil
}

func countersFor(r Record) Counters {
	return Counters{
		Skills:         listLen(r.ExtractedInfo, "skills"),
		Experience:     listLen(r.ExtractedInfo, "experience"),
		Education:      listLen(r.ExtractedInfo, "education"),
		Projects:       listLen(r.ExtractedInfo, "projects"),
		Certifications: listLen(r.ExtractedInfo, "certifications"),
		Strengths:      len(r.Strengths),
		Weaknesses:     len(r.Weaknesses),
		Improvements:   len(r.Improvements),
		Words:          text.Words(r.Text.Content),
		Characters:     text.Length(r.Text.Content),
	}
}

// mergeExtracted fills fields the model left absent or empty with local
// extraction. Model values always win when present.
func mergeExtracted(model, local payload.Value) (payload.Value, []string) {
	merged := model
	var filled []string
	for _, key := range local.Keys() {
		if cur, ok := merged.Get(key); ok && !cur.Empty() {
			continue
		}
		v, _ := local.Get(key)
		if v.Empty() {
			continue
		}
		merged = merged.With(key, v)
		filled = append(filled, key)
	}
	return merged, filled
}

// heuristicInfo shapes an extraction like extractedInfo and bounds it with
// the same rules the model output went through.
func heuristicInfo(e heuristic.Extraction) payload.Value {
	fields := map[string]payload.Value{}
	setText := func(key, s string) {
		if s != "" {
			fields[key] = payload.String(s)
		}
	}
	setText("name", e.Name)
	setText("email", e.Email)
	setText("phone", e.Phone)
	if len(e.Links) > 0 {
		fields["links"] = stringList(e.Links)
	}
	if len(e.Skills) > 0 {
		fields["skills"] = stringList(e.Skills)
	}

	var experience []payload.Value
	for _, x := range e.Experience {
		experience = append(experience, compactObject(map[string]string{
			"title": x.Title, "company": x.Company, "duration": x.Duration,
		}))
	}
	var education []payload.Value
	for _, x := range e.Education {
		education = append(education, compactObject(map[string]string{
			"degree": x.Degree, "institution": x.Institution, "year": x.Year,
		}))
	}
	var projects []payload.Value
	for _, x := range e.Projects {
		p := compactObject(map[string]string{"name": x.Name})
		if len(x.Technologies) > 0 {
			p = p.With("technologies", stringList(x.Technologies))
		}
		projects = append(projects, p)
	}
	if len(experience) > 0 {
		fields["experience"] = payload.List(experience...)
	}
	if len(education) > 0 {
		fields["education"] = payload.List(education...)
	}
	if len(projects) > 0 {
		fields["projects"] = payload.List(projects...)
	}

	out, ok := payload.SanitizeWith(payload.Object(fields), payload.ExtractedInfoRule)
	if !ok {
		return payload.Object(nil)
	}
	return out
}

func compactObject(m map[string]string) payload.Value {
	fields := make(map[string]payload.Value, len(m))
	for k, v := range m {
		if v != "" {
			fields[k] = payload.String(v)
		}
	}
	return payload.Object(fields)
}

func objectField(v payload.Value, key string) payload.Value {
	if f, ok := v.Get(key); ok && f.Kind() == payload.KindObject {
		return f
	}
	return payload.Object(nil)
}

func stringField(v payload.Value, key string) string {
	f, _ := v.Get(key)
	return f.Str()
}

func numberField(v payload.Value, key string) float64 {
	f, _ := v.Get(key)
	return f.Num()
}

func stringItems(v payload.Value, key string) []string {
	f, _ := v.Get(key)
	out := make([]string, 0, f.Len())
	for _, it := range f.Items() {
		out = append(out, it.Str())
	}
	return out
}

func improvementItems(v payload.Value) []Improvement {
	f, _ := v.Get("improvements")
	out := make([]Improvement, 0, f.Len())
	for _, it := range f.Items() {
		out = append(out, Improvement{
			Priority:    stringField(it, "priority"),
			Title:       stringField(it, "title"),
			Description: stringField(it, "description"),
			Example:     stringField(it, "example"),
		})
	}
	return out
}

func listLen(v payload.Value, key string) int {
	f, ok := v.Get(key)
	if !ok || f.Kind() != payload.KindList {
		return 0
	}
	return f.Len()
}
