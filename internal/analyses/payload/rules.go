package payload

// Rule bounds one node of the payload tree. The sanitizer folds a tree
// against a Rule; Conforms checks a tree against the same Rule.
type Rule struct {
	Kind     Kind
	MaxLen   int      // strings: maximum length in characters
	Enum     []string // strings: allowed values, compared case-insensitively
	Min, Max float64  // numbers: inclusive range
	Integer  bool     // numbers: rounded to whole values
	MaxItems int      // lists: maximum count after dropping invalid items
	Item     *Rule    // lists: rule for each item
	Fields   map[string]*Rule
}

func text(n int) *Rule { return &Rule{Kind: KindString, MaxLen: n} }

func enum(values ...string) *Rule { return &Rule{Kind: KindString, Enum: values} }

func score() *Rule { return &Rule{Kind: KindNumber, Min: 0, Max: 100, Integer: true} }

func list(n int, item *Rule) *Rule { return &Rule{Kind: KindList, MaxItems: n, Item: item} }

func object(fields map[string]*Rule) *Rule { return &Rule{Kind: KindObject, Fields: fields} }

// Field bounds shared with the record model.
const (
	MaxFeedback     = 8000
	MaxSummary      = 1000
	MaxStrengths    = 10
	MaxWeaknesses   = 10
	MaxImprovements = 10
	MaxListEntry    = 500
)

// Priorities accepted for improvements.
var Priorities = []string{"high", "medium", "low"}

// ExperienceLevels accepted in analytics.
var ExperienceLevels = []string{"entry", "junior", "mid", "senior", "lead", "executive"}

// ExtractedInfoRule bounds the extractedInfo object; the assembler also uses
// it for heuristic data.
var ExtractedInfoRule = object(map[string]*Rule{
	"name":     text(100),
	"email":    text(254),
	"phone":    text(50),
	"location": text(200),
	"links":    list(10, text(500)),
	"skills":   list(50, text(50)),
	"experience": list(15, object(map[string]*Rule{
		"title":       text(200),
		"company":     text(200),
		"duration":    text(100),
		"description": text(1000),
	})),
	"education": list(10, object(map[string]*Rule{
		"degree":      text(200),
		"institution": text(200),
		"field":       text(200),
		"year":        text(50),
	})),
	"projects": list(15, object(map[string]*Rule{
		"name":         text(200),
		"description":  text(1000),
		"technologies": list(20, text(50)),
	})),
	"certifications": list(20, text(200)),
	"languages":      list(20, text(50)),
})

var analyticsRule = object(map[string]*Rule{
	"experienceLevel":  enum(ExperienceLevels...),
	"atsCompatibility": score(),
	"readability":      score(),
	"impact":           score(),
	"formatting":       score(),
	"sectionScores": object(map[string]*Rule{
		"contact":    score(),
		"summary":    score(),
		"experience": score(),
		"education":  score(),
		"skills":     score(),
		"projects":   score(),
	}),
	"keywords": list(30, text(50)),
	"redFlags": list(10, text(300)),
})

// Schema is the rule for a whole analysis payload.
var Schema = object(map[string]*Rule{
	"feedback":   text(MaxFeedback),
	"summary":    text(MaxSummary),
	"score":      score(),
	"strengths":  list(MaxStrengths, text(MaxListEntry)),
	"weaknesses": list(MaxWeaknesses, text(MaxListEntry)),
	"improvements": list(MaxImprovements, object(map[string]*Rule{
		"priority":    enum(Priorities...),
		"title":       text(200),
		"description": text(1000),
		"example":     text(1000),
	})),
	"extractedInfo": ExtractedInfoRule,
	"analytics":     analyticsRule,
})
