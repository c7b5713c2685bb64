package heuristic

// Limits applied to every extraction by truncation.
const (
	MaxSkills     = 50
	MaxExperience = 15
	MaxEducation  = 10
	MaxProjects   = 15
	MaxLinks      = 10
)

// Extraction is the best-effort structured data found in résumé text. Empty
// strings and nil slices mean "not found"; nothing is ever inferred.
type Extraction struct {
	Name       string       `json:"name,omitempty"`
	Email      string       `json:"email,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Links      []string     `json:"links,omitempty"`
	Skills     []string     `json:"skills,omitempty"`
	Experience []Experience `json:"experience,omitempty"`
	Education  []Education  `json:"education,omitempty"`
	Projects   []Project    `json:"projects,omitempty"`
}

type Experience struct {
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Year        string `json:"year,omitempty"`
}

type Project struct {
	Name         string   `json:"name,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (e Extraction) Empty() bool {
	return e.Name == "" && e.Email == "" && e.Phone == "" &&
		len(e.Links) == 0 && len(e.Skills) == 0 && len(e.Experience) == 0 &&
		len(e.Education) == 0 && len(e.Projects) == 0
}
