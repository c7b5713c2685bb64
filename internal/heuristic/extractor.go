package heuristic

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var keywordsYAML []byte

type keywordTables struct {
	Sections             map[string][]string `yaml:"sections"`
	StopSections         []string            `yaml:"stop_sections"`
	ProgrammingLanguages []string            `yaml:"programming_languages"`
	Frameworks           []string            `yaml:"frameworks"`
	Tools                []string            `yaml:"tools"`
	SoftSkills           []string            `yaml:"soft_skills"`
	TitleKeywords        []string            `yaml:"title_keywords"`
	OrgSuffixes          []string            `yaml:"org_suffixes"`
	DegreeKeywords       []string            `yaml:"degree_keywords"`
	InstitutionKeywords  []string            `yaml:"institution_keywords"`
}

type section string

const (
	sectionNone       section = ""
	sectionExperience section = "experience"
	sectionEducation  section = "education"
	sectionProjects   section = "projects"
	sectionSkills     section = "skills"
	sectionOther      section = "other"
)

// order in which header keywords are tried; the first hit wins.
var sectionOrder = []section{sectionExperience, sectionEducation, sectionProjects, sectionSkills}

const (
	maxHeaderLen    = 50
	maxHeaderWords  = 5
	nameSearchLines = 5
	maxTechPerProj  = 20
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\(?\d[\d ().\-]{6,20}\d`)
	linkRe     = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:linkedin\.com/in/|github\.com/|gitlab\.com/|twitter\.com/|x\.com/|stackoverflow\.com/users/|medium\.com/|behance\.net/|dribbble\.com/)[A-Za-z0-9_\-./%@]+`)
	urlRe      = regexp.MustCompile(`(?i)(https?://|www\.|\.com\b|\.io\b|\.org\b|\.net\b)`)
	yearRe     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	durationRe = regexp.MustCompile(`(?i)(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+)?(?:19|20)\d{2}\s*(?:-|–|—|to)\s*(?:(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+)?(?:19|20)\d{2}|present|current|now)`)
	bulletRe   = regexp.MustCompile(`^\s*(?:[-*•·▪◦]|\d+[.)])\s+`)
	separators = regexp.MustCompile(`\s+(?:at|@|\||-|–|—)\s+|,\s+|\s+\|\s+`)
)

// Extractor performs deterministic keyword/pattern extraction. It is safe for
// concurrent use once constructed.
type Extractor struct {
	sectionKeywords map[section][]string
	stopKeywords    []string
	skills          []*keyword
	titles          []*keyword
	degrees         []*keyword
	institutions    []*keyword
	orgRe           *regexp.Regexp
}

type keyword struct {
	name string
	re   *regexp.Regexp
}

// NewExtractor builds an extractor from the embedded keyword tables.
func NewExtractor() (*Extractor, error) {
	var tables keywordTables
	if err := yaml.Unmarshal(keywordsYAML, &tables); err != nil {
		return nil, fmt.Errorf("decode keyword tables: %w", err)
	}
	return newExtractor(tables), nil
}

// MustNewExtractor is NewExtractor for package initialisation and tests.
func MustNewExtractor() *Extractor {
	e, err := NewExtractor()
	if err != nil {
		panic(err)
	}
	return e
}

func newExtractor(t keywordTables) *Extractor {
	e := &Extractor{
		sectionKeywords: make(map[section][]string, len(t.Sections)),
		stopKeywords:    lowerAll(t.StopSections),
	}
	for name, words := range t.Sections {
		e.sectionKeywords[section(name)] = lowerAll(words)
	}
	for _, group := range [][]string{t.ProgrammingLanguages, t.Frameworks, t.Tools, t.SoftSkills} {
		e.skills = append(e.skills, compileKeywords(group)...)
	}
	e.titles = compileKeywords(t.TitleKeywords)
	e.degrees = compileKeywords(t.DegreeKeywords)
	e.institutions = compileKeywords(t.InstitutionKeywords)

	suffixes := make([]string, 0, len(t.OrgSuffixes))
	seen := map[string]bool{}
	for _, s := range t.OrgSuffixes {
		s = strings.TrimSuffix(s, ".")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		suffixes = append(suffixes, regexp.QuoteMeta(s))
	}
	e.orgRe = regexp.MustCompile(`(?:[A-Z][\w&'.\-]*\s+){1,4}(?:` + strings.Join(suffixes, "|") + `)\b\.?`)
	return e
}

// compileKeywords builds boundary-aware matchers. Very short capitalised
// keywords (C, R, Go, BA) are matched case-sensitively so ordinary words do
// not trigger them.
func compileKeywords(words []string) []*keyword {
	out := make([]*keyword, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		flags := "(?i)"
		if len([]rune(w)) <= 3 && strings.ToLower(w) != w {
			flags = ""
		}
		pattern := flags + `(?:^|[^\p{L}\p{N}+#])` + regexp.QuoteMeta(w) + `(?:$|[^\p{L}\p{N}+#])`
		out = append(out, &keyword{name: w, re: regexp.MustCompile(pattern)})
	}
	return out
}

// Extract returns whatever can be derived from text. It never fails.
func (e *Extractor) Extract(text string) Extraction {
	var out Extraction
	lines := strings.Split(text, "\n")

	out.Name = e.findName(lines)
	out.Email = emailRe.FindString(text)
	out.Phone = findPhone(text)
	out.Links = findLinks(text)

	sections := e.splitSections(text)
	out.Skills = e.findSkills(sections[sectionSkills])
	out.Experience = e.findExperience(sections[sectionExperience])
	out.Education = e.findEducation(sections[sectionEducation])
	out.Projects = e.findProjects(sections[sectionProjects])
	return out
}

// splitSections assigns lines to sections. A paragraph whose first line is a
// short header opens that section; following paragraphs stay in it until
// another header appears. "Header: content" lines keep their content.
func (e *Extractor) splitSections(text string) map[section][]string {
	out := make(map[section][]string)
	current := sectionNone
	for _, para := range strings.Split(text, "\n\n") {
		for i, line := range nonEmptyLines(para) {
			if sec, rest, ok := e.headerOf(line, i == 0); ok {
				current = sec
				if rest == "" {
					continue
				}
				line = rest
			}
			if current != sectionNone && current != sectionOther {
				out[current] = append(out[current], line)
			}
		}
	}
	return out
}

// headerOf classifies line as a section header and returns any content that
// follows a colon. The first line of a paragraph may pad the keyword with a
// couple of words ("Professional Work Experience"); other lines must consist
// of the keyword alone.
func (e *Extractor) headerOf(line string, first bool) (section, string, bool) {
	head, rest := line, ""
	if i := strings.Index(line, ":"); i >= 0 {
		head, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	clean := cleanHeader(head)
	if clean == "" || len([]rune(head)) >= maxHeaderLen || len(strings.Fields(clean)) > maxHeaderWords {
		return sectionNone, "", false
	}
	words := len(strings.Fields(clean))
	match := func(kw string) bool {
		if clean == kw {
			return true
		}
		return first && containsPhrase(clean, kw) &&
			words <= len(strings.Fields(kw))+2 && matchAny(e.titles, head) == ""
	}
	for _, sec := range sectionOrder {
		for _, kw := range e.sectionKeywords[sec] {
			if match(kw) {
				return sec, rest, true
			}
		}
	}
	for _, kw := range e.stopKeywords {
		if match(kw) {
			return sectionOther, rest, true
		}
	}
	return sectionNone, "", false
}

func (e *Extractor) findName(lines []string) string {
	seen := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if seen > nameSearchLines {
			break
		}
		if e.looksLikeName(line) {
			return line
		}
	}
	return ""
}

func (e *Extractor) looksLikeName(line string) bool {
	if len([]rune(line)) >= maxHeaderLen || strings.Contains(line, "@") || urlRe.MatchString(line) {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
	}
	if _, _, ok := e.headerOf(line, true); ok {
		return false
	}
	return matchAny(e.titles, line) == ""
}

func findPhone(text string) string {
	for _, candidate := range phoneRe.FindAllString(text, -1) {
		digits := 0
		for _, r := range candidate {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < 9 || digits > 15 {
			continue
		}
		if durationRe.MatchString(candidate) || len(yearRe.FindAllString(candidate, -1)) >= 2 && !strings.HasPrefix(candidate, "+") {
			continue
		}
		return strings.TrimSpace(candidate)
	}
	return ""
}

func findLinks(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, link := range linkRe.FindAllString(text, -1) {
		link = strings.TrimRight(link, ".,;)/")
		key := strings.ToLower(link)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, link)
		if len(out) == MaxLinks {
			break
		}
	}
	return out
}

func (e *Extractor) findSkills(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	body := strings.Join(lines, "\n")
	var out []string
	for _, kw := range e.skills {
		if kw.re.MatchString(body) {
			out = appendUnique(out, kw.name)
			if len(out) == MaxSkills {
				break
			}
		}
	}
	return out
}

func (e *Extractor) findExperience(lines []string) []Experience {
	var out []Experience
	used := make(map[int]bool)
	for i, line := range lines {
		if len(out) == MaxExperience {
			break
		}
		if used[i] || bulletRe.MatchString(line) || len([]rune(line)) > 120 {
			continue
		}
		if matchAny(e.titles, line) == "" {
			continue
		}
		entry := Experience{}
		entry.Title, entry.Company = e.titleAndCompany(line)
		if entry.Company == "" {
			for _, j := range []int{i + 1, i - 1, i + 2} {
				if j < 0 || j >= len(lines) || used[j] || matchAny(e.titles, lines[j]) != "" {
					continue
				}
				if org := e.orgRe.FindString(lines[j]); org != "" {
					entry.Company = strings.TrimSpace(org)
					used[j] = true
					break
				}
			}
		}
		for _, j := range []int{i, i + 1, i + 2} {
			if j < len(lines) {
				if d := durationRe.FindString(lines[j]); d != "" {
					entry.Duration = d
					break
				}
			}
		}
		used[i] = true
		out = append(out, entry)
	}
	return out
}

// titleAndCompany splits a "Title at Company" or "Title, Company" line. The
// company is empty when nothing on the line looks like an organisation.
func (e *Extractor) titleAndCompany(line string) (title, company string) {
	title = strings.TrimSpace(line)
	parts := splitParts(line)
	if len(parts) < 2 {
		return title, ""
	}
	titleIdx := 0
	for i, p := range parts {
		if matchAny(e.titles, p) != "" {
			titleIdx, title = i, p
			break
		}
	}
	for i, p := range parts {
		if i == titleIdx || yearRe.MatchString(p) {
			continue
		}
		if org := e.orgRe.FindString(p); org != "" {
			return title, strings.TrimSpace(org)
		}
	}
	lower := strings.ToLower(line)
	if (strings.Contains(lower, " at ") || strings.Contains(lower, " @ ")) && titleIdx+1 < len(parts) {
		if next := parts[titleIdx+1]; !yearRe.MatchString(next) {
			return title, next
		}
	}
	return title, ""
}

func (e *Extractor) findEducation(lines []string) []Education {
	var out []Education
	used := make(map[int]bool)
	for i, line := range lines {
		if len(out) == MaxEducation {
			break
		}
		if used[i] || matchAny(e.degrees, line) == "" {
			continue
		}
		entry := Education{Degree: strings.TrimSpace(line)}
		if parts := splitParts(line); len(parts) > 1 {
			degreeSet := false
			for _, p := range parts {
				if entry.Institution == "" && matchAny(e.institutions, p) != "" {
					entry.Institution = p
				} else if !degreeSet && matchAny(e.degrees, p) != "" {
					entry.Degree, degreeSet = p, true
				}
			}
		}
		if entry.Institution == "" {
			for _, j := range []int{i + 1, i - 1, i + 2} {
				if j >= 0 && j < len(lines) && !used[j] && matchAny(e.institutions, lines[j]) != "" && matchAny(e.degrees, lines[j]) == "" {
					entry.Institution = strings.TrimSpace(lines[j])
					used[j] = true
					break
				}
			}
		}
		for _, j := range []int{i, i + 1, i + 2} {
			if j < len(lines) {
				if years := yearRe.FindAllString(lines[j], -1); len(years) > 0 {
					entry.Year = years[len(years)-1]
					break
				}
			}
		}
		used[i] = true
		out = append(out, entry)
	}
	for i, line := range lines {
		if len(out) == MaxEducation {
			break
		}
		if used[i] || matchAny(e.institutions, line) == "" {
			continue
		}
		entry := Education{Institution: strings.TrimSpace(line)}
		if years := yearRe.FindAllString(line, -1); len(years) > 0 {
			entry.Year = years[len(years)-1]
		}
		out = append(out, entry)
	}
	return out
}

func (e *Extractor) findProjects(lines []string) []Project {
	var out []Project
	current := -1
	for _, line := range lines {
		isName := !bulletRe.MatchString(line) && len([]rune(line)) < 80 && !strings.HasSuffix(strings.TrimSpace(line), ".")
		if isName {
			if len(out) == MaxProjects {
				break
			}
			name := strings.TrimSpace(line)
			if parts := strings.SplitN(name, " - ", 2); len(parts) == 2 {
				name = strings.TrimSpace(parts[0])
			} else if parts := strings.SplitN(name, ": ", 2); len(parts) == 2 {
				name = strings.TrimSpace(parts[0])
			}
			out = append(out, Project{Name: name})
			current = len(out) - 1
		}
		if current < 0 {
			continue
		}
		for _, kw := range e.skills {
			if len(out[current].Technologies) == maxTechPerProj {
				break
			}
			if kw.re.MatchString(line) {
				out[current].Technologies = appendUnique(out[current].Technologies, kw.name)
			}
		}
	}
	return out
}

func matchAny(keywords []*keyword, s string) string {
	for _, kw := range keywords {
		if kw.re.MatchString(s) {
			return kw.name
		}
	}
	return ""
}

func splitParts(line string) []string {
	raw := separators.Split(strings.TrimSpace(line), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cleanHeader(line string) string {
	s := strings.TrimSpace(line)
	s = strings.Trim(s, "#*-=_•:| ")
	s = strings.NewReplacer("&", " ", "/", " ").Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func containsPhrase(s, phrase string) bool {
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func nonEmptyLines(para string) []string {
	var out []string
	for _, l := range strings.Split(para, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}
