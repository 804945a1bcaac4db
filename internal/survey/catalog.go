package survey

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes the two scores a respondent gives for the same question.
type Kind string

const (
	KindSatisfaction Kind = "satisfaction"
	KindExpectation  Kind = "expectation"
)

// Kinds lists the rating kinds in column order.
var Kinds = []Kind{KindSatisfaction, KindExpectation}

// QuestionType tells which kinds a question accepts.
type QuestionType string

const (
	// TypePaired questions take both a satisfaction and an expectation score.
	TypePaired QuestionType = "paired"
	// TypeSingle questions take a satisfaction score only (overall/NPS items).
	TypeSingle QuestionType = "single"
)

// Scale is an inclusive integer score range.
type Scale struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// DefaultScale is used by questions that do not declare one.
var DefaultScale = Scale{Min: 1, Max: 5}

func (s Scale) Contains(score int) bool {
	return score >= s.Min && score <= s.Max
}

func (s Scale) String() string {
	return fmt.Sprintf("%d..%d", s.Min, s.Max)
}

// Key identifies a question by its position in the catalog. Index is 1-based.
type Key struct {
	Section  string `json:"section"`
	Category string `json:"category"`
	Index    int    `json:"index"`
}

// String renders the key the way it appears in column names.
func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%d", k.Section, k.Category, k.Index)
}

type Question struct {
	Key   Key
	Text  string
	Type  QuestionType
	Scale Scale
}

// Accepts reports whether the question takes a score of the given kind.
func (q Question) Accepts(kind Kind) bool {
	switch kind {
	case KindSatisfaction:
		return true
	case KindExpectation:
		return q.Type == TypePaired
	default:
		return false
	}
}

type Category struct {
	Name      string
	Questions []Question
}

type Section struct {
	Name       string
	Categories []Category
}

var (
	ErrInvalidCatalog = errors.New("invalid question catalog")
	ErrNoNPSQuestion  = errors.New("catalog has no NPS question")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Catalog is the validated, immutable question taxonomy.
type Catalog struct {
	sections  []Section
	questions []Question
	order     map[Key]int
	columns   map[string]Key
	nps       *Key
}

// NewCatalog validates the sections and assigns question keys. Question keys
// already present in the input are ignored; indices follow slice order.
func NewCatalog(sections []Section, nps *Key) (*Catalog, error) {
	c := &Catalog{
		order:   make(map[Key]int),
		columns: make(map[string]Key),
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no sections", ErrInvalidCatalog)
	}

	seenSections := make(map[string]bool)
	for _, s := range sections {
		if !namePattern.MatchString(s.Name) {
			return nil, fmt.Errorf("%w: bad section name %q", ErrInvalidCatalog, s.Name)
		}
		if seenSections[s.Name] {
			return nil, fmt.Errorf("%w: duplicate section %q", ErrInvalidCatalog, s.Name)
		}
		seenSections[s.Name] = true

		section := Section{Name: s.Name}
		seenCategories := make(map[string]bool)
		for _, cat := range s.Categories {
			if !namePattern.MatchString(cat.Name) {
				return nil, fmt.Errorf("%w: bad category name %q in section %q", ErrInvalidCatalog, cat.Name, s.Name)
			}
			if seenCategories[cat.Name] {
				return nil, fmt.Errorf("%w: duplicate category %q in section %q", ErrInvalidCatalog, cat.Name, s.Name)
			}
			seenCategories[cat.Name] = true
			if len(cat.Questions) == 0 {
				return nil, fmt.Errorf("%w: category %s/%s has no questions", ErrInvalidCatalog, s.Name, cat.Name)
			}

			category := Category{Name: cat.Name, Questions: make([]Question, 0, len(cat.Questions))}
			for i, q := range cat.Questions {
				q.Key = Key{Section: s.Name, Category: cat.Name, Index: i + 1}
				if q.Text == "" {
					return nil, fmt.Errorf("%w: question %s has no text", ErrInvalidCatalog, q.Key)
				}
				if q.Type == "" {
					q.Type = TypePaired
				}
				if q.Type != TypePaired && q.Type != TypeSingle {
					return nil, fmt.Errorf("%w: question %s has unknown type %q", ErrInvalidCatalog, q.Key, q.Type)
				}
				if q.Scale == (Scale{}) {
					q.Scale = DefaultScale
				}
				if q.Scale.Min >= q.Scale.Max {
					return nil, fmt.Errorf("%w: question %s has empty scale %s", ErrInvalidCatalog, q.Key, q.Scale)
				}
				column := q.Key.String()
				if other, dup := c.columns[column]; dup {
					return nil, fmt.Errorf("%w: questions %v and %v share column token %q", ErrInvalidCatalog, other, q.Key, column)
				}
				c.columns[column] = q.Key
				c.order[q.Key] = len(c.questions)
				c.questions = append(c.questions, q)
				category.Questions = append(category.Questions, q)
			}
			section.Categories = append(section.Categories, category)
		}
		c.sections = append(c.sections, section)
	}

	if nps != nil {
		q, ok := c.Question(*nps)
		if !ok {
			return nil, fmt.Errorf("%w: NPS question %s not in catalog", ErrInvalidCatalog, *nps)
		}
		if q.Type != TypeSingle {
			return nil, fmt.Errorf("%w: NPS question %s must be single", ErrInvalidCatalog, *nps)
		}
		if q.Scale != (Scale{Min: 0, Max: 10}) && q.Scale != (Scale{Min: 1, Max: 5}) {
			return nil, fmt.Errorf("%w: NPS question %s has unsupported scale %s", ErrInvalidCatalog, *nps, q.Scale)
		}
		k := *nps
		c.nps = &k
	}

	return c, nil
}

// Sections returns a copy of the section tree.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		cats := make([]Category, len(s.Categories))
		for j, cat := range s.Categories {
			cats[j] = Category{Name: cat.Name, Questions: append([]Question(nil), cat.Questions...)}
		}
		out[i] = Section{Name: s.Name, Categories: cats}
	}
	return out
}

// Questions returns every question in catalog order.
func (c *Catalog) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

func (c *Catalog) Len() int {
	return len(c.questions)
}

func (c *Catalog) Question(k Key) (Question, bool) {
	i, ok := c.order[k]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Order returns the catalog position of k, or -1 when k is unknown.
func (c *Catalog) Order(k Key) int {
	if i, ok := c.order[k]; ok {
		return i
	}
	return -1
}

// NPSQuestion returns the question designated for NPS classification.
func (c *Catalog) NPSQuestion() (Question, error) {
	if c.nps == nil {
		return Question{}, ErrNoNPSQuestion
	}
	q, _ := c.Question(*c.nps)
	return q, nil
}

type catalogDoc struct {
	Sections []sectionDoc `yaml:"sections"`
	NPS      *keyDoc      `yaml:"nps"`
}

type sectionDoc struct {
	Name       string        `yaml:"name"`
	Categories []categoryDoc `yaml:"categories"`
}

type categoryDoc struct {
	Name      string        `yaml:"name"`
	Questions []questionDoc `yaml:"questions"`
}

type questionDoc struct {
	Text  string `yaml:"text"`
	Type  string `yaml:"type"`
	Scale *Scale `yaml:"scale"`
}

// UnmarshalYAML accepts either a bare string or a mapping.
func (q *questionDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		q.Text = node.Value
		return nil
	}
	type plain questionDoc
	return node.Decode((*plain)(q))
}

type keyDoc struct {
	Section  string `yaml:"section"`
	Category string `yaml:"category"`
	Index    int    `yaml:"index"`
}

// ParseCatalog builds a catalog from its YAML definition.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	sections := make([]Section, 0, len(doc.Sections))
	for _, sd := range doc.Sections {
		s := Section{Name: sd.Name}
		for _, cd := range sd.Categories {
			cat := Category{Name: cd.Name}
			for _, qd := range cd.Questions {
				q := Question{Text: qd.Text, Type: QuestionType(qd.Type)}
				if qd.Scale != nil {
					q.Scale = *qd.Scale
				}
				cat.Questions = append(cat.Questions, q)
			}
			s.Categories = append(s.Categories, cat)
		}
		sections = append(sections, s)
	}

	var nps *Key
	if doc.NPS != nil {
		nps = &Key{Section: doc.NPS.Section, Category: doc.NPS.Category, Index: doc.NPS.Index}
	}
	return NewCatalog(sections, nps)
}

// LoadCatalog reads a YAML catalog from path, or returns the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog returns the built-in employee satisfaction questionnaire.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}
