// Package metrics turns flat project records into budget and research-output rollups,
// cost-per-output ratios and per-domain performance scores. Every function is a pure
// transformation of its arguments.
package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Level is the granularity of an aggregation.
type Level string

const (
	LevelDomain    Level = "domain"
	LevelProgramme Level = "programme"
	LevelProject   Level = "project"
)

// Levels lists the supported aggregation levels, coarsest first.
var Levels = []Level{LevelDomain, LevelProgramme, LevelProject}

// ParseLevel resolves a level name case-insensitively.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	if !level.Valid() {
		return "", fmt.Errorf("%w: unknown level %q", ErrInvalidArgument, s)
	}
	return level, nil
}

// Valid reports whether l is one of the supported levels.
func (l Level) Valid() bool {
	switch l {
	case LevelDomain, LevelProgramme, LevelProject:
		return true
	}
	return false
}

// Status is the lifecycle flag of a project.
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

// Label returns the display label for a status.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

// Amount is a budget amount as delivered by the record source. It is kept raw so a
// malformed value surfaces as ErrDataFormat instead of being coerced.
type Amount string

// Float64 parses the amount. An empty amount counts as zero.
func (a Amount) Float64() (float64, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: budget amount %q is not a number", ErrDataFormat, string(a))
	}
	return v, nil
}

// BudgetEntry is one fiscal-year allocation of a project.
type BudgetEntry struct {
	FiscalYear string `json:"fiscal_year" yaml:"fiscal_year"`
	Year       int    `json:"year" yaml:"year"`
	Amount     Amount `json:"amount" yaml:"amount"`
}

// ProjectRecord is one flat project row. Nil numeric fields are missing values and count
// as zero.
type ProjectRecord struct {
	Domain                  string        `json:"domain" yaml:"domain"`
	Programme               string        `json:"programme" yaml:"programme"`
	ProjectName             string        `json:"project_name" yaml:"project_name"`
	ProjectID               string        `json:"project_id" yaml:"project_id"`
	Description             string        `json:"description,omitempty" yaml:"description"`
	Department              string        `json:"department,omitempty" yaml:"department"`
	NationalProblem         string        `json:"national_problem,omitempty" yaml:"national_problem"`
	DomainDescription       string        `json:"domain_description,omitempty" yaml:"domain_description"`
	TotalBudget             *float64      `json:"total_budget" yaml:"total_budget"`
	JournalArticles         *int64        `json:"journal_articles" yaml:"journal_articles"`
	ConferencePapers        *int64        `json:"conference_papers" yaml:"conference_papers"`
	BookChapters            *int64        `json:"book_chapters" yaml:"book_chapters"`
	TechnologyDemonstrators *int64        `json:"technology_demonstrators" yaml:"technology_demonstrators"`
	Status                  Status        `json:"status" yaml:"status"`
	BudgetDetails           []BudgetEntry `json:"budget_details,omitempty" yaml:"budget_details"`
}

// Budget returns the total budget, zero when missing.
func (r ProjectRecord) Budget() float64 {
	if r.TotalBudget == nil {
		return 0
	}
	return *r.TotalBudget
}

// Outputs returns the research-output counters with missing values as zero.
func (r ProjectRecord) Outputs() KPICounts {
	return KPICounts{
		JournalArticles:         valueOf(r.JournalArticles),
		ConferencePapers:        valueOf(r.ConferencePapers),
		BookChapters:            valueOf(r.BookChapters),
		TechnologyDemonstrators: valueOf(r.TechnologyDemonstrators),
	}
}

// Active reports whether the project is flagged active.
func (r ProjectRecord) Active() bool {
	return r.Status == StatusActive
}

func (r ProjectRecord) validateBudgetDetails() error {
	_, err := parseBudget(r)
	return err
}

func valueOf(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// KPICounts holds the four research-output metrics.
type KPICounts struct {
	JournalArticles         int64 `json:"journal_articles"`
	ConferencePapers        int64 `json:"conference_papers"`
	BookChapters            int64 `json:"book_chapters"`
	TechnologyDemonstrators int64 `json:"technology_demonstrators"`
}

// Total is the sum of the four metrics.
func (k KPICounts) Total() int64 {
	return k.JournalArticles + k.ConferencePapers + k.BookChapters + k.TechnologyDemonstrators
}

func (k *KPICounts) add(o KPICounts) {
	k.JournalArticles += o.JournalArticles
	k.ConferencePapers += o.ConferencePapers
	k.BookChapters += o.BookChapters
	k.TechnologyDemonstrators += o.TechnologyDemonstrators
}

// Rollup is the budget and output sums of one group.
type Rollup struct {
	Name        string  `json:"name"`
	Domain      string  `json:"domain,omitempty"`
	ProjectID   string  `json:"project_id,omitempty"`
	TotalBudget float64 `json:"total_budget"`
	KPICounts
	// Members is the number of records folded into the rollup.
	Members int `json:"members"`
}

// EfficiencyRollup extends a rollup with cost-per-output ratios. A zero cost means the
// ratio is not computable (no outputs), never that the outputs were free.
type EfficiencyRollup struct {
	Rollup
	CostPerJournalArticle         float64 `json:"cost_per_journal_articles"`
	CostPerConferencePaper        float64 `json:"cost_per_conference_papers"`
	CostPerBookChapter            float64 `json:"cost_per_book_chapters"`
	CostPerTechnologyDemonstrator float64 `json:"cost_per_technology_demonstrators"`
	TotalKPIs                     int64   `json:"total_kpis"`
	CostPerKPI                    float64 `json:"cost_per_kpi"`
}

// DomainPerformance is the composite score of one domain and its three components.
type DomainPerformance struct {
	Domain           string  `json:"domain"`
	PerformanceScore float64 `json:"performance_score"`
	BudgetScore      float64 `json:"budget_score"`
	ActivityScore    float64 `json:"activity_score"`
	OutputScore      float64 `json:"output_score"`
	MeetsThreshold   bool    `json:"meets_threshold"`
}
