// Package seed loads a portfolio dataset from YAML and imports it as a tenant snapshot.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/repository"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is the nested domain -> programme -> project layout of a seed file.
type Dataset struct {
	Domains []Domain `yaml:"domains"`
}

type Domain struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Programmes  []Programme `yaml:"programmes"`
}

type Programme struct {
	Name     string    `yaml:"name"`
	Projects []Project `yaml:"projects"`
}

type Project struct {
	Name                    string                `yaml:"name"`
	ID                      string                `yaml:"id"`
	Description             string                `yaml:"description"`
	Department              string                `yaml:"department"`
	NationalProblem         string                `yaml:"national_problem"`
	TotalBudget             *float64              `yaml:"total_budget"`
	JournalArticles         *int64                `yaml:"journal_articles"`
	ConferencePapers        *int64                `yaml:"conference_papers"`
	BookChapters            *int64                `yaml:"book_chapters"`
	TechnologyDemonstrators *int64                `yaml:"technology_demonstrators"`
	Status                  metrics.Status        `yaml:"status"`
	Budgets                 []metrics.BudgetEntry `yaml:"budgets"`
}

// Load reads and validates a dataset file.
func Load(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a dataset.
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Validate checks names are present and unique at each level.
func (ds Dataset) Validate() error {
	domains := make(map[string]struct{})
	for _, d := range ds.Domains {
		if d.Name == "" {
			return fmt.Errorf("%w: domain without a name", ErrInvalidDataset)
		}
		if _, dup := domains[d.Name]; dup {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalidDataset, d.Name)
		}
		domains[d.Name] = struct{}{}

		programmes := make(map[string]struct{})
		for _, p := range d.Programmes {
			if p.Name == "" {
				return fmt.Errorf("%w: programme without a name in domain %q", ErrInvalidDataset, d.Name)
			}
			if _, dup := programmes[p.Name]; dup {
				return fmt.Errorf("%w: duplicate programme %q in domain %q", ErrInvalidDataset, p.Name, d.Name)
			}
			programmes[p.Name] = struct{}{}

			projects := make(map[string]struct{})
			for _, proj := range p.Projects {
				if proj.Name == "" {
					return fmt.Errorf("%w: project without a name in programme %q", ErrInvalidDataset, p.Name)
				}
				if _, dup := projects[proj.Name]; dup {
					return fmt.Errorf("%w: duplicate project %q in programme %q", ErrInvalidDataset, proj.Name, p.Name)
				}
				projects[proj.Name] = struct{}{}
			}
		}
	}
	return nil
}

// Records flattens the dataset. Projects without an id get a random one.
func (ds Dataset) Records() []metrics.ProjectRecord {
	records := make([]metrics.ProjectRecord, 0)
	for _, d := range ds.Domains {
		for _, p := range d.Programmes {
			for _, proj := range p.Projects {
				id := proj.ID
				if id == "" {
					id = uuid.NewString()
				}
				records = append(records, metrics.ProjectRecord{
					Domain:                  d.Name,
					DomainDescription:       d.Description,
					Programme:               p.Name,
					ProjectName:             proj.Name,
					ProjectID:               id,
					Description:             proj.Description,
					Department:              proj.Department,
					NationalProblem:         proj.NationalProblem,
					TotalBudget:             proj.TotalBudget,
					JournalArticles:         proj.JournalArticles,
					ConferencePapers:        proj.ConferencePapers,
					BookChapters:            proj.BookChapters,
					TechnologyDemonstrators: proj.TechnologyDemonstrators,
					Status:                  proj.Status,
					BudgetDetails:           proj.Budgets,
				})
			}
		}
	}
	return records
}

// Snapshot converts the dataset into a repository snapshot.
func (ds Dataset) Snapshot() repository.Snapshot {
	descriptions := make(map[string]string, len(ds.Domains))
	for _, d := range ds.Domains {
		if d.Description != "" {
			descriptions[d.Name] = d.Description
		}
	}
	return repository.Snapshot{DomainDescriptions: descriptions, Records: ds.Records()}
}

// Import replaces the tenant's portfolio with the dataset and returns the number of
// projects imported.
func Import(ctx context.Context, importer repository.SnapshotImporter, tenantID string, ds Dataset) (int, error) {
	snap := ds.Snapshot()
	if err := importer.ImportSnapshot(ctx, tenantID, snap); err != nil {
		return 0, fmt.Errorf("import dataset: %w", err)
	}
	return len(snap.Records), nil
}
