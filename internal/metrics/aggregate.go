package metrics

import "fmt"

type groupKey struct {
	domain    string
	programme string
}

// Aggregate groups records at the given level and sums budget and outputs per group.
// Groups appear in the order they are first encountered. Programmes are keyed by
// (domain, programme) since programme names only need to be unique within a domain.
// Records without a domain belong to no group, so they produce no row at any level,
// including project level.
func Aggregate(records []ProjectRecord, level Level) ([]Rollup, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown level %q", ErrInvalidArgument, level)
	}

	rollups := make([]Rollup, 0)
	index := make(map[groupKey]int)

	for _, rec := range records {
		if rec.Domain == "" {
			continue
		}
		if err := rec.validateBudgetDetails(); err != nil {
			return nil, err
		}

		if level == LevelProject {
			rollups = append(rollups, Rollup{
				Name:        rec.ProjectName,
				Domain:      rec.Domain,
				ProjectID:   rec.ProjectID,
				TotalBudget: rec.Budget(),
				KPICounts:   rec.Outputs(),
				Members:     1,
			})
			continue
		}

		key := groupKey{domain: rec.Domain}
		name := rec.Domain
		if level == LevelProgramme {
			key.programme = rec.Programme
			name = rec.Programme
		}

		i, ok := index[key]
		if !ok {
			i = len(rollups)
			index[key] = i
			r := Rollup{Name: name}
			if level == LevelProgramme {
				r.Domain = rec.Domain
			}
			rollups = append(rollups, r)
		}

		rollups[i].TotalBudget += rec.Budget()
		rollups[i].KPICounts.add(rec.Outputs())
		rollups[i].Members++
	}

	return rollups, nil
}
