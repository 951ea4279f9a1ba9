package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/portfolio-kpi/internal/metrics"
	"github.com/rpggio/portfolio-kpi/internal/repository"
)

// PortfolioRepository implements repository.RecordSource and repository.SnapshotImporter
// for SQLite
type PortfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new PortfolioRepository
func NewPortfolioRepository(db *DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

const selectRecords = `
	SELECT p.id, d.name, d.description, pr.name, p.name, p.project_id, p.description,
		p.department, p.national_problem, p.total_budget, p.journal_articles,
		p.conference_papers, p.book_chapters, p.technology_demonstrators, p.status
	FROM projects p
	JOIN programmes pr ON pr.id = p.programme_id
	JOIN domains d ON d.id = pr.domain_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (int64, metrics.ProjectRecord, error) {
	var (
		rowID                                  int64
		rec                                    metrics.ProjectRecord
		budget                                 sql.NullFloat64
		journals, conferences, chapters, demos sql.NullInt64
	)
	err := row.Scan(
		&rowID,
		&rec.Domain,
		&rec.DomainDescription,
		&rec.Programme,
		&rec.ProjectName,
		&rec.ProjectID,
		&rec.Description,
		&rec.Department,
		&rec.NationalProblem,
		&budget,
		&journals,
		&conferences,
		&chapters,
		&demos,
		&rec.Status,
	)
	if err != nil {
		return 0, rec, err
	}
	if budget.Valid {
		rec.TotalBudget = &budget.Float64
	}
	rec.JournalArticles = nullInt(journals)
	rec.ConferencePapers = nullInt(conferences)
	rec.BookChapters = nullInt(chapters)
	rec.TechnologyDemonstrators = nullInt(demos)
	return rowID, rec, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// ListRecords returns every project of the tenant ordered by domain, programme and
// project name.
func (r *PortfolioRepository) ListRecords(ctx context.Context, tenantID string) ([]metrics.ProjectRecord, error) {
	query := selectRecords + `
		WHERE p.tenant_id = ?
		ORDER BY d.name, pr.name, p.name
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := make([]metrics.ProjectRecord, 0)
	index := make(map[int64]int)
	for rows.Next() {
		rowID, rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		index[rowID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	rows.Close()

	budgets, err := r.budgetsFor(ctx, `
		SELECT b.project_row, b.fiscal_year, b.year, b.amount
		FROM budgets b
		JOIN projects p ON p.id = b.project_row
		WHERE p.tenant_id = ?
		ORDER BY b.project_row, b.id
	`, tenantID)
	if err != nil {
		return nil, err
	}
	for rowID, entries := range budgets {
		if i, ok := index[rowID]; ok {
			applyBudgets(&records[i], entries)
		}
	}

	return records, nil
}

// GetRecord retrieves one project by its project ID
func (r *PortfolioRepository) GetRecord(ctx context.Context, tenantID, projectID string) (*metrics.ProjectRecord, error) {
	query := selectRecords + `
		WHERE p.tenant_id = ? AND p.project_id = ?
	`

	rowID, rec, err := scanRecord(r.db.QueryRowContext(ctx, query, tenantID, projectID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	budgets, err := r.budgetsFor(ctx, `
		SELECT project_row, fiscal_year, year, amount
		FROM budgets
		WHERE project_row = ?
		ORDER BY id
	`, rowID)
	if err != nil {
		return nil, err
	}
	applyBudgets(&rec, budgets[rowID])

	return &rec, nil
}

func (r *PortfolioRepository) budgetsFor(ctx context.Context, query string, args ...any) (map[int64][]metrics.BudgetEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	budgets := make(map[int64][]metrics.BudgetEntry)
	for rows.Next() {
		var (
			rowID  int64
			entry  metrics.BudgetEntry
			amount string
		)
		if err := rows.Scan(&rowID, &entry.FiscalYear, &entry.Year, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		entry.Amount = metrics.Amount(amount)
		budgets[rowID] = append(budgets[rowID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

// applyBudgets attaches budget details. A project with budget rows is budgeted at their sum;
// when an amount is malformed the stored total is kept and the engine reports the bad row.
func applyBudgets(rec *metrics.ProjectRecord, entries []metrics.BudgetEntry) {
	if len(entries) == 0 {
		return
	}
	rec.BudgetDetails = entries

	var total float64
	for _, entry := range entries {
		amount, err := entry.Amount.Float64()
		if err != nil {
			return
		}
		total += amount
	}
	rec.TotalBudget = &total
}

// ImportSnapshot replaces every domain, programme, project and budget of the tenant.
func (r *PortfolioRepository) ImportSnapshot(ctx context.Context, tenantID string, snap repository.Snapshot) error {
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", repository.ErrInvalidInput)
	}
	for _, rec := range snap.Records {
		if rec.Domain == "" || rec.Programme == "" || rec.ProjectName == "" || rec.ProjectID == "" {
			return fmt.Errorf("%w: project %q needs domain, programme, name and id",
				repository.ErrInvalidInput, rec.ProjectName)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	clearStatements := []string{
		`DELETE FROM budgets WHERE project_row IN (SELECT id FROM projects WHERE tenant_id = ?)`,
		`DELETE FROM projects WHERE tenant_id = ?`,
		`DELETE FROM programmes WHERE domain_id IN (SELECT id FROM domains WHERE tenant_id = ?)`,
		`DELETE FROM domains WHERE tenant_id = ?`,
	}
	for _, stmt := range clearStatements {
		if _, err := tx.ExecContext(ctx, stmt, tenantID); err != nil {
			return fmt.Errorf("failed to clear portfolio: %w", err)
		}
	}

	domainIDs := make(map[string]int64)
	programmeIDs := make(map[[2]string]int64)

	for _, rec := range snap.Records {
		domainID, ok := domainIDs[rec.Domain]
		if !ok {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO domains (tenant_id, name, description) VALUES (?, ?, ?)`,
				tenantID, rec.Domain, domainDescription(snap, rec))
			if err != nil {
				return fmt.Errorf("failed to insert domain %q: %w", rec.Domain, err)
			}
			if domainID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read domain id: %w", err)
			}
			domainIDs[rec.Domain] = domainID
		}

		key := [2]string{rec.Domain, rec.Programme}
		programmeID, ok := programmeIDs[key]
		if !ok {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO programmes (domain_id, name) VALUES (?, ?)`,
				domainID, rec.Programme)
			if err != nil {
				return fmt.Errorf("failed to insert programme %q: %w", rec.Programme, err)
			}
			if programmeID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read programme id: %w", err)
			}
			programmeIDs[key] = programmeID
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (
				tenant_id, project_id, programme_id, name, description, department,
				national_problem, total_budget, journal_articles, conference_papers,
				book_chapters, technology_demonstrators, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			tenantID,
			rec.ProjectID,
			programmeID,
			rec.ProjectName,
			rec.Description,
			rec.Department,
			rec.NationalProblem,
			rec.TotalBudget,
			rec.JournalArticles,
			rec.ConferencePapers,
			rec.BookChapters,
			rec.TechnologyDemonstrators,
			int(rec.Status),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: duplicate project id %q", repository.ErrInvalidInput, rec.ProjectID)
			}
			return fmt.Errorf("failed to insert project %q: %w", rec.ProjectName, err)
		}
		projectRow, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read project row: %w", err)
		}

		for _, entry := range rec.BudgetDetails {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (project_row, fiscal_year, year, amount) VALUES (?, ?, ?, ?)`,
				projectRow, entry.FiscalYear, entry.Year, string(entry.Amount)); err != nil {
				return fmt.Errorf("failed to insert budget for %q: %w", rec.ProjectName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// domainDescription prefers the snapshot's domain description over the one carried on
// the record.
func domainDescription(snap repository.Snapshot, rec metrics.ProjectRecord) string {
	if desc, ok := snap.DomainDescriptions[rec.Domain]; ok && desc != "" {
		return desc
	}
	return rec.DomainDescription
}
