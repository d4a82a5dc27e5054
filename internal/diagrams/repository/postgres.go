package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
)

const uniqueViolation = "23505"

const diagramColumns = `id, owner_id, title, description, plantuml_code, current_version_number, created_at, updated_at`

const versionColumns = `id, diagram_id, version_number, plantuml_code, label, notes, created_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresRepository provides persistence for diagrams on database/sql.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new diagram repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetDiagram(ctx context.Context, id string) (*domain.Diagram, error) {
	return getDiagram(ctx, r.db, id, false)
}

func (r *PostgresRepository) ListDiagramsByOwner(ctx context.Context, ownerID string) ([]domain.Diagram, error) {
	rows, err := r.db.QueryContext(ctx, `
select `+diagramColumns+`
from diagrams
where owner_id = $1
order by updated_at desc
`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Diagram{}
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListVersions(ctx context.Context, diagramID string) ([]domain.DiagramVersion, error) {
	if !isUUID(diagramID) {
		return []domain.DiagramVersion{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
select `+versionColumns+`
from diagram_versions
where diagram_id = $1
order by version_number desc
`, diagramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DiagramVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetVersion(ctx context.Context, id string) (*domain.DiagramVersion, error) {
	return versionByID(ctx, r.db, id)
}

func (r *PostgresRepository) GetVersionByNumber(ctx context.Context, diagramID string, number int) (*domain.DiagramVersion, error) {
	return versionByNumber(ctx, r.db, diagramID, number)
}

type pgTx struct {
	q queryer
}

func (t *pgTx) LockDiagram(ctx context.Context, id string) (*domain.Diagram, error) {
	return getDiagram(ctx, t.q, id, true)
}

func (t *pgTx) InsertDiagram(ctx context.Context, d *domain.Diagram) error {
	_, err := t.q.ExecContext(ctx, `
insert into diagrams (`+diagramColumns+`)
values ($1, $2, $3, $4, $5, $6, $7, $8)
`, d.ID, d.OwnerID, d.Title, d.Description, d.PlantUMLCode, d.CurrentVersionNumber, d.CreatedAt, d.UpdatedAt)
	return mapWriteErr(err)
}

func (t *pgTx) DeleteDiagram(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	res, err := t.q.ExecContext(ctx, `delete from diagrams where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *pgTx) SetCurrentVersion(ctx context.Context, diagramID string, number int, code string, at time.Time) error {
	res, err := t.q.ExecContext(ctx, `
update diagrams
set current_version_number = $2,
    plantuml_code = $3,
    updated_at = $4
where id = $1
`, diagramID, number, code, at)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *pgTx) InsertVersion(ctx context.Context, v *domain.DiagramVersion) error {
	_, err := t.q.ExecContext(ctx, `
insert into diagram_versions (`+versionColumns+`)
values ($1, $2, $3, $4, $5, $6, $7)
`, v.ID, v.DiagramID, v.VersionNumber, v.PlantUMLCode, v.Label, v.Notes, v.CreatedAt)
	return mapWriteErr(err)
}

func (t *pgTx) DeleteVersion(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	res, err := t.q.ExecContext(ctx, `delete from diagram_versions where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (t *pgTx) VersionByID(ctx context.Context, id string) (*domain.DiagramVersion, error) {
	return versionByID(ctx, t.q, id)
}

func (t *pgTx) VersionByNumber(ctx context.Context, diagramID string, number int) (*domain.DiagramVersion, error) {
	return versionByNumber(ctx, t.q, diagramID, number)
}

func (t *pgTx) CountVersions(ctx context.Context, diagramID string) (int, error) {
	var n int
	err := t.q.QueryRowContext(ctx, `select count(*) from diagram_versions where diagram_id = $1`, diagramID).Scan(&n)
	return n, err
}

func (t *pgTx) NextVersionNumber(ctx context.Context, diagramID string) (int, error) {
	var next int
	err := t.q.QueryRowContext(ctx, `
select coalesce(max(version_number), 0) + 1
from diagram_versions
where diagram_id = $1
`, diagramID).Scan(&next)
	return next, err
}

func (t *pgTx) LatestVersionExcluding(ctx context.Context, diagramID, excludeID string) (*domain.DiagramVersion, error) {
	row := t.q.QueryRowContext(ctx, `
select `+versionColumns+`
from diagram_versions
where diagram_id = $1
  and id <> $2
order by version_number desc
limit 1
`, diagramID, excludeID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return v, err
}

func getDiagram(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Diagram, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	query := `
select ` + diagramColumns + `
from diagrams
where id = $1
`
	if forUpdate {
		query += "for update\n"
	}
	d, err := scanDiagram(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func versionByID(ctx context.Context, q queryer, id string) (*domain.DiagramVersion, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	v, err := scanVersion(q.QueryRowContext(ctx, `
select `+versionColumns+`
from diagram_versions
where id = $1
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return v, err
}

func versionByNumber(ctx context.Context, q queryer, diagramID string, number int) (*domain.DiagramVersion, error) {
	if !isUUID(diagramID) {
		return nil, domain.ErrNotFound
	}
	v, err := scanVersion(q.QueryRowContext(ctx, `
select `+versionColumns+`
from diagram_versions
where diagram_id = $1
  and version_number = $2
`, diagramID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return v, err
}

func scanDiagram(row rowScanner) (*domain.Diagram, error) {
	var d domain.Diagram
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.Description,
		&d.PlantUMLCode, &d.CurrentVersionNumber,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanVersion(row rowScanner) (*domain.DiagramVersion, error) {
	var v domain.DiagramVersion
	if err := row.Scan(
		&v.ID, &v.DiagramID, &v.VersionNumber,
		&v.PlantUMLCode, &v.Label, &v.Notes,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
	}
	return err
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
