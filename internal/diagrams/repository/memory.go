package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
)

const (
	tblDiagrams = "diagrams"
	tblVersions = "diagram_versions"
)

var memSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblDiagrams: {
			Name: tblDiagrams,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"owner_id": {
					Name:    "owner_id",
					Indexer: &memdb.StringFieldIndex{Field: "OwnerID"},
				},
			},
		},
		tblVersions: {
			Name: tblVersions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"diagram_id": {
					Name:    "diagram_id",
					Indexer: &memdb.StringFieldIndex{Field: "DiagramID"},
				},
				"diagram_id_number": {
					Name:   "diagram_id_number",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "DiagramID"},
							&memdb.IntFieldIndex{Field: "VersionNumber"},
						},
					},
				},
			},
		},
	},
}

// MemoryRepository keeps diagrams in a go-memdb database. Write transactions
// are single-writer, which serializes every mutation.
type MemoryRepository struct {
	db *memdb.MemDB
}

func NewMemoryRepository() (*MemoryRepository, error) {
	db, err := memdb.NewMemDB(memSchema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &MemoryRepository{db: db}, nil
}

func (r *MemoryRepository) WithTx(_ context.Context, fn func(tx Tx) error) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if err := fn(&memTx{txn: txn}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *MemoryRepository) GetDiagram(_ context.Context, id string) (*domain.Diagram, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	return findDiagram(txn, id)
}

func (r *MemoryRepository) ListDiagramsByOwner(_ context.Context, ownerID string) ([]domain.Diagram, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblDiagrams, "owner_id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list diagrams by owner: %w", err)
	}
	out := []domain.Diagram{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*domain.Diagram))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) ListVersions(_ context.Context, diagramID string) ([]domain.DiagramVersion, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	out, err := versionsOf(txn, diagramID)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VersionNumber > out[j].VersionNumber
	})
	return out, nil
}

func (r *MemoryRepository) GetVersion(_ context.Context, id string) (*domain.DiagramVersion, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	return findVersion(txn, id)
}

func (r *MemoryRepository) GetVersionByNumber(_ context.Context, diagramID string, number int) (*domain.DiagramVersion, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	return findVersionByNumber(txn, diagramID, number)
}

type memTx struct {
	txn *memdb.Txn
}

func (t *memTx) LockDiagram(_ context.Context, id string) (*domain.Diagram, error) {
	return findDiagram(t.txn, id)
}

func (t *memTx) InsertDiagram(_ context.Context, d *domain.Diagram) error {
	existing, err := t.txn.First(tblDiagrams, "id", d.ID)
	if err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: diagram %s exists", domain.ErrConflict, d.ID)
	}
	cp := *d
	if err := t.txn.Insert(tblDiagrams, &cp); err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}
	return nil
}

func (t *memTx) DeleteDiagram(_ context.Context, id string) error {
	raw, err := t.txn.First(tblDiagrams, "id", id)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if _, err := t.txn.DeleteAll(tblVersions, "diagram_id", id); err != nil {
		return fmt.Errorf("delete diagram versions: %w", err)
	}
	if err := t.txn.Delete(tblDiagrams, raw); err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	return nil
}

func (t *memTx) SetCurrentVersion(_ context.Context, diagramID string, number int, code string, at time.Time) error {
	d, err := findDiagram(t.txn, diagramID)
	if err != nil {
		return err
	}
	d.CurrentVersionNumber = number
	d.PlantUMLCode = code
	d.UpdatedAt = at
	if err := t.txn.Insert(tblDiagrams, d); err != nil {
		return fmt.Errorf("update diagram: %w", err)
	}
	return nil
}

func (t *memTx) InsertVersion(_ context.Context, v *domain.DiagramVersion) error {
	parent, err := t.txn.First(tblDiagrams, "id", v.DiagramID)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	if parent == nil {
		return fmt.Errorf("insert version: diagram %s: %w", v.DiagramID, domain.ErrNotFound)
	}
	dup, err := t.txn.First(tblVersions, "diagram_id_number", v.DiagramID, v.VersionNumber)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	if dup != nil {
		return fmt.Errorf("%w: version %d of diagram %s exists", domain.ErrConflict, v.VersionNumber, v.DiagramID)
	}
	cp := *v
	if err := t.txn.Insert(tblVersions, &cp); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (t *memTx) DeleteVersion(_ context.Context, id string) error {
	raw, err := t.txn.First(tblVersions, "id", id)
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if raw == nil {
		return domain.ErrNotFound
	}
	if err := t.txn.Delete(tblVersions, raw); err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	return nil
}

func (t *memTx) VersionByID(_ context.Context, id string) (*domain.DiagramVersion, error) {
	return findVersion(t.txn, id)
}

func (t *memTx) VersionByNumber(_ context.Context, diagramID string, number int) (*domain.DiagramVersion, error) {
	return findVersionByNumber(t.txn, diagramID, number)
}

func (t *memTx) CountVersions(_ context.Context, diagramID string) (int, error) {
	vs, err := versionsOf(t.txn, diagramID)
	return len(vs), err
}

func (t *memTx) NextVersionNumber(_ context.Context, diagramID string) (int, error) {
	vs, err := versionsOf(t.txn, diagramID)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, v := range vs {
		if v.VersionNumber > highest {
			highest = v.VersionNumber
		}
	}
	return highest + 1, nil
}

func (t *memTx) LatestVersionExcluding(_ context.Context, diagramID, excludeID string) (*domain.DiagramVersion, error) {
	vs, err := versionsOf(t.txn, diagramID)
	if err != nil {
		return nil, err
	}
	var latest *domain.DiagramVersion
	for i := range vs {
		if vs[i].ID == excludeID {
			continue
		}
		if latest == nil || vs[i].VersionNumber > latest.VersionNumber {
			latest = &vs[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func findDiagram(txn *memdb.Txn, id string) (*domain.Diagram, error) {
	raw, err := txn.First(tblDiagrams, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find diagram by id: %w", err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	cp := *raw.(*domain.Diagram)
	return &cp, nil
}

func findVersion(txn *memdb.Txn, id string) (*domain.DiagramVersion, error) {
	raw, err := txn.First(tblVersions, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find version by id: %w", err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	cp := *raw.(*domain.DiagramVersion)
	return &cp, nil
}

func findVersionByNumber(txn *memdb.Txn, diagramID string, number int) (*domain.DiagramVersion, error) {
	raw, err := txn.First(tblVersions, "diagram_id_number", diagramID, number)
	if err != nil {
		return nil, fmt.Errorf("find version by number: %w", err)
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	cp := *raw.(*domain.DiagramVersion)
	return &cp, nil
}

func versionsOf(txn *memdb.Txn, diagramID string) ([]domain.DiagramVersion, error) {
	it, err := txn.Get(tblVersions, "diagram_id", diagramID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := []domain.DiagramVersion{}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*domain.DiagramVersion))
	}
	return out, nil
}
