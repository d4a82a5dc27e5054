package repository

import (
	"context"
	"time"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
)

// Repository is the persistence collaborator for diagrams and their versions.
// Lookups that find nothing return domain.ErrNotFound.
type Repository interface {
	// WithTx runs fn in a single transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetDiagram(ctx context.Context, id string) (*domain.Diagram, error)
	ListDiagramsByOwner(ctx context.Context, ownerID string) ([]domain.Diagram, error)
	ListVersions(ctx context.Context, diagramID string) ([]domain.DiagramVersion, error)
	GetVersion(ctx context.Context, id string) (*domain.DiagramVersion, error)
	GetVersionByNumber(ctx context.Context, diagramID string, number int) (*domain.DiagramVersion, error)
}

// Tx is the write side. LockDiagram must be called before any version change so
// that mutations of one diagram are serialized.
type Tx interface {
	LockDiagram(ctx context.Context, id string) (*domain.Diagram, error)
	InsertDiagram(ctx context.Context, d *domain.Diagram) error
	DeleteDiagram(ctx context.Context, id string) error
	SetCurrentVersion(ctx context.Context, diagramID string, number int, code string, at time.Time) error

	InsertVersion(ctx context.Context, v *domain.DiagramVersion) error
	DeleteVersion(ctx context.Context, id string) error
	VersionByID(ctx context.Context, id string) (*domain.DiagramVersion, error)
	VersionByNumber(ctx context.Context, diagramID string, number int) (*domain.DiagramVersion, error)
	CountVersions(ctx context.Context, diagramID string) (int, error)
	NextVersionNumber(ctx context.Context, diagramID string) (int, error)
	// LatestVersionExcluding returns the highest-numbered version of the diagram
	// other than excludeID.
	LatestVersionExcluding(ctx context.Context, diagramID, excludeID string) (*domain.DiagramVersion, error)
}
