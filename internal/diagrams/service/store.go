package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/repository"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
)

var errLastVersion = errors.New("last version")

// VersionStore owns the diagram/version lifecycle. Every mutation runs in one
// repository transaction that locks the diagram first and re-checks ownership.
type VersionStore struct {
	repo  repository.Repository
	now   func() time.Time
	newID func() string
}

func NewVersionStore(repo repository.Repository) *VersionStore {
	return &VersionStore{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// CreateDiagram stores the diagram together with version 1.
func (s *VersionStore) CreateDiagram(ctx context.Context, in domain.CreateDiagramInput) (*domain.Diagram, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("owner id required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title required")
	}

	now := s.now()
	d := &domain.Diagram{
		ID:                   s.newID(),
		OwnerID:              in.OwnerID,
		Title:                in.Title,
		Description:          in.Description,
		PlantUMLCode:         in.Code,
		CurrentVersionNumber: 1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	v := &domain.DiagramVersion{
		ID:            s.newID(),
		DiagramID:     d.ID,
		VersionNumber: 1,
		PlantUMLCode:  in.Code,
		Label:         domain.InitialVersionLabel,
		CreatedAt:     now,
	}

	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertDiagram(ctx, d); err != nil {
			return err
		}
		return tx.InsertVersion(ctx, v)
	})
	if err != nil {
		logging.FromContext(ctx).LogError("create_diagram", err)
		return nil, err
	}

	logging.FromContext(ctx).LogInfof("create_diagram", "diagram_id=%s owner=%s", d.ID, d.OwnerID)
	return d, nil
}

// AddVersion appends a version numbered one past the highest existing number
// and makes it current.
func (s *VersionStore) AddVersion(ctx context.Context, diagramID, userID string, in domain.CreateVersionInput) (*domain.DiagramVersion, error) {
	var created *domain.DiagramVersion

	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		d, err := lockOwned(ctx, tx, diagramID, userID)
		if err != nil {
			return err
		}

		next, err := tx.NextVersionNumber(ctx, d.ID)
		if err != nil {
			return err
		}

		now := s.now()
		v := &domain.DiagramVersion{
			ID:            s.newID(),
			DiagramID:     d.ID,
			VersionNumber: next,
			PlantUMLCode:  in.Code,
			Label:         in.Label,
			Notes:         in.Notes,
			CreatedAt:     now,
		}
		if err := tx.InsertVersion(ctx, v); err != nil {
			return err
		}
		if err := tx.SetCurrentVersion(ctx, d.ID, v.VersionNumber, v.PlantUMLCode, now); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(ctx).LogError("add_version", err)
		}
		return nil, err
	}

	logging.FromContext(ctx).LogInfof("add_version", "diagram_id=%s version=%d", diagramID, created.VersionNumber)
	return created, nil
}

// SwitchVersion makes version number current. It returns false without
// mutating anything when the diagram is missing, not owned by userID, or has
// no such version.
func (s *VersionStore) SwitchVersion(ctx context.Context, diagramID string, number int, userID string) (bool, error) {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		d, err := lockOwned(ctx, tx, diagramID, userID)
		if err != nil {
			return err
		}
		v, err := tx.VersionByNumber(ctx, d.ID, number)
		if err != nil {
			return err
		}
		return tx.SetCurrentVersion(ctx, d.ID, v.VersionNumber, v.PlantUMLCode, s.now())
	})
	return declined(ctx, "switch_version", err)
}

// DeleteVersion removes a version. The last remaining version of a diagram is
// never deleted. Deleting the current version first promotes the
// highest-numbered remaining one.
func (s *VersionStore) DeleteVersion(ctx context.Context, versionID, userID string) (bool, error) {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		v, err := tx.VersionByID(ctx, versionID)
		if err != nil {
			return err
		}
		d, err := lockOwned(ctx, tx, v.DiagramID, userID)
		if err != nil {
			return err
		}

		count, err := tx.CountVersions(ctx, d.ID)
		if err != nil {
			return err
		}
		if count <= 1 {
			return errLastVersion
		}

		if d.CurrentVersionNumber == v.VersionNumber {
			replacement, err := tx.LatestVersionExcluding(ctx, d.ID, v.ID)
			if err != nil {
				return err
			}
			if err := tx.SetCurrentVersion(ctx, d.ID, replacement.VersionNumber, replacement.PlantUMLCode, s.now()); err != nil {
				return err
			}
		}
		return tx.DeleteVersion(ctx, v.ID)
	})
	if errors.Is(err, errLastVersion) {
		logging.FromContext(ctx).LogWarnf("delete_version", "refused to delete last version %s", versionID)
		return false, nil
	}
	return declined(ctx, "delete_version", err)
}

// DeleteDiagram removes the diagram and all of its versions.
func (s *VersionStore) DeleteDiagram(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteDiagram(ctx, id)
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.FromContext(ctx).LogError("delete_diagram", err)
	}
	return err
}

// DeleteOwnedDiagram deletes the diagram only if userID owns it.
func (s *VersionStore) DeleteOwnedDiagram(ctx context.Context, id, userID string) (bool, error) {
	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := lockOwned(ctx, tx, id, userID); err != nil {
			return err
		}
		return tx.DeleteDiagram(ctx, id)
	})
	return declined(ctx, "delete_diagram", err)
}

func (s *VersionStore) GetDiagram(ctx context.Context, id, userID string) (*domain.Diagram, error) {
	d, err := s.repo.GetDiagram(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (s *VersionStore) ListDiagrams(ctx context.Context, userID string) ([]domain.Diagram, error) {
	return s.repo.ListDiagramsByOwner(ctx, userID)
}

// ListVersions returns the diagram's versions, newest first.
func (s *VersionStore) ListVersions(ctx context.Context, diagramID, userID string) ([]domain.DiagramVersion, error) {
	if _, err := s.GetDiagram(ctx, diagramID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, diagramID)
}

func (s *VersionStore) GetVersionByNumber(ctx context.Context, diagramID string, number int, userID string) (*domain.DiagramVersion, error) {
	if _, err := s.GetDiagram(ctx, diagramID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetVersionByNumber(ctx, diagramID, number)
}

func (s *VersionStore) GetVersion(ctx context.Context, versionID, userID string) (*domain.DiagramVersion, error) {
	v, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetDiagram(ctx, v.DiagramID, userID); err != nil {
		return nil, err
	}
	return v, nil
}

// lockOwned locks the diagram row and hides diagrams owned by someone else.
func lockOwned(ctx context.Context, tx repository.Tx, diagramID, userID string) (*domain.Diagram, error) {
	d, err := tx.LockDiagram(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != userID {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// declined turns not-found outcomes into (false, nil). Anything else is an
// infrastructure fault.
func declined(ctx context.Context, operation string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		logging.FromContext(ctx).LogInfof(operation, "declined: %v", err)
		return false, nil
	default:
		logging.FromContext(ctx).LogError(operation, err)
		return false, err
	}
}
