package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/plantuml-studio/internal/diagrams/repository"
)

const (
	owner    = "user-1"
	stranger = "user-2"
)

func setupStore(t *testing.T) *VersionStore {
	t.Helper()
	repo, err := repository.NewMemoryRepository()
	require.NoError(t, err)
	return NewVersionStore(repo)
}

func uml(body string) string {
	return "@startuml\n" + body + "\n@enduml"
}

// assertConsistent checks that the diagram mirrors exactly one existing version.
func assertConsistent(t *testing.T, s *VersionStore, diagramID string) *domain.Diagram {
	t.Helper()
	ctx := context.Background()
	d, err := s.GetDiagram(ctx, diagramID, owner)
	require.NoError(t, err)
	v, err := s.GetVersionByNumber(ctx, diagramID, d.CurrentVersionNumber, owner)
	require.NoError(t, err, "current version %d must exist", d.CurrentVersionNumber)
	assert.Equal(t, v.PlantUMLCode, d.PlantUMLCode)
	return d
}

// seedVersions creates a diagram with versions 1..n; version n is current.
func seedVersions(t *testing.T, s *VersionStore, n int) (*domain.Diagram, []*domain.DiagramVersion) {
	t.Helper()
	ctx := context.Background()
	d, err := s.CreateDiagram(ctx, domain.CreateDiagramInput{OwnerID: owner, Title: "Login", Code: uml("A -> B : v1")})
	require.NoError(t, err)

	v1, err := s.GetVersionByNumber(ctx, d.ID, 1, owner)
	require.NoError(t, err)
	versions := []*domain.DiagramVersion{v1}
	for i := 2; i <= n; i++ {
		v, err := s.AddVersion(ctx, d.ID, owner, domain.CreateVersionInput{Code: uml(fmt.Sprintf("A -> B : v%d", i))})
		require.NoError(t, err)
		versions = append(versions, v)
	}
	return d, versions
}

func TestVersionStore_CreateDiagram(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	d, err := s.CreateDiagram(ctx, domain.CreateDiagramInput{
		OwnerID: owner, Title: "Login", Description: "login flow", Code: uml("A -> B"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 1, d.CurrentVersionNumber)

	versions, err := s.ListVersions(ctx, d.ID, owner)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, domain.InitialVersionLabel, versions[0].Label)
	assert.Equal(t, uml("A -> B"), versions[0].PlantUMLCode)
	assertConsistent(t, s, d.ID)

	t.Run("requires owner and title", func(t *testing.T) {
		_, err := s.CreateDiagram(ctx, domain.CreateDiagramInput{Title: "x"})
		assert.Error(t, err)
		_, err = s.CreateDiagram(ctx, domain.CreateDiagramInput{OwnerID: owner})
		assert.Error(t, err)
	})
}

func TestVersionStore_AddVersion(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	d, _ := seedVersions(t, s, 3)

	t.Run("appends and becomes current regardless of previous pointer", func(t *testing.T) {
		ok, err := s.SwitchVersion(ctx, d.ID, 1, owner)
		require.NoError(t, err)
		require.True(t, ok)

		v, err := s.AddVersion(ctx, d.ID, owner, domain.CreateVersionInput{Code: uml("A -> C"), Label: "tweak", Notes: "n"})
		require.NoError(t, err)
		assert.Equal(t, 4, v.VersionNumber)
		assert.Equal(t, "tweak", v.Label)

		got := assertConsistent(t, s, d.ID)
		assert.Equal(t, 4, got.CurrentVersionNumber)
		assert.Equal(t, uml("A -> C"), got.PlantUMLCode)
	})

	t.Run("numbers are never reused after deletion", func(t *testing.T) {
		v2, err := s.GetVersionByNumber(ctx, d.ID, 2, owner)
		require.NoError(t, err)
		ok, err := s.DeleteVersion(ctx, v2.ID, owner)
		require.NoError(t, err)
		require.True(t, ok)

		v, err := s.AddVersion(ctx, d.ID, owner, domain.CreateVersionInput{Code: uml("A -> D")})
		require.NoError(t, err)
		assert.Equal(t, 5, v.VersionNumber)
	})

	t.Run("foreign owner sees not found", func(t *testing.T) {
		_, err := s.AddVersion(ctx, d.ID, stranger, domain.CreateVersionInput{Code: uml("x")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestVersionStore_SwitchVersion(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	d, versions := seedVersions(t, s, 3)

	ok, err := s.SwitchVersion(ctx, d.ID, 2, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	got := assertConsistent(t, s, d.ID)
	assert.Equal(t, 2, got.CurrentVersionNumber)
	assert.Equal(t, versions[1].PlantUMLCode, got.PlantUMLCode)

	declines := []struct {
		name      string
		diagramID string
		number    int
		user      string
	}{
		{"missing version number", d.ID, 42, owner},
		{"not owner", d.ID, 1, stranger},
		{"missing diagram", "nope", 1, owner},
	}
	for _, tc := range declines {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := s.SwitchVersion(ctx, tc.diagramID, tc.number, tc.user)
			require.NoError(t, err)
			assert.False(t, ok)

			after := assertConsistent(t, s, d.ID)
			assert.Equal(t, 2, after.CurrentVersionNumber)
			assert.Equal(t, got.UpdatedAt, after.UpdatedAt)
		})
	}
}

func TestVersionStore_DeleteVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("only version is refused", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 1)

		ok, err := s.DeleteVersion(ctx, versions[0].ID, owner)
		require.NoError(t, err)
		assert.False(t, ok)

		vs, err := s.ListVersions(ctx, d.ID, owner)
		require.NoError(t, err)
		assert.Len(t, vs, 1)
		assertConsistent(t, s, d.ID)
	})

	t.Run("non-current leaves pointer unchanged", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 3)

		ok, err := s.DeleteVersion(ctx, versions[0].ID, owner)
		require.NoError(t, err)
		assert.True(t, ok)

		got := assertConsistent(t, s, d.ID)
		assert.Equal(t, 3, got.CurrentVersionNumber)
		assert.Equal(t, versions[2].PlantUMLCode, got.PlantUMLCode)
		_, err = s.GetVersion(ctx, versions[0].ID, owner)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("current promotes highest remaining", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 3)

		ok, err := s.DeleteVersion(ctx, versions[2].ID, owner)
		require.NoError(t, err)
		assert.True(t, ok)

		got := assertConsistent(t, s, d.ID)
		assert.Equal(t, 2, got.CurrentVersionNumber)
		assert.Equal(t, versions[1].PlantUMLCode, got.PlantUMLCode)
	})

	t.Run("current with gaps promotes highest remaining", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 4)

		ok, err := s.DeleteVersion(ctx, versions[2].ID, owner)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.SwitchVersion(ctx, d.ID, 1, owner)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.DeleteVersion(ctx, versions[0].ID, owner)
		require.NoError(t, err)
		assert.True(t, ok)

		got := assertConsistent(t, s, d.ID)
		assert.Equal(t, 4, got.CurrentVersionNumber)
	})

	t.Run("not owner or missing is declined", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 2)

		ok, err := s.DeleteVersion(ctx, versions[0].ID, stranger)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.DeleteVersion(ctx, "missing", owner)
		require.NoError(t, err)
		assert.False(t, ok)

		vs, err := s.ListVersions(ctx, d.ID, owner)
		require.NoError(t, err)
		assert.Len(t, vs, 2)
	})
}

func TestVersionStore_DeleteDiagram(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades", func(t *testing.T) {
		s := setupStore(t)
		d, versions := seedVersions(t, s, 2)

		require.NoError(t, s.DeleteDiagram(ctx, d.ID))
		_, err := s.GetDiagram(ctx, d.ID, owner)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.GetVersion(ctx, versions[1].ID, owner)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("owned delete checks owner", func(t *testing.T) {
		s := setupStore(t)
		d, _ := seedVersions(t, s, 1)

		ok, err := s.DeleteOwnedDiagram(ctx, d.ID, stranger)
		require.NoError(t, err)
		assert.False(t, ok)
		assertConsistent(t, s, d.ID)

		ok, err = s.DeleteOwnedDiagram(ctx, d.ID, owner)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestVersionStore_ReadSideHidesForeignDiagrams(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	d, versions := seedVersions(t, s, 2)

	_, err := s.GetDiagram(ctx, d.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.ListVersions(ctx, d.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetVersion(ctx, versions[0].ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetVersionByNumber(ctx, d.ID, 1, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.ListDiagrams(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVersionStore_ConcurrentAddVersion(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	d, _ := seedVersions(t, s, 1)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.AddVersion(ctx, d.ID, owner, domain.CreateVersionInput{Code: uml(fmt.Sprintf("A -> B : %d", i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	vs, err := s.ListVersions(ctx, d.ID, owner)
	require.NoError(t, err)
	require.Len(t, vs, n+1)
	for i, v := range vs {
		assert.Equal(t, n+1-i, v.VersionNumber)
	}
	got := assertConsistent(t, s, d.ID)
	assert.Equal(t, n+1, got.CurrentVersionNumber)
}

type failingRepo struct {
	repository.Repository
	err error
}

func (f failingRepo) WithTx(context.Context, func(repository.Tx) error) error { return f.err }

func TestVersionStore_InfrastructureFaultsPropagate(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewVersionStore(failingRepo{err: boom})

	ok, err := s.SwitchVersion(context.Background(), "d", 1, owner)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	ok, err = s.DeleteVersion(context.Background(), "v", owner)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}
