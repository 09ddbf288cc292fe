package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/pkg/dbctx"
	"github.com/videditor/jobrunner/internal/repo"
	"github.com/videditor/jobrunner/internal/repo/testutil"
)

func insertProject(t *testing.T, tx *gorm.DB) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:              uuid.New(),
		UserID:          "user-1",
		SourceObjectKey: "videos/source.mp4",
		SourceBucket:    "uploads",
	}
	require.NoError(t, tx.Create(p).Error)
	return p
}

func TestProjectRepo_UpdateStatusThumbnailAndDuration(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	projects := repo.NewProjectRepo(tx, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	p := insertProject(t, tx)

	require.NoError(t, projects.UpdateStatus(dbc, p.ID, domain.ProjectStatusProcessing))
	got, err := projects.GetByID(dbc, p.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.ProjectStatusProcessing), got.Status)

	require.NoError(t, projects.UpdateThumbnail(dbc, p.ID, "thumbs/a.jpg", domain.ProjectStatusTranscribing))
	got, err = projects.GetByID(dbc, p.ID)
	require.NoError(t, err)
	require.Equal(t, "thumbs/a.jpg", got.ThumbnailURL)
	require.Equal(t, string(domain.ProjectStatusTranscribing), got.Status)

	require.NoError(t, projects.UpdateDuration(dbc, p.ID, 42.5))
	got, err = projects.GetByID(dbc, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DurationSeconds)
	require.Equal(t, 42.5, *got.DurationSeconds)
}

func TestProjectRepo_GetByIDReturnsNilWhenMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	projects := repo.NewProjectRepo(tx, testLogger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	got, err := projects.GetByID(dbc, uuid.New())
	require.NoError(t, err)
	require.Nil(t, got)
}
