package deployments

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "history.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Deployment{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return NewRepository(db)
}

func TestRepository_CreateAssignsIDAndTimestamp(t *testing.T) {
	repo := newTestRepository(t)

	deployment := &Deployment{Title: "Weekly Update", ImageURL: "https://example.com/a.png", Host: "vps", Username: "root", Success: true}
	require.NoError(t, repo.Create(deployment))

	assert.NotEmpty(t, deployment.ID)
	assert.False(t, deployment.CreatedAt.IsZero())

	last, err := repo.GetLast()
	require.NoError(t, err)
	assert.Equal(t, deployment.ID, last.ID)
	assert.Equal(t, "Weekly Update", last.Title)
	assert.True(t, last.Success)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Now().Add(-time.Hour)

	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(&Deployment{
			Title:     title,
			ImageURL:  "https://example.com/a.png",
			Host:      "vps",
			Username:  "root",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title)
	assert.Equal(t, "first", all[2].Title)

	limited, err := repo.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "second", limited[1].Title)
}

func TestRepository_DeleteAll(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Create(&Deployment{Title: "t", ImageURL: "u", Host: "h", Username: "u"}))
	require.NoError(t, repo.DeleteAll())

	all, err := repo.List(0)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = repo.GetLast()
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
