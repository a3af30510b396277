package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Manager {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &Manager{DB: db, SqlDB: sqlDB, IsValid: true, Logger: zerolog.Nop()}
}

func TestMigrate(t *testing.T) {
	m := openTestDB(t)

	require.NoError(t, m.Setup())
	for _, table := range model.DatabaseModels {
		assert.True(t, m.DB.Migrator().HasTable(table), "%T", table)
	}

	var infos []model.DogfightInfo
	require.NoError(t, m.DB.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "dogfight", infos[0].GroupName)

	// second run keeps the single info row
	require.NoError(t, Migrate(m.DB))
	var count int64
	require.NoError(t, m.DB.Model(&model.DogfightInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpSQLite(t *testing.T) {
	m := openTestDB(t)
	require.NoError(t, m.Setup())
	require.NoError(t, m.DB.Create(&model.Episode{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "out", "dump.db")
	m.SqliteFilePath = path
	require.NoError(t, m.DumpMemoryToDisk())
	// dumping again replaces the file
	require.NoError(t, m.DumpMemoryToDisk())

	dumped, err := OpenSQLite(path)
	require.NoError(t, err)
	var ep model.Episode
	require.NoError(t, dumped.First(&ep).Error)
	assert.Equal(t, "dumped", ep.Name)
	sqlDB, _ := dumped.DB()
	_ = sqlDB.Close()
}

func TestDumpSQLite_NoPath(t *testing.T) {
	m := openTestDB(t)
	err := m.DumpMemoryToDisk()
	assert.ErrorContains(t, err, "path not set")
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt", "db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.db"), 0755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)

	_, err = GetBackupDBPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestManagerClose_NoConnection(t *testing.T) {
	assert.NoError(t, NewManager(zerolog.Nop()).Close())
}
