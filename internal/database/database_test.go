package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	t.Run("From Config", func(t *testing.T) {
		cfg := &config.Config{
			DBMaxOpenConns:           10,
			DBMaxIdleConns:           5,
			DBConnMaxLifetimeMinutes: 15,
		}
		require.NoError(t, configurePool(db, cfg))

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("Defaults", func(t *testing.T) {
		require.NoError(t, configurePool(db, &config.Config{}))

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
	})
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db",
		DBPort:     "5433",
		DBUser:     "ink",
		DBPassword: "secret",
		DBName:     "inkwell",
	}
	assert.Equal(t, "host=db port=5433 user=ink password=secret dbname=inkwell sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestPersistentModels_AutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Post{}))
	assert.True(t, db.Migrator().HasIndex(&models.User{}, "Email"))
	assert.True(t, db.Migrator().HasIndex(&models.Post{}, "AuthorID"))
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 2)
	assert.Equal(t, "000001_create_users", all[0].String())
	assert.Equal(t, "000002_create_posts", all[1].String())

	for _, m := range all {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.Contains(t, m.DownScript, "DROP TABLE", m.String())
	}
	assert.Contains(t, all[0].UpScript, "idx_users_email")
	assert.Contains(t, all[1].UpScript, "REFERENCES users")

	assert.NotNil(t, GetMigrationByVersion(2))
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestLoadMigrations(t *testing.T) {
	t.Run("Sorted And Paired", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000002_b.up.sql":   {Data: []byte("B")},
			"m/000002_b.down.sql": {Data: []byte("-B")},
			"m/000001_a.up.sql":   {Data: []byte("A")},
			"m/000001_a.down.sql": {Data: []byte("-A")},
			"m/bogus.up.sql":      {Data: []byte("x")},
			"m/README.md":         {Data: []byte("ignored")},
		}
		got, err := LoadMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Migration{Version: 1, Name: "a", UpScript: "A", DownScript: "-A"}, got[0])
		assert.Equal(t, 2, got[1].Version)
	})

	t.Run("Missing Down Script", func(t *testing.T) {
		fsys := fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("A")}}
		_, err := LoadMigrations(fsys, "m")
		assert.ErrorContains(t, err, "000001_a.down.sql")
	})

	t.Run("Duplicate Version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("A")},
			"m/000001_a.down.sql": {Data: []byte("-A")},
			"m/000001_b.up.sql":   {Data: []byte("B")},
			"m/000001_b.down.sql": {Data: []byte("-B")},
		}
		_, err := LoadMigrations(fsys, "m")
		assert.ErrorContains(t, err, "duplicate migration version 000001")
	})
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	pending, err := pendingMigrations([]int{1, 3}, registered)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	_, err = pendingMigrations([]int{1, 7, 5}, registered)
	assert.EqualError(t, err, "migration_logs contains unknown versions not present in code: 000005, 000007")
}

type MockMigrationStore struct {
	mock.Mock
}

func (m *MockMigrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockMigrationStore) ApplyMigration(ctx context.Context, version int, name, sql string) error {
	return m.Called(ctx, version, name, sql).Error(0)
}

func (m *MockMigrationStore) RemoveMigration(ctx context.Context, version int, sql string) error {
	return m.Called(ctx, version, sql).Error(0)
}

func TestApplyPending(t *testing.T) {
	ctx := context.Background()
	registered := []Migration{
		{Version: 1, Name: "a", UpScript: "A"},
		{Version: 2, Name: "b", UpScript: "B"},
		{Version: 3, Name: "c", UpScript: "C"},
	}

	t.Run("Applies In Order And Stops On Error", func(t *testing.T) {
		store := new(MockMigrationStore)
		store.On("GetAppliedMigrations", ctx).Return([]int{1}, nil)
		store.On("ApplyMigration", ctx, 2, "b", "B").Return(errors.New("boom")).Once()

		err := applyPending(ctx, store, registered)
		assert.EqualError(t, err, "boom")
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "ApplyMigration", ctx, 3, "c", "C")
	})

	t.Run("Nothing Pending", func(t *testing.T) {
		store := new(MockMigrationStore)
		store.On("GetAppliedMigrations", ctx).Return([]int{1, 2, 3}, nil)

		require.NoError(t, applyPending(ctx, store, registered))
		store.AssertNotCalled(t, "ApplyMigration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRollback(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown Version", func(t *testing.T) {
		store := new(MockMigrationStore)
		assert.EqualError(t, rollback(ctx, store, 42), "migration version 42 not found")
	})

	t.Run("Not Applied", func(t *testing.T) {
		store := new(MockMigrationStore)
		store.On("GetAppliedMigrations", ctx).Return([]int{1}, nil)
		assert.EqualError(t, rollback(ctx, store, 2), "migration 2 has not been applied")
	})

	t.Run("Runs Down Script", func(t *testing.T) {
		store := new(MockMigrationStore)
		store.On("GetAppliedMigrations", ctx).Return([]int{1, 2}, nil)
		store.On("RemoveMigration", ctx, 2, GetMigrationByVersion(2).DownScript).Return(nil)

		require.NoError(t, rollback(ctx, store, 2))
		store.AssertExpectations(t)
	})
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()
	query := func() (string, int64) { return `SELECT * FROM "posts"`, 3 }

	t.Run("Record Not Found Is Quiet", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), query, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("Errors Logged", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), query, errors.New("connection reset"))
		assert.Contains(t, buf.String(), "GORM query error")
		assert.Contains(t, buf.String(), "connection reset")
	})

	t.Run("Slow Query Warned", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now().Add(-time.Second), query, nil)
		assert.Contains(t, buf.String(), "GORM slow query")
	})

	t.Run("Fast Query Quiet At Warn", func(t *testing.T) {
		buf.Reset()
		l.Trace(ctx, time.Now(), query, nil)
		assert.Empty(t, buf.String())
	})

	t.Run("Silent", func(t *testing.T) {
		buf.Reset()
		l.LogMode(logger.Silent).Trace(ctx, time.Now(), query, errors.New("ignored"))
		assert.Empty(t, buf.String())
	})

	t.Run("Params Filtered", func(t *testing.T) {
		sql, params := l.ParamsFilter(ctx, "INSERT INTO users VALUES ($1)", "$2a$12$hash")
		assert.Equal(t, "INSERT INTO users VALUES ($1)", sql)
		assert.Nil(t, params)
	})
}
