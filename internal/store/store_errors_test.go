package store

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// newMockStore backs the store with sqlmock so driver-level failures can be
// injected without a real database.
func newMockStore(t *testing.T) (*RecordingStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	return NewRecordingStore(gdb), mock
}

func TestGetBySlugQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := s.GetBySlug("otter-lamp-123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to look up slug")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlugExistsQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("connection reset"))

	_, err := s.SlugExists("otter-lamp-123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check slug")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("disk I/O error"))

	_, err := s.ListExpired(time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list expired recordings")

	assert.NoError(t, mock.ExpectationsWereMet())
}
