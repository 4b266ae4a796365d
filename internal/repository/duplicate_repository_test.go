package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/session-archiver/internal/models"
)

func TestDuplicateRepositoryGroupsRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	at := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("HAVING COUNT(*) > 1")).
		WillReturnRows(sqlmock.NewRows(enrollmentCols).
			AddRow("a", "user-1", "class-1", "session-1", "paid", "pending", at, nil, nil, nil).
			AddRow("b", "user-1", "class-1", "session-1", "paid", "approved", at, nil, nil, nil).
			AddRow("c", "user-2", "class-1", "session-1", "paid", "pending", at, nil, nil, nil).
			AddRow("d", "user-2", "class-1", "session-1", "paid", "pending", at, nil, nil, nil).
			AddRow("e", "user-2", "class-1", "session-1", "paid", "rejected", at, nil, nil, nil))

	repo := NewDuplicateRepository(db)
	groups, err := repo.ListDuplicateGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "user-1", groups[0].UserID)
	assert.Len(t, groups[0].Enrollments, 2)
	assert.Equal(t, "user-2", groups[1].UserID)
	assert.Len(t, groups[1].Enrollments, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDuplicatesDecrementsCountedRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	now := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(enrolled_count - 1, 0)")).
		WithArgs("session-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-rejected").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := NewDuplicateRepository(db)
	decremented, err := repo.DeleteDuplicates(context.Background(), []models.Enrollment{
		{ID: "enr-pending", SessionID: "session-1", EnrollmentStatus: models.EnrollmentStatusPending},
		{ID: "enr-rejected", SessionID: "session-1", EnrollmentStatus: models.EnrollmentStatusRejected},
		{ID: "enr-gone", SessionID: "session-1", EnrollmentStatus: models.EnrollmentStatusApproved},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-pending"}, decremented)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDuplicatesRollsBack(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	repo := NewDuplicateRepository(db)
	_, err := repo.DeleteDuplicates(context.Background(), []models.Enrollment{{ID: "a", EnrollmentStatus: models.EnrollmentStatusPending}}, time.Now())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUniqueConstraint(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("CREATE UNIQUE INDEX IF NOT EXISTS enrollments_user_session_key ON enrollments (user_id, session_id)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewDuplicateRepository(db)
	require.NoError(t, repo.EnsureUniqueConstraint(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
