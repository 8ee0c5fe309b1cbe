package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ekklesia-certificates/internal/model"
)

func TestRecordRepo_MemberName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery("SELECT name FROM members").
		WithArgs("m1", "ch1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ana Silva"))
	name, err := repo.MemberName(context.Background(), "ch1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", name)

	mock.ExpectQuery("SELECT name FROM members").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	_, err = repo.MemberName(context.Background(), "ch1", "m2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRepo_CourseCompletion(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery("FROM member_courses").
		WithArgs("m1", "co1").
		WillReturnRows(sqlmock.NewRows([]string{"church_id"}).AddRow("ch1"))
	ok, church, err := repo.CourseCompletion(context.Background(), "m1", "co1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ch1", church)

	mock.ExpectQuery("FROM member_courses").WillReturnRows(sqlmock.NewRows([]string{"church_id"}))
	ok, _, err = repo.CourseCompletion(context.Background(), "m1", "co2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRepo_Attended(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)

	mock.ExpectQuery("FROM attendances").
		WithArgs("m1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	ok, err := repo.Attended(context.Background(), "m1", "e1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordRepo_Details(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepo(db)
	eventID := "e1"
	date := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT name FROM churches").
		WithArgs("ch1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Igreja Central"))
	mock.ExpectQuery("SELECT title, date, type FROM events").
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"title", "date", "type"}).AddRow("Retiro", date, "RETREAT"))

	d, err := repo.Details(context.Background(), &model.Certificate{ChurchID: "ch1", Type: "EVENT", EventID: &eventID})
	require.NoError(t, err)
	assert.Equal(t, "Igreja Central", d.ChurchName)
	require.NotNil(t, d.Event)
	assert.Equal(t, "Retiro", d.Event.Title)
	assert.Nil(t, d.Baptism)
	assert.Nil(t, d.Course)
}

func TestValidationRepo_Record(t *testing.T) {
	db, mock := newMock(t)
	repo := NewValidationRepo(db)
	ip := "10.0.0.1"

	mock.ExpectExec("INSERT INTO certificate_validations").
		WithArgs(sqlmock.AnyArg(), "c1", false, "10.0.0.1", nil, "Certificado revogado").
		WillReturnResult(sqlmock.NewResult(0, 1))

	v := &model.CertificateValidation{CertificateID: "c1", IPAddress: &ip, Notes: "Certificado revogado"}
	require.NoError(t, repo.Record(context.Background(), v))
	assert.Len(t, v.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepo_CountForCertificate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewValidationRepo(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM certificate_validations").WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))

	n, err := repo.CountForCertificate(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Rotate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW\\(\\)").WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(uint64(7), "new", exp).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Rotate(context.Background(), 7, "old", "new", exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_RotateAlreadyRevoked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW\\(\\)").WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), 7, "old", "new", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_ValidateRefreshExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash=\\?").
		WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(uint64(7), time.Now().Add(-time.Minute), nil))

	_, err := repo.ValidateRefresh(context.Background(), "h")
	assert.ErrorIs(t, err, ErrNotFound)
}
