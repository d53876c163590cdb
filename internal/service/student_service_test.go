package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academia-api/internal/models"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
	"github.com/noah-isme/academia-api/pkg/storage"
)

var muayThai = models.Modality{ID: "5d0c1a52-7c4e-4b8a-9f0e-1f6a3c2b8d01", Name: "Muay Thai"}

func newStudentServiceForTest(repo *fakeStudentRepo, photos photoStorage) *StudentService {
	svc := NewStudentService(repo, repo, photos, nil, nil, nil, nil, StudentServiceConfig{DefaultCity: "Jacobina", DefaultState: "BA"})
	svc.now = fixedNow(2024, 3, 10)
	return svc
}

func validStudentInput() StudentInput {
	return StudentInput{
		FullName:    "Ana  Souza",
		Document:    "123.456.789-01",
		IDNumber:    "12.345.678-9",
		Sex:         "F",
		BirthDate:   "1994-03-10",
		Phone:       "(74) 99999-8888",
		ModalityIDs: []string{muayThai.ID},
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.True(t, errors.Is(err, appErrors.ErrValidation), "expected validation error, got %v", err)
	out := map[string]string{}
	for _, f := range appErrors.FromError(err).Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestStudentServiceCreateNormalizesAndDefaults(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	view, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", view.FullName)
	assert.Equal(t, "12345678901", view.Document)
	assert.Equal(t, "123456789", view.IDNumber)
	require.NotNil(t, view.Phone)
	assert.Equal(t, "5574999998888", *view.Phone)
	assert.Equal(t, "(74) 9 9999-8888", view.PhoneDisplay)
	assert.Equal(t, "Jacobina", view.City)
	assert.Equal(t, "BA", view.State)
	assert.Equal(t, date(2024, 3, 10), view.EnrolledOn)
	assert.True(t, view.Active)
	assert.Equal(t, models.StudentStatusActive, view.Status)
	assert.Equal(t, 30, view.Age)
	assert.Equal(t, []models.Modality{muayThai}, view.Modalities)
}

func TestStudentServiceDuplicateDocumentConflicts(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	second := validStudentInput()
	second.IDNumber = "999"
	_, err = svc.Create(context.Background(), second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, appErrors.FromError(err).Fields)
}

func TestStudentServiceDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	first := validStudentInput()
	first.Email = "ana@example.com"
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := validStudentInput()
	second.Document, second.IDNumber, second.Email = "222", "333", "ANA@example.com"
	_, err = svc.Create(context.Background(), second)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestStudentServiceReportsEveryInvalidField(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	in := validStudentInput()
	in.FullName = "Ana 2"
	in.Document = "123A"
	in.Phone = "9999-888"
	in.BirthDate = "10/03/1994"
	in.ModalityIDs = nil

	_, err := svc.Create(context.Background(), in)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "document")
	assert.Contains(t, fields, "phone")
	assert.Contains(t, fields, "birth_date")
	assert.Contains(t, fields, "modality_ids")
	assert.Empty(t, repo.students)
}

func TestStudentServiceUnknownModality(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	in := validStudentInput()
	in.ModalityIDs = []string{muayThai.ID, "9b7e2f4a-3c1d-4e5f-8a6b-0c9d8e7f6a5b"}
	_, err := svc.Create(context.Background(), in)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields["modality_ids"], "unknown modality: 9b7e2f4a-3c1d-4e5f-8a6b-0c9d8e7f6a5b")
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	created, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	in := validStudentInput()
	inactive := false
	in.Active = &inactive
	in.City = "Salvador"
	updated, err := svc.Update(context.Background(), created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Salvador", updated.City)
	assert.Equal(t, models.StudentStatusInactive, updated.Status)
	assert.Equal(t, created.EnrolledOn, updated.EnrolledOn)

	_, err = svc.Update(context.Background(), "missing", in)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceListDefaultsToCaller(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	active := true
	views, err := svc.List(context.Background(), models.StudentFilter{Active: &active, Search: "ana"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "ana", repo.lastList.Search)
}

func TestStudentServiceDeleteRemovesPhoto(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	photos := &fakePhotoStorage{}
	svc := newStudentServiceForTest(repo, photos)

	created, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)
	withPhoto, err := svc.AttachPhoto(context.Background(), created.ID, "me.JPG", strings.NewReader("jpeg"))
	require.NoError(t, err)
	require.NotNil(t, withPhoto.PhotoPath)
	assert.True(t, strings.HasPrefix(*withPhoto.PhotoPath, "student_photos/"))

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, []string{*withPhoto.PhotoPath}, photos.deleted)

	err = svc.Delete(context.Background(), created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceAttachPhotoRejectsBadUploads(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	photos := &fakePhotoStorage{}
	svc := newStudentServiceForTest(repo, photos)

	created, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	_, err = svc.AttachPhoto(context.Background(), created.ID, "notes.txt", strings.NewReader("x"))
	assert.Contains(t, fieldsOf(t, err), "photo")

	photos.saveErr = storage.ErrTooLarge
	_, err = svc.AttachPhoto(context.Background(), created.ID, "big.png", strings.NewReader("x"))
	assert.Equal(t, "file is too large", fieldsOf(t, err)["photo"])
}

func TestStudentServiceDeletePhoto(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	photos := &fakePhotoStorage{}
	svc := newStudentServiceForTest(repo, photos)

	created, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)
	_, err = svc.AttachPhoto(context.Background(), created.ID, "me.png", strings.NewReader("png"))
	require.NoError(t, err)

	require.NoError(t, svc.DeletePhoto(context.Background(), created.ID))
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PhotoPath)
	assert.Len(t, photos.deleted, 1)
}

func TestStudentServiceStorageFailureIsGeneric(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	repo.err = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	svc := newStudentServiceForTest(repo, nil)

	_, err := svc.List(context.Background(), models.StudentFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStorage))
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrStorage.Message, appErr.Message)
	assert.NotContains(t, appErr.Message, "10.0.0.5")
}

func TestStudentServiceMalformedIDs(t *testing.T) {
	repo := newFakeStudentRepo(muayThai)
	svc := newStudentServiceForTest(repo, nil)

	in := validStudentInput()
	in.ModalityIDs = []string{"not-an-id"}
	_, err := svc.Create(context.Background(), in)
	fields := fieldsOf(t, err)
	assert.Equal(t, "must be a valid identifier", fields["modality_ids"])
	assert.Empty(t, repo.students)

	repo.err = &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}
	_, err = svc.Get(context.Background(), "abc")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(context.Background(), "abc"), appErrors.ErrNotFound))
	_, err = svc.Update(context.Background(), "abc", validStudentInput())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.True(t, errors.Is(svc.DeletePhoto(context.Background(), "abc"), appErrors.ErrNotFound))
}
