package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/pkg/database"
	appErrors "github.com/noah-isme/academia-api/pkg/errors"
)

func fixedNow(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

type fakeStudentRepo struct {
	students map[string]models.Student
	links    map[string][]string
	catalog  map[string]models.Modality
	err      error
	lastList models.StudentFilter
}

func newFakeStudentRepo(catalog ...models.Modality) *fakeStudentRepo {
	repo := &fakeStudentRepo{students: map[string]models.Student{}, links: map[string][]string{}, catalog: map[string]models.Modality{}}
	for _, m := range catalog {
		repo.catalog[m.ID] = m
	}
	return repo
}

func (f *fakeStudentRepo) detail(s models.Student) models.StudentDetail {
	d := models.StudentDetail{Student: s}
	for _, id := range f.links[s.ID] {
		d.Modalities = append(d.Modalities, f.catalog[id])
	}
	return d
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	f.lastList = filter
	if f.err != nil {
		return nil, f.err
	}
	var out []models.StudentDetail
	for _, s := range f.students {
		if filter.Active != nil && s.Active != *filter.Active {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" && !strings.Contains(strings.ToLower(s.FullName), q) && !strings.Contains(s.Document, q) {
			continue
		}
		out = append(out, f.detail(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := f.detail(s)
	return &d, nil
}

func (f *fakeStudentRepo) conflicts(s *models.Student) bool {
	for id, other := range f.students {
		if id == s.ID {
			continue
		}
		if other.Document == s.Document || other.IDNumber == s.IDNumber {
			return true
		}
		if other.Email != nil && s.Email != nil && *other.Email == *s.Email {
			return true
		}
	}
	return false
}

func (f *fakeStudentRepo) Create(ctx context.Context, s *models.Student, modalityIDs []string) error {
	if f.err != nil {
		return f.err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if f.conflicts(s) {
		return fmt.Errorf("create student: %w", database.ErrUniqueViolation)
	}
	f.students[s.ID] = *s
	f.links[s.ID] = modalityIDs
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, s *models.Student, modalityIDs []string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.students[s.ID]; !ok {
		return sql.ErrNoRows
	}
	if f.conflicts(s) {
		return fmt.Errorf("update student: %w", database.ErrUniqueViolation)
	}
	f.students[s.ID] = *s
	f.links[s.ID] = modalityIDs
	return nil
}

func (f *fakeStudentRepo) UpdatePhoto(ctx context.Context, id string, path *string) error {
	s, ok := f.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PhotoPath = path
	f.students[id] = s
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	delete(f.links, id)
	return nil
}

func (f *fakeStudentRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Modality, error) {
	var out []models.Modality
	for _, id := range ids {
		if m, ok := f.catalog[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePhotoStorage struct {
	files   map[string][]byte
	deleted []string
	saveErr error
}

func (f *fakePhotoStorage) Save(name string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.files[name] = body
	return name, nil
}

func (f *fakePhotoStorage) Delete(name string) error {
	f.deleted = append(f.deleted, name)
	delete(f.files, name)
	return nil
}

type fakePaymentRepo struct {
	payments      map[string]models.Payment
	names         map[string]string
	err           error
	historyCalls  int
	overdueCalls  int
	overdueResult []models.PaymentDetail
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]models.Payment{}, names: map[string]string{}}
}

func (f *fakePaymentRepo) add(p models.Payment) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.payments[p.ID] = p
}

func (f *fakePaymentRepo) FindByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.PaymentDetail{Payment: p, StudentName: f.names[p.StudentID]}, nil
}

func (f *fakePaymentRepo) History(ctx context.Context, filter models.PaymentHistoryFilter) ([]models.PaymentDetail, error) {
	f.historyCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.PaymentDetail
	for _, p := range f.payments {
		if filter.From != nil && p.PaymentDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.PaymentDate.After(*filter.To) {
			continue
		}
		out = append(out, models.PaymentDetail{Payment: p, StudentName: f.names[p.StudentID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out, nil
}

func (f *fakePaymentRepo) Overdue(ctx context.Context, today time.Time) ([]models.PaymentDetail, error) {
	f.overdueCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.overdueResult != nil {
		return f.overdueResult, nil
	}
	var out []models.PaymentDetail
	for _, p := range f.payments {
		if !p.Paid && !p.DueDate.After(today) {
			out = append(out, models.PaymentDetail{Payment: p, StudentName: f.names[p.StudentID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (f *fakePaymentRepo) StudentExists(ctx context.Context, studentID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.names[studentID]
	return ok, nil
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	if f.err != nil {
		return f.err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	f.payments[p.ID] = *p
	return nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	if _, ok := f.payments[p.ID]; !ok {
		return sql.ErrNoRows
	}
	f.payments[p.ID] = *p
	return nil
}

func (f *fakePaymentRepo) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.payments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.payments, id)
	return nil
}

type memoryCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.NewDecoder(bytes.NewReader(raw)).Decode(dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
