package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academia-api/internal/models"
)

const studentColumns = `s.id, s.full_name, s.document, s.id_number, s.sex, s.birth_date, s.phone, s.email, s.street, s.number, s.neighborhood, s.city, s.state, s.photo_path, s.enrolled_on, s.active, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records and their
// modality links.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

type studentModality struct {
	StudentID string `db:"student_id"`
	models.Modality
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// List returns students matching the filter ordered by name, each with its
// modalities attached.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf(`(LOWER(s.full_name) LIKE $%d ESCAPE '\' OR s.document LIKE $%d ESCAPE '\')`, len(args)+1, len(args)+1))
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(search))+"%")
	}

	query := fmt.Sprintf("SELECT %s FROM students s WHERE %s ORDER BY s.full_name ASC", studentColumns, strings.Join(conditions, " AND "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID
	}
	links, err := r.modalitiesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.StudentDetail, len(students))
	for i, s := range students {
		details[i] = models.StudentDetail{Student: s, Modalities: links[s.ID]}
	}
	return details, nil
}

// FindByID fetches a student with its modalities. sql.ErrNoRows is returned
// unwrapped when the student does not exist.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	links, err := r.modalitiesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return &models.StudentDetail{Student: student, Modalities: links[id]}, nil
}

func (r *StudentRepository) modalitiesFor(ctx context.Context, studentIDs []string) (map[string][]models.Modality, error) {
	out := make(map[string][]models.Modality, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}
	const query = `SELECT sm.student_id, m.id, m.name, m.created_at FROM student_modalities sm JOIN modalities m ON m.id = sm.modality_id WHERE sm.student_id = ANY($1) ORDER BY m.name ASC`
	var rows []studentModality
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("list student modalities: %w", err)
	}
	for _, row := range rows {
		out[row.StudentID] = append(out[row.StudentID], row.Modality)
	}
	return out, nil
}

// Create inserts a student and its modality links in one transaction.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student, modalityIDs []string) (err error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO students (id, full_name, document, id_number, sex, birth_date, phone, email, street, number, neighborhood, city, state, photo_path, enrolled_on, active, created_at, updated_at)
        VALUES (:id, :full_name, :document, :id_number, :sex, :birth_date, :phone, :email, :street, :number, :neighborhood, :city, :state, :photo_path, :enrolled_on, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return wrapWrite("create student", err)
	}
	if err = linkModalities(ctx, tx, student.ID, modalityIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// Update rewrites a student's fields and replaces its modality links. The
// photo path is managed separately through UpdatePhoto.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, modalityIDs []string) (err error) {
	student.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE students SET full_name = :full_name, document = :document, id_number = :id_number, sex = :sex, birth_date = :birth_date, phone = :phone, email = :email, street = :street, number = :number, neighborhood = :neighborhood, city = :city, state = :state, enrolled_on = :enrolled_on, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, student)
	if err != nil {
		return wrapWrite("update student", err)
	}
	if err = expectAffected(res, "update student"); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM student_modalities WHERE student_id = $1`, student.ID); err != nil {
		return fmt.Errorf("clear student modalities: %w", err)
	}
	if err = linkModalities(ctx, tx, student.ID, modalityIDs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update student: %w", err)
	}
	return nil
}

func linkModalities(ctx context.Context, tx *sqlx.Tx, studentID string, modalityIDs []string) error {
	if len(modalityIDs) == 0 {
		return nil
	}
	const query = `INSERT INTO student_modalities (student_id, modality_id) SELECT $1, UNNEST($2::uuid[]) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, studentID, pq.Array(modalityIDs)); err != nil {
		return fmt.Errorf("link student modalities: %w", err)
	}
	return nil
}

// UpdatePhoto sets or clears the stored photo path.
func (r *StudentRepository) UpdatePhoto(ctx context.Context, id string, path *string) error {
	const query = `UPDATE students SET photo_path = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student photo: %w", err)
	}
	return expectAffected(res, "update student photo")
}

// Delete removes a student. Payments and modality links cascade in the schema.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res, "delete student")
}
