package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
)

// CatalogRepository reads subjects, classes, students and enrollments.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db}
}

// GetSubjectsByIds returns the subjects that exist among ids. Missing ids are simply absent.
func (r *CatalogRepository) GetSubjectsByIds(ctx context.Context, ids []string) ([]entity.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, class_id, name, base_price, is_free FROM subjects WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var subjects []entity.Subject
	if err := r.db.SelectContext(ctx, &subjects, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	return subjects, nil
}

func (r *CatalogRepository) GetStudent(ctx context.Context, id string) (*entity.Student, error) {
	student := &entity.Student{}
	err := r.db.GetContext(ctx, student, r.db.Rebind(`SELECT id, name, is_active FROM students WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFoundError("student %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "selecting student %s", id)
	}
	return student, nil
}

// GetStudents returns the students that exist among ids.
func (r *CatalogRepository) GetStudents(ctx context.Context, ids []string) ([]entity.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, is_active FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var students []entity.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return students, nil
}

func (r *CatalogRepository) GetClass(ctx context.Context, id string) (*entity.Class, error) {
	class := &entity.Class{}
	err := r.db.GetContext(ctx, class, r.db.Rebind(`SELECT id, name, is_active FROM classes WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFoundError("class %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "selecting class %s", id)
	}
	return class, nil
}

type enrollmentTotal struct {
	StudentID string          `db:"student_id"`
	Total     decimal.Decimal `db:"total"`
}

// GetEnrollmentTotals sums the non-free subject prices of each student's pending and active enrollments.
// Students without such enrollments map to zero.
func (r *CatalogRepository) GetEnrollmentTotals(ctx context.Context, studentIDs []string) (map[string]decimal.Decimal, error) {
	totals := make(map[string]decimal.Decimal, len(studentIDs))
	if len(studentIDs) == 0 {
		return totals, nil
	}
	for _, id := range studentIDs {
		totals[id] = decimal.Zero
	}

	query, args, err := sqlx.In(`
		SELECT e.student_id AS student_id, COALESCE(SUM(s.base_price), 0) AS total
		FROM enrollments e
		JOIN subjects s ON s.id = e.subject_id
		WHERE e.status IN ('pending', 'active') AND s.is_free = FALSE AND e.student_id IN (?)
		GROUP BY e.student_id`, studentIDs)
	if err != nil {
		return nil, err
	}

	var rows []enrollmentTotal
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "summing enrollments")
	}
	for _, row := range rows {
		totals[row.StudentID] = row.Total
	}
	return totals, nil
}
