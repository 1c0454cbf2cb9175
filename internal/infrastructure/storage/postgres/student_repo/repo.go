// Package student_repo provides the PostgreSQL student repository.
package student_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"recordhub/internal/core/apperror"
	"recordhub/internal/core/id"
	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/storage/postgres"
)

var _ student.Repository = (*Repo)(nil)

var generated = []string{"roll_no", "created_at", "updated_at"}

// Repo implements student.Repository.
type Repo struct {
	txm     *postgres.TxManager
	columns []string
	builder sq.StatementBuilderType
}

// New creates a student repository.
func New(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		columns: postgres.DBColumns[student.Student](),
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts s and reads back the generated columns.
func (r *Repo) Create(ctx context.Context, s *student.Student) error {
	query, args, err := r.builder.Insert(student.Table).
		SetMap(postgres.StructToMap(s, generated...)).
		Suffix("RETURNING roll_no, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, query, args...).Scan(&s.RollNo, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok {
			return duplicateFromConstraint(constraint, s)
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetByEmail returns the student with email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*student.Student, error) {
	query, args, err := r.builder.Select(r.columns...).
		From(student.Table).
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s student.Student
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("student", email)
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// FindConflict reports which unique attribute is already used by another record.
func (r *Repo) FindConflict(ctx context.Context, email, mobile string, exclude id.ID) (string, error) {
	var or sq.Or
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if mobile != "" {
		or = append(or, sq.Eq{"mobile": mobile})
	}
	if len(or) == 0 {
		return "", nil
	}

	b := r.builder.Select("email", "mobile").From(student.Table).Where(or).Limit(1)
	if !id.IsNil(exclude) {
		b = b.Where(sq.NotEq{"id": exclude})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return "", fmt.Errorf("build conflict query: %w", err)
	}

	var found struct {
		Email  string `db:"email"`
		Mobile string `db:"mobile"`
	}
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &found, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("find conflict: %w", err)
	}
	if email != "" && found.Email == email {
		return "email", nil
	}
	return "mobile", nil
}

// List returns records matching q ordered by roll number.
func (r *Repo) List(ctx context.Context, q filter.CompositeQuery, limit, offset int) ([]*student.Student, error) {
	b := r.builder.Select(r.columns...).From(student.Table).OrderBy("roll_no")
	if !q.IsMatchAll() {
		b = b.Where(q)
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var list []*student.Student
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &list, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return list, nil
}

// Update writes the mutable columns of s.
func (r *Repo) Update(ctx context.Context, s *student.Student) error {
	query, args, err := r.builder.Update(student.Table).
		Set("first_name", s.FirstName).
		Set("last_name", s.LastName).
		Set("mobile", s.Mobile).
		Set("dob", s.DOB).
		Set("address_building", s.AddressBuilding).
		Set("address_street", s.AddressStreet).
		Set("address_pin", s.AddressPin).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("student", s.Email)
		}
		if constraint, ok := postgres.UniqueViolation(err); ok {
			return duplicateFromConstraint(constraint, s)
		}
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// DeleteByEmail removes the student with email.
func (r *Repo) DeleteByEmail(ctx context.Context, email string) error {
	query, args, err := r.builder.Delete(student.Table).Where(sq.Eq{"email": email}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("student", email)
	}
	return nil
}

// duplicateFromConstraint covers races that slip past FindConflict.
func duplicateFromConstraint(constraint string, s *student.Student) error {
	if constraint == "students_mobile_key" {
		return apperror.NewDuplicate("student", "mobile", s.Mobile)
	}
	return apperror.NewDuplicate("student", "email", s.Email)
}
