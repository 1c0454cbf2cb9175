package student

import (
	"context"
	"fmt"
	"time"

	"recordhub/internal/core/apperror"
	"recordhub/internal/core/id"
	"recordhub/internal/core/tx"
	"recordhub/internal/domain/auth"
	"recordhub/internal/domain/filter"
	"recordhub/pkg/logger"
)

// ListParams controls the student listing.
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

// Service implements student CRUD.
type Service struct {
	repo         Repository
	txManager    tx.Manager
	translator   *filter.Translator
	searchFields []filter.FilterField
	hash         func(string) (string, error)
	now          func() time.Time
}

// NewService creates a student service. searchFields are matched by the list "search" parameter.
func NewService(repo Repository, txManager tx.Manager, translator *filter.Translator, searchFields []string) *Service {
	fields := make([]filter.FilterField, 0, len(searchFields))
	for _, f := range searchFields {
		fields = append(fields, filter.FilterField(f))
	}
	return &Service{
		repo:         repo,
		txManager:    txManager,
		translator:   translator,
		searchFields: fields,
		hash:         auth.HashPassword,
		now:          time.Now,
	}
}

// Create validates and stores a new student.
func (s *Service) Create(ctx context.Context, in Input) (*Student, error) {
	in.Normalize()
	if err := in.Validate(s.now(), ModeCreate); err != nil {
		return nil, err
	}

	passwordHash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	st := &Student{ID: id.New(), Email: in.Email, PasswordHash: passwordHash}
	in.apply(st)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		field, err := s.repo.FindConflict(ctx, st.Email, st.Mobile, id.ID{})
		if err != nil {
			return fmt.Errorf("check conflict: %w", err)
		}
		if field != "" {
			return duplicate(field, st)
		}
		return s.repo.Create(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "student created", "roll_no", st.RollNo, "email", st.Email)
	return st, nil
}

// Get returns one student by email.
func (s *Service) Get(ctx context.Context, email string) (*Student, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// List returns students, optionally matching free text across the search fields.
// An empty result is reported as NOT_FOUND.
func (s *Service) List(ctx context.Context, p ListParams) ([]*Student, error) {
	q, err := s.translator.AnyContains(p.Search, s.searchFields)
	if err != nil {
		return nil, fmt.Errorf("build search: %w", err)
	}

	list, err := s.repo.List(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if len(list) == 0 {
		return nil, apperror.NewNotFound("student", p.Search)
	}
	return list, nil
}

// Update replaces the mutable fields of a student.
func (s *Service) Update(ctx context.Context, email string, in Input) (*Student, error) {
	in.Normalize()
	if err := in.Validate(s.now(), ModeUpdate); err != nil {
		return nil, err
	}

	var st *Student
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		st, err = s.repo.GetByEmail(ctx, normalizeEmail(email))
		if err != nil {
			return err
		}
		in.apply(st)

		field, err := s.repo.FindConflict(ctx, "", st.Mobile, st.ID)
		if err != nil {
			return fmt.Errorf("check conflict: %w", err)
		}
		if field != "" {
			return duplicate(field, st)
		}
		return s.repo.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "student updated", "roll_no", st.RollNo)
	return st, nil
}

// Delete removes a student by email.
func (s *Service) Delete(ctx context.Context, email string) error {
	if err := s.repo.DeleteByEmail(ctx, normalizeEmail(email)); err != nil {
		return err
	}
	logger.Info(ctx, "student deleted", "email", email)
	return nil
}

func duplicate(field string, st *Student) *apperror.AppError {
	value := st.Email
	if field == "mobile" {
		value = st.Mobile
	}
	return apperror.NewDuplicate("student", field, value)
}
