package student

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/core/apperror"
	"recordhub/internal/core/id"
	"recordhub/internal/domain/filter"
)

type memRepo struct {
	byEmail  map[string]*Student
	nextRoll int64
	lastList filter.CompositeQuery
}

func newMemRepo() *memRepo {
	return &memRepo{byEmail: map[string]*Student{}}
}

func (m *memRepo) Create(_ context.Context, s *Student) error {
	m.nextRoll++
	s.RollNo = m.nextRoll
	m.byEmail[s.Email] = s
	return nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*Student, error) {
	if s, ok := m.byEmail[email]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperror.NewNotFound("student", email)
}

func (m *memRepo) FindConflict(_ context.Context, email, mobile string, exclude id.ID) (string, error) {
	for _, s := range m.byEmail {
		if s.ID == exclude {
			continue
		}
		if email != "" && s.Email == email {
			return "email", nil
		}
		if s.Mobile == mobile {
			return "mobile", nil
		}
	}
	return "", nil
}

func (m *memRepo) List(_ context.Context, q filter.CompositeQuery, _, _ int) ([]*Student, error) {
	m.lastList = q
	out := make([]*Student, 0, len(m.byEmail))
	for _, s := range m.byEmail {
		out = append(out, s)
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, s *Student) error {
	m.byEmail[s.Email] = s
	return nil
}

func (m *memRepo) DeleteByEmail(_ context.Context, email string) error {
	if _, ok := m.byEmail[email]; !ok {
		return apperror.NewNotFound("student", email)
	}
	delete(m.byEmail, email)
	return nil
}

type directTx struct{}

func (directTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	schema, err := Schema(nil)
	require.NoError(t, err)
	svc := NewService(repo, directTx{}, filter.NewTranslator(schema), []string{"first_name", "email"})
	svc.hash = func(pw string) (string, error) { return "hashed:" + pw, nil }
	svc.now = func() time.Time { return testNow }
	return svc
}

func validInput() Input {
	return Input{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     " Ann@Example.com ",
		Mobile:    "+919876543210",
		DOB:       "05/03/1998",
		Password:  "Secret1!",
		Address:   Address{Building: "Block 7", Street: "main road", Pin: "560001"},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, apperror.CodeValidation, appErr.Code)
	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok)
	return fields
}

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		mode   Mode
		field  string
	}{
		{"digits in name", func(in *Input) { in.FirstName = "Ann2" }, ModeCreate, "first_name"},
		{"missing last name", func(in *Input) { in.LastName = "" }, ModeCreate, "last_name"},
		{"bad email", func(in *Input) { in.Email = "not-an-email" }, ModeCreate, "email"},
		{"mobile without country code", func(in *Input) { in.Mobile = "9876543210" }, ModeCreate, "mobile"},
		{"iso dob", func(in *Input) { in.DOB = "1998-03-05" }, ModeCreate, "dob"},
		{"impossible dob", func(in *Input) { in.DOB = "31/02/2000" }, ModeCreate, "dob"},
		{"too young", func(in *Input) { in.DOB = "02/06/2011" }, ModeCreate, "dob"},
		{"weak password", func(in *Input) { in.Password = "secret12" }, ModeCreate, "password"},
		{"password with space", func(in *Input) { in.Password = "Secret 1!" }, ModeCreate, "password"},
		{"uppercase street", func(in *Input) { in.Address.Street = "Main Road" }, ModeCreate, "address.street"},
		{"short pin", func(in *Input) { in.Address.Pin = "5600" }, ModeCreate, "address.pin"},
		{"building punctuation", func(in *Input) { in.Address.Building = "Block-7" }, ModeUpdate, "address.building"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			in.Normalize()
			fields := fieldErrors(t, in.Validate(testNow, tt.mode))
			assert.Contains(t, fields, tt.field)
			assert.Len(t, fields, 1, "%v", fields)
		})
	}
}

func TestInput_ValidateBoundaries(t *testing.T) {
	in := validInput()
	in.Normalize()
	require.NoError(t, in.Validate(testNow, ModeCreate))

	// exactly 15 years old today
	in.DOB = "01/06/2011"
	require.NoError(t, in.Validate(testNow, ModeCreate))

	// update ignores email and password
	in.Email = ""
	in.Password = ""
	require.NoError(t, in.Validate(testNow, ModeUpdate))
}

func TestService_Create(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	st, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.RollNo)
	assert.Equal(t, "ann@example.com", st.Email)
	assert.Equal(t, "hashed:Secret1!", st.PasswordHash)
	assert.Equal(t, time.Date(1998, 3, 5, 0, 0, 0, 0, time.UTC), st.DOB)
	assert.Equal(t, "main road", st.AddressStreet)

	_, err = svc.Create(ctx, validInput())
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	other := validInput()
	other.Email = "bob@example.com"
	_, err = svc.Create(ctx, other)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "mobile", appErr.Details["field"])
}

func TestService_Update(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.FirstName = "Anna"
	in.Password = ""
	st, err := svc.Update(ctx, "ANN@example.com", in)
	require.NoError(t, err)
	assert.Equal(t, "Anna", st.FirstName)
	assert.Equal(t, "hashed:Secret1!", st.PasswordHash)

	_, err = svc.Update(ctx, "nobody@example.com", in)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_List(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.List(ctx, ListParams{})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.Create(ctx, validInput())
	require.NoError(t, err)

	list, err := svc.List(ctx, ListParams{Search: "a.n"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	sql, args, err := repo.lastList.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "((first_name ~* ? OR email ~* ?))", sql)
	assert.Equal(t, []any{`a\.n`, `a\.n`}, args)
}

func TestService_Delete(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, " ann@example.com"))
	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, "ann@example.com")))
}
