package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordhub/internal/core/apperror"
	appctx "recordhub/internal/core/context"
	"recordhub/internal/core/id"
	"recordhub/internal/domain/auth"
	"recordhub/internal/domain/student"
	"recordhub/internal/domain/upload"
	"recordhub/internal/infrastructure/http/v1/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	refreshed string
	loggedOut string
}

func (f *fakeAuth) Login(_ context.Context, creds auth.Credentials) (*auth.TokenPair, *auth.Account, error) {
	if creds.Password != "Secret@123" {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}
	return pair("a1", "r1"), &auth.Account{ID: id.New(), Email: creds.Email}, nil
}

func (f *fakeAuth) RefreshToken(_ context.Context, token, _ string) (*auth.TokenPair, error) {
	f.refreshed = token
	return pair("a2", "r2"), nil
}

func (f *fakeAuth) Logout(_ context.Context, userID string) error {
	f.loggedOut = userID
	return nil
}

func pair(access, refresh string) *auth.TokenPair {
	now := time.Now()
	return &auth.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		TokenType:        "Bearer",
	}
}

func withUser(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: uid}))
		c.Next()
	}
}

func newAuthEngine(svc AuthService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	h := NewAuthHandler(NewBaseHandler(), svc, CookieConfig{})
	h.RegisterRoutes(r.Group("/auth"), r.Group("/auth", withUser("u1")))
	return r
}

func cookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestAuthHandler_LoginSetsCookies(t *testing.T) {
	r := newAuthEngine(&fakeAuth{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email": "ann@example.com", "password": "Secret@123"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	jar := cookies(w)
	require.Contains(t, jar, middleware.AccessTokenCookie)
	require.Contains(t, jar, RefreshTokenCookie)
	assert.Equal(t, "a1", jar[middleware.AccessTokenCookie].Value)
	assert.True(t, jar[RefreshTokenCookie].HttpOnly)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	tokens := body["tokens"].(map[string]any)
	assert.Equal(t, "r1", tokens["refresh_token"])
	assert.Equal(t, "ann@example.com", body["student"].(map[string]any)["email"])
}

func TestAuthHandler_LoginRejects(t *testing.T) {
	r := newAuthEngine(&fakeAuth{})

	for name, body := range map[string]string{
		"bad password": `{"email": "ann@example.com", "password": "nope"}`,
		"bad email":    `{"email": "ann", "password": "Secret@123"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnauthorized}, w.Code)
			assert.Empty(t, cookies(w))
		})
	}
}

func TestAuthHandler_RefreshFromCookie(t *testing.T) {
	svc := &fakeAuth{}
	r := newAuthEngine(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "from-cookie", svc.refreshed)
	assert.Equal(t, "a2", cookies(w)[middleware.AccessTokenCookie].Value)

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token": "from-body"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "from-cookie"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-body", svc.refreshed)

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutClearsCookies(t *testing.T) {
	svc := &fakeAuth{}
	r := newAuthEngine(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.loggedOut)
	for _, c := range cookies(w) {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

type fakeStudents struct {
	created student.Input
}

func (f *fakeStudents) Create(_ context.Context, in student.Input) (*student.Student, error) {
	f.created = in
	dob, _ := time.Parse("02/01/2006", in.DOB)
	return &student.Student{
		ID: id.New(), RollNo: 7, FirstName: in.FirstName, Email: in.Email,
		DOB: dob, PasswordHash: "hash", AddressPin: in.Address.Pin,
	}, nil
}

func (f *fakeStudents) Get(_ context.Context, email string) (*student.Student, error) {
	return nil, apperror.NewNotFound("student", email)
}

func (f *fakeStudents) List(context.Context, student.ListParams) ([]*student.Student, error) {
	return []*student.Student{{RollNo: 1}, {RollNo: 2}}, nil
}

func (f *fakeStudents) Update(_ context.Context, _ string, _ student.Input) (*student.Student, error) {
	return nil, apperror.NewValidation("invalid student data")
}

func (f *fakeStudents) Delete(context.Context, string) error { return nil }

func newStudentEngine(svc StudentService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	NewStudentHandler(NewBaseHandler(), svc).RegisterRoutes(r.Group("/students"))
	return r
}

func TestStudentHandler_Create(t *testing.T) {
	svc := &fakeStudents{}
	r := newStudentEngine(svc)

	body := `{"first_name": "Ann", "last_name": "Lee", "email": "ann@example.com", "mobile": "+919876543210",
		"dob": "05/03/1998", "password": "Secret@123", "address": {"building": "B 12", "street": "main road", "pin": "560001"}}`
	req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "main road", svc.created.Address.Street)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, float64(7), out["roll_no"])
	assert.Equal(t, "05/03/1998", out["dob"])
	assert.Equal(t, "560001", out["address"].(map[string]any)["pin"])
	assert.NotContains(t, w.Body.String(), "hash")
}

func TestStudentHandler_ListAndErrors(t *testing.T) {
	r := newStudentEngine(&fakeStudents{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students?search=an&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, float64(2), out["count"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/students/x@example.com", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/students/x@example.com", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/students/x@example.com", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.local/" + key + "?sig=1", nil
}

func TestUploadHandler(t *testing.T) {
	store := &memStore{objects: map[string][]byte{}}
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	NewUploadHandler(NewBaseHandler(), upload.NewService(store, upload.Config{})).RegisterRoutes(r.Group("/uploads"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var obj upload.Object
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obj))
	assert.True(t, strings.HasPrefix(obj.Key, "uploads/"))
	assert.Equal(t, []byte("%PDF-1.4"), store.objects[obj.Key])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/url?key="+obj.Key, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sig=1")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/url", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/uploads", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
