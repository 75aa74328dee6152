package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/reach-identity/internal/application"
	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/internal/infrastructure/memory"
	"github.com/oksasatya/reach-identity/pkg/validation"
)

type recordingGateway struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (g *recordingGateway) SendEmail(_ context.Context, address, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.to = append(g.to, address)
	return g.err
}

func (g *recordingGateway) SendSMS(_ context.Context, number, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.to = append(g.to, number)
	return g.err
}

type fixture struct {
	engine *gin.Engine
	repo   *memory.IdentityRepository
	gw     *recordingGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	repo := memory.NewIdentityRepository()
	pending := memory.NewPendingStore()
	gw := &recordingGateway{}
	d := application.NewDispatcher(pending, gw, "+85290000000", nil, nil)
	svc := application.NewIdentityService(repo, pending, d, application.FixedCodeGenerator{Code: "482913"}, application.PlainHasher{}, nil)
	h := NewIdentityHandler(svc, nil)

	r := gin.New()
	api := r.Group("/api")
	for _, k := range entity.Kinds {
		api.POST("/sign_up_"+k.String(), h.SignUp(k))
		api.POST("/send_verification_code_"+k.String(), h.SendVerificationCode(k))
		api.POST("/verify_"+k.String(), h.Verify(k))
		api.POST("/sign_in_"+k.String(), h.SignIn(k))
	}
	api.GET("/directory/search", h.SearchDirectory)
	return &fixture{engine: r, repo: repo, gw: gw}
}

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Error   map[string]string `json:"error"`
}

func (f *fixture) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestStudentFlow(t *testing.T) {
	f := newFixture(t)

	code, env := f.post(t, "/api/sign_up_student", map[string]any{
		"username": "ana", "password": "pw", "phone": "555-1",
		"name": "Ana", "guardian_name": "May", "school": "HKU", "scores": []float64{90.5}, "badges": []int{1},
	})
	require.Equal(t, http.StatusCreated, code)
	handle, _ := env.Data["handle"].(string)
	require.NotEmpty(t, handle)

	rec, err := f.repo.FindByHandle(context.Background(), entity.KindStudent, handle)
	require.NoError(t, err)
	require.Equal(t, "HKU", rec.Profile["school"])

	code, _ = f.post(t, "/api/send_verification_code_student", map[string]any{"handle": handle})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"555-1"}, f.gw.to)

	code, _ = f.post(t, "/api/verify_student", map[string]any{"handle": handle, "code": "000000"})
	require.Equal(t, http.StatusBadRequest, code)

	code, env = f.post(t, "/api/verify_student", map[string]any{"handle": handle, "code": "482913"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Data["verified"])

	code, _ = f.post(t, "/api/verify_student", map[string]any{"handle": handle, "code": "482913"})
	require.Equal(t, http.StatusNotFound, code)
	code, _ = f.post(t, "/api/verify_student", map[string]any{"handle": handle, "code": "000000"})
	require.Equal(t, http.StatusNotFound, code)

	code, _ = f.post(t, "/api/sign_in_student", map[string]any{"username": "ana", "password": "pw"})
	require.Equal(t, http.StatusOK, code)
	code, _ = f.post(t, "/api/sign_in_student", map[string]any{"username": "ana", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestVolunteerWithoutContact(t *testing.T) {
	f := newFixture(t)
	code, env := f.post(t, "/api/sign_up_volunteer", map[string]any{"username": "vic", "password": "pw", "name": "Vic", "school": "CUHK", "volunteer_hours": 3})
	require.Equal(t, http.StatusCreated, code)

	code, _ = f.post(t, "/api/send_verification_code_volunteer", map[string]any{"handle": env.Data["handle"]})
	require.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestKindIsPartOfTheRoute(t *testing.T) {
	f := newFixture(t)
	_, env := f.post(t, "/api/sign_up_admin", map[string]any{"username": "root", "password": "pw", "name": "Root"})
	handle := env.Data["handle"]

	code, _ := f.post(t, "/api/verify_student", map[string]any{"handle": handle, "code": "482913"})
	require.Equal(t, http.StatusNotFound, code)

	code, _ = f.post(t, "/api/send_verification_code_admin", map[string]any{"handle": handle})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"+85290000000"}, f.gw.to)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)

	code, env := f.post(t, "/api/sign_up_student", map[string]any{"password": "pw", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "is required", env.Error["username"])
	require.Equal(t, "must be a valid email", env.Error["email"])
	require.Equal(t, "is required", env.Error["guardian_name"])
	require.Equal(t, "is required", env.Error["school"])

	code, env = f.post(t, "/api/sign_up_admin", map[string]any{"username": "root", "password": "pw"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "is required", env.Error["name"])

	code, env = f.post(t, "/api/verify_student", map[string]any{"handle": "h"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "is required", env.Error["code"])
}

func TestDispatchFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.gw.err = errors.New("mailgun down")
	_, env := f.post(t, "/api/sign_up_student", map[string]any{
		"username": "ana", "password": "pw", "email": "ana@x.io",
		"name": "Ana", "guardian_name": "May", "school": "HKU",
	})

	code, _ := f.post(t, "/api/send_verification_code_student", map[string]any{"handle": env.Data["handle"]})
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestDirectorySearchWithoutBackend(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/directory/search?q=ana", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/directory/search", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
