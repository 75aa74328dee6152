package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/internal/container"
	"github.com/oksasatya/reach-identity/internal/infrastructure/notify"
	redisinfra "github.com/oksasatya/reach-identity/internal/infrastructure/redis"
	"github.com/oksasatya/reach-identity/pkg/validation"
)

func testConfig() *config.Config {
	return &config.Config{
		RecordStore:           "memory",
		PendingStore:          "memory",
		NotifyMode:            "queue",
		VerificationCodeMode:  "fixed",
		VerificationFixedCode: "111111",
		PasswordScheme:        "bcrypt",
		DebugMetricsEnabled:   true,
	}
}

func newEngine(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()
	container.Reset()
	t.Cleanup(container.Reset)
	container.SetConfig(cfg)
	container.SetRegistry(prometheus.NewRegistry())

	r := gin.New()
	reg := NewRegistry(r)
	svc, err := InitModules(reg)
	require.NoError(t, err)
	require.NotNil(t, svc)
	reg.RegisterAll()
	return r
}

func do(r http.Handler, method, path, peer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = peer
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitModulesWiresIdentityRoutes(t *testing.T) {
	r := newEngine(t, testConfig())

	w := do(r, http.MethodPost, "/api/sign_up_admin", "203.0.113.1:1", map[string]any{"username": "root", "password": "pw", "name": "Root"})
	require.Equal(t, http.StatusCreated, w.Code)
	var env struct {
		Data struct {
			Handle string `json:"handle"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))

	w = do(r, http.MethodPost, "/api/verify_admin", "203.0.113.1:1", map[string]any{"handle": env.Data.Handle, "code": "111111"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/metrics", "127.0.0.1:1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), `reach_identity_verifications_total{kind="admin",outcome="verified"} 1`))

	require.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/metrics", "203.0.113.1:1", nil).Code)
	require.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/directory/search?q=root", "203.0.113.1:1", nil).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/debug/vars", "203.0.113.1:1", nil).Code)
}

func TestInitModulesUsesRedisPendingStore(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.PendingStore = "redis"
	gin.SetMode(gin.TestMode)
	container.Reset()
	t.Cleanup(container.Reset)
	container.SetConfig(cfg)
	container.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	deps, err := buildIdentityDeps()
	require.NoError(t, err)
	require.IsType(t, &redisinfra.PendingStore{}, deps.Pending)
}

func TestBuildErrors(t *testing.T) {
	container.Reset()
	t.Cleanup(container.Reset)

	_, err := buildRecordStore(&config.Config{RecordStore: "postgres"})
	require.Error(t, err)
	_, err = buildRecordStore(&config.Config{RecordStore: "mongo"})
	require.Error(t, err)
	_, err = buildRecordStore(&config.Config{RecordStore: "cassandra"})
	require.Error(t, err)
	_, err = buildPendingStore(&config.Config{PendingStore: "redis"})
	require.Error(t, err)
	_, err = buildGateway(&config.Config{MailSendEnabled: true, NotifyMode: "queue"}, nil)
	require.Error(t, err)

	gw, err := buildGateway(&config.Config{MailSendEnabled: false}, nil)
	require.NoError(t, err)
	require.IsType(t, notify.LogGateway{}, gw)

	gw, err = buildGateway(&config.Config{MailSendEnabled: true, NotifyMode: "direct"}, nil)
	require.NoError(t, err)
	require.IsType(t, &notify.DirectGateway{}, gw)
}
