package router

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type pingModule struct{}

func (pingModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func TestRegistryMountsModulesUnderAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reg := NewRegistry(r)

	var hits int
	reg.Use(func(c *gin.Context) { hits++; c.Next() })
	reg.Add(pingModule{})
	reg.RegisterAll()

	w := do(r, http.MethodGet, "/api/ping", "127.0.0.1:1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pong", w.Body.String())

	w = do(r, http.MethodGet, "/api/healthz", "127.0.0.1:1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
	require.Equal(t, 2, hits)

	w = do(r, http.MethodGet, "/ping", "127.0.0.1:1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "route not found")
}
