package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSuccessWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Success(c, http.StatusCreated, map[string]string{"handle": "h1"}, "created", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var body APIResponse[map[string]string]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "req-1", body.RequestID)
	require.Equal(t, "h1", body.Data["handle"])
}

func TestErrorDefaultsToBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error[any](c, 0, "invalid payload", map[string]string{"username": "is required"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "invalid payload", body["message"])
	require.NotContains(t, body, "data")
}
