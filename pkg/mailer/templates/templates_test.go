package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/reach-identity/config"
)

func TestRenderVerificationCode(t *testing.T) {
	cfg := &config.Config{AppName: "REACH", CompanyName: "REACH Hong Kong", SupportURL: "https://reach.example/help"}
	data := NewVerificationCodeData(cfg, "ana@example.com", "482913", WithTime(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)))

	subject, text, html, err := Render(VerificationCode, data)
	require.NoError(t, err)
	require.Equal(t, "REACH verification code: 482913", subject)
	require.Contains(t, text, "482913")
	require.Contains(t, text, "Hello ana@example.com")
	require.Contains(t, text, "https://reach.example/help")
	require.Contains(t, html, "482913")
	require.Contains(t, html, "REACH Hong Kong")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("nope", map[string]any{})
	require.Error(t, err)
}

func TestDefaultFn(t *testing.T) {
	require.Equal(t, "x", defaultFn("x", ""))
	require.Equal(t, "x", defaultFn("x", nil))
	require.Equal(t, "x", defaultFn("x", 0))
	require.Equal(t, "y", defaultFn("x", "y"))
	require.Equal(t, 3, defaultFn("x", 3))
}
