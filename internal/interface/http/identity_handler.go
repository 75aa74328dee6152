package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/internal/application"
	"github.com/oksasatya/reach-identity/internal/domain/entity"
	"github.com/oksasatya/reach-identity/pkg/response"
	"github.com/oksasatya/reach-identity/pkg/validation"
)

type IdentityHandler struct {
	Svc    *application.IdentityService
	Logger *logrus.Logger
}

func NewIdentityHandler(svc *application.IdentityService, logger *logrus.Logger) *IdentityHandler {
	return &IdentityHandler{Svc: svc, Logger: logger}
}

type credentials struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required,pwd"`
}

type contact struct {
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,phone"`
}

type signUpStudentRequest struct {
	credentials
	contact
	Name         string    `json:"name" binding:"required,max=128"`
	GuardianName string    `json:"guardian_name" binding:"required,max=128"`
	School       string    `json:"school" binding:"required,max=128"`
	Scores       []float64 `json:"scores" binding:"max=64"`
	Badges       []int     `json:"badges" binding:"max=64"`
}

func (r signUpStudentRequest) identity() *entity.Identity {
	return &entity.Identity{
		Username: r.Username, Password: r.Password, Email: r.Email, Phone: r.Phone,
		Profile: entity.StudentProfile{
			Name: r.Name, GuardianName: r.GuardianName, School: r.School, Scores: r.Scores, Badges: r.Badges,
		}.ToMap(),
	}
}

type signUpVolunteerRequest struct {
	credentials
	contact
	Name           string   `json:"name" binding:"required,max=128"`
	School         string   `json:"school" binding:"required,max=128"`
	VolunteerHours float64  `json:"volunteer_hours" binding:"gte=0"`
	Badges         []string `json:"badges" binding:"max=64"`
}

func (r signUpVolunteerRequest) identity() *entity.Identity {
	return &entity.Identity{
		Username: r.Username, Password: r.Password, Email: r.Email, Phone: r.Phone,
		Profile: entity.VolunteerProfile{
			Name: r.Name, School: r.School, VolunteerHours: r.VolunteerHours, Badges: r.Badges,
		}.ToMap(),
	}
}

type signUpAdminRequest struct {
	credentials
	Name string `json:"name" binding:"required,max=128"`
}

func (r signUpAdminRequest) identity() *entity.Identity {
	return &entity.Identity{
		Username: r.Username, Password: r.Password,
		Profile: entity.AdminProfile{Name: r.Name}.ToMap(),
	}
}

type signUpRequest interface {
	identity() *entity.Identity
}

// bindSignUp decodes the kind-specific sign-up payload.
func bindSignUp(c *gin.Context, kind entity.Kind) (signUpRequest, error) {
	switch kind {
	case entity.KindStudent:
		var req signUpStudentRequest
		err := c.ShouldBindJSON(&req)
		return req, err
	case entity.KindVolunteer:
		var req signUpVolunteerRequest
		err := c.ShouldBindJSON(&req)
		return req, err
	case entity.KindAdmin:
		var req signUpAdminRequest
		err := c.ShouldBindJSON(&req)
		return req, err
	default:
		return nil, application.ErrUnknownKind
	}
}

type handleRequest struct {
	Handle string `json:"handle" binding:"required,max=64"`
}

type verifyRequest struct {
	Handle string `json:"handle" binding:"required,max=64"`
	Code   string `json:"code" binding:"required,code"`
}

// SignUp handles POST /sign_up_<kind>.
func (h *IdentityHandler) SignUp(kind entity.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindSignUp(c, kind)
		if err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
		handle, err := h.Svc.SignUp(c.Request.Context(), kind, req.identity())
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusCreated, gin.H{"handle": handle, "kind": kind}, "registration pending verification", nil)
	}
}

// SendVerificationCode handles POST /send_verification_code_<kind>.
func (h *IdentityHandler) SendVerificationCode(kind entity.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req handleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
		if err := h.Svc.ResendCode(c.Request.Context(), kind, req.Handle); err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"sent": true}, "verification code sent", nil)
	}
}

// Verify handles POST /verify_<kind>.
func (h *IdentityHandler) Verify(kind entity.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
		if err := h.Svc.Verify(c.Request.Context(), kind, req.Handle, req.Code); err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"verified": true}, "identity verified", nil)
	}
}

// SignIn handles POST /sign_in_<kind>.
func (h *IdentityHandler) SignIn(kind entity.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
			return
		}
		ok, err := h.Svc.SignIn(c.Request.Context(), kind, req.Username, req.Password)
		if err != nil {
			h.fail(c, err)
			return
		}
		if !ok {
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"authenticated": true}, "sign in successful", nil)
	}
}

// SearchDirectory handles GET /directory/search?q=&size=.
func (h *IdentityHandler) SearchDirectory(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"q": "is required"})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	res, err := h.Svc.SearchDirectory(c.Request.Context(), q, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "ok", map[string]any{"count": len(res)})
}

// fail maps engine errors to HTTP statuses. Unknown and already verified
// handles share one message.
func (h *IdentityHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "registration not found or already verified", nil)
	case errors.Is(err, application.ErrCodeMismatch):
		response.Error[any](c, http.StatusBadRequest, "verification code does not match", nil)
	case errors.Is(err, application.ErrNoChannelAvailable):
		response.Error[any](c, http.StatusUnprocessableEntity, "no contact channel available for this registration", nil)
	case errors.Is(err, application.ErrUnknownKind):
		response.Error[any](c, http.StatusBadRequest, "unknown identity kind", nil)
	case errors.Is(err, application.ErrInconsistentState):
		h.logError(c, err)
		response.Error[any](c, http.StatusInternalServerError, "registration could not be completed", nil)
	default:
		h.logError(c, err)
		response.Error[any](c, http.StatusServiceUnavailable, "temporarily unavailable, please retry", nil)
	}
}

func (h *IdentityHandler) logError(c *gin.Context, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).Error("request failed")
}
