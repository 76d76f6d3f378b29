package http

import (
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/Miraines/management-company/backoffice/internal/adapters/transport/http/dto"
	appsvc "github.com/Miraines/management-company/backoffice/internal/app/auth/service"
	customErrors "github.com/Miraines/management-company/backoffice/internal/domain/auth/errors"
	"github.com/Miraines/management-company/backoffice/internal/domain/auth/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// Authenticator resolves the principal behind a request.
type Authenticator interface {
	Extract(r *http.Request) (model.Principal, error)
}

type Handler struct {
	svc  appsvc.Service
	auth Authenticator
	log  *zap.Logger
}

func NewHandler(svc appsvc.Service, auth Authenticator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, auth: auth, log: log}
}

// RequireAuth aborts with 401 unless the request carries a valid token of a
// live account.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.auth.Extract(c.Request)
		if err != nil {
			handleError(c, h.log, err)
			c.Abort()
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principalFrom(c *gin.Context) (model.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}

func emailDigest(email string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(email)))
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, h.log, customErrors.NewInvalidArgument(err.Error()))
		return
	}
	h.log.Info("register", zap.String("user", emailDigest(body.User.Email)))

	sess, err := h.svc.Register(c.Request.Context(), body.User)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenResponse{User: dto.TokenBody{Token: sess.Token}})
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, h.log, customErrors.NewInvalidArgument(err.Error()))
		return
	}
	h.log.Info("login", zap.String("user", emailDigest(body.User.Email)))

	sess, err := h.svc.Login(c.Request.Context(), body.User)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{User: dto.TokenBody{Token: sess.Token}})
}

func (h *Handler) Me(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		handleError(c, h.log, customErrors.ErrMissingCredentials)
		return
	}

	profile, sess, err := h.svc.CurrentUser(c.Request.Context(), p)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProfileResponse{User: dto.ProfileBody{
		Token:     sess.Token,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}})
}

func (h *Handler) UpdateMe(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		handleError(c, h.log, customErrors.ErrMissingCredentials)
		return
	}

	var body dto.UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, h.log, customErrors.NewInvalidArgument(err.Error()))
		return
	}
	if err := h.svc.UpdateUser(c.Request.Context(), p, body.User); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) DeleteMe(c *gin.Context) {
	p, ok := principalFrom(c)
	if !ok {
		handleError(c, h.log, customErrors.ErrMissingCredentials)
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), p); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
