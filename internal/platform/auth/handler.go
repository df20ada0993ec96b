package auth

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.GET("/protected", h.Protected)

	// アカウント管理は admin のみ
	admin := []gin.HandlerFunc{RequireAuth(svc.tokens), RequireCapability(CanManageAccounts)}
	r.DELETE("/accounts/:id", Then(admin, h.DeleteAccount)...)
	r.PATCH("/accounts/:id", Then(admin, h.ChangeEmail)...)
}

func accountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid user id"))
		return 0, false
	}
	return id, true
}

// POST /register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "name, email and password are required"))
		return
	}

	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "email and password are required"))
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /protected?token=... もしくは Authorization: Bearer
func (h *Handler) Protected(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}

	res, err := h.svc.Protected(c.Request.Context(), token)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /accounts/:id
func (h *Handler) DeleteAccount(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	if p, _ := PrincipalFrom(c); p.UserID == id {
		c.JSON(http.StatusForbidden, apierr.Body(apierr.CodeForbidden, "cannot delete your own account"))
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: fmt.Sprintf("User %d deleted", id)})
}

// PATCH /accounts/:id  {"email": "..."}
func (h *Handler) ChangeEmail(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req ChangeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "email is required"))
		return
	}

	res, err := h.svc.ChangeEmail(c.Request.Context(), id, req.Email)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}
