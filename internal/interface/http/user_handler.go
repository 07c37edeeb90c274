package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/medrecords-users/internal/application"
	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/pkg/response"
	"github.com/oksasatya/medrecords-users/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Username   string   `json:"username" binding:"required,username"`
	SystemID   string   `json:"system_id" binding:"omitempty,max=50"`
	GivenName  string   `json:"given_name" binding:"max=50"`
	MiddleName string   `json:"middle_name" binding:"max=50"`
	FamilyName string   `json:"family_name" binding:"max=50"`
	Password   string   `json:"password" binding:"omitempty,pwd"`
	Roles      []string `json:"roles" binding:"omitempty,dive,rolename"`
}

type updateUserRequest struct {
	Username   *string `json:"username" binding:"omitempty,username"`
	GivenName  *string `json:"given_name" binding:"omitempty,max=50"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=50"`
	FamilyName *string `json:"family_name" binding:"omitempty,max=50"`
	Password   *string `json:"password" binding:"omitempty,pwd"`
}

type voidUserRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

type userResponse struct {
	ID          string     `json:"id"`
	SystemID    string     `json:"system_id"`
	Username    string     `json:"username"`
	GivenName   string     `json:"given_name"`
	MiddleName  string     `json:"middle_name,omitempty"`
	FamilyName  string     `json:"family_name"`
	Roles       []string   `json:"roles"`
	Creator     string     `json:"creator"`
	DateCreated time.Time  `json:"date_created"`
	ChangedBy   *string    `json:"changed_by,omitempty"`
	DateChanged *time.Time `json:"date_changed,omitempty"`
	Voided      bool       `json:"voided"`
	VoidReason  string     `json:"void_reason,omitempty"`
	VoidedBy    *string    `json:"voided_by,omitempty"`
	DateVoided  *time.Time `json:"date_voided,omitempty"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		SystemID:    u.SystemID,
		Username:    u.Username,
		GivenName:   u.GivenName,
		MiddleName:  u.MiddleName,
		FamilyName:  u.FamilyName,
		Roles:       u.RoleNames(),
		Creator:     u.Audit.Creator,
		DateCreated: u.Audit.DateCreated,
		ChangedBy:   u.Audit.ChangedBy,
		DateChanged: u.Audit.DateChanged,
		Voided:      u.Void.Voided,
		VoidReason:  u.Void.VoidReason,
		VoidedBy:    u.Void.VoidedBy,
		DateVoided:  u.Void.DateVoided,
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), userapp.CreateUserInput{
		Username:   req.Username,
		SystemID:   req.SystemID,
		GivenName:  req.GivenName,
		MiddleName: req.MiddleName,
		FamilyName: req.FamilyName,
		Password:   req.Password,
		Roles:      req.Roles,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

// GetByUsername only finds active users.
func (h *UserHandler) GetByUsername(c *gin.Context) {
	u, err := h.Svc.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if u == nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), userapp.UpdateUserInput{
		Username:   req.Username,
		GivenName:  req.GivenName,
		MiddleName: req.MiddleName,
		FamilyName: req.FamilyName,
		Password:   req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Void(c *gin.Context) {
	var req voidUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.VoidUser(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user voided", nil)
}

func (h *UserHandler) Unvoid(c *gin.Context) {
	u, err := h.Svc.UnvoidUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user unvoided", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "user deleted", nil)
}

func (h *UserHandler) GrantRole(c *gin.Context) {
	u, err := h.Svc.GrantRole(c.Request.Context(), c.Param("id"), c.Param("role"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "role granted", nil)
}

func (h *UserHandler) RevokeRole(c *gin.Context) {
	u, err := h.Svc.RevokeRole(c.Request.Context(), c.Param("id"), c.Param("role"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "role revoked", nil)
}

// Search queries the Elasticsearch user directory.
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if size <= 0 || size > 50 {
		size = 20
	}
	docs, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, docs, "users", map[string]any{"count": len(docs), "q": q})
}
