package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	userapp "github.com/oksasatya/medrecords-users/internal/application"
	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	repo "github.com/oksasatya/medrecords-users/internal/domain/repository"
	"github.com/oksasatya/medrecords-users/internal/domain/repository/mocks"
	"github.com/oksasatya/medrecords-users/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type env struct {
	users    *mocks.UserRepository
	patients *mocks.PatientRepository
	engine   *gin.Engine
}

func newEnv(t *testing.T) *env {
	e := &env{users: &mocks.UserRepository{}, patients: &mocks.PatientRepository{}}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := userapp.NewService(e.users, e.patients, nil, nil, logger)
	uh := NewUserHandler(svc, logger)
	dh := NewDirectoryHandler(svc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/users", uh.Create)
	api.GET("/users/search", uh.Search)
	api.GET("/users/by-username/:username", uh.GetByUsername)
	api.GET("/users/:id", uh.Get)
	api.PATCH("/users/:id", uh.Update)
	api.POST("/users/:id/void", uh.Void)
	api.POST("/users/:id/unvoid", uh.Unvoid)
	api.DELETE("/users/:id", uh.Delete)
	api.PUT("/users/:id/roles/:role", uh.GrantRole)
	api.DELETE("/users/:id/roles/:role", uh.RevokeRole)
	api.GET("/roles", dh.Roles)
	api.GET("/privileges", dh.Privileges)
	api.GET("/patients", dh.Patients)
	e.engine = r

	t.Cleanup(func() {
		e.users.AssertExpectations(t)
		e.patients.AssertExpectations(t)
	})
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (e *env) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func jdoe() *entity.User {
	return &entity.User{
		ID: "u1", SystemID: "jdoe", Username: "jdoe", GivenName: "John", FamilyName: "Doe",
		PasswordHash: "$2a$10$secret",
		Audit:        entity.AuditInfo{Creator: "admin", DateCreated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestCreateUser(t *testing.T) {
	e := newEnv(t)
	e.users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.Username == "jdoe" && u.GivenName == "John"
	})).Run(func(args mock.Arguments) {
		u := args.Get(1).(*entity.User)
		u.ID = "u1"
		u.Audit.Creator = "admin"
	}).Return(nil)

	code, out := e.do(t, http.MethodPost, "/api/users", gin.H{"username": "jdoe", "given_name": "John", "family_name": "Doe", "password": "Secret123"})
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, out.Success)

	var u map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &u))
	assert.Equal(t, "u1", u["id"])
	assert.Equal(t, "admin", u["creator"])
	assert.NotContains(t, u, "password_hash")
	assert.Equal(t, []any{}, u["roles"])
}

func TestCreateUserValidation(t *testing.T) {
	e := newEnv(t)
	code, out := e.do(t, http.MethodPost, "/api/users", gin.H{"username": "a b", "password": "short"})
	require.Equal(t, http.StatusBadRequest, code)

	var details map[string]string
	require.NoError(t, json.Unmarshal(out.Error, &details))
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "password")
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	e := newEnv(t)
	e.users.On("CreateUser", mock.Anything, mock.Anything).
		Return(&pgconn.PgError{Code: "23505", ConstraintName: "users_active_username_uq"})

	code, out := e.do(t, http.MethodPost, "/api/users", gin.H{"username": "jdoe"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, string(out.Error), "users_active_username_uq")
}

func TestCreateUserUnknownRole(t *testing.T) {
	e := newEnv(t)
	e.users.On("GetRole", mock.Anything, "Janitor").Return(nil, fmt.Errorf("%w: Janitor", repo.ErrRoleNotFound))

	code, out := e.do(t, http.MethodPost, "/api/users", gin.H{"username": "jdoe", "roles": []string{"Janitor"}})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "role not found", out.Message)
}

func TestGetUser(t *testing.T) {
	e := newEnv(t)
	e.users.On("GetUser", mock.Anything, "u1").Return(jdoe(), nil)
	e.users.On("GetUser", mock.Anything, "missing").Return(nil, fmt.Errorf("%w: missing", repo.ErrUserNotFound))

	code, _ := e.do(t, http.MethodGet, "/api/users/u1", nil)
	assert.Equal(t, http.StatusOK, code)

	code, out := e.do(t, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, out.Success)
}

func TestGetByUsernameMissingIs404(t *testing.T) {
	e := newEnv(t)
	e.users.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, nil)
	code, _ := e.do(t, http.MethodGet, "/api/users/by-username/ghost", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateUser(t *testing.T) {
	e := newEnv(t)
	e.users.On("GetUser", mock.Anything, "u1").Return(jdoe(), nil)
	e.users.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.FamilyName == "Smith" && u.GivenName == "John"
	})).Return(nil)

	code, out := e.do(t, http.MethodPatch, "/api/users/u1", gin.H{"family_name": "Smith"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), `"family_name":"Smith"`)
}

func TestVoidRequiresReason(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, http.MethodPost, "/api/users/u1/void", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestVoidAndUnvoid(t *testing.T) {
	e := newEnv(t)
	u := jdoe()
	e.users.On("GetUser", mock.Anything, "u1").Return(u, nil)
	e.users.On("VoidUser", mock.Anything, u, "left clinic").Run(func(args mock.Arguments) {
		args.Get(1).(*entity.User).MarkVoided("admin", "left clinic", time.Now())
	}).Return(nil)
	e.users.On("UnvoidUser", mock.Anything, u).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.User).ClearVoid()
	}).Return(nil)

	code, out := e.do(t, http.MethodPost, "/api/users/u1/void", gin.H{"reason": "left clinic"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), `"voided":true`)

	code, out = e.do(t, http.MethodPost, "/api/users/u1/unvoid", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), `"voided":false`)
	assert.NotContains(t, string(out.Data), "void_reason")
}

func TestDeleteStillReferenced(t *testing.T) {
	e := newEnv(t)
	u := jdoe()
	e.users.On("GetUser", mock.Anything, "u1").Return(u, nil)
	e.users.On("DeleteUser", mock.Anything, u).Return(&pgconn.PgError{Code: "23503", ConstraintName: "users_creator_fk"})

	code, out := e.do(t, http.MethodDelete, "/api/users/u1", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "user is still referenced", out.Message)
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	u := jdoe()
	e.users.On("GetUser", mock.Anything, "u1").Return(u, nil)
	e.users.On("DeleteUser", mock.Anything, u).Return(nil)

	code, _ := e.do(t, http.MethodDelete, "/api/users/u1", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestGrantAndRevokeRole(t *testing.T) {
	e := newEnv(t)
	u := jdoe()
	clerk := &entity.Role{Name: "Clerk"}
	e.users.On("GetUser", mock.Anything, "u1").Return(u, nil)
	e.users.On("GetRole", mock.Anything, "Clerk").Return(clerk, nil)
	e.users.On("GrantUserRole", mock.Anything, u, *clerk).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.User).AddRole(args.Get(2).(entity.Role))
	}).Return(nil)
	e.users.On("RevokeUserRole", mock.Anything, u, *clerk).Run(func(args mock.Arguments) {
		args.Get(1).(*entity.User).RemoveRole(args.Get(2).(entity.Role).Name)
	}).Return(nil)

	code, out := e.do(t, http.MethodPut, "/api/users/u1/roles/Clerk", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), `"roles":["Clerk"]`)

	code, out = e.do(t, http.MethodDelete, "/api/users/u1/roles/Clerk", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(out.Data), `"roles":[]`)
}

func TestStorageFailureIs500(t *testing.T) {
	e := newEnv(t)
	e.users.On("GetRoles", mock.Anything).Return(nil, errors.New("connection reset"))
	code, out := e.do(t, http.MethodGet, "/api/roles", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", out.Message)
}

func TestListings(t *testing.T) {
	e := newEnv(t)
	view := entity.Privilege{Name: "View Users"}
	e.users.On("GetRoles", mock.Anything).Return([]entity.Role{{Name: "Clerk", Privileges: []entity.Privilege{view}}}, nil)
	e.users.On("GetPrivileges", mock.Anything).Return([]entity.Privilege{view}, nil)

	code, out := e.do(t, http.MethodGet, "/api/roles", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"Clerk","privileges":[{"name":"View Users"}]}]`, string(out.Data))

	code, out = e.do(t, http.MethodGet, "/api/privileges", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"View Users"}]`, string(out.Data))
}

func TestPatients(t *testing.T) {
	e := newEnv(t)
	e.patients.On("FindPatient", mock.Anything, "Sm%").Return([]entity.PatientMatch{{
		Patient: entity.Patient{ID: 7, Gender: "F"},
		Name:    entity.PatientName{ID: 9, PatientID: 7, GivenName: "Ann", FamilyName: "Smith", Preferred: true},
	}}, nil)

	code, out := e.do(t, http.MethodGet, "/api/patients?family_name=Sm%25", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"patient_id":7,"gender":"F","voided":false,"name_id":9,"given_name":"Ann","family_name":"Smith","preferred":true}]`, string(out.Data))

	code, _ = e.do(t, http.MethodGet, "/api/patients", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchDisabled(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, http.MethodGet, "/api/users/search?q=doe", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
