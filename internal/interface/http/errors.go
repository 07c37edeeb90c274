package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/medrecords-users/internal/application"
	repo "github.com/oksasatya/medrecords-users/internal/domain/repository"
	"github.com/oksasatya/medrecords-users/pkg/response"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// statusFor maps service and storage errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, repo.ErrRoleNotFound):
		return http.StatusNotFound, "role not found"
	case errors.Is(err, repo.ErrAlreadyPersisted):
		return http.StatusConflict, "user already persisted"
	case errors.Is(err, userapp.ErrUsernameRequired):
		return http.StatusBadRequest, "username is required"
	case errors.Is(err, userapp.ErrSearchDisabled):
		return http.StatusServiceUnavailable, "user search is not configured"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return http.StatusConflict, "username already in use"
		case pgForeignKeyViolation:
			return http.StatusConflict, "user is still referenced"
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
		response.Error[any](c, status, msg, nil)
		return
	}
	var detail any
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		detail = gin.H{"constraint": pgErr.ConstraintName}
	}
	response.Error[any](c, status, msg, detail)
}
