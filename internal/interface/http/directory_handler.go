package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/medrecords-users/internal/application"
	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/pkg/response"
)

// DirectoryHandler serves the read-only listings: roles, privileges and patients.
type DirectoryHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewDirectoryHandler(svc *userapp.Service, logger *logrus.Logger) *DirectoryHandler {
	return &DirectoryHandler{Svc: svc, Logger: logger}
}

type privilegeResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type roleResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Privileges  []privilegeResponse `json:"privileges"`
}

type patientMatchResponse struct {
	PatientID  int64      `json:"patient_id"`
	Gender     string     `json:"gender,omitempty"`
	Birthdate  *time.Time `json:"birthdate,omitempty"`
	Voided     bool       `json:"voided"`
	NameID     int64      `json:"name_id"`
	GivenName  string     `json:"given_name"`
	MiddleName string     `json:"middle_name,omitempty"`
	FamilyName string     `json:"family_name"`
	Preferred  bool       `json:"preferred"`
}

func toPrivilegeResponses(ps []entity.Privilege) []privilegeResponse {
	out := make([]privilegeResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, privilegeResponse{Name: p.Name, Description: p.Description})
	}
	return out
}

func (h *DirectoryHandler) Roles(c *gin.Context) {
	roles, err := h.Svc.ListRoles(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{Name: r.Name, Description: r.Description, Privileges: toPrivilegeResponses(r.Privileges)})
	}
	response.Success(c, http.StatusOK, out, "roles", map[string]any{"count": len(roles)})
}

func (h *DirectoryHandler) Privileges(c *gin.Context) {
	privileges, err := h.Svc.ListPrivileges(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toPrivilegeResponses(privileges), "privileges", map[string]any{"count": len(privileges)})
}

// Patients matches family_name with LIKE; the caller supplies any % or _ wildcards.
func (h *DirectoryHandler) Patients(c *gin.Context) {
	pattern := c.Query("family_name")
	if pattern == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid query", map[string]string{"family_name": "is required"})
		return
	}
	matches, err := h.Svc.FindPatient(c.Request.Context(), pattern)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]patientMatchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, patientMatchResponse{
			PatientID:  m.Patient.ID,
			Gender:     m.Patient.Gender,
			Birthdate:  m.Patient.Birthdate,
			Voided:     m.Patient.Voided,
			NameID:     m.Name.ID,
			GivenName:  m.Name.GivenName,
			MiddleName: m.Name.MiddleName,
			FamilyName: m.Name.FamilyName,
			Preferred:  m.Name.Preferred,
		})
	}
	response.Success(c, http.StatusOK, out, "patients", map[string]any{"count": len(matches)})
}
