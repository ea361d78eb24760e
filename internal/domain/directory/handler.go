package directory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/auth"
	"github.com/ehr/encounter/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/patients", h.SearchPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/institutions", h.ListInstitutions)
	read.GET("/institutions/:id", h.GetInstitution)
	read.GET("/professionals/me", h.CurrentProfessional)
	read.GET("/professionals/:id", h.GetProfessional)

	reg := api.Group("", auth.RequireRole("registrar"))
	reg.POST("/patients", h.CreatePatient)

	admin := api.Group("", auth.RequireRole(auth.RegistryRole...))
	admin.POST("/institutions", h.CreateInstitution)
	admin.POST("/professionals", h.CreateProfessional)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg).WithLinks(c.Path()))
}

func (h *Handler) CreateInstitution(c echo.Context) error {
	var inst Institution
	if err := c.Bind(&inst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInstitution(c.Request().Context(), &inst); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, inst)
}

func (h *Handler) GetInstitution(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inst, err := h.svc.GetInstitution(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) ListInstitutions(c echo.Context) error {
	insts, err := h.svc.ListInstitutions(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, insts)
}

func (h *Handler) CreateProfessional(c echo.Context) error {
	var hp Professional
	if err := c.Bind(&hp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProfessional(c.Request().Context(), &hp); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, hp)
}

func (h *Handler) GetProfessional(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	hp, err := h.svc.GetProfessional(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, hp)
}

func (h *Handler) CurrentProfessional(c echo.Context) error {
	hp, err := h.svc.CurrentProfessional(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, hp)
}
