package encounter

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/domain/component"
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
	// Read endpoints – admin, physician, nurse, registrar
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/encounters", h.ListEncounters)
	read.GET("/encounters/:id", h.GetEncounter)
	read.GET("/encounters/:id/summary", h.GetSummary)
	read.GET("/encounters/:id/status-history", h.GetStatusHistory)
	read.GET("/encounters/:id/components/real", h.RealComponents)

	// Workflow endpoints – admin, physician, nurse
	clinic := api.Group("", auth.RequireRole(auth.ClinicRoles...))
	clinic.POST("/encounters", h.CreateEncounter)
	clinic.PUT("/encounters/:id", h.UpdateEncounter)
	clinic.POST("/encounters/:id/done", h.SetDone)
	clinic.POST("/encounters/:id/sign", h.SignFinish)
	clinic.POST("/encounters/:id/invalidate", h.Invalidate)
	clinic.POST("/encounters/:id/add-component", h.AddComponent)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var enc Encounter
	if err := c.Bind(&enc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &enc); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, enc)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.View(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	pg := pagination.FromContext(c)
	var f ListFilter
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	f.State = c.QueryParam("state")

	encs, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	if encs == nil {
		encs = []*Encounter{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encs, total, pg).WithLinks(c.Path()))
}

func (h *Handler) UpdateEncounter(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	enc, err := h.svc.Update(c.Request().Context(), id, &req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) GetSummary(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Get(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	summary, err := h.svc.Summary(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}

func (h *Handler) GetStatusHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	history, err := h.svc.StatusHistory(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if history == nil {
		history = []*EncounterStatusHistory{}
	}
	return c.JSON(http.StatusOK, history)
}

func (h *Handler) RealComponents(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	comps, err := h.svc.RealComponents(c.Request().Context(), id, c.QueryParam("name"))
	if err != nil {
		return apperr.HTTP(err)
	}
	if comps == nil {
		comps = []component.Component{}
	}
	return c.JSON(http.StatusOK, comps)
}

func (h *Handler) SetDone(c echo.Context) error {
	return h.transition(c, h.svc.SetDone)
}

func (h *Handler) SignFinish(c echo.Context) error {
	return h.transition(c, h.svc.SignFinish)
}

func (h *Handler) Invalidate(c echo.Context) error {
	return h.transition(c, h.svc.Invalidate)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Encounter, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	enc, err := fn(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, enc)
}

// AddComponent checks the encounter accepts a new component and points the
// client at the type selector.
func (h *Handler) AddComponent(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	enc, err := h.svc.CanAddComponent(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"encounter_id": enc.ID.String(),
		"selector":     "/api/v1/encounters/" + enc.ID.String() + "/component-selector",
	})
}
