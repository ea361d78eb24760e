package componenttype

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/component-types", auth.RequireRole(auth.ReadRoles...))
	read.GET("", h.List)
	read.GET("/selection", h.Selection)
	read.GET("/:id", h.Get)

	write := api.Group("/component-types", auth.RequireRole(auth.RegistryRole...))
	write.POST("", h.Create)
	write.POST("/register", h.Register)
	write.PUT("/:id", h.Update)
	write.DELETE("/:id", h.Deactivate)
}

func (h *Handler) List(c echo.Context) error {
	types, err := h.svc.List(c.Request().Context(), c.QueryParam("active") == "true")
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, types)
}

func (h *Handler) Selection(c echo.Context) error {
	list, err := h.svc.SelectionList(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ct, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ct)
}

func (h *Handler) Create(c echo.Context) error {
	var ct ComponentType
	if err := c.Bind(&ct); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ct.Active = true
	if err := h.svc.Create(c.Request().Context(), &ct); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, ct)
}

type registerRequest struct {
	Model    string `json:"model" validate:"required"`
	ViewForm string `json:"view_form" validate:"required"`
	Name     string `json:"name"`
}

// Register is idempotent: it reactivates an existing registration.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ct, err := h.svc.RegisterType(c.Request().Context(), req.Model, req.ViewForm, req.Name)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ct)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ct ComponentType
	if err := c.Bind(&ct); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ct.ID = id
	if err := h.svc.Update(c.Request().Context(), &ct); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, ct)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
