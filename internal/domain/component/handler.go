package component

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	editor *Editor
}

func NewHandler(svc *Service, editor *Editor) *Handler {
	return &Handler{svc: svc, editor: editor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/encounters/:id/components", h.List)
	read.GET("/components/:cid", h.OpenByID)
	read.GET("/components/:kind/:cid", h.Open)
	read.GET("/components/:kind/:cid/report", h.Report)

	clinic := api.Group("", auth.RequireRole(auth.ClinicRoles...))
	clinic.GET("/encounters/:id/component-selector", h.Selector)
	clinic.GET("/encounters/:id/components/new/:state", h.Draft)
	clinic.POST("/encounters/:id/components/:kind", h.Create)
	clinic.PUT("/components/:kind/:cid", h.Update)
	clinic.POST("/components/:kind/:cid/sign", h.Sign)
	clinic.POST("/components/:kind/:cid/deactivate", h.Deactivate)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func kindParam(c echo.Context) (Kind, error) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return kind, nil
}

func signParam(c echo.Context) bool {
	sign, _ := strconv.ParseBool(c.QueryParam("sign"))
	return sign
}

// decode reads the request body into a fresh component of kind.
func decode(c echo.Context, kind Kind) (Component, error) {
	comp, err := New(kind)
	if err != nil {
		return nil, apperr.HTTP(err)
	}
	if err := json.NewDecoder(c.Request().Body).Decode(comp); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return comp, nil
}

func (h *Handler) List(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.svc.ListByEncounter(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	if rows == nil {
		rows = []*UnionRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) OpenByID(c echo.Context) error {
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	d, err := h.editor.OpenByID(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Open(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	d, err := h.editor.Open(c.Request().Context(), kind, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Report(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	text, err := h.svc.ReportInfo(c.Request().Context(), kind, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.String(http.StatusOK, text)
}

func (h *Handler) Selector(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	choices, err := h.editor.Selector(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, choices)
}

func (h *Handler) Draft(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	d, err := h.editor.Draft(c.Request().Context(), id, c.Param("state"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Create(c echo.Context) error {
	encID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	comp, err := decode(c, kind)
	if err != nil {
		return err
	}
	hdr := comp.Header()
	hdr.ID = uuid.Nil
	hdr.EncounterID = encID
	d, err := h.editor.Save(c.Request().Context(), comp, signParam(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Update(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	comp, err := decode(c, kind)
	if err != nil {
		return err
	}
	comp.Header().ID = id
	d, err := h.editor.Save(c.Request().Context(), comp, signParam(c))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Sign(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	comp, err := h.svc.Sign(c.Request().Context(), kind, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, comp)
}

func (h *Handler) Deactivate(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "cid")
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), kind, id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
