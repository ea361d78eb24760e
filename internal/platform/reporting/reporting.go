package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/platform/apperr"
	"github.com/ehr/encounter/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
// Parameters are bound positionally, $1 being the first.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "encounters-by-state",
		Name:        "Encounters by State",
		Description: "Number of encounters in each workflow state, optionally for one institution",
		SQL: `SELECT state, COUNT(*) AS total FROM encounter
			WHERE ($1::uuid IS NULL OR institution_id = $1)
			GROUP BY state ORDER BY total DESC`,
		Parameters: []string{"institution_id"},
	},
	{
		ID:          "components-by-type",
		Name:        "Components by Type",
		Description: "Number of active components of each type",
		SQL: `SELECT component_type, COUNT(*) AS total FROM encounter_component
			WHERE active GROUP BY component_type ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "unsigned-components",
		Name:        "Unsigned Components",
		Description: "Active unsigned components per encounter state",
		SQL: `SELECT e.state, COUNT(*) AS total FROM encounter_component c
			JOIN encounter e ON e.id = c.encounter_id
			WHERE c.active AND c.signed_by IS NULL
			GROUP BY e.state ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "average-bmi",
		Name:        "Average BMI",
		Description: "Average body mass index of anthropometry recorded since a date",
		SQL: `SELECT COUNT(*) AS measurements, ROUND(AVG(bmi)::numeric, 2) AS average_bmi
			FROM encounter_anthropometry
			WHERE active AND bmi > 0 AND ($1::timestamptz IS NULL OR start_time >= $1)`,
		Parameters: []string{"since"},
	},
}

// Querier runs a measure query. *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	db         Querier
	encounters EncounterSource
}

// NewHandler creates a new reporting handler.
func NewHandler(db Querier, encounters EncounterSource) *Handler {
	return &Handler{db: db, encounters: encounters}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/encounters/:id/report", h.EncounterReport)

	reportGroup := api.Group("/reports", auth.RequireRole("physician"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	// Collect parameters from query string
	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}
	args, err := bindParams(measure, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// bindParams converts query parameters into typed SQL arguments. Missing
// parameters bind as NULL.
func bindParams(m *MeasureDefinition, params map[string]string) ([]any, error) {
	args := make([]any, len(m.Parameters))
	for i, name := range m.Parameters {
		raw, ok := params[name]
		if !ok {
			continue
		}
		switch name {
		case "institution_id":
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s", name)
			}
			args[i] = id
		case "since":
			t, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				if t, err = time.Parse(time.RFC3339, raw); err != nil {
					return nil, fmt.Errorf("invalid %s: want YYYY-MM-DD or RFC 3339", name)
				}
			}
			args[i] = t
		default:
			args[i] = raw
		}
	}
	return args, nil
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...any) ([]map[string]interface{}, error) {
	rows, err := h.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// EncounterReport renders one encounter as plain text.
func (h *Handler) EncounterReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.encounters.Report(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return RenderEncounter(c.Response(), r)
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
