package conversion

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sqlconv/sqlconv/pkg/pagination"
)

const WelcomeMessage = "Welcome to the SQL Expression to JSON Converter API!"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public converter endpoints on e and the
// versioned API on v1. History routes are only mounted when history is
// enabled and run behind historyMW.
func (h *Handler) RegisterRoutes(e *echo.Echo, v1 *echo.Group, historyMW ...echo.MiddlewareFunc) {
	e.GET("/", h.Root)
	e.GET("/api/sql_expr_to_json_convertor", h.ConvertQuery)

	v1.POST("/convert", h.ConvertBody)
	v1.GET("/functions", h.ListFunctions)
	if h.svc.HistoryEnabled() {
		v1.GET("/conversions", h.ListConversions, historyMW...)
		v1.GET("/conversions/:id", h.GetConversion, historyMW...)
	}
}

func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": WelcomeMessage})
}

// ConvertQuery handles GET /api/sql_expr_to_json_convertor?sql_expression=.
// An empty expression yields JSON null.
func (h *Handler) ConvertQuery(c echo.Context) error {
	values, ok := c.QueryParams()["sql_expression"]
	if !ok || len(values) == 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "sql_expression query parameter is required")
	}
	return h.convert(c, values[0])
}

type convertRequest struct {
	SQLExpression *string `json:"sql_expression"`
}

func (h *Handler) ConvertBody(c echo.Context) error {
	var req convertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	if req.SQLExpression == nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "sql_expression is required")
	}
	return h.convert(c, *req.SQLExpression)
}

func (h *Handler) convert(c echo.Context, expr string) error {
	group, err := h.svc.Convert(c.Request().Context(), expr)
	if err != nil {
		return err
	}
	// A nil group encodes as null.
	return c.JSON(http.StatusOK, group)
}

func (h *Handler) ListFunctions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Functions())
}

func (h *Handler) ListConversions(c echo.Context) error {
	filter := ListFilter{
		Outcome:   Outcome(c.QueryParam("outcome")),
		ErrorCode: c.QueryParam("code"),
	}
	switch filter.Outcome {
	case OutcomeAny, OutcomeSucceeded, OutcomeFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "outcome must be succeeded or failed")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	resp := pagination.NewResponse(items, total, pg).WithLinks(c.Request().URL.Path, c.QueryParams())
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetConversion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "conversion not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
