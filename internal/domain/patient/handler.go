package patient

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/", h.Home)
	api.GET("/about", h.About)

	api.GET("/view", h.ViewPatients)
	api.GET("/view/:patient_id", h.GetPatient)
	api.GET("/sort", h.SortPatients)

	api.POST("/create", h.CreatePatient)
	api.PUT("/edit/:patient_id", h.UpdatePatient)

	api.GET("/health/store", h.StoreHealth)
}

type detailResponse struct {
	Detail any `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "Patient Management System API"})
}

func (h *Handler) About(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "A fully functional API to manage your patient records"})
}

func (h *Handler) ViewPatients(c echo.Context) error {
	coll, err := h.svc.ViewAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, coll.WithDerived())
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Get(c.Request().Context(), c.Param("patient_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *Handler) SortPatients(c echo.Context) error {
	items, err := h.svc.Sort(c.Request().Context(), c.QueryParam("sort_by"), c.QueryParam("order"))
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]View, 0, len(items))
	for _, p := range items {
		v := p.View()
		v.ID = p.ID
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	p, err := ParsePatient(body)
	if err != nil {
		return h.fail(c, err)
	}
	// Read by the audit middleware; create has no id in its route.
	c.Set("patient_id", p.ID)
	if _, err := h.svc.Create(c.Request().Context(), p); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "Patient created successfully"})
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if _, err := h.svc.Update(c.Request().Context(), c.Param("patient_id"), body); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Patient updated successfully"})
}

func (h *Handler) StoreHealth(c echo.Context) error {
	n, err := h.svc.Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"patients": n,
	})
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return nil, httpErr
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	return body, nil
}

// fail maps service errors onto responses. Anything unclassified is a store
// failure and surfaces as a 500 carrying the cause for the request logger.
func (h *Handler) fail(c echo.Context, err error) error {
	var verr *ValidationError
	var aerr *InvalidArgumentError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, detailResponse{Detail: verr.Issues})
	case errors.As(err, &aerr):
		return c.JSON(http.StatusBadRequest, detailResponse{Detail: aerr.Msg})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, detailResponse{Detail: "Patient not found"})
	case errors.Is(err, ErrConflict):
		return c.JSON(http.StatusBadRequest, detailResponse{Detail: "Patient already exists"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}
