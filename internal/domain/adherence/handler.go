package adherence

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ThanhTaiDev/Medical-Management-Platform/internal/platform/auth"
	"github.com/ThanhTaiDev/Medical-Management-Platform/pkg/pagination"
)

type Handler struct {
	svc        *Service
	rateWindow time.Duration
}

func NewHandler(svc *Service, rateWindow time.Duration) *Handler {
	return &Handler{svc: svc, rateWindow: rateWindow}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/adherence/confirm", h.ConfirmDose)

	api.GET("/patients/:patientId/adherence/history", h.History)
	api.GET("/patients/:patientId/adherence/day", h.DayReminders)
	api.GET("/patients/:patientId/adherence/rate", h.Rate)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/alerts", h.ListAlerts)
	doctor.PATCH("/alerts/:id/resolve", h.ResolveAlert)
}

// patientParam resolves the :patientId path param and enforces that patients
// only reach their own records. Doctors and admins can read any patient.
func patientParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RolePatient && auth.UserIDFromContext(ctx) != id {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "cannot access another patient's records")
	}
	return id, nil
}

func (h *Handler) ConfirmDose(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())
	if patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req ConfirmDoseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l, err := h.svc.ConfirmDose(c.Request().Context(), patientID, req)
	switch {
	case errors.Is(err, ErrDuplicateDose):
		return echo.NewHTTPError(http.StatusConflict, "dose already logged")
	case errors.Is(err, ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription item not found")
	case errors.Is(err, ErrNotPatientOfItem):
		return echo.NewHTTPError(http.StatusForbidden, "item does not belong to patient")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) History(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	var from, to *time.Time
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		from = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		to = &t
	}
	items, total, err := h.svc.History(c.Request().Context(), patientID, from, to, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DayReminders(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	day := h.svc.now()
	if v := c.QueryParam("day"); v != "" {
		day, err = time.ParseInLocation("2006-01-02", v, h.svc.loc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid day, want YYYY-MM-DD")
		}
	}
	reminders, err := h.svc.DayReminders(c.Request().Context(), patientID, day)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reminders)
}

func (h *Handler) Rate(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Rate(c.Request().Context(), patientID, h.rateWindow)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListAlerts(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := AlertFilter{Type: c.QueryParam("type")}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("resolved"); v != "" {
		resolved := v == "true"
		f.Resolved = &resolved
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		doctorID := auth.UserIDFromContext(ctx)
		f.DoctorID = &doctorID
	}
	items, total, err := h.svc.ListAlerts(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ResolveAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.ResolveAlert(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	return c.JSON(http.StatusOK, a)
}
