package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"launch-workflow/internal/adapters/http/middleware"
	"launch-workflow/internal/application"
	"launch-workflow/internal/domain"
)

func handleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(stdhttp.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(stdhttp.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(stdhttp.StatusBadGateway, map[string]string{"error": "save failed, changes were not applied"})
	}
}

func identityFromContext(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(middleware.IdentityKey).(domain.Identity)
	return identity, ok && identity.ID != ""
}

// ApprovalsHandler exposes the approval workflow over HTTP. Authorization is
// enforced by the workflow service, not here; the handler only resolves the
// caller's identity and the addressed section.
type ApprovalsHandler struct {
	service *application.WorkflowService
}

func NewApprovalsHandler(service *application.WorkflowService) *ApprovalsHandler {
	return &ApprovalsHandler{service: service}
}

func (h *ApprovalsHandler) Create(c echo.Context) error {
	sess, err := h.service.Create(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, sess.State())
}

func (h *ApprovalsHandler) Get(c echo.Context) error {
	sess, err := h.service.Open(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, sess.State())
}

func (h *ApprovalsHandler) Approve(c echo.Context) error {
	return h.sectionAction(c, (*application.Session).Approve)
}

func (h *ApprovalsHandler) Revoke(c echo.Context) error {
	return h.sectionAction(c, (*application.Session).Revoke)
}

func (h *ApprovalsHandler) sectionAction(c echo.Context, action func(*application.Session, context.Context, domain.Identity, domain.Section) error) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}
	section, err := domain.ParseSection(c.Param("section"))
	if err != nil {
		return handleError(c, err)
	}
	sess, err := h.service.Open(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return handleError(c, err)
	}
	if err := action(sess, c.Request().Context(), identity, section); err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, sess.State())
}

func (h *ApprovalsHandler) Launch(c echo.Context) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}
	sess, err := h.service.Open(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return handleError(c, err)
	}
	if err := sess.Launch(c.Request().Context(), identity); err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, sess.State())
}

func (h *ApprovalsHandler) Audit(c echo.Context) error {
	entries, err := h.service.Audit(c.Request().Context(), c.Param("product_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, entries)
}
