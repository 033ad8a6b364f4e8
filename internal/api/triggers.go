package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/datastore/repository"
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/publish"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

func (c *Controller) initTriggerRoutes() {
	triggers := c.Echo.Group("/trigger")

	triggers.GET("", c.ListTriggers)
	triggers.GET("/schema", c.GetTriggerSchema)
	triggers.GET("/:id", c.GetTrigger)

	protected := triggers.Group("", c.authMiddleware)
	protected.POST("", c.CreateTrigger)
	protected.PUT("/:id", c.UpdateTrigger)
	protected.PATCH("/:id/toggle", c.ToggleTrigger)
	protected.DELETE("/:id", c.DeleteTrigger)
}

// validationFailure is the data of a 400 response for a rejected record.
type validationFailure struct {
	Report trigger.ValidationReport `json:"report"`
}

// GetTriggerSchema returns the editor vocabulary.
func (c *Controller) GetTriggerSchema(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, trigger.GetSchema())
}

// ListTriggers returns all triggers grouped by host, optionally limited to
// one host with ?host_id=.
func (c *Controller) ListTriggers(ctx echo.Context) error {
	groups, err := c.triggers.ListGrouped(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list triggers", http.StatusInternalServerError)
	}
	if hostID := ctx.QueryParam("host_id"); hostID != "" {
		filtered := make([]entities.HostGroup, 0, 1)
		for i := range groups {
			if groups[i].Host.ID == hostID {
				filtered = append(filtered, groups[i])
			}
		}
		groups = filtered
	}
	return respond(ctx, http.StatusOK, groups)
}

// GetTrigger returns one trigger.
func (c *Controller) GetTrigger(ctx echo.Context) error {
	t, err := c.triggers.GetTrigger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.repoError(ctx, err, "Failed to get trigger")
	}
	return respond(ctx, http.StatusOK, t)
}

// CreateTrigger validates and stores a new trigger.
func (c *Controller) CreateTrigger(ctx echo.Context) error {
	var body entities.TriggerWrite
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if body.HostID == "" {
		return c.HandleError(ctx, nil, "host_id is required", http.StatusBadRequest)
	}

	t, report := checkedTrigger(body)
	if !report.OK() {
		return c.validationFailed(ctx, report)
	}

	reqCtx := ctx.Request().Context()
	count, err := c.triggers.CountTriggersByName(reqCtx, t.HostID, t.Name)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create trigger", http.StatusInternalServerError)
	}
	if count > 0 {
		return c.HandleError(ctx, nil, "A trigger with this name already exists on the host", http.StatusConflict)
	}

	e := entities.FromDomain(t)
	e.CreatedBy = body.UserName
	e.UpdatedBy = body.UserName
	if err := c.triggers.CreateTrigger(reqCtx, &e); err != nil {
		return c.repoError(ctx, err, "Failed to create trigger")
	}

	c.log.Info("trigger created",
		logger.String("trigger_id", e.ID),
		logger.String("trigger_name", e.Name),
		logger.String("host_id", e.HostID),
		logger.String("user", body.UserName))
	c.publish(publish.Change{Action: publish.ActionCreated, HostID: e.HostID, Trigger: e, Actor: body.UserName})

	return respond(ctx, http.StatusCreated, e)
}

// UpdateTrigger replaces a stored trigger. The owning host cannot change.
func (c *Controller) UpdateTrigger(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	existing, err := c.triggers.GetTrigger(reqCtx, id)
	if err != nil {
		return c.repoError(ctx, err, "Failed to get trigger")
	}

	var body entities.TriggerWrite
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	body.HostID = existing.HostID

	t, report := checkedTrigger(body)
	if !report.OK() {
		return c.validationFailed(ctx, report)
	}

	if t.Name != existing.Name {
		count, err := c.triggers.CountTriggersByName(reqCtx, existing.HostID, t.Name)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to update trigger", http.StatusInternalServerError)
		}
		if count > 0 {
			return c.HandleError(ctx, nil, "A trigger with this name already exists on the host", http.StatusConflict)
		}
	}

	e := entities.FromDomain(t)
	e.ID = id
	e.UpdatedBy = body.UserName
	if err := c.triggers.UpdateTrigger(reqCtx, &e); err != nil {
		return c.repoError(ctx, err, "Failed to update trigger")
	}
	stored, err := c.triggers.GetTrigger(reqCtx, id)
	if err != nil {
		return c.repoError(ctx, err, "Failed to reload trigger")
	}

	action := publish.ActionUpdated
	if onlyEnabledChanged(existing, stored) {
		action = publish.ActionToggled
	}
	c.log.Info("trigger updated",
		logger.String("trigger_id", id),
		logger.String("action", string(action)),
		logger.String("user", body.UserName))
	c.publish(publish.Change{Action: action, HostID: stored.HostID, Trigger: *stored, Actor: body.UserName})

	return respond(ctx, http.StatusOK, stored)
}

// ToggleTrigger flips the enabled flag without touching the rest.
func (c *Controller) ToggleTrigger(ctx echo.Context) error {
	var body struct {
		Enabled  bool   `json:"enabled"`
		UserName string `json:"userName"`
	}
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	if err := c.triggers.ToggleTrigger(reqCtx, id, body.Enabled); err != nil {
		return c.repoError(ctx, err, "Failed to toggle trigger")
	}
	stored, err := c.triggers.GetTrigger(reqCtx, id)
	if err != nil {
		return c.repoError(ctx, err, "Failed to reload trigger")
	}
	c.publish(publish.Change{Action: publish.ActionToggled, HostID: stored.HostID, Trigger: *stored, Actor: body.UserName})
	return respond(ctx, http.StatusOK, stored)
}

// DeleteTrigger removes a trigger. When the body names the trigger, the
// name must match the stored one.
func (c *Controller) DeleteTrigger(ctx echo.Context) error {
	var body entities.TriggerDelete
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	existing, err := c.triggers.GetTrigger(reqCtx, id)
	if err != nil {
		return c.repoError(ctx, err, "Failed to get trigger")
	}
	if body.TriggerName != "" && body.TriggerName != existing.Name {
		return c.HandleError(ctx, nil, "Trigger name does not match the stored trigger", http.StatusConflict)
	}

	if err := c.triggers.DeleteTrigger(reqCtx, id); err != nil {
		return c.repoError(ctx, err, "Failed to delete trigger")
	}

	c.log.Info("trigger deleted",
		logger.String("trigger_id", id),
		logger.String("trigger_name", existing.Name),
		logger.String("user", body.UserName),
		logger.String("role", body.UserRole))
	c.publish(publish.Change{Action: publish.ActionDeleted, HostID: existing.HostID, Trigger: *existing, Actor: body.UserName})

	return ctx.JSON(http.StatusOK, entities.Envelope[any]{Status: entities.StatusSuccess})
}

// checkedTrigger converts a write body, recompiles it from its parts and
// validates it. The normalized record is returned when the report passes.
func checkedTrigger(body entities.TriggerWrite) (trigger.Trigger, trigger.ValidationReport) {
	t := body.Domain()
	t.Primary = t.Primary.EnsureIDs()
	t.Recovery = t.Recovery.EnsureIDs()

	report := trigger.Validate(&t)
	if !report.OK() {
		return t, report
	}
	return t.Normalized(), report
}

func (c *Controller) validationFailed(ctx echo.Context, report trigger.ValidationReport) error {
	c.log.Debug("trigger rejected by validation", logger.String("path", ctx.Path()))
	return ctx.JSON(http.StatusBadRequest, entities.Envelope[validationFailure]{
		Status:  entities.StatusError,
		Message: report.Err().Error(),
		Data:    validationFailure{Report: report},
	})
}

func (c *Controller) repoError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrTriggerNotFound):
		return c.HandleError(ctx, err, "Trigger not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrHostNotFound):
		return c.HandleError(ctx, err, "Host not found", http.StatusNotFound)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

func onlyEnabledChanged(before, after *entities.Trigger) bool {
	return before.Enabled != after.Enabled &&
		before.Name == after.Name &&
		before.Severity == after.Severity &&
		before.Expression == after.Expression &&
		before.OKEventGeneration == after.OKEventGeneration &&
		before.RecoveryExpression == after.RecoveryExpression
}
