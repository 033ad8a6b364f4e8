package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/logger"
)

func (c *Controller) initHostRoutes() {
	hosts := c.Echo.Group("/host")

	hosts.GET("", c.ListHosts)
	hosts.GET("/:id", c.GetHost)

	protected := hosts.Group("", c.authMiddleware)
	protected.POST("", c.CreateHost)
	protected.POST("/:id/item", c.AddItem)
}

// ListHosts returns every host without its items.
func (c *Controller) ListHosts(ctx echo.Context) error {
	hosts, err := c.hosts.ListHosts(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list hosts", http.StatusInternalServerError)
	}
	for i := range hosts {
		hosts[i].Items = nil
	}
	return respond(ctx, http.StatusOK, hosts)
}

// GetHost returns a host with its items, which feed the clause item picker.
func (c *Controller) GetHost(ctx echo.Context) error {
	h, err := c.hosts.GetHost(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.repoError(ctx, err, "Failed to get host")
	}
	if h.Items == nil {
		h.Items = []entities.Item{}
	}
	return respond(ctx, http.StatusOK, h)
}

// CreateHost registers a host, optionally with its items.
func (c *Controller) CreateHost(ctx echo.Context) error {
	var h entities.Host
	if err := ctx.Bind(&h); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	h.Hostname = strings.TrimSpace(h.Hostname)
	if h.Hostname == "" {
		return c.HandleError(ctx, nil, "hostname is required", http.StatusBadRequest)
	}
	for i := range h.Items {
		if strings.TrimSpace(h.Items[i].Name) == "" {
			return c.HandleError(ctx, nil, "item_name is required", http.StatusBadRequest)
		}
	}
	if err := c.hosts.CreateHost(ctx.Request().Context(), &h); err != nil {
		return c.HandleError(ctx, err, "Failed to create host", http.StatusInternalServerError)
	}
	c.log.Info("host created", logger.String("host_id", h.ID), logger.String("hostname", h.Hostname))
	return respond(ctx, http.StatusCreated, h)
}

// AddItem attaches one item to a host.
func (c *Controller) AddItem(ctx echo.Context) error {
	var item entities.Item
	if err := ctx.Bind(&item); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if strings.TrimSpace(item.Name) == "" {
		return c.HandleError(ctx, nil, "item_name is required", http.StatusBadRequest)
	}
	if err := c.hosts.AddItem(ctx.Request().Context(), ctx.Param("id"), &item); err != nil {
		return c.repoError(ctx, err, "Failed to add item")
	}
	return respond(ctx, http.StatusCreated, item)
}
