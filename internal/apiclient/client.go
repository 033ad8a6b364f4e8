// Package apiclient talks to the monitoring console's REST API. Client
// implements lifecycle.Store and lifecycle.ItemSource.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/netwatch-oss/triggerkit/internal/datastore/entities"
	"github.com/netwatch-oss/triggerkit/internal/errors"
	"github.com/netwatch-oss/triggerkit/internal/lifecycle"
	"github.com/netwatch-oss/triggerkit/internal/logger"
	"github.com/netwatch-oss/triggerkit/internal/trigger"
)

const (
	component = "apiclient"

	// DefaultTimeout bounds a single request when no http.Client is supplied.
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 10 << 20
)

var (
	_ lifecycle.Store      = (*Client)(nil)
	_ lifecycle.ItemSource = (*Client)(nil)
)

// Client is a REST client for the trigger and host endpoints.
type Client struct {
	base  string
	token string
	http  *http.Client
	log   logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid API base URL %q", baseURL).
			Component(component).
			Category(errors.CategoryConfig).
			Build()
	}
	c := &Client{
		base: u.String(),
		http: &http.Client{Timeout: DefaultTimeout},
		log:  logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.String("component", component))
	return c, nil
}

// ListTriggers fetches GET /trigger. Both the grouped listing and a flat
// array of triggers are accepted; the result is flattened in source order
// with hostnames attached when the grouped form provides them.
func (c *Client) ListTriggers(ctx context.Context) ([]trigger.Trigger, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint("trigger"), nil)
	if err != nil {
		return nil, err
	}
	root, err := parseEnvelope(body)
	if err != nil {
		return nil, err
	}
	elems, err := dataArray(root)
	if err != nil {
		return nil, err
	}

	var out []trigger.Trigger
	for i, elem := range elems {
		raw, err := elem.Marshal()
		if err != nil {
			return nil, decodeError("trigger listing", err)
		}
		if _, err := elem.GetObject("host_id"); err == nil {
			var g entities.HostGroup
			if err := json.Unmarshal(raw, &g); err != nil {
				return nil, decodeError(fmt.Sprintf("trigger group %d", i), err)
			}
			for _, e := range g.Triggers {
				if e.HostID == "" {
					e.HostID = g.Host.ID
				}
				out = append(out, e.Domain(g.Host.Hostname))
			}
			continue
		}
		var e entities.Trigger
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, decodeError(fmt.Sprintf("trigger %d", i), err)
		}
		out = append(out, e.Domain(""))
	}
	return out, nil
}

// CreateTrigger sends POST /trigger.
func (c *Client) CreateTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error) {
	payload, err := json.Marshal(entities.NewTriggerWrite(t, actor))
	if err != nil {
		return trigger.Trigger{}, decodeError("trigger body", err)
	}
	body, err := c.do(ctx, http.MethodPost, c.endpoint("trigger"), payload)
	if err != nil {
		return trigger.Trigger{}, err
	}
	return c.storedTrigger(body, t)
}

// UpdateTrigger sends PUT /trigger/{id}.
func (c *Client) UpdateTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) (trigger.Trigger, error) {
	if t.ID == "" {
		return trigger.Trigger{}, errors.Newf("update requires a trigger ID").
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	payload, err := json.Marshal(entities.NewTriggerWrite(t, actor))
	if err != nil {
		return trigger.Trigger{}, decodeError("trigger body", err)
	}
	body, err := c.do(ctx, http.MethodPut, c.endpoint("trigger", t.ID), payload)
	if err != nil {
		return trigger.Trigger{}, err
	}
	return c.storedTrigger(body, t)
}

// DeleteTrigger sends DELETE /trigger/{id} with the audit body.
func (c *Client) DeleteTrigger(ctx context.Context, actor trigger.Actor, t trigger.Trigger) error {
	payload, err := json.Marshal(entities.TriggerDelete{
		UserRole:    actor.Role,
		UserName:    actor.Name,
		TriggerName: t.Name,
	})
	if err != nil {
		return decodeError("delete body", err)
	}
	body, err := c.do(ctx, http.MethodDelete, c.endpoint("trigger", t.ID), payload)
	if err != nil {
		return err
	}
	_, err = parseEnvelope(body)
	return err
}

// ListItems fetches GET /host/{id} and returns its items.
func (c *Client) ListItems(ctx context.Context, hostID string) ([]trigger.Item, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint("host", hostID), nil)
	if err != nil {
		return nil, err
	}
	root, err := parseEnvelope(body)
	if err != nil {
		return nil, err
	}
	host, err := root.GetObject("data")
	if err != nil {
		return nil, decodeError("host", err)
	}
	itemsValue, err := host.GetValue("items")
	if err != nil {
		return []trigger.Item{}, nil
	}
	raw, err := itemsValue.Marshal()
	if err != nil {
		return nil, decodeError("host items", err)
	}
	var items []entities.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, decodeError("host items", err)
	}
	out := make([]trigger.Item, 0, len(items))
	for _, it := range items {
		out = append(out, it.Domain())
	}
	return out, nil
}

// CreateHost sends POST /host and returns the new host ID.
func (c *Client) CreateHost(ctx context.Context, hostname string, items []trigger.Item) (string, error) {
	h := entities.Host{Hostname: hostname, Items: make([]entities.Item, 0, len(items))}
	for _, it := range items {
		h.Items = append(h.Items, entities.Item{Name: it.Name, OID: it.OID, Type: it.Type, Unit: it.Unit, Interval: it.Interval})
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return "", decodeError("host body", err)
	}
	body, err := c.do(ctx, http.MethodPost, c.endpoint("host"), payload)
	if err != nil {
		return "", err
	}
	root, err := parseEnvelope(body)
	if err != nil {
		return "", err
	}
	id, err := root.GetString("data", "_id")
	if err != nil {
		return "", decodeError("created host", err)
	}
	return id, nil
}

// storedTrigger reads the trigger echoed back by a write. When the server
// only acknowledges with an ID, or with no data at all, the sent record is
// returned with that ID.
func (c *Client) storedTrigger(body []byte, sent trigger.Trigger) (trigger.Trigger, error) {
	root, err := parseEnvelope(body)
	if err != nil {
		return trigger.Trigger{}, err
	}
	data, err := root.GetObject("data")
	if err != nil {
		return sent, nil
	}
	raw, err := data.Marshal()
	if err != nil {
		return trigger.Trigger{}, decodeError("stored trigger", err)
	}
	var e entities.Trigger
	if err := json.Unmarshal(raw, &e); err != nil {
		return trigger.Trigger{}, decodeError("stored trigger", err)
	}
	if len(e.ExpressionParts) == 0 {
		out := sent
		if e.ID != "" {
			out.ID = e.ID
		}
		return out, nil
	}
	if e.HostID == "" {
		e.HostID = sent.HostID
	}
	return e.Domain(sent.Hostname), nil
}

func (c *Client) endpoint(segments ...string) string {
	u, err := url.JoinPath(c.base, segments...)
	if err != nil {
		return c.base + "/" + strings.Join(segments, "/")
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, transportError(method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(method, endpoint, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(method, endpoint, err)
	}
	c.log.Debug("api request",
		logger.String("method", method),
		logger.String("url", endpoint),
		logger.Int("status", res.StatusCode),
		logger.Int64("duration_ms", time.Since(start).Milliseconds()))

	if res.StatusCode >= http.StatusMultipleChoices {
		return nil, statusError(method, endpoint, res.StatusCode, body)
	}
	return body, nil
}

func parseEnvelope(body []byte) (*jason.Object, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, decodeError("response", errors.NewStd("empty body"))
	}
	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, decodeError("response", err)
	}
	status, _ := root.GetString("status")
	if status != "" && status != entities.StatusSuccess {
		msg, _ := root.GetString("message")
		if msg == "" {
			msg = "request failed"
		}
		return nil, errors.Newf("api returned status %q: %s", status, msg).
			Component(component).
			Category(errors.CategoryTransport).
			Build()
	}
	return root, nil
}

// dataArray returns the data array of an envelope; a missing or null data
// field is an empty listing.
func dataArray(root *jason.Object) ([]*jason.Object, error) {
	v, err := root.GetValue("data")
	if err != nil {
		return nil, nil
	}
	if v.Null() == nil {
		return nil, nil
	}
	elems, err := v.ObjectArray()
	if err != nil {
		return nil, decodeError("trigger listing", err)
	}
	return elems, nil
}
