// Package api is the HTTP client for the todo backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"taskdeck/internal/task"
)

const (
	// DefaultTimeout bounds a single request when Options.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	todosPath = "/api/todos"
)

type Options struct {
	BaseURL string
	// Token is sent as a bearer token when non-empty.
	Token   string
	Timeout time.Duration
	Logger  *log.Logger
	// Location interprets the server's zone-less timestamps. Defaults to
	// time.Local.
	Location *time.Location
	// HTTPClient overrides the transport entirely; Token and Timeout are
	// ignored when it is set.
	HTTPClient *http.Client
}

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
	loc    *time.Location
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("api base url is empty")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		var transport http.RoundTripper = http.DefaultTransport
		if opts.Token != "" {
			transport = &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
				Base:   transport,
			}
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Client{
		base:   base,
		http:   httpClient,
		logger: logger,
		loc:    loc,
	}, nil
}

// List returns every task in server order.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var dtos []todoDTO
	if err := c.do(ctx, "list tasks", http.MethodGet, todosPath, nil, &dtos); err != nil {
		return nil, err
	}
	tasks := make([]task.Task, 0, len(dtos))
	for _, d := range dtos {
		tasks = append(tasks, d.toTask(c.loc))
	}
	return tasks, nil
}

func (c *Client) Get(ctx context.Context, id string) (task.Task, error) {
	var dto todoDTO
	if err := c.do(ctx, "get task", http.MethodGet, taskPath(id), nil, &dto); err != nil {
		return task.Task{}, err
	}
	return dto.toTask(c.loc), nil
}

func (c *Client) Stats(ctx context.Context) (task.Stats, error) {
	var dto statsDTO
	if err := c.do(ctx, "load stats", http.MethodGet, todosPath+"/stats", nil, &dto); err != nil {
		return task.Stats{}, err
	}
	return dto.toStats(), nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.do(ctx, "load categories", http.MethodGet, todosPath+"/categories", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Create trims and validates d before sending it. An unset due date is
// left out of the body.
func (c *Client) Create(ctx context.Context, d task.Draft) (task.Task, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return task.Task{}, err
	}
	var dto todoDTO
	if err := c.do(ctx, "create task", http.MethodPost, todosPath, newCreateDTO(d, c.loc), &dto); err != nil {
		return task.Task{}, err
	}
	return dto.toTask(c.loc), nil
}

// Update sends only the fields set in p.
func (c *Client) Update(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	if err := p.Validate(); err != nil {
		return task.Task{}, err
	}
	var dto todoDTO
	if err := c.do(ctx, "update task", http.MethodPut, taskPath(id), patchBody(p, c.loc), &dto); err != nil {
		return task.Task{}, err
	}
	return dto.toTask(c.loc), nil
}

// SetCompleted is the toggle update: the body carries nothing but the flag.
func (c *Client) SetCompleted(ctx context.Context, id string, completed bool) (task.Task, error) {
	return c.Update(ctx, id, task.Patch{Completed: &completed})
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil)
}

// Snapshot is everything the UI needs for a full refresh.
type Snapshot struct {
	Tasks      []task.Task
	Stats      task.Stats
	Categories []string
}

// Snapshot fetches tasks, stats and categories in parallel. Any failure
// fails the whole snapshot.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := c.List(ctx)
		snap.Tasks = tasks
		return err
	})
	g.Go(func() error {
		stats, err := c.Stats(ctx)
		snap.Stats = stats
		return err
	})
	g.Go(func() error {
		names, err := c.Categories(ctx)
		snap.Categories = names
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// taskPath returns the escaped path for one task; ids are opaque.
func taskPath(id string) string {
	return todosPath + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	// path arrives escaped, so it is joined onto the raw form.
	u := *c.base
	u.RawPath = strings.TrimRight(u.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	u.Path = unescaped
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "op", op, "method", method, "path", path, "request_id", reqID, "err", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "elapsed", time.Since(start), "request_id", reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, Status: resp.StatusCode}
		var e errorDTO
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(data) > 0 {
			if json.Unmarshal(data, &e) == nil {
				apiErr.Message = e.Message
				if apiErr.Message == "" {
					apiErr.Message = e.Error
				}
			}
		}
		c.logger.Warn("request rejected", "op", op, "status", resp.StatusCode, "message", apiErr.Message, "request_id", reqID)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
