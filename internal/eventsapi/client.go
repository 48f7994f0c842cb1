package eventsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API is the set of backend calls the views depend on.
type API interface {
	Directory(ctx context.Context) (*Directory, error)
	Event(ctx context.Context, id int64) (*Event, error)
	User(ctx context.Context, id int64) (*User, error)
	Category(ctx context.Context, id int64) (*Category, error)
	Categories(ctx context.Context) ([]Category, error)
	CreateEvent(ctx context.Context, in NewEvent) (*Event, error)
	UpdateEvent(ctx context.Context, evt Event) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Client talks JSON over HTTP to the events backend.
type Client struct {
	baseURL string
	http    *http.Client
	editor  func(*http.Request)
}

// NewClient returns a Client rooted at baseURL (e.g. "http://localhost:8080/api").
// A zero timeout leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP returns a Client that sends requests through hc.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// SetRequestEditor registers fn to run on every outgoing request before it
// is sent, e.g. to propagate a request id.
func (c *Client) SetRequestEditor(fn func(*http.Request)) {
	c.editor = fn
}

// Directory loads the combined events and categories document.
func (c *Client) Directory(ctx context.Context) (*Directory, error) {
	var d Directory
	op := "GET /data/events.json"
	if err := c.do(ctx, http.MethodGet, "/data/events.json", nil, &d, op); err != nil {
		return nil, err
	}
	if msg := d.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: op, Message: msg}
	}
	return &d, nil
}

// Event fetches a single event.
func (c *Client) Event(ctx context.Context, id int64) (*Event, error) {
	path := fmt.Sprintf("/events/%d", id)
	var evt Event
	if err := c.do(ctx, http.MethodGet, path, nil, &evt, "GET "+path); err != nil {
		return nil, err
	}
	if msg := evt.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: "GET " + path, Message: msg}
	}
	return &evt, nil
}

// User fetches the user with the given id.
func (c *Client) User(ctx context.Context, id int64) (*User, error) {
	path := fmt.Sprintf("/users/%d", id)
	var u User
	if err := c.do(ctx, http.MethodGet, path, nil, &u, "GET "+path); err != nil {
		return nil, err
	}
	if msg := u.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: "GET " + path, Message: msg}
	}
	return &u, nil
}

// Category fetches the category with the given id.
func (c *Client) Category(ctx context.Context, id int64) (*Category, error) {
	path := fmt.Sprintf("/categories/%d", id)
	var cat Category
	if err := c.do(ctx, http.MethodGet, path, nil, &cat, "GET "+path); err != nil {
		return nil, err
	}
	if msg := cat.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: "GET " + path, Message: msg}
	}
	return &cat, nil
}

// Categories lists every category.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &cats, "GET /categories"); err != nil {
		return nil, err
	}
	for i := range cats {
		if msg := cats[i].validate(); msg != "" {
			return nil, &Error{Kind: KindParse, Op: "GET /categories", Message: msg}
		}
	}
	return cats, nil
}

// CreateEvent posts a new event and returns it with its assigned id.
func (c *Client) CreateEvent(ctx context.Context, in NewEvent) (*Event, error) {
	if in.CategoryIDs == nil {
		in.CategoryIDs = []int64{}
	}
	var evt Event
	if err := c.do(ctx, http.MethodPost, "/events", in, &evt, "POST /events"); err != nil {
		return nil, err
	}
	if msg := evt.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: "POST /events", Message: msg}
	}
	return &evt, nil
}

// UpdateEvent replaces the stored event with evt.
func (c *Client) UpdateEvent(ctx context.Context, evt Event) (*Event, error) {
	path := fmt.Sprintf("/events/%d", evt.ID)
	var out Event
	if err := c.do(ctx, http.MethodPut, path, evt, &out, "PUT "+path); err != nil {
		return nil, err
	}
	if msg := out.validate(); msg != "" {
		return nil, &Error{Kind: KindParse, Op: "PUT " + path, Message: msg}
	}
	return &out, nil
}

// DeleteEvent removes the event with the given id.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/events/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, "DELETE "+path)
}

// do performs one request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any, op string) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindParse, Op: op, Message: "encoding request", Err: err}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.editor != nil {
		c.editor(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Kind: KindNotFound, Op: op, Status: resp.StatusCode, Message: serverMessage(data)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return &Error{Kind: KindParse, Op: op, Message: "empty response body"}
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindParse, Op: op, Err: err}
	}
	return nil
}

// serverMessage extracts the "message" field of a JSON error body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return ""
}
