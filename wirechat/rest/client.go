// Package rest is the HTTP side of the WireChat API: accounts, rooms and
// message history.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrRoomNotFound is returned by FindRoom when no accessible room matches.
var ErrRoomNotFound = errors.New("room not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == status
}

// Client talks to the REST API rooted at baseURL, e.g.
// "http://localhost:8080/api".
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, req Credentials) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.call(ctx, http.MethodPost, "/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges existing credentials for a token.
func (c *Client) Login(ctx context.Context, req Credentials) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.call(ctx, http.MethodPost, "/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.call(ctx, http.MethodPost, "/rooms", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateDirectRoom returns the direct room shared with another user,
// creating it on first use. The server names the room.
func (c *Client) CreateDirectRoom(ctx context.Context, req CreateDirectRoomRequest) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.call(ctx, http.MethodPost, "/rooms/direct", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRooms returns every room the token's user can access.
func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var resp []RoomInfo
	if err := c.call(ctx, http.MethodGet, "/rooms", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FindRoom looks up an accessible room by name.
func (c *Client) FindRoom(ctx context.Context, name string) (*RoomInfo, error) {
	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].Name == name {
			return &rooms[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, name)
}

// GetMessages returns one page of a room's history, newest first.
func (c *Client) GetMessages(ctx context.Context, roomID int64, q PageQuery) (*MessagesResponse, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Before > 0 {
		params.Set("before", strconv.FormatInt(q.Before, 10))
	}
	path := fmt.Sprintf("/rooms/%d/messages", roomID)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp MessagesResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, dest any) error {
	reqBody := io.Reader(http.NoBody)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
