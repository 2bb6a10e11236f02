// Package crm fetches raw chat, message and user records from the CRM
// HTTP API. It normalizes directions and timestamps at the boundary so
// the engine only ever sees the internal record shapes.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"chat-insights-go/internal/logger"
	"chat-insights-go/internal/timeutil"
	"chat-insights-go/internal/types"
)

var httpClient = &http.Client{
	Timeout: 12 * time.Second,
}

const pageLimit = 100

type Client struct {
	baseURL string
	apiKey  string
	loc     *time.Location
	log     *logger.Logger
}

func New(baseURL, apiKey string, loc *time.Location) *Client {
	log := logger.New()
	log.Entry = log.WithField("component", "crm")
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		loc:     loc,
		log:     log,
	}
}

type rawUser struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"firstName"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
}

type rawChat struct {
	ID        json.Number `json:"id"`
	Channel   string      `json:"channel"`
	ManagerID json.Number `json:"managerId"`
	ClientID  json.Number `json:"clientId"`
	OrderID   json.Number `json:"orderId"`
	CreatedAt string      `json:"createdAt"`
	UpdatedAt string      `json:"updatedAt"`
	Status    string      `json:"status"`
}

type rawMessage struct {
	ID        json.Number `json:"id"`
	ChatID    json.Number `json:"chatId"`
	Direction string      `json:"direction"`
	Type      string      `json:"type"`
	SentAt    string      `json:"sentAt"`
	CreatedAt string      `json:"createdAt"`
	Text      string      `json:"text"`
	ManagerID json.Number `json:"managerId"`
	Author    struct {
		Type string      `json:"type"`
		ID   json.Number `json:"id"`
	} `json:"author"`
}

type pagination struct {
	CurrentPage    int `json:"currentPage"`
	TotalPageCount int `json:"totalPageCount"`
}

// Users returns manager id -> display name. Name resolution follows the
// source precedence: first name, then generic name, then email, then
// the raw id.
func (c *Client) Users(ctx context.Context) (map[string]string, error) {
	users := map[string]string{}
	for page := 1; ; page++ {
		var resp struct {
			Success    bool       `json:"success"`
			Pagination pagination `json:"pagination"`
			Users      []rawUser  `json:"users"`
		}
		if err := c.getJSON(ctx, "/api/v1/users", url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageLimit)},
		}, &resp); err != nil {
			return nil, fmt.Errorf("fetch users: %w", err)
		}
		for _, u := range resp.Users {
			id := u.ID.String()
			if id == "" {
				continue
			}
			name := u.FirstName
			if name == "" {
				name = u.Name
			}
			if name == "" {
				name = u.Email
			}
			if name == "" {
				name = id
			}
			users[id] = name
		}
		if page >= resp.Pagination.TotalPageCount {
			break
		}
	}
	c.log.WithField("users", len(users)).Info("users fetched")
	return users, nil
}

// Chats pages through chats updated in [since, until].
func (c *Client) Chats(ctx context.Context, since, until time.Time) ([]types.Chat, error) {
	var out []types.Chat
	for page := 1; ; page++ {
		var resp struct {
			Success    bool       `json:"success"`
			Pagination pagination `json:"pagination"`
			Chats      []rawChat  `json:"chats"`
		}
		if err := c.getJSON(ctx, "/api/v1/chats", url.Values{
			"since": {since.Format(time.RFC3339)},
			"until": {until.Format(time.RFC3339)},
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageLimit)},
		}, &resp); err != nil {
			return nil, fmt.Errorf("fetch chats page %d: %w", page, err)
		}
		for _, r := range resp.Chats {
			out = append(out, types.Chat{
				ID:        r.ID.String(),
				Channel:   r.Channel,
				ManagerID: numOrEmpty(r.ManagerID),
				ClientID:  numOrEmpty(r.ClientID),
				OrderID:   numOrEmpty(r.OrderID),
				Status:    r.Status,
				CreatedAt: timeutil.Parse(r.CreatedAt, c.loc),
				UpdatedAt: timeutil.Parse(r.UpdatedAt, c.loc),
			})
		}
		if page >= resp.Pagination.TotalPageCount {
			break
		}
	}
	c.log.WithField("chats", len(out)).Info("chats fetched")
	return out, nil
}

// ChatMessages returns one chat's messages, normalized.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	var out []types.Message
	for page := 1; ; page++ {
		var resp struct {
			Success    bool         `json:"success"`
			Pagination pagination   `json:"pagination"`
			Messages   []rawMessage `json:"messages"`
		}
		path := "/api/v1/chats/" + url.PathEscape(chatID) + "/messages"
		if err := c.getJSON(ctx, path, url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(pageLimit)},
		}, &resp); err != nil {
			return nil, fmt.Errorf("fetch messages for chat %s: %w", chatID, err)
		}
		for _, r := range resp.Messages {
			out = append(out, normalizeMessage(chatID, r, c.loc))
		}
		if page >= resp.Pagination.TotalPageCount {
			break
		}
	}
	return out, nil
}

// normalizeMessage folds the source vocabulary onto the internal shape.
// Direction falls back on the author type: agents and bots write "out",
// customers write "in".
func normalizeMessage(chatID string, r rawMessage, loc *time.Location) types.Message {
	dir := types.NormalizeDirection(r.Direction)
	managerID := numOrEmpty(r.ManagerID)
	role := r.Author.Type
	if dir == "" {
		switch role {
		case types.RoleUser, types.RoleBot:
			dir = types.DirOut
		case types.RoleCustomer, types.RoleChannel:
			dir = types.DirIn
		}
	}
	if dir == types.DirOut && managerID == "" && role == types.RoleUser {
		managerID = numOrEmpty(r.Author.ID)
	}
	sentAt := r.SentAt
	if sentAt == "" {
		sentAt = r.CreatedAt
	}
	id := r.ChatID.String()
	if id == "" || id == "0" {
		id = chatID
	}
	return types.Message{
		ID:         r.ID.String(),
		ChatID:     id,
		Direction:  dir,
		SentAt:     timeutil.Parse(sentAt, loc),
		Text:       r.Text,
		ManagerID:  managerID,
		Type:       r.Type,
		AuthorRole: role,
	}
}

// getJSON performs one GET with exponential-backoff retries on
// transport errors and 5xx responses.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-API-Key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			c.log.WithError(err).Warn("request failed, retrying")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			c.log.WithField("status", resp.StatusCode).Warn("server error, retrying")
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func numOrEmpty(n json.Number) string {
	s := n.String()
	if s == "0" {
		return ""
	}
	return s
}
