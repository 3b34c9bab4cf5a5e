// Package splitwise is a read-only client for the Splitwise REST API.
package splitwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"splitlens/internal/core"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://secure.splitwise.com/api/v3.0"

// NonGroupID is the predetermined bucket for expenses outside any group.
const NonGroupID int64 = 0

var ErrGroupNotFound = errors.New("group not found")

// Client calls the Splitwise API with a bearer API key.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a Client. baseURL may be empty to use the production API.
func New(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Splitwise API key")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// CurrentUser returns the identity the API key belongs to.
func (c *Client) CurrentUser(ctx context.Context) (core.User, error) {
	var resp currentUserResponse
	if err := c.get(ctx, "/get_current_user", nil, &resp); err != nil {
		return core.User{}, fmt.Errorf("get current user: %w", err)
	}
	name := strings.TrimSpace(resp.User.FirstName + " " + resp.User.LastName)
	return core.User{ID: resp.User.ID, Name: name}, nil
}

// Groups lists the groups visible to the current user.
func (c *Client) Groups(ctx context.Context) ([]core.Group, error) {
	var resp groupsResponse
	if err := c.get(ctx, "/get_groups", nil, &resp); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := make([]core.Group, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		groups = append(groups, core.Group{ID: g.ID, Name: g.Name})
	}
	return groups, nil
}

// GroupByName resolves a group by its display name (case-insensitive).
func (c *Client) GroupByName(ctx context.Context, name string) (core.Group, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return core.Group{}, err
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, name) {
			return g, nil
		}
	}
	return core.Group{}, fmt.Errorf("%w: %q", ErrGroupNotFound, name)
}

// Expenses fetches expenses for a group (NonGroupID for the non-group
// bucket) within the date range. Records that cannot be parsed are logged
// and skipped; a bad record never fails the batch.
func (c *Client) Expenses(ctx context.Context, groupID int64, rng core.DateRange, limit int) ([]core.RawTransaction, error) {
	q := url.Values{}
	q.Set("group_id", strconv.FormatInt(groupID, 10))
	q.Set("dated_after", rng.Start.Key())
	q.Set("dated_before", rng.End.Key())
	q.Set("visible", "true")
	q.Set("limit", strconv.Itoa(limit))

	var resp expensesResponse
	if err := c.get(ctx, "/get_expenses", q, &resp); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	txs := make([]core.RawTransaction, 0, len(resp.Expenses))
	skipped := 0
	for _, e := range resp.Expenses {
		if e.DeletedAt != "" {
			continue
		}
		tx, err := toRawTransaction(e)
		if err != nil {
			skipped++
			slog.WarnContext(ctx, "Skipping malformed expense",
				"expense_id", e.ID,
				"description", e.Description,
				"error", err)
			continue
		}
		txs = append(txs, tx)
	}
	if skipped > 0 {
		slog.InfoContext(ctx, "Fetched expenses with partial skips",
			"group_id", groupID,
			"range", rng.String(),
			"fetched", len(txs),
			"skipped", skipped)
	}
	return txs, nil
}

// toRawTransaction converts one wire expense into the typed core shape,
// failing fast on any unparseable field.
func toRawTransaction(e apiExpense) (core.RawTransaction, error) {
	date, err := parseExpenseDate(e.Date)
	if err != nil {
		return core.RawTransaction{}, fmt.Errorf("%w: date %q: %v", core.ErrMalformedRecord, e.Date, err)
	}

	parts := make([]core.Participant, 0, len(e.Users))
	for _, u := range e.Users {
		owed, err := core.ParseDecimalToCents(u.OwedShare)
		if err != nil {
			return core.RawTransaction{}, fmt.Errorf("%w: owed share %q for user %d", core.ErrMalformedRecord, u.OwedShare, u.UserID)
		}
		paid, err := core.ParseDecimalToCents(u.PaidShare)
		if err != nil {
			return core.RawTransaction{}, fmt.Errorf("%w: paid share %q for user %d", core.ErrMalformedRecord, u.PaidShare, u.UserID)
		}
		parts = append(parts, core.Participant{
			UserID:    u.UserID,
			OwedShare: core.Money{Cents: owed},
			PaidShare: core.Money{Cents: paid},
		})
	}

	category := ""
	if e.Category != nil {
		category = e.Category.Name
	}

	return core.RawTransaction{
		Category:     category,
		Date:         date,
		Description:  e.Description,
		Participants: parts,
	}, nil
}

func parseExpenseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, errors.New("empty date")
	}
	// The API emits RFC 3339 timestamps; plain dates show up in older data.
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
	}
	return core.Date{}, errors.New("unrecognized date format")
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, apiErrorMessage(resp.StatusCode, body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func apiErrorMessage(status int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Error != "" {
			return fmt.Sprintf("status %d: %s", status, er.Error)
		}
		if len(er.Errors.Base) > 0 {
			return fmt.Sprintf("status %d: %s", status, strings.Join(er.Errors.Base, "; "))
		}
	}
	return fmt.Sprintf("unexpected status %d", status)
}
