package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// savedPageSize is the limit value for saved listings. 100 is the maximum
// Reddit allows per listing page.
const savedPageSize = 100

// ErrEmptyFullname is returned by Save when called without an id.
var ErrEmptyFullname = errors.New("reddit: Save requires a fullname")

// Me returns the account the token belongs to. Requires the identity scope.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var acct Account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return nil, fmt.Errorf("reddit: decoding account response: %w", err)
	}

	if acct.Name == "" {
		return nil, fmt.Errorf("reddit: account response has no name")
	}

	c.logger.Info("resolved account", slog.String("user", acct.Name))

	return &acct, nil
}

// SavedPage fetches one page of the user's saved items, newest first.
// Pass the previous page's After to continue; empty starts from the top.
// Requires the history scope.
func (c *Client) SavedPage(ctx context.Context, user, after string) (*Page, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(savedPageSize))
	q.Set("raw_json", "1")

	if after != "" {
		q.Set("after", after)
	}

	path := fmt.Sprintf("/user/%s/saved?%s", url.PathEscape(user), q.Encode())

	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lr listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("reddit: decoding saved listing: %w", err)
	}

	c.logger.Debug("fetched saved page",
		slog.String("after", after),
		slog.Int("count", len(lr.Data.Children)),
		slog.Bool("has_next", lr.Data.After != ""),
	)

	return &Page{Things: lr.Data.Children, After: lr.Data.After}, nil
}

// Save saves the thing with the given fullname (t1_ or t3_ prefixed) on the
// authenticated account. Requires the save scope.
func (c *Client) Save(ctx context.Context, fullname string) error {
	if fullname == "" {
		return ErrEmptyFullname
	}

	resp, err := c.Do(ctx, http.MethodPost, "/api/save", url.Values{"id": {fullname}})
	if err != nil {
		return err
	}

	resp.Body.Close()

	c.logger.Debug("saved item", slog.String("fullname", fullname))

	return nil
}
