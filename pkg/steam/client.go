// Package steam provides a client for the Steam Web API and storefront API.
package steam

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Steam operations used by the crawler.
type Client interface {
	// GetAppList fetches one page of the game catalog, starting after lastAppID.
	GetAppList(ctx context.Context, lastAppID int, maxResults int) (*AppListPage, error)
	// PlayerCount returns the number of players currently in the app.
	PlayerCount(ctx context.Context, appID string) (int, error)
	// AppDetails returns the storefront details for the app.
	AppDetails(ctx context.Context, appID string, loc Locale) (*AppDetails, error)
}

// Locale selects the storefront country and language.
type Locale struct {
	CountryCode string
	Language    string
}

// App is one catalog entry.
type App struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// AppListPage is the parsed GetAppList response.
type AppListPage struct {
	Apps            []App `json:"apps"`
	HaveMoreResults bool  `json:"have_more_results"`
	LastAppID       int   `json:"last_appid"`
}

// AppDetails holds the storefront fields the crawler keeps.
type AppDetails struct {
	IsFree        bool           `json:"is_free"`
	PriceOverview *PriceOverview `json:"price_overview,omitempty"`
	Genres        []Genre        `json:"genres,omitempty"`
	ReleaseDate   *ReleaseDate   `json:"release_date,omitempty"`
}

// PriceOverview holds prices in minor currency units.
type PriceOverview struct {
	Currency string `json:"currency"`
	Final    int    `json:"final"`
}

// Genre is a storefront genre tag.
type Genre struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// ReleaseDate is the storefront release date as displayed.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// Price returns the final price in major currency units, or 0 when the app has no price.
func (d *AppDetails) Price() float64 {
	if d.PriceOverview == nil {
		return 0
	}
	return float64(d.PriceOverview.Final) / 100
}

// GenreNames returns the genre descriptions in storefront order.
func (d *AppDetails) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Description)
	}
	return names
}

// Release returns the displayed release date, or "" when absent.
func (d *AppDetails) Release() string {
	if d.ReleaseDate == nil {
		return ""
	}
	return d.ReleaseDate.Date
}

// Option configures the Steam client.
type Option func(*httpClient)

// WithAPIBaseURL sets a custom Web API base URL (for testing).
func WithAPIBaseURL(u string) Option {
	return func(c *httpClient) {
		c.apiBaseURL = u
	}
}

// WithStoreBaseURL sets a custom storefront base URL (for testing).
func WithStoreBaseURL(u string) Option {
	return func(c *httpClient) {
		c.storeBaseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	apiKey       string
	apiBaseURL   string
	storeBaseURL string
	userAgent    string
	http         *http.Client
}

// NewClient creates a new Steam client. Per-request deadlines come from the
// caller's context; the client timeout is only a backstop.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		apiBaseURL:   "https://api.steampowered.com",
		storeBaseURL: "https://store.steampowered.com",
		userAgent:    "steam-crawler/1.0",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "steam: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "steam: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, eris.Wrapf(ErrRateLimited, "status 429 from %s", req.URL.Path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "steam: read response body")
	}
	return body, nil
}

func (c *httpClient) GetAppList(ctx context.Context, lastAppID int, maxResults int) (*AppListPage, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("include_games", "true")
	params.Set("include_dlc", "false")
	params.Set("include_software", "false")
	params.Set("last_appid", strconv.Itoa(lastAppID))
	params.Set("max_results", strconv.Itoa(maxResults))

	body, err := c.get(ctx, c.apiBaseURL+"/IStoreService/GetAppList/v1/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Response AppListPage `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "app list: unmarshal: %v", err)
	}
	return &envelope.Response, nil
}

func (c *httpClient) PlayerCount(ctx context.Context, appID string) (int, error) {
	params := url.Values{}
	params.Set("appid", appID)
	params.Set("key", c.apiKey)

	body, err := c.get(ctx, c.apiBaseURL+"/ISteamUserStats/GetNumberOfCurrentPlayers/v1/?"+params.Encode())
	if err != nil {
		return 0, err
	}

	var envelope struct {
		Response *struct {
			PlayerCount int `json:"player_count"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, eris.Wrapf(ErrMalformed, "player count %s: unmarshal: %v", appID, err)
	}
	if envelope.Response == nil {
		return 0, eris.Wrapf(ErrMalformed, "player count %s: missing response", appID)
	}
	if envelope.Response.PlayerCount < 0 {
		return 0, eris.Wrapf(ErrMalformed, "player count %s: negative count %d", appID, envelope.Response.PlayerCount)
	}
	return envelope.Response.PlayerCount, nil
}

func (c *httpClient) AppDetails(ctx context.Context, appID string, loc Locale) (*AppDetails, error) {
	params := url.Values{}
	params.Set("appids", appID)
	if loc.CountryCode != "" {
		params.Set("cc", loc.CountryCode)
	}
	if loc.Language != "" {
		params.Set("l", loc.Language)
	}

	body, err := c.get(ctx, c.storeBaseURL+"/api/appdetails?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var entries map[string]struct {
		Success bool        `json:"success"`
		Data    *AppDetails `json:"data"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "app details %s: unmarshal: %v", appID, err)
	}

	entry, ok := entries[appID]
	if !ok {
		return nil, eris.Wrapf(ErrMalformed, "app details %s: no entry for app", appID)
	}
	if !entry.Success || entry.Data == nil {
		return nil, eris.Wrapf(ErrMalformed, "app details %s: store reported no data", appID)
	}
	return entry.Data, nil
}
