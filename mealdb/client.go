package mealdb

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public v1 endpoint with the shared test key.
	DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

	defaultRequestsPerSecond = 5
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client wraps the recipe database endpoints. Every failure is logged and
// reported as an empty result; the client never retries.
type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
}

// NewClient returns a Client for opts, filling in defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRequestsPerSecond
	}

	rc := resty.New()
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	}
	rc.SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{
		rc:      rc,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
}

// SearchByName returns meals whose name matches term. Results carry full details.
func (c *Client) SearchByName(ctx context.Context, term string) []Meal {
	return c.list(ctx, "/search.php", "s", term)
}

// FilterByIngredient returns summary records of meals using ingredient.
func (c *Client) FilterByIngredient(ctx context.Context, ingredient string) []Meal {
	return c.list(ctx, "/filter.php", "i", ingredient)
}

// FilterByCategory returns summary records of meals in category.
func (c *Client) FilterByCategory(ctx context.Context, category string) []Meal {
	return c.list(ctx, "/filter.php", "c", category)
}

// FilterByArea returns summary records of meals from a cuisine area.
func (c *Client) FilterByArea(ctx context.Context, area string) []Meal {
	return c.list(ctx, "/filter.php", "a", area)
}

// Random returns a single random meal with full details.
func (c *Client) Random(ctx context.Context) []Meal {
	return c.list(ctx, "/random.php", "", "")
}

// LookupByID returns the full record for id, or nil when not found.
func (c *Client) LookupByID(ctx context.Context, id string) *Meal {
	meals := c.list(ctx, "/lookup.php", "i", id)
	if len(meals) == 0 {
		return nil
	}
	return &meals[0]
}

func (c *Client) list(ctx context.Context, path, param, value string) []Meal {
	if err := c.limiter.Wait(ctx); err != nil {
		slog.Warn("MEALDB: Rate limiter wait aborted", "path", path, "error", err)
		return nil
	}

	req := c.rc.R().SetContext(ctx)
	if param != "" {
		req.SetQueryParam(param, value)
	}

	resp, err := req.Get(path)
	if err != nil {
		slog.Warn("MEALDB: Request failed", "path", path, "query", param+"="+value, "error", err)
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		slog.Warn("MEALDB: Unexpected status", "path", path, "query", param+"="+value, "status", resp.Status())
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		slog.Warn("MEALDB: Decode failed", "path", path, "query", param+"="+value, "error", err)
		return nil
	}

	slog.Info("MEALDB: Lookup complete", "path", path, "query", param+"="+value, "results", len(env.Meals))
	return env.Meals
}
