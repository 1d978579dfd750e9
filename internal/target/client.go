package target

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
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

// Client talks to the inventory API. Responses are wrapped in {"data": ...}.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

var _ API = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.TargetConfig, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("target base_url is empty")
	}
	if log == nil {
		log = logger.NewNop()
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api",
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		log:        log,
	}, nil
}

// HTTPClient exposes the underlying client so tests can intercept transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrConnectionFailed, method, path, err)
		}

		status, respBody, retryAfter, err := c.roundTrip(ctx, method, endpoint, payload)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				c.log.Warnw("target request failed, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
				if werr := c.wait(ctx, c.delay(attempt, 0)); werr != nil {
					return fmt.Errorf("%w: %s %s: %v", ErrConnectionFailed, method, path, werr)
				}
				continue
			}
			return fmt.Errorf("%w: %s %s: %v", ErrConnectionFailed, method, path, err)
		}

		c.log.Debugw("target response", "method", method, "path", path, "status", status, "body", string(respBody))

		if status >= 200 && status < 300 {
			if out == nil {
				return nil
			}
			var env envelope
			if err := json.Unmarshal(respBody, &env); err != nil || len(env.Data) == 0 {
				return fmt.Errorf("%w: %s %s: missing data envelope", ErrMalformedResponse, method, path)
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, method, path, err)
			}
			return nil
		}

		if (status == http.StatusTooManyRequests || status >= 500) && attempt < c.maxRetries {
			d := c.delay(attempt, retryAfter)
			c.log.Warnw("target throttled or unavailable, retrying", "method", method, "path", path, "status", status, "attempt", attempt+1, "delay", d)
			if werr := c.wait(ctx, d); werr != nil {
				return fmt.Errorf("%w: %s %s: %v", ErrConnectionFailed, method, path, werr)
			}
			continue
		}

		apiErr := &APIError{Method: method, Path: path, Status: status, Body: string(respBody)}
		if status != http.StatusNotFound {
			c.log.Warnw("target rejected request", "method", method, "path", path, "status", status, "body", apiErr.Body)
		}
		return apiErr
	}
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, err
	}

	var retryAfter time.Duration
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return resp.StatusCode, data, retryAfter, nil
}

func (c *Client) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	return c.backoff << attempt
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) create(ctx context.Context, path string, body any) (string, error) {
	var rec Record
	if err := c.do(ctx, http.MethodPost, path, nil, body, &rec); err != nil {
		return "", err
	}
	if rec.ID == "" {
		return "", fmt.Errorf("%w: POST %s: response has no id", ErrMalformedResponse, path)
	}
	return rec.ID, nil
}

func (c *Client) WriteContext(ctx context.Context, in ContextInput) (string, error) {
	return c.create(ctx, "/context", in)
}

func (c *Client) WriteCollection(ctx context.Context, in CollectionInput) (string, error) {
	return c.create(ctx, "/collection", in)
}

func (c *Client) WriteCollectionTranslation(ctx context.Context, in CollectionTranslationInput) (string, error) {
	return c.create(ctx, "/collection-translation", in)
}

func (c *Client) WriteProject(ctx context.Context, in ProjectInput) (string, error) {
	return c.create(ctx, "/project", in)
}

func (c *Client) WritePartner(ctx context.Context, in PartnerInput) (string, error) {
	return c.create(ctx, "/partner", in)
}

func (c *Client) WritePartnerTranslation(ctx context.Context, in PartnerTranslationInput) (string, error) {
	return c.create(ctx, "/partner-translation", in)
}

func (c *Client) WriteItem(ctx context.Context, in ItemInput) (string, error) {
	return c.create(ctx, "/item", in)
}

func (c *Client) WriteItemTranslation(ctx context.Context, in ItemTranslationInput) (string, error) {
	return c.create(ctx, "/"+string(ResourceItemTranslation), in)
}

// WriteItemImage attaches an image to an item.
func (c *Client) WriteItemImage(ctx context.Context, in ItemImageInput) (string, error) {
	if in.ItemID == "" {
		return "", fmt.Errorf("%w: item image without item id", ErrWriteFailed)
	}
	return c.create(ctx, "/item/"+url.PathEscape(in.ItemID)+"/images", in)
}

func (c *Client) WritePartnerImage(ctx context.Context, in PartnerImageInput) (string, error) {
	return c.create(ctx, "/partner-image", in)
}

func (c *Client) WritePartnerLogo(ctx context.Context, in PartnerLogoInput) (string, error) {
	return c.create(ctx, "/partner-logo", in)
}

func (c *Client) WriteItemItemLink(ctx context.Context, in ItemItemLinkInput) (string, error) {
	return c.create(ctx, "/"+string(ResourceItemItemLink), in)
}

// AttachItemsToCollection links existing items to a collection in one call.
func (c *Client) AttachItemsToCollection(ctx context.Context, collectionID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	body := map[string][]string{"item_ids": itemIDs}
	return c.do(ctx, http.MethodPost, "/collection/"+url.PathEscape(collectionID)+"/attach-items", nil, body, nil)
}

// SetPartnerMonument points a partner at the monument item that houses it.
func (c *Client) SetPartnerMonument(ctx context.Context, partnerID, monumentItemID string) error {
	body := map[string]string{"monument_item_id": monumentItemID}
	return c.do(ctx, http.MethodPatch, "/partner/"+url.PathEscape(partnerID), nil, body, nil)
}

// List fetches one page of a resource.
func (c *Client) List(ctx context.Context, resource Resource, opts ListOptions) ([]Record, error) {
	path := "/" + string(resource)
	if opts.Type != "" {
		path += "/type/" + url.PathEscape(opts.Type)
	}
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	var out []Record
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByBackwardCompatibility looks up one persisted entity by token.
func (c *Client) FindByBackwardCompatibility(ctx context.Context, category tracker.Category, token string) (string, bool, error) {
	path := "/" + string(ResourceFor(category))
	q := url.Values{}
	q.Set("filter[backward_compatibility]", token)
	q.Set("per_page", "1")

	var out []Record
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	// servers that ignore the filter return an arbitrary first page
	for _, rec := range out {
		if rec.BackwardCompatibility == token && rec.ID != "" {
			return rec.ID, true, nil
		}
	}
	return "", false, nil
}

// DefaultContext returns the context flagged as default, if one exists.
func (c *Client) DefaultContext(ctx context.Context) (Record, bool, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, "/context/default", nil, nil, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	if rec.ID == "" {
		return Record{}, false, fmt.Errorf("%w: default context has no id", ErrMalformedResponse)
	}
	return rec, true, nil
}
