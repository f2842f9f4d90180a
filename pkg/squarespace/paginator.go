package squarespace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// timestampFormat is the ISO-8601 shape the orders API expects for the
// modifiedAfter/modifiedBefore window bounds.
const timestampFormat = "2006-01-02T15:04:05.0Z"

// page is one decoded collection response.
type page struct {
	items      []json.RawMessage
	pagination Pagination
}

// FetchItems walks a collection endpoint page by page and returns every
// record under resultKey, in page-then-within-page order.
//
// params apply to the first request only; continuation requests use the
// server-provided nextPageUrl verbatim, which is fully self-describing.
// Any page failing aborts the whole fetch with an explicit error rather
// than silently truncating the result.
func (c *Client) FetchItems(ctx context.Context, endpoint, resultKey string, params url.Values) ([]json.RawMessage, error) {
	var items []json.RawMessage

	pageURL := endpoint
	for pageNum := 1; ; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		default:
		}

		pg, err := c.getPage(ctx, pageURL, resultKey, params)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}
		params = nil

		items = append(items, pg.items...)
		pagesFetchedTotal.Inc()

		c.logger.Debug().
			Str("endpoint", pageURL).
			Int("page", pageNum).
			Int("records", len(pg.items)).
			Bool("has_next", pg.pagination.HasNextPage).
			Msg("Fetched collection page")

		if !pg.pagination.HasNextPage {
			return items, nil
		}
		if pg.pagination.NextPageURL == "" {
			return nil, ErrMissingNextPageURL
		}
		pageURL = pg.pagination.NextPageURL
	}
}

// getPage issues one authenticated GET and decodes the result array and
// pagination descriptor.
func (c *Client) getPage(ctx context.Context, endpoint, resultKey string, params url.Values) (*page, error) {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	apiRequestDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		apiRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	apiRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Msg("Return status from response was NOT OK")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return decodePage(body, resultKey)
}

// decodePage extracts the record array at resultKey and the pagination
// descriptor from a collection response body.
func decodePage(body []byte, resultKey string) (*page, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}

	pg := &page{}

	if raw, ok := envelope[resultKey]; ok {
		if err := json.Unmarshal(raw, &pg.items); err != nil {
			return nil, fmt.Errorf("parse %q array: %w", resultKey, err)
		}
	}

	if raw, ok := envelope["pagination"]; ok {
		if err := json.Unmarshal(raw, &pg.pagination); err != nil {
			return nil, fmt.Errorf("parse pagination descriptor: %w", err)
		}
	}

	return pg, nil
}

// OrdersForCurrentYear fetches every order modified within the current
// calendar year. Zero orders is a valid outcome (logged as a warning)
// and returns an empty slice with a nil error; a nil error with no
// orders therefore always means "nothing to sync", never "fetch failed".
func (c *Client) OrdersForCurrentYear(ctx context.Context) ([]Order, error) {
	params := yearWindow(time.Now().UTC())

	raw, err := c.FetchItems(ctx, c.endpoint, ordersResultKey, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get new orders: %w", err)
	}

	orders := make([]Order, 0, len(raw))
	for i, item := range raw {
		var order Order
		if err := json.Unmarshal(item, &order); err != nil {
			return nil, fmt.Errorf("decode order %d: %w", i, err)
		}
		orders = append(orders, order)
	}

	if len(orders) == 0 {
		c.logger.Warn().Msg("No orders since the beginning of the year")
	}

	return orders, nil
}

// yearWindow builds the fixed modifiedAfter/modifiedBefore window for
// now's calendar year: January 1 through December 30, UTC midnight.
func yearWindow(now time.Time) url.Values {
	year := now.Year()
	begin := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 30, 0, 0, 0, 0, time.UTC)

	params := url.Values{}
	params.Set("modifiedAfter", begin.Format(timestampFormat))
	params.Set("modifiedBefore", end.Format(timestampFormat))
	return params
}
