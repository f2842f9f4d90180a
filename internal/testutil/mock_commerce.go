// Package testutil provides testing utilities for the order sync.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// MockResponse defines the behavior for a mock commerce endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockCommerce is a configurable mock Squarespace commerce API server.
type MockCommerce struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount   int
	LastAuthHeader string
	LastUserAgent  string
	LastQuery      url.Values
}

// NewMockCommerce creates a new mock commerce API server.
func NewMockCommerce() *MockCommerce {
	mock := &MockCommerce{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastAuthHeader = r.Header.Get("Authorization")
		mock.LastUserAgent = r.Header.Get("User-Agent")
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: empty single-page collection
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"result": [], "pagination": {"hasNextPage": false}}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCommerce) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCommerce) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockCommerce) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastAuthHeader = ""
	m.LastUserAgent = ""
	m.LastQuery = nil
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCommerce) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCommerce) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCommerce) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["Content-Type"] == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// CollectionPage builds an orders-collection response body with the
// given record payloads and pagination descriptor.
func CollectionPage(records []string, hasNext bool, nextPageURL string) string {
	items := make([]json.RawMessage, len(records))
	for i, r := range records {
		items[i] = json.RawMessage(r)
	}

	body := map[string]interface{}{
		"result": items,
		"pagination": map[string]interface{}{
			"hasNextPage": hasNext,
			"nextPageUrl": nextPageURL,
		},
	}

	out, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal collection page: %v", err))
	}
	return string(out)
}

// SetPagedOrders serves len(pages) consecutive collection pages under
// basePath, wiring each page's nextPageUrl to the following one.
func (m *MockCommerce) SetPagedOrders(basePath string, pages [][]string) {
	for i, records := range pages {
		path := basePath
		if i > 0 {
			path = fmt.Sprintf("%s/page/%d", basePath, i+1)
		}

		hasNext := i < len(pages)-1
		nextURL := ""
		if hasNext {
			nextURL = fmt.Sprintf("%s%s/page/%d", m.URL(), basePath, i+2)
		}

		m.SetResponse(path, MockResponse{
			StatusCode: http.StatusOK,
			Body:       CollectionPage(records, hasNext, nextURL),
		})
	}
}

// OrderJSON builds a minimal but complete order payload for tests.
// lineItems are raw JSON objects.
func OrderJSON(orderNumber string, lineItems ...string) string {
	items := "[]"
	if len(lineItems) > 0 {
		items = "["
		for i, li := range lineItems {
			if i > 0 {
				items += ","
			}
			items += li
		}
		items += "]"
	}

	return fmt.Sprintf(`{
		"id": "order-%s",
		"orderNumber": %q,
		"createdOn": "2024-03-01T12:00:00.0Z",
		"modifiedOn": "2024-03-02T12:00:00.0Z",
		"channel": "web",
		"testmode": false,
		"customerEmail": "member@example.com",
		"billingAddress": {
			"firstName": "Jane",
			"lastName": "Doe",
			"address1": "1 Harbor Rd",
			"address2": "",
			"city": "Sherborn",
			"state": "MA",
			"countryCode": "US",
			"postalCode": "01770",
			"phone": "555-0100"
		},
		"fulfillmentStatus": "PENDING",
		"lineItems": %s,
		"subtotal": {"value": "19.99", "currency": "USD"},
		"shippingTotal": {"value": "0.00", "currency": "USD"},
		"discountTotal": {"value": "0.00", "currency": "USD"},
		"taxTotal": {"value": "1.25", "currency": "USD"},
		"refundedTotal": {"value": "0.00", "currency": "USD"},
		"grandTotal": {"value": "21.24", "currency": "USD"},
		"channelName": "website",
		"externalOrderReference": "",
		"priceTaxInterpretation": "EXCLUSIVE"
	}`, orderNumber, orderNumber, items)
}

// LineItemJSON builds a line item payload. variantOptions may be empty
// to exercise the missing-optional-field path.
func LineItemJSON(id, sku string, quantity int, unitPrice, variantOptions string) string {
	base := fmt.Sprintf(`"id": %q,
		"variantId": "variant-%s",
		"sku": %q,
		"productId": "product-%s",
		"productName": "Club Membership",
		"quantity": %d,
		"unitPricePaid": {"value": %q, "currency": "USD"},
		"imageUrl": "https://images.example.com/%s.jpg",
		"lineItemType": "PHYSICAL_PRODUCT"`,
		id, id, sku, id, quantity, unitPrice, id)

	if variantOptions != "" {
		base += fmt.Sprintf(`, "variantOptions": %s`, variantOptions)
	}

	return "{" + base + "}"
}
