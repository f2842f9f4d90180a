package squarespace

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Money is a currency-tagged decimal amount as returned by the commerce
// API. Values arrive as strings ("19.99") and are kept as decimals.
type Money struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// Address holds the billing address fields of an order.
type Address struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	State       string `json:"state"`
	CountryCode string `json:"countryCode"`
	PostalCode  string `json:"postalCode"`
	Phone       string `json:"phone"`
}

// LineItem is one purchased product entry within an order. Its id is
// globally unique and is the primary key of the persisted row.
//
// VariantOptions and Customizations are semi-structured and optional;
// they are carried as raw JSON and serialized opaquely at write time.
// A missing variantOptions field stays nil (simple products have none).
type LineItem struct {
	ID             string          `json:"id"`
	VariantID      string          `json:"variantId"`
	VariantOptions json.RawMessage `json:"variantOptions,omitempty"`
	SKU            string          `json:"sku"`
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	Quantity       int             `json:"quantity"`
	UnitPricePaid  Money           `json:"unitPricePaid"`
	ImageURL       string          `json:"imageUrl"`
	LineItemType   string          `json:"lineItemType"`
	Customizations json.RawMessage `json:"customizations,omitempty"`
}

// Order is a top-level commerce record. Orders are immutable once
// fetched; a run only ever sees orders modified within the current
// calendar-year window.
type Order struct {
	ID                     string     `json:"id"`
	OrderNumber            string     `json:"orderNumber"`
	CreatedOn              time.Time  `json:"createdOn"`
	ModifiedOn             time.Time  `json:"modifiedOn"`
	FulfilledOn            *time.Time `json:"fulfilledOn,omitempty"`
	Channel                string     `json:"channel"`
	Testmode               bool       `json:"testmode"`
	CustomerEmail          string     `json:"customerEmail"`
	BillingAddress         Address    `json:"billingAddress"`
	FulfillmentStatus      string     `json:"fulfillmentStatus"`
	LineItems              []LineItem `json:"lineItems"`
	Subtotal               Money      `json:"subtotal"`
	ShippingTotal          Money      `json:"shippingTotal"`
	DiscountTotal          Money      `json:"discountTotal"`
	TaxTotal               Money      `json:"taxTotal"`
	RefundedTotal          Money      `json:"refundedTotal"`
	GrandTotal             Money      `json:"grandTotal"`
	ChannelName            string     `json:"channelName"`
	ExternalOrderReference string     `json:"externalOrderReference"`
	PriceTaxInterpretation string     `json:"priceTaxInterpretation"`
}

// Pagination is the descriptor every collection response carries. When
// HasNextPage is true, NextPageURL is a fully-qualified URL that needs
// no additional query parameters.
type Pagination struct {
	HasNextPage bool   `json:"hasNextPage"`
	NextPageURL string `json:"nextPageUrl"`
}
