package store

import (
	"time"

	"github.com/SherbornYachtClub/orderbot-sync/pkg/squarespace"
	"github.com/shopspring/decimal"
)

// LineItemRow is one flattened line item in the syc_orders table. The
// line item id is the primary key; order-level fields are denormalized
// onto every row. Rows are append-only: once inserted they are never
// updated or deleted by this system.
type LineItemRow struct {
	ID                     string          `gorm:"column:id;primaryKey"`
	OrderNumber            string          `gorm:"column:order_number"`
	CreatedOn              time.Time       `gorm:"column:created_on"`
	ModifiedOn             time.Time       `gorm:"column:modified_on"`
	Channel                string          `gorm:"column:channel"`
	Testmode               bool            `gorm:"column:testmode"`
	CustomerEmail          string          `gorm:"column:customer_email"`
	BillingFirstName       string          `gorm:"column:billing_first_name"`
	BillingLastName        string          `gorm:"column:billing_last_name"`
	BillingAddress1        string          `gorm:"column:billing_address1"`
	BillingAddress2        string          `gorm:"column:billing_address2"`
	BillingCity            string          `gorm:"column:billing_city"`
	BillingState           string          `gorm:"column:billing_state"`
	BillingCountryCode     string          `gorm:"column:billing_country_code"`
	BillingPostalCode      string          `gorm:"column:billing_postal_code"`
	BillingPhone           string          `gorm:"column:billing_phone"`
	FulfillmentStatus      string          `gorm:"column:fulfillment_status"`
	LineItemID             string          `gorm:"column:line_item_id"`
	VariantID              string          `gorm:"column:variant_id"`
	VariantOptions         *string         `gorm:"column:variant_options"`
	SKU                    string          `gorm:"column:sku"`
	ProductID              string          `gorm:"column:product_id"`
	ProductName            string          `gorm:"column:product_name"`
	Quantity               int             `gorm:"column:quantity"`
	UnitPricePaid          decimal.Decimal `gorm:"column:unit_price_paid;type:numeric"`
	ImageURL               string          `gorm:"column:image_url"`
	LineItemType           string          `gorm:"column:line_item_type"`
	Customizations         *string         `gorm:"column:customizations"`
	Subtotal               decimal.Decimal `gorm:"column:subtotal;type:numeric"`
	ShippingTotal          decimal.Decimal `gorm:"column:shipping_total;type:numeric"`
	DiscountTotal          decimal.Decimal `gorm:"column:discount_total;type:numeric"`
	TaxTotal               decimal.Decimal `gorm:"column:tax_total;type:numeric"`
	RefundedTotal          decimal.Decimal `gorm:"column:refunded_total;type:numeric"`
	GrandTotal             decimal.Decimal `gorm:"column:grand_total;type:numeric"`
	ChannelName            string          `gorm:"column:channel_name"`
	ExternalOrderReference string          `gorm:"column:external_order_reference"`
	FulfilledOn            *time.Time      `gorm:"column:fulfilled_on"`
	PriceTaxInterpretation string          `gorm:"column:price_tax_interpretation"`
}

// TableName implements gorm's Tabler interface.
func (LineItemRow) TableName() string {
	return "syc_orders"
}

// Flatten combines an order's denormalized fields with one of its line
// items into a single row. Optional semi-structured fields are carried
// as serialized JSON text; when missing they stay NULL, which is the
// absent marker for those columns.
func Flatten(order squarespace.Order, li squarespace.LineItem) LineItemRow {
	return LineItemRow{
		ID:                     li.ID,
		OrderNumber:            order.OrderNumber,
		CreatedOn:              order.CreatedOn,
		ModifiedOn:             order.ModifiedOn,
		Channel:                order.Channel,
		Testmode:               order.Testmode,
		CustomerEmail:          order.CustomerEmail,
		BillingFirstName:       order.BillingAddress.FirstName,
		BillingLastName:        order.BillingAddress.LastName,
		BillingAddress1:        order.BillingAddress.Address1,
		BillingAddress2:        order.BillingAddress.Address2,
		BillingCity:            order.BillingAddress.City,
		BillingState:           order.BillingAddress.State,
		BillingCountryCode:     order.BillingAddress.CountryCode,
		BillingPostalCode:      order.BillingAddress.PostalCode,
		BillingPhone:           order.BillingAddress.Phone,
		FulfillmentStatus:      order.FulfillmentStatus,
		LineItemID:             li.ID,
		VariantID:              li.VariantID,
		VariantOptions:         rawJSONText(li.VariantOptions),
		SKU:                    li.SKU,
		ProductID:              li.ProductID,
		ProductName:            li.ProductName,
		Quantity:               li.Quantity,
		UnitPricePaid:          li.UnitPricePaid.Value,
		ImageURL:               li.ImageURL,
		LineItemType:           li.LineItemType,
		Customizations:         rawJSONText(li.Customizations),
		Subtotal:               order.Subtotal.Value,
		ShippingTotal:          order.ShippingTotal.Value,
		DiscountTotal:          order.DiscountTotal.Value,
		TaxTotal:               order.TaxTotal.Value,
		RefundedTotal:          order.RefundedTotal.Value,
		GrandTotal:             order.GrandTotal.Value,
		ChannelName:            order.ChannelName,
		ExternalOrderReference: order.ExternalOrderReference,
		FulfilledOn:            order.FulfilledOn,
		PriceTaxInterpretation: order.PriceTaxInterpretation,
	}
}

// rawJSONText serializes an optional semi-structured field as opaque
// text, or nil (SQL NULL) when the source record lacks the field.
func rawJSONText(raw []byte) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
