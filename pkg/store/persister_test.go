package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherbornYachtClub/orderbot-sync/pkg/squarespace"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockStore creates a Store backed by a mocked SQL connection.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return New(gormDB), mock, mockDB
}

func money(v string) squarespace.Money {
	return squarespace.Money{Value: decimal.RequireFromString(v), Currency: "USD"}
}

func testOrder(orderNumber string, lineItems ...squarespace.LineItem) squarespace.Order {
	return squarespace.Order{
		OrderNumber: orderNumber,
		CreatedOn:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ModifiedOn:  time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
		Channel:     "web",
		BillingAddress: squarespace.Address{
			FirstName: "Jane",
			LastName:  "Doe",
			City:      "Sherborn",
			State:     "MA",
		},
		CustomerEmail:          "member@example.com",
		FulfillmentStatus:      "PENDING",
		LineItems:              lineItems,
		Subtotal:               money("19.99"),
		ShippingTotal:          money("0.00"),
		DiscountTotal:          money("0.00"),
		TaxTotal:               money("1.25"),
		RefundedTotal:          money("0.00"),
		GrandTotal:             money("21.24"),
		ChannelName:            "website",
		PriceTaxInterpretation: "EXCLUSIVE",
	}
}

func testLineItem(id string) squarespace.LineItem {
	return squarespace.LineItem{
		ID:            id,
		VariantID:     "variant-" + id,
		SKU:           "ABC",
		ProductID:     "product-" + id,
		ProductName:   "Club Membership",
		Quantity:      2,
		UnitPricePaid: money("19.99"),
		LineItemType:  "PHYSICAL_PRODUCT",
	}
}

func TestInsertOrders_Success(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	order := testOrder("1001", testLineItem("li-1"), testLineItem("li-2"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SAVEPOINT line_item_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{order})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 0, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A duplicate line item id is skipped and the sibling row still commits.
func TestInsertOrders_DuplicateSkipped(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	order := testOrder("1001", testLineItem("li-1"), testLineItem("li-2"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT line_item_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{order})

	require.NoError(t, err, "a duplicate row is not an error condition")
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A non-duplicate statement failure skips that row only; the order's
// other rows still commit.
func TestInsertOrders_RowFailureSkipped(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	order := testOrder("1001", testLineItem("li-1"), testLineItem("li-2"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnError(assert.AnError)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT line_item_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{order})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 1, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// When the transaction itself becomes unusable the batch stops with an
// explicit error instead of grinding through doomed statements.
func TestInsertOrders_UnusableTransaction(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	order := testOrder("1001", testLineItem("li-1"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnError(assert.AnError)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT line_item_0`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{order})

	assert.Error(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A savepoint that cannot be created means the transaction is already
// aborted; the order must fail instead of committing nothing as success.
func TestInsertOrders_SavepointFailureAborts(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	order := testOrder("1001", testLineItem("li-1"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{order})

	assert.Error(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Orders commit independently: a transaction-level failure on one order
// does not roll back previously committed orders.
func TestInsertOrders_PerOrderCommit(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	first := testOrder("1001", testLineItem("li-1"))
	second := testOrder("1002", testLineItem("li-2"))

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`SAVEPOINT line_item_0`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "syc_orders"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.InsertOrders(context.Background(), []squarespace.Order{first, second})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrders_EmptyBatch(t *testing.T) {
	s, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	result, err := s.InsertOrders(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlatten(t *testing.T) {
	li := testLineItem("li-1")
	li.VariantOptions = json.RawMessage(`[{"optionName":"Size","value":"M"}]`)
	li.Customizations = json.RawMessage(`[{"label":"Name","value":"Jane"}]`)
	li.ImageURL = "https://images.example.com/li-1.jpg"

	fulfilled := time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)
	order := testOrder("1001", li)
	order.FulfilledOn = &fulfilled
	order.Testmode = true
	order.ExternalOrderReference = "ext-42"

	row := Flatten(order, li)

	assert.Equal(t, "li-1", row.ID)
	assert.Equal(t, "li-1", row.LineItemID)
	assert.Equal(t, "1001", row.OrderNumber)
	assert.Equal(t, "Jane", row.BillingFirstName)
	assert.Equal(t, "Doe", row.BillingLastName)
	assert.Equal(t, "member@example.com", row.CustomerEmail)
	assert.Equal(t, "PENDING", row.FulfillmentStatus)
	assert.Equal(t, 2, row.Quantity)
	assert.True(t, row.UnitPricePaid.Equal(decimal.RequireFromString("19.99")))
	assert.True(t, row.GrandTotal.Equal(decimal.RequireFromString("21.24")))
	assert.True(t, row.Testmode)
	assert.Equal(t, "ext-42", row.ExternalOrderReference)

	require.NotNil(t, row.VariantOptions)
	assert.JSONEq(t, `[{"optionName":"Size","value":"M"}]`, *row.VariantOptions)
	require.NotNil(t, row.Customizations)
	assert.JSONEq(t, `[{"label":"Name","value":"Jane"}]`, *row.Customizations)
	require.NotNil(t, row.FulfilledOn)
	assert.Equal(t, fulfilled, *row.FulfilledOn)
}

// A line item without variantOptions persists with the column NULL, not
// a failure.
func TestFlatten_MissingOptionalFields(t *testing.T) {
	order := testOrder("1001", testLineItem("li-1"))

	row := Flatten(order, order.LineItems[0])

	assert.Nil(t, row.VariantOptions)
	assert.Nil(t, row.Customizations)
	assert.Nil(t, row.FulfilledOn)
}

func TestLineItemRowTableName(t *testing.T) {
	assert.Equal(t, "syc_orders", LineItemRow{}.TableName())
}
