package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusReceived  Status = "RECEIVED"
	StatusPaid      Status = "PAID"
	StatusPicking   Status = "PICKING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts a status name in any letter case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := allowedTransitions[s]; !ok {
		return "", ErrUnknownStatus
	}
	return s, nil
}

type Line struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name,omitempty" db:"-"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost" db:"unit_cost"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) Profit() decimal.Decimal {
	return l.UnitPrice.Sub(l.UnitCost).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID              int64           `json:"id" db:"id"`
	CustomerName    string          `json:"customer_name" db:"customer_name"`
	CustomerPhone   string          `json:"customer_phone" db:"customer_phone"`
	DeliveryAddress string          `json:"delivery_address" db:"delivery_address"`
	Status          Status          `json:"status" db:"status"`
	Total           decimal.Decimal `json:"total" db:"total"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit" db:"estimated_profit"`
	Lines           []Line          `json:"lines" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Totals sums the subtotals and profits of lines.
func Totals(lines []Line) (total, profit decimal.Decimal) {
	total, profit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
		profit = profit.Add(l.Profit())
	}
	return total, profit
}

// CustomerDetails is what the buyer types at checkout.
type CustomerDetails struct {
	Name    string
	Phone   string
	Address string
}
