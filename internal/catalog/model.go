package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Product struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	CategoryID int64           `json:"category_id" db:"category_id"`
	Cost       decimal.Decimal `json:"cost" db:"cost"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Stock      int             `json:"stock" db:"stock"`
	Active     bool            `json:"active" db:"active"`
	ImageURL   *string         `json:"image_url,omitempty" db:"image_url"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// UnitProfit is what one sold unit earns at the current price and cost.
func (p Product) UnitProfit() decimal.Decimal {
	return p.Price.Sub(p.Cost)
}
