// Package cart implements the shopping cart kept in the visitor's session.
package cart

import (
	"sort"
	"strconv"

	"github.com/vasiliy-maslov/storefront/internal/session"
)

// SessionKey is the session entry holding the cart.
const SessionKey = "cart"

// Cart maps a product id in base-10 string form to the requested quantity.
type Cart map[string]int

func key(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

// Load reads the cart from the session, returning an empty cart on first access.
func Load(s *session.Session) (Cart, error) {
	c := make(Cart)
	if _, err := s.Get(SessionKey, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = make(Cart)
	}
	return c, nil
}

// Save writes c back into the session.
func Save(s *session.Session, c Cart) error {
	return s.Set(SessionKey, c)
}

// Add increments the product's quantity by one, creating the entry at 1.
func (c Cart) Add(productID int64) int {
	c[key(productID)]++
	return c[key(productID)]
}

// SetQuantity stores requested clamped to stock. A non-positive request or an
// out-of-stock product removes the entry. It returns the stored quantity.
func (c Cart) SetQuantity(productID int64, requested, stock int) int {
	k := key(productID)
	switch {
	case requested <= 0, stock <= 0:
		delete(c, k)
		return 0
	case requested > stock:
		c[k] = stock
	default:
		c[k] = requested
	}
	return c[k]
}

// Decrement lowers the quantity by one and drops the entry at zero.
// Absent products are ignored.
func (c Cart) Decrement(productID int64) {
	k := key(productID)
	qty, ok := c[k]
	if !ok {
		return
	}
	if qty-1 <= 0 {
		delete(c, k)
		return
	}
	c[k] = qty - 1
}

func (c Cart) Remove(productID int64) {
	delete(c, key(productID))
}

func (c Cart) Quantity(productID int64) int {
	return c[key(productID)]
}

// Count is the number of units across all entries.
func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		if qty > 0 {
			n += qty
		}
	}
	return n
}

// ProductIDs returns the ids of entries with a positive quantity in ascending
// order. Keys that are not valid ids are skipped.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for k, qty := range c {
		if qty <= 0 {
			continue
		}
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
