package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

// ProductFinder resolves active catalog products.
type ProductFinder interface {
	GetActiveProduct(ctx context.Context, id int64) (*catalog.Product, error)
	ActiveProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type View struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type Service interface {
	Add(ctx context.Context, sess *session.Session, productID int64) (int, error)
	SetQuantity(ctx context.Context, sess *session.Session, productID int64, quantity int) (int, error)
	Decrement(sess *session.Session, productID int64) error
	Remove(sess *session.Session, productID int64) error
	Clear(sess *session.Session) error
	View(ctx context.Context, sess *session.Session) (*View, error)
}

type service struct {
	products ProductFinder
}

func NewService(products ProductFinder) Service {
	return &service{products: products}
}

func (s *service) activeProduct(ctx context.Context, productID int64) (*catalog.Product, error) {
	p, err := s.products.GetActiveProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve product %d: %w", productID, err)
	}
	return p, nil
}

func (s *service) Add(ctx context.Context, sess *session.Session, productID int64) (int, error) {
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return 0, err
	}

	c, err := Load(sess)
	if err != nil {
		return 0, err
	}
	qty := c.Add(productID)
	if err := Save(sess, c); err != nil {
		return 0, err
	}

	log.Debug().Int64("product_id", productID).Int("quantity", qty).Msg("service: product added to cart")
	return qty, nil
}

func (s *service) SetQuantity(ctx context.Context, sess *session.Session, productID int64, quantity int) (int, error) {
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return 0, err
	}

	c, err := Load(sess)
	if err != nil {
		return 0, err
	}
	stored := c.SetQuantity(productID, quantity, p.Stock)
	if err := Save(sess, c); err != nil {
		return 0, err
	}

	if stored != quantity && stored > 0 {
		log.Debug().
			Int64("product_id", productID).
			Int("requested", quantity).
			Int("stored", stored).
			Msg("service: cart quantity clamped to stock")
	}
	return stored, nil
}

func (s *service) Decrement(sess *session.Session, productID int64) error {
	c, err := Load(sess)
	if err != nil {
		return err
	}
	c.Decrement(productID)
	return Save(sess, c)
}

func (s *service) Remove(sess *session.Session, productID int64) error {
	c, err := Load(sess)
	if err != nil {
		return err
	}
	c.Remove(productID)
	return Save(sess, c)
}

func (s *service) Clear(sess *session.Session) error {
	return Save(sess, Cart{})
}

// View resolves the stored entries against the catalog. Entries whose product
// is missing or inactive are left out of the view but stay in the session.
func (s *service) View(ctx context.Context, sess *session.Session) (*View, error) {
	c, err := Load(sess)
	if err != nil {
		return nil, err
	}

	view := &View{Items: make([]Item, 0, len(c)), Total: decimal.Zero, Count: c.Count()}
	ids := c.ProductIDs()
	if len(ids) == 0 {
		return view, nil
	}

	products, err := s.products.ActiveProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve cart products: %w", err)
	}

	sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	for _, p := range products {
		qty := c.Quantity(p.ID)
		if qty <= 0 {
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		view.Items = append(view.Items, Item{Product: p, Quantity: qty, Subtotal: subtotal})
		view.Total = view.Total.Add(subtotal)
	}

	return view, nil
}
