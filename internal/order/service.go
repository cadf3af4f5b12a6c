package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/events"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusReceived: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusPicking:   true,
		StatusCancelled: true,
	},
	StatusPicking: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrMissingCustomerDetails  = errors.New("name, phone and delivery address are required")
	ErrUnknownStatus           = errors.New("unknown order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")

	// ErrCartNotCleared accompanies a stored order whose cart could not be emptied.
	ErrCartNotCleared = errors.New("order stored but cart not cleared")
)

// ProductResolver looks up the products currently on sale.
type ProductResolver interface {
	ActiveProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

type Service interface {
	Checkout(ctx context.Context, sess *session.Session, details CustomerDetails) (*Order, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error
}

type service struct {
	orderRepo Repository
	products  ProductResolver
	publisher events.Publisher
}

func NewService(orderRepo Repository, products ProductResolver, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		orderRepo: orderRepo,
		products:  products,
		publisher: publisher,
	}
}

func (d CustomerDetails) trimmed() (CustomerDetails, error) {
	d = CustomerDetails{
		Name:    strings.TrimSpace(d.Name),
		Phone:   strings.TrimSpace(d.Phone),
		Address: strings.TrimSpace(d.Address),
	}

	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	if d.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return d, fmt.Errorf("%w: missing %s", ErrMissingCustomerDetails, strings.Join(missing, ", "))
	}
	return d, nil
}

// Checkout turns the session cart into a persisted order. Prices and costs are
// copied from the catalog at this moment. Entries whose product is no longer
// on sale are skipped. The cart is emptied only after the order is stored.
func (s *service) Checkout(ctx context.Context, sess *session.Session, details CustomerDetails) (*Order, error) {
	c, err := cart.Load(sess)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	ids := c.ProductIDs()
	if len(ids) == 0 {
		return nil, ErrEmptyCart
	}

	details, err = details.trimmed()
	if err != nil {
		log.Warn().Err(err).Msg("service: checkout rejected")
		return nil, err
	}

	products, err := s.products.ActiveProductsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to resolve cart products")
		return nil, fmt.Errorf("service: failed to resolve cart products: %w", err)
	}
	byID := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.Active {
			log.Info().Int64("product_id", id).Msg("service: skipping cart entry for unavailable product")
			continue
		}
		lines = append(lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    c.Quantity(id),
			UnitPrice:   p.Price,
			UnitCost:    p.Cost,
		})
	}
	if len(lines) == 0 {
		log.Warn().Ints64("product_ids", ids).Msg("service: no cart entry resolved to an available product")
		return nil, ErrEmptyCart
	}

	orderInput := &Order{
		CustomerName:    details.Name,
		CustomerPhone:   details.Phone,
		DeliveryAddress: details.Address,
		Status:          StatusReceived,
		Lines:           lines,
	}
	orderInput.Total, orderInput.EstimatedProfit = Totals(lines)

	if _, err := s.orderRepo.CreateOrder(ctx, orderInput); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Int64("order_id", orderInput.ID).
		Int("lines", len(orderInput.Lines)).
		Stringer("total", orderInput.Total).
		Msg("Service: Order created successfully")

	s.publish(ctx, fmt.Sprintf("order.created.%d", orderInput.ID), orderInput)

	if err := cart.Save(sess, cart.Cart{}); err != nil {
		log.Error().Err(err).Int64("order_id", orderInput.ID).Msg("service: failed to clear cart after checkout")
		return orderInput, fmt.Errorf("%w: order %d: %v", ErrCartNotCleared, orderInput.ID, err)
	}
	return orderInput, nil
}

func (s *service) GetOrderByID(ctx context.Context, id int64) (*Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Int64("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return order, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus Status) error {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return ErrUnknownStatus
	}

	currentOrder, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return ErrOrderNotFound
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to get order for status update")
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if currentOrder.Status == newStatus {
		log.Info().Int64("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return nil
	}

	if !allowedTransitions[currentOrder.Status][newStatus] {
		log.Warn().
			Int64("order_id", currentOrder.ID).
			Stringer("current_status", currentOrder.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, currentOrder.Status, newStatus)
	}

	err = s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Int64("order_id", orderID).Stringer("old_status", currentOrder.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")

	currentOrder.Status = newStatus
	s.publish(ctx, fmt.Sprintf("order.%s.%d", strings.ToLower(newStatus.String()), orderID), currentOrder)
	return nil
}

// publish logs delivery failures instead of returning them.
func (s *service) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		log.Error().Err(err).Str("key", key).Msg("service: failed to publish order event")
	}
}
