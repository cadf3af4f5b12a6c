package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"

	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		check      storeHandler.HealthCheck
		wantStatus int
	}{
		{name: "no_check", wantStatus: http.StatusOK},
		{name: "healthy", check: func(context.Context) error { return nil }, wantStatus: http.StatusOK},
		{name: "db_down", check: func(context.Context) error { return errors.New("dial tcp: refused") }, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewCookieStore([]byte(testSecret), "storefront-session", 3600, false)
			carts := cart.NewService(memoryProducts{})
			router := storeHandler.NewRouter(storeHandler.RouterConfig{
				Sessions:  store,
				Auth:      storeHandler.NewAuthHandler(new(MockAuthenticator), store, storeHandler.NewIPRateLimiter(rate.Limit(1), 5, time.Minute)),
				Catalog:   storeHandler.NewCatalogHandler(new(MockCatalogService), store),
				Cart:      storeHandler.NewCartHandler(carts, store),
				Orders:    storeHandler.NewOrderHandler(new(MockOrderService), carts, store),
				Customers: storeHandler.NewCustomerHandler(new(MockCustomerService)),
				Health:    tt.check,
			})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Empty(t, rr.Result().Cookies(), "health must not touch the session")
		})
	}
}
