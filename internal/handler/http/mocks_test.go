package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/customer"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) ListActiveProducts(ctx context.Context, categoryID *int64) ([]catalog.Product, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) GetActiveProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) ActiveProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) SaveCategory(ctx context.Context, c *catalog.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password string) (*auth.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthenticator) GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, sess *session.Session, details order.CustomerDetails) (*order.Order, error) {
	args := m.Called(ctx, sess, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id int64) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Register(ctx context.Context, name, email string, phone *string) (*customer.Customer, error) {
	args := m.Called(ctx, name, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerService) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

// memoryProducts resolves products from a fixed in-memory catalog.
type memoryProducts map[int64]catalog.Product

func (m memoryProducts) GetActiveProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m[id]
	if !ok || !p.Active {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (m memoryProducts) ActiveProductsByIDs(_ context.Context, ids []int64) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

const testSecret = "0123456789abcdef0123456789abcdef"

type testApp struct {
	router    http.Handler
	store     session.Store
	catalog   *MockCatalogService
	auth      *MockAuthenticator
	orders    *MockOrderService
	customers *MockCustomerService
}

func newTestApp(t *testing.T, products memoryProducts) *testApp {
	t.Helper()
	return newTestAppWithStore(t, products, session.NewCookieStore([]byte(testSecret), "storefront-session", 3600, false))
}

func newTestAppWithStore(t *testing.T, products memoryProducts, store session.Store) *testApp {
	t.Helper()

	app := &testApp{
		store:     store,
		catalog:   new(MockCatalogService),
		auth:      new(MockAuthenticator),
		orders:    new(MockOrderService),
		customers: new(MockCustomerService),
	}
	cartSvc := cart.NewService(products)

	app.router = storeHandler.NewRouter(storeHandler.RouterConfig{
		Sessions:  app.store,
		Auth:      storeHandler.NewAuthHandler(app.auth, app.store, storeHandler.NewIPRateLimiter(rate.Limit(1), 5, time.Minute)),
		Catalog:   storeHandler.NewCatalogHandler(app.catalog, app.store),
		Cart:      storeHandler.NewCartHandler(cartSvc, app.store),
		Orders:    storeHandler.NewOrderHandler(app.orders, cartSvc, app.store),
		Customers: storeHandler.NewCustomerHandler(app.customers),
	})
	return app
}

// memoryRedis is a map-backed session.RedisClient.
type memoryRedis struct {
	data map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string)}
}

func (m *memoryRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if b, ok := value.([]byte); ok {
		m.data[key] = string(b)
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memoryRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

// sessionCookie builds a signed session cookie carrying values.
func (a *testApp) sessionCookie(t *testing.T, values map[string]any) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := a.store.Load(req)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, sess.Set(k, v))
	}
	rr := httptest.NewRecorder()
	require.NoError(t, a.store.Save(rr, req, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

// loggedIn returns a session cookie for a user the mock authenticator knows.
func (a *testApp) loggedIn(t *testing.T, extra map[string]any) *http.Cookie {
	t.Helper()
	u := &auth.User{ID: uuid.Must(uuid.NewV4()), Username: "staff"}
	a.auth.On("GetUser", mock.Anything, u.ID).Return(u, nil)

	values := map[string]any{storeHandler.UserSessionKey: u.ID.String()}
	for k, v := range extra {
		values[k] = v
	}
	return a.sessionCookie(t, values)
}

// do serves req and returns the recorder.
func (a *testApp) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// loadSession decodes the session written by a response.
func (a *testApp) loadSession(t *testing.T, rr *httptest.ResponseRecorder) *session.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	sess, err := a.store.Load(req)
	require.NoError(t, err)
	return sess
}
