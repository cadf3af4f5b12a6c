package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"

	"github.com/vasiliy-maslov/storefront/internal/customer"
)

func TestCustomerHandler_Create(t *testing.T) {
	app := newTestApp(t, nil)
	created := &customer.Customer{ID: 3, Name: "Ana", Email: "ana@example.com", CreatedAt: time.Now().Truncate(time.Second)}
	app.customers.On("Register", mock.Anything, "Ana", "ana@example.com", (*string)(nil)).Return(created, nil).Once()

	rr := app.do(jsonRequest(http.MethodPost, "/customers", `{"name":"Ana","email":"ana@example.com"}`))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp storeHandler.CustomerResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.ID)
	assert.Equal(t, "ana@example.com", resp.Email)
	app.customers.AssertExpectations(t)
}

func TestCustomerHandler_Create_Failures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(m *MockCustomerService)
		wantStatus int
		wantField  string
	}{
		{
			name:       "invalid_email",
			body:       `{"name":"Ana","email":"not-an-email"}`,
			setup:      func(m *MockCustomerService) {},
			wantStatus: http.StatusBadRequest,
			wantField:  "email",
		},
		{
			name:       "short_name",
			body:       `{"name":"A","email":"a@example.com"}`,
			setup:      func(m *MockCustomerService) {},
			wantStatus: http.StatusBadRequest,
			wantField:  "name",
		},
		{
			name: "duplicate_email",
			body: `{"name":"Ana","email":"ana@example.com"}`,
			setup: func(m *MockCustomerService) {
				m.On("Register", mock.Anything, "Ana", "ana@example.com", (*string)(nil)).Return(nil, customer.ErrEmailExists).Once()
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, nil)
			tt.setup(app.customers)

			rr := app.do(jsonRequest(http.MethodPost, "/customers", tt.body))
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantField != "" {
				var resp storeHandler.ValidationErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Contains(t, resp.Details, tt.wantField)
			}
			app.customers.AssertExpectations(t)
		})
	}
}

func TestCustomerHandler_Get(t *testing.T) {
	t.Run("requires_login", func(t *testing.T) {
		app := newTestApp(t, nil)
		rr := app.do(httptest.NewRequest(http.MethodGet, "/customers/3", nil))
		assert.Equal(t, http.StatusFound, rr.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		app := newTestApp(t, nil)
		cookie := app.loggedIn(t, nil)
		app.customers.On("GetByID", mock.Anything, int64(3)).Return(nil, customer.ErrNotFound).Once()

		rr := app.do(httptest.NewRequest(http.MethodGet, "/customers/3", nil), cookie)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		app.customers.AssertExpectations(t)
	})
}
