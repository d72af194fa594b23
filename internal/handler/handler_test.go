package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/lock"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/repository/sqlite"
	"github.com/prn-tf/storefront/internal/service"
)

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "storefront.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := sqlite.NewRepositories(db)
	logger := zerolog.Nop()
	m := metrics.New()

	authService := service.NewAuthService(repos.User, repos.Session,
		auth.NewTokenManager("0123456789abcdef0123456789abcdef"),
		service.AuthConfig{BcryptCost: bcrypt.MinCost, SessionTTL: time.Hour}, m, logger)

	handler := NewRouter(RouterConfig{
		AuthService:    authService,
		CatalogService: service.NewCatalogService(repos.Product, nil, logger),
		CartService:    service.NewCartService(repos.Cart, repos.Product, m, logger),
		OrderService:   service.NewOrderService(repos, lock.NewNoOpLocker(), service.DefaultOrderConfig(), m, logger),
		AdminService:   service.NewAdminService(repos.User, repos.Order, logger),
		Cookies: auth.NewCookieStore(auth.CookieConfig{
			Name:   "storefront_session",
			Secret: []byte("fedcba9876543210fedcba9876543210"),
			MaxAge: time.Hour,
		}),
		Metrics:      m,
		MetricsPath:  "/metrics",
		Health:       db,
		MaxImageSize: 1024,
		Logger:       logger,
	})

	return &testServer{handler: handler, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	result, err := s.auth.Register(context.Background(), service.RegisterInput{
		Username: "root",
		Password: "password123",
		IsAdmin:  true,
	})
	require.NoError(t, err)
	return result.Token
}

func (s *testServer) registerToken(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var resp ErrorResponse
	decode(t, rec, &resp)
	require.Equal(t, kind, resp.Error)
	require.NotEmpty(t, resp.Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrDuplicateHandle, http.StatusConflict},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrSessionNotFound, http.StatusUnauthorized},
		{domain.ErrAdminRequired, http.StatusForbidden},
		{domain.ErrOrderNotFound, http.StatusNotFound},
		{domain.ErrInvalidQuantity, http.StatusBadRequest},
		{domain.ErrCheckoutInProgress, http.StatusConflict},
		{domain.ErrImagesDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	token := s.registerToken(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{"username": "alice", "password": "password123"})
	requireError(t, rec, http.StatusConflict, domain.KindDuplicateHandle)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "nope-nope"})
	requireError(t, rec, http.StatusUnauthorized, domain.KindInvalidCredentials)

	rec = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")
	var me struct {
		User domain.User `json:"user"`
	}
	decode(t, rec, &me)
	require.Equal(t, "alice", me.User.Username)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	requireError(t, rec, http.StatusUnauthorized, domain.KindUnauthenticated)
}

func TestAuthFlow_Cookie(t *testing.T) {
	s := newTestServer(t)
	s.registerToken(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegister_AdminFlagRequiresAdmin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "mallory",
		"password": "password123",
		"isAdmin":  true,
	})
	requireError(t, rec, http.StatusUnauthorized, domain.KindUnauthenticated)

	userToken := s.registerToken(t, "bob")
	rec = s.do(t, http.MethodPost, "/api/auth/register", userToken, map[string]any{
		"username": "mallory",
		"password": "password123",
		"isAdmin":  true,
	})
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)

	rec = s.do(t, http.MethodPost, "/api/auth/register", s.adminToken(t), map[string]any{
		"username": "carol",
		"password": "password123",
		"isAdmin":  true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthorizationOutcomes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.registerToken(t, "bob")

	rec := s.do(t, http.MethodGet, "/api/cart", "", nil)
	requireError(t, rec, http.StatusUnauthorized, domain.KindUnauthenticated)

	rec = s.do(t, http.MethodPost, "/api/products", userToken, map[string]any{"name": "X", "price": "1.00", "stock": 1})
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)

	rec = s.do(t, http.MethodGet, "/api/admin/stats", userToken, nil)
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)

	rec = s.do(t, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	requireError(t, rec, http.StatusBadRequest, domain.KindInvalidInput)

	rec = s.do(t, http.MethodGet, "/api/products/"+uuid.NewString(), "", nil)
	requireError(t, rec, http.StatusNotFound, domain.KindNotFound)

	rec = s.do(t, http.MethodDelete, "/api/products/"+uuid.NewString(), s.adminToken(t), nil)
	requireError(t, rec, http.StatusNotFound, domain.KindNotFound)

	rec = s.do(t, http.MethodPut, "/api/products/"+uuid.NewString()+"/image", userToken, nil)
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)
}

func TestStorefrontScenario(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	alice := s.registerToken(t, "alice")
	bob := s.registerToken(t, "bob")

	createProduct := func(name, price string) string {
		rec := s.do(t, http.MethodPost, "/api/products", admin, map[string]any{"name": name, "price": price, "stock": 10})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp struct {
			Product domain.Product `json:"product"`
		}
		decode(t, rec, &resp)
		return resp.Product.ID.String()
	}
	shirt := createProduct("Shirt", "75.00")
	shoes := createProduct("Shoes", "85.00")

	rec := s.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Products []domain.Product `json:"products"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Products, 2)

	rec = s.do(t, http.MethodPost, "/api/cart", alice, map[string]any{"productId": shirt})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/cart", alice, map[string]any{"productId": shoes, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/cart", alice, map[string]any{"productId": shoes, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cart", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart domain.Cart
	decode(t, rec, &cart)
	require.Len(t, cart.Items, 2)
	require.Equal(t, 3, cart.Count)
	require.Equal(t, "245.00", cart.Total.StringFixed(2))

	rec = s.do(t, http.MethodPost, "/api/orders", alice, map[string]any{
		"customerName":    "Alice",
		"customerEmail":   "alice@example.com",
		"shippingAddress": "1 Main St",
		"total":           "0.01",
		"items": []map[string]any{
			{"productId": shirt, "quantity": 1},
			{"productId": shoes, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		Order domain.Order `json:"order"`
	}
	decode(t, rec, &placed)
	require.Equal(t, "245.00", placed.Order.Total.StringFixed(2))
	require.Equal(t, domain.OrderStatusPending, placed.Order.Status)
	orderPath := "/api/orders/" + placed.Order.ID.String()

	rec = s.do(t, http.MethodGet, "/api/cart", alice, nil)
	decode(t, rec, &cart)
	require.Empty(t, cart.Items)

	rec = s.do(t, http.MethodPut, "/api/admin/orders/"+placed.Order.ID.String(), admin, map[string]any{"status": "Shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/admin/orders/"+placed.Order.ID.String(), admin, map[string]any{"status": "Lost"})
	requireError(t, rec, http.StatusBadRequest, domain.KindInvalidInput)

	rec = s.do(t, http.MethodGet, orderPath, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Order domain.Order       `json:"order"`
		Items []domain.OrderLine `json:"items"`
	}
	decode(t, rec, &got)
	require.Equal(t, domain.OrderStatusShipped, got.Order.Status)
	require.Len(t, got.Items, 2)
	require.Equal(t, "75.00", got.Items[0].ProductPrice.StringFixed(2))
	require.Equal(t, "85.00", got.Items[1].ProductPrice.StringFixed(2))

	rec = s.do(t, http.MethodGet, orderPath, bob, nil)
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)

	rec = s.do(t, http.MethodGet, "/api/orders/"+uuid.NewString(), bob, nil)
	requireError(t, rec, http.StatusForbidden, domain.KindForbidden)

	rec = s.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats domain.Stats `json:"stats"`
	}
	decode(t, rec, &stats)
	require.Equal(t, int64(3), stats.Stats.TotalUsers)
	require.Equal(t, int64(1), stats.Stats.TotalOrders)
	require.Equal(t, "245.00", stats.Stats.Revenue.StringFixed(2))
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t)
	alice := s.registerToken(t, "alice")
	bob := s.registerToken(t, "bob")

	rec := s.do(t, http.MethodPost, "/api/products", admin, map[string]any{"name": "Pen", "price": "19.99", "stock": 10})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Product domain.Product `json:"product"`
	}
	decode(t, rec, &created)

	rec = s.do(t, http.MethodPost, "/api/cart", alice, map[string]any{"productId": uuid.NewString()})
	requireError(t, rec, http.StatusNotFound, domain.KindNotFound)

	rec = s.do(t, http.MethodPost, "/api/cart", alice, map[string]any{"productId": created.Product.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	var added struct {
		CartItem domain.CartLine `json:"cartItem"`
	}
	decode(t, rec, &added)
	linePath := "/api/cart/" + added.CartItem.ID.String()

	rec = s.do(t, http.MethodPut, linePath, alice, map[string]any{"quantity": 0})
	requireError(t, rec, http.StatusBadRequest, domain.KindInvalidInput)

	rec = s.do(t, http.MethodPut, linePath, bob, map[string]any{"quantity": 2})
	requireError(t, rec, http.StatusNotFound, domain.KindNotFound)

	rec = s.do(t, http.MethodPut, linePath, alice, map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, linePath, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, linePath, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
