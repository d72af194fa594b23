package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/storefront/internal/auth"
	"github.com/prn-tf/storefront/internal/domain"
	"github.com/prn-tf/storefront/internal/lock"
	"github.com/prn-tf/storefront/internal/metrics"
	"github.com/prn-tf/storefront/internal/repository"
	"github.com/prn-tf/storefront/internal/repository/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	repos   *repository.Repositories
	auth    *AuthService
	catalog *CatalogService
	cart    *CartService
	orders  *OrderService
	admin   *AdminService
	images  *fakeImageStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(filepath.Join(t.TempDir(), "storefront.db")), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repos := sqlite.NewRepositories(db)
	m := metrics.New()
	logger := zerolog.Nop()
	images := &fakeImageStore{url: "https://cdn.example.com/products/ab/cd/abcd.png"}

	locker := lock.NewMemoryLocker()
	t.Cleanup(func() { _ = locker.Close() })

	return &testEnv{
		repos: repos,
		auth: NewAuthService(repos.User, repos.Session, auth.NewTokenManager(testSecret),
			AuthConfig{BcryptCost: bcrypt.MinCost, SessionTTL: time.Hour}, m, logger),
		catalog: NewCatalogService(repos.Product, images, logger),
		cart:    NewCartService(repos.Cart, repos.Product, m, logger),
		orders:  NewOrderService(repos, locker, DefaultOrderConfig(), m, logger),
		admin:   NewAdminService(repos.User, repos.Order, logger),
		images:  images,
	}
}

func (e *testEnv) register(t *testing.T, username string, isAdmin bool) *AuthResult {
	t.Helper()
	result, err := e.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Password: "password123",
		IsAdmin:  isAdmin,
	})
	require.NoError(t, err)
	return result
}

func (e *testEnv) product(t *testing.T, admin *domain.User, name, price string) *domain.Product {
	t.Helper()
	p := decimal.RequireFromString(price)
	stock := int64(10)
	product, err := e.catalog.Create(context.Background(), admin, CreateProductInput{Name: name, Price: &p, Stock: &stock})
	require.NoError(t, err)
	return product
}

type fakeImageStore struct {
	url  string
	err  error
	puts int
}

func (f *fakeImageStore) Put(ctx context.Context, data []byte) (string, error) {
	f.puts++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// =============================================================================
// Gates
// =============================================================================

func TestGates(t *testing.T) {
	user := domain.NewUser("bob", "hash")
	admin := domain.NewUser("root", "hash")
	admin.IsAdmin = true

	require.ErrorIs(t, RequireAuthenticated(nil), domain.ErrUnauthenticated)
	require.NoError(t, RequireAuthenticated(user))

	require.ErrorIs(t, RequireAdministrator(nil), domain.ErrUnauthenticated)
	require.ErrorIs(t, RequireAdministrator(user), domain.ErrForbidden)
	require.NoError(t, RequireAdministrator(admin))
}

// =============================================================================
// AuthService
// =============================================================================

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.register(t, "alice", false)
	require.NotEmpty(t, registered.Token)
	require.False(t, registered.User.IsAdmin)
	require.NotEqual(t, "password123", registered.User.PasswordHash)

	principal, err := env.auth.CurrentPrincipal(ctx, registered.Token)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, principal.ID)

	login, err := env.auth.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	require.NotEqual(t, registered.Token, login.Token)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "alice", Password: "password123"})
	require.ErrorIs(t, err, domain.ErrDuplicateHandle)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{Username: "al", Password: "password123"})
	require.ErrorIs(t, err, domain.ErrInvalidUsername)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "alice", Password: "short"})
	require.ErrorIs(t, err, domain.ErrInvalidPassword)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "  al  ", Password: "password123"})
	require.ErrorIs(t, err, domain.ErrInvalidUsername)
}

func TestAuthService_UsernamesAreTrimmed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.auth.Register(ctx, RegisterInput{Username: " alice ", Password: "password123"})
	require.NoError(t, err)
	require.Equal(t, "alice", result.User.Username)

	_, err = env.auth.Register(ctx, RegisterInput{Username: "alice", Password: "password123"})
	require.ErrorIs(t, err, domain.ErrDuplicateHandle)

	login, err := env.auth.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	require.Equal(t, result.User.ID, login.User.ID)

	login, err = env.auth.Authenticate(ctx, "\talice", "password123")
	require.NoError(t, err)
	require.Equal(t, result.User.ID, login.User.ID)
}

func TestAuthService_InvalidCredentialsAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", false)

	_, errUnknown := env.auth.Authenticate(ctx, "nobody", "password123")
	_, errWrong := env.auth.Authenticate(ctx, "alice", "wrong-password")

	require.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := env.register(t, "alice", false)

	require.NoError(t, env.auth.Logout(ctx, result.Token))

	_, err := env.auth.CurrentPrincipal(ctx, result.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Logging out twice or with garbage is harmless.
	require.NoError(t, env.auth.Logout(ctx, result.Token))
	require.NoError(t, env.auth.Logout(ctx, "not-a-token"))
}

func TestAuthService_CurrentPrincipalRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.CurrentPrincipal(ctx, "")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.auth.CurrentPrincipal(ctx, "garbage")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	// A correctly signed token for a session that was never stored.
	forged, err := auth.NewTokenManager(testSecret).Generate(domain.NewSession(uuid.New(), time.Hour))
	require.NoError(t, err)
	_, err = env.auth.CurrentPrincipal(ctx, forged)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Correct signature and subject, but the session id is not a UUID.
	malformed := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "not-a-uuid",
		Subject:   uuid.NewString(),
		Issuer:    auth.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, malformed).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = env.auth.CurrentPrincipal(ctx, signed)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
	require.NoError(t, env.auth.Logout(ctx, signed))

	// Same session, other secret.
	result := env.register(t, "alice", false)
	other := NewAuthService(env.repos.User, env.repos.Session, auth.NewTokenManager("ffffffffffffffffffffffffffffffff"),
		AuthConfig{BcryptCost: bcrypt.MinCost, SessionTTL: time.Hour}, nil, zerolog.Nop())
	_, err = other.CurrentPrincipal(ctx, result.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthService_SweepSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	result := env.register(t, "alice", false)

	expired := domain.NewSession(result.User.ID, time.Hour)
	expired.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, env.repos.Session.Create(ctx, expired))

	n, err := env.auth.SweepSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = env.auth.CurrentPrincipal(ctx, result.Token)
	require.NoError(t, err)
}

func TestAuthService_SweepSkipsWhenLockHeld(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, lock.Keys.SessionSweep(), time.Minute).Return("", lock.ErrNotObtained)

	env.auth.sweepOnce(ctx, locker, time.Minute)
	locker.AssertExpectations(t)
	locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// CatalogService
// =============================================================================

func TestCatalogService_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "bob", false).User

	price := decimal.RequireFromString("1.00")
	stock := int64(1)
	input := CreateProductInput{Name: "Mug", Price: &price, Stock: &stock}

	_, err := env.catalog.Create(ctx, nil, input)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.catalog.Create(ctx, user, input)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.catalog.Delete(ctx, user, uuid.New())
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCatalogService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User

	price := decimal.RequireFromString("1.00")
	negative := decimal.RequireFromString("-1.00")
	stock := int64(1)
	negativeStock := int64(-1)

	_, err := env.catalog.Create(ctx, admin, CreateProductInput{Name: "", Price: &price, Stock: &stock})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = env.catalog.Create(ctx, admin, CreateProductInput{Name: "Mug", Stock: &stock})
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = env.catalog.Create(ctx, admin, CreateProductInput{Name: "Mug", Price: &negative, Stock: &stock})
	require.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = env.catalog.Create(ctx, admin, CreateProductInput{Name: "Mug", Price: &price})
	require.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = env.catalog.Create(ctx, admin, CreateProductInput{Name: "Mug", Price: &price, Stock: &negativeStock})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCatalogService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	product := env.product(t, admin, "Mug", "9.50")

	newPrice := decimal.RequireFromString("11.25")
	category := "kitchen"
	updated, err := env.catalog.Update(ctx, admin, product.ID, domain.ProductPatch{Price: &newPrice, Category: &category})
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(newPrice))
	require.Equal(t, "Mug", updated.Name)
	require.False(t, updated.UpdatedAt.Before(product.UpdatedAt))

	got, err := env.catalog.Get(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "kitchen", *got.Category)

	negative := int64(-3)
	_, err = env.catalog.Update(ctx, admin, product.ID, domain.ProductPatch{Stock: &negative})
	require.ErrorIs(t, err, domain.ErrInvalidStock)

	_, err = env.catalog.Update(ctx, admin, uuid.New(), domain.ProductPatch{Price: &newPrice})
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	deleted, err := env.catalog.Delete(ctx, admin, product.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = env.catalog.Delete(ctx, admin, product.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = env.catalog.Get(ctx, product.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_SetImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	product := env.product(t, admin, "Mug", "9.50")

	updated, err := env.catalog.SetImage(ctx, admin, product.ID, []byte("png"))
	require.NoError(t, err)
	require.Equal(t, env.images.url, *updated.Image)

	env.images.err = domain.ErrUnsupportedImage
	_, err = env.catalog.SetImage(ctx, admin, product.ID, []byte("nope"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	disabled := NewCatalogService(env.repos.Product, nil, zerolog.Nop())
	_, err = disabled.SetImage(ctx, admin, product.ID, []byte("png"))
	require.ErrorIs(t, err, domain.ErrImagesDisabled)
}

func TestCatalogService_GetSeesWritesFromOtherInstances(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	product := env.product(t, admin, "Mug", "9.50")

	other := NewCatalogService(env.repos.Product, nil, zerolog.Nop())

	_, err := env.catalog.Get(ctx, product.ID)
	require.NoError(t, err)

	name := "Big Mug"
	_, err = other.Update(ctx, admin, product.ID, domain.ProductPatch{Name: &name})
	require.NoError(t, err)
	got, err := env.catalog.Get(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Big Mug", got.Name)

	deleted, err := other.Delete(ctx, admin, product.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	_, err = env.catalog.Get(ctx, product.ID)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCatalogService_PropagatesUnavailable(t *testing.T) {
	products := &mockProductRepository{}
	products.On("List", mock.Anything).Return(nil, errors.Join(domain.ErrUnavailable, errors.New("disk full")))

	svc := NewCatalogService(products, nil, zerolog.Nop())
	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	products.AssertExpectations(t)
}

// =============================================================================
// CartService
// =============================================================================

func TestCartService_MergeAndTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	user := env.register(t, "alice", false).User
	product := env.product(t, admin, "Pen", "19.99")

	for i := 0; i < 3; i++ {
		_, err := env.cart.AddItem(ctx, user, product.ID, 0)
		require.NoError(t, err)
	}

	cart, err := env.cart.Snapshot(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, 3, cart.Count)
	require.Equal(t, "59.97", cart.Total.StringFixed(2))
	require.Equal(t, "Pen", cart.Items[0].Product.Name)
}

func TestCartService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	bob := env.register(t, "bob", false).User
	product := env.product(t, admin, "Pen", "1.00")

	_, err := env.cart.AddItem(ctx, nil, product.ID, 1)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.cart.AddItem(ctx, alice, uuid.New(), 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = env.cart.AddItem(ctx, alice, product.ID, -2)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	line, err := env.cart.AddItem(ctx, alice, product.ID, 2)
	require.NoError(t, err)

	_, err = env.cart.SetQuantity(ctx, alice, line.ID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.cart.SetQuantity(ctx, bob, line.ID, 5)
	require.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := env.cart.SetQuantity(ctx, alice, line.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 5, updated.Quantity)

	// Bob cannot remove Alice's line.
	require.NoError(t, env.cart.RemoveItem(ctx, bob, line.ID))
	cart, err := env.cart.Snapshot(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 5, cart.Count)
}

func TestCartService_QuantityLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	product := env.product(t, admin, "Pen", "1.00")

	_, err := env.cart.AddItem(ctx, alice, product.ID, math.MaxInt)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	line, err := env.cart.AddItem(ctx, alice, product.ID, domain.MaxQuantity)
	require.NoError(t, err)

	_, err = env.cart.AddItem(ctx, alice, product.ID, 1)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.cart.SetQuantity(ctx, alice, line.ID, domain.MaxQuantity+1)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	cart, err := env.cart.Snapshot(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, domain.MaxQuantity, cart.Count)
	require.Equal(t, "10000.00", cart.Total.StringFixed(2))
}

func TestCartService_RemoveAndClearAreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	user := env.register(t, "alice", false).User
	a := env.product(t, admin, "A", "1.00")
	b := env.product(t, admin, "B", "2.00")

	line, err := env.cart.AddItem(ctx, user, a.ID, 1)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, user, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.cart.RemoveItem(ctx, user, line.ID))
	require.NoError(t, env.cart.RemoveItem(ctx, user, line.ID))

	cart, err := env.cart.Snapshot(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	require.NoError(t, env.cart.Clear(ctx, user))
	require.NoError(t, env.cart.Clear(ctx, user))

	cart, err = env.cart.Snapshot(ctx, user)
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.True(t, cart.Total.IsZero())
}

// =============================================================================
// OrderService
// =============================================================================

func TestOrderService_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	mallory := env.register(t, "mallory", false).User

	shirt := env.product(t, admin, "Shirt", "75.00")
	shoes := env.product(t, admin, "Shoes", "85.00")

	_, err := env.cart.AddItem(ctx, alice, shirt.ID, 1)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, alice, shoes.ID, 2)
	require.NoError(t, err)

	order, err := env.orders.Checkout(ctx, alice, CheckoutInput{
		CustomerName:    "Alice",
		CustomerEmail:   "alice@example.com",
		ShippingAddress: "1 Main St",
		Items: []domain.OrderItemInput{
			{ProductID: shirt.ID, Quantity: 1},
			{ProductID: shoes.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "245.00", order.Total.StringFixed(2))
	require.Equal(t, domain.OrderStatusPending, order.Status)

	cart, err := env.cart.Snapshot(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, cart.Items)

	// Later catalog edits never touch the order.
	newPrice := decimal.RequireFromString("99.00")
	_, err = env.catalog.Update(ctx, admin, shirt.ID, domain.ProductPatch{Price: &newPrice})
	require.NoError(t, err)
	_, err = env.catalog.Delete(ctx, admin, shoes.ID)
	require.NoError(t, err)

	got, err := env.orders.Get(ctx, alice, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	require.Equal(t, "Shirt", got.Items[0].ProductName)
	require.Equal(t, "75.00", got.Items[0].ProductPrice.StringFixed(2))
	require.Equal(t, "Shoes", got.Items[1].ProductName)
	require.Equal(t, "245.00", got.Total.StringFixed(2))

	shipped, err := env.orders.UpdateStatus(ctx, admin, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, shipped.Status)

	_, err = env.orders.Get(ctx, mallory, order.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	mine, err := env.orders.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := env.orders.ListMine(ctx, mallory)
	require.NoError(t, err)
	require.Empty(t, theirs)

	stats, err := env.admin.Stats(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalUsers)
	require.Equal(t, int64(1), stats.TotalOrders)
	require.Equal(t, "245.00", stats.Revenue.StringFixed(2))
}

func TestOrderService_CheckoutValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	product := env.product(t, admin, "Pen", "1.00")

	valid := CheckoutInput{
		CustomerName:    "Alice",
		CustomerEmail:   "alice@example.com",
		ShippingAddress: "1 Main St",
		Items:           []domain.OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	}

	_, err := env.orders.Checkout(ctx, nil, valid)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	noName := valid
	noName.CustomerName = "  "
	_, err = env.orders.Checkout(ctx, alice, noName)
	require.ErrorIs(t, err, domain.ErrInvalidCustomer)

	badEmail := valid
	badEmail.CustomerEmail = "not-an-email"
	_, err = env.orders.Checkout(ctx, alice, badEmail)
	require.ErrorIs(t, err, domain.ErrInvalidEmail)

	empty := valid
	empty.Items = nil
	_, err = env.orders.Checkout(ctx, alice, empty)
	require.ErrorIs(t, err, domain.ErrEmptyOrder)

	zero := valid
	zero.Items = []domain.OrderItemInput{{ProductID: product.ID, Quantity: 0}}
	_, err = env.orders.Checkout(ctx, alice, zero)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	huge := valid
	huge.Items = []domain.OrderItemInput{{ProductID: product.ID, Quantity: domain.MaxQuantity + 1}}
	_, err = env.orders.Checkout(ctx, alice, huge)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	orders, err := env.orders.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestOrderService_CheckoutUnknownProductRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	product := env.product(t, admin, "Pen", "1.00")

	_, err := env.cart.AddItem(ctx, alice, product.ID, 1)
	require.NoError(t, err)

	_, err = env.orders.Checkout(ctx, alice, CheckoutInput{
		CustomerName:    "Alice",
		CustomerEmail:   "alice@example.com",
		ShippingAddress: "1 Main St",
		Items: []domain.OrderItemInput{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: uuid.New(), Quantity: 1},
		},
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	orders, err := env.orders.ListAll(ctx, admin)
	require.NoError(t, err)
	require.Empty(t, orders)

	cart, err := env.cart.Snapshot(ctx, alice)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
}

func TestOrderService_CheckoutInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", false).User

	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, lock.Keys.Checkout(alice.ID), mock.Anything).Return("", lock.ErrNotObtained)

	svc := NewOrderService(env.repos, locker, OrderConfig{CheckoutLockTTL: time.Second}, nil, zerolog.Nop())
	_, err := svc.Checkout(ctx, alice, CheckoutInput{
		CustomerName:    "Alice",
		CustomerEmail:   "alice@example.com",
		ShippingAddress: "1 Main St",
		Items:           []domain.OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrCheckoutInProgress)
	require.Equal(t, domain.KindConflict, domain.KindOf(err))
	locker.AssertExpectations(t)
}

func TestOrderService_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User

	missing := uuid.New()

	_, err := env.orders.Get(ctx, nil, missing)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.orders.Get(ctx, admin, missing)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = env.orders.Get(ctx, alice, missing)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.orders.ListAll(ctx, alice)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.register(t, "root", true).User
	alice := env.register(t, "alice", false).User
	product := env.product(t, admin, "Pen", "1.00")

	order, err := env.orders.Checkout(ctx, alice, CheckoutInput{
		CustomerName:    "Alice",
		CustomerEmail:   "alice@example.com",
		ShippingAddress: "1 Main St",
		Items:           []domain.OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = env.orders.UpdateStatus(ctx, alice, order.ID, domain.OrderStatusPaid)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.orders.UpdateStatus(ctx, admin, order.ID, domain.OrderStatus("Lost"))
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = env.orders.UpdateStatus(ctx, admin, uuid.New(), domain.OrderStatusPaid)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Backwards transitions are allowed.
	for _, status := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusPending} {
		updated, err := env.orders.UpdateStatus(ctx, admin, order.ID, status)
		require.NoError(t, err)
		require.Equal(t, status, updated.Status)
	}
}

// =============================================================================
// Mocks
// =============================================================================

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func (m *mockLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
