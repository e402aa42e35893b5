package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/commercium-dev/storefront/internal/models"
	"github.com/commercium-dev/storefront/internal/pricing"
	"github.com/commercium-dev/storefront/internal/repo"
	"github.com/commercium-dev/storefront/internal/service"
	"github.com/commercium-dev/storefront/internal/tokens"
)

type testServer struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	tokens *tokens.Service
	auth   *service.AuthService
	cart   *service.CartService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.RefreshToken{}, &models.Order{}, &models.OrderItem{},
	))

	r := repo.NewGormRepo(db)
	tokenSvc := &tokens.Service{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	authSvc := &service.AuthService{Repo: r, Tokens: tokenSvc}
	cartSvc := &service.CartService{
		Repo:     r,
		Pricing:  pricing.NewEngine("TRY"),
		Currency: "TRY",
		GuestTTL: 24 * time.Hour,
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler:    &AuthHTTP{Svc: authSvc},
		CartHandler:    &CartHTTP{Svc: cartSvc},
		ProductHandler: &ProductHTTP{Repo: r},
		OrderHandler:   &OrderHTTP{Repo: r},
		AuthMW:         &AuthMiddleware{Tokens: tokenSvc, Auth: authSvc},
	})

	return &testServer{e: e, repo: r, tokens: tokenSvc, auth: authSvc, cart: cartSvc}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, ck := range cookies {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func (ts *testServer) seedProduct(t *testing.T, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:       uuid.New(),
		Name:     "widget",
		Price:    decimal.RequireFromString(price),
		Currency: "TRY",
		Count:    10,
	}
	require.NoError(t, ts.repo.CreateProduct(context.Background(), p))
	return p
}

func (ts *testServer) registerAndLogin(t *testing.T) []*http.Cookie {
	t.Helper()

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","name":"Ada","password":"s3cret-pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, "register: %v", env.Error)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"s3cret-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code, "login: %v", env.Error)
	return rec.Result().Cookies()
}

func TestLogin_SetsCookiesAndKeepsTokensOutOfBody(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	_, env := ts.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","name":"Ada","password":"s3cret-pw"}`)
	require.True(t, env.Success)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"s3cret-pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	cookies := rec.Result().Cookies()
	access := cookieByName(cookies, accessCookieName)
	refresh := cookieByName(cookies, refreshCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, access.Value)
	assert.NotEmpty(t, refresh.Value)

	// the body carries the user, never the raw tokens
	body := string(env.Data)
	assert.NotContains(t, body, access.Value)
	assert.NotContains(t, body, refresh.Value)
	assert.Contains(t, body, "ada@example.com")
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"ada@example.com","name":"Ada","password":"s3cret-pw"}`)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/login",
		`{"email":"ada@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestRegister_Duplicate(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"dup@example.com","name":"A","password":"pw-one"}`)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/register",
		`{"email":"dup@example.com","name":"B","password":"pw-two"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestRefresh_BadTokenClearsBothCookies(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		&http.Cookie{Name: refreshCookieName, Value: "garbage"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_REFRESH_FAILED", env.Error.Code)

	cookies := rec.Result().Cookies()
	access := cookieByName(cookies, accessCookieName)
	refresh := cookieByName(cookies, refreshCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Less(t, access.MaxAge, 0)
	assert.Less(t, refresh.MaxAge, 0)
}

func TestRefresh_RotatesCookiePair(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cookies := ts.registerAndLogin(t)
	oldRefresh := cookieByName(cookies, refreshCookieName)
	require.NotNil(t, oldRefresh)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code, "refresh: %v", env.Error)

	rotated := cookieByName(rec.Result().Cookies(), refreshCookieName)
	require.NotNil(t, rotated)
	assert.NotEqual(t, oldRefresh.Value, rotated.Value)

	// replaying the old refresh token fails and clears the pair
	rec, env = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		&http.Cookie{Name: refreshCookieName, Value: oldRefresh.Value})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOKEN_REFRESH_FAILED", env.Error.Code)
}

func TestMe_RequiresAuth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_AUTHENTICATED", env.Error.Code)
}

func TestMe_WithLoginCookies(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cookies := ts.registerAndLogin(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/auth/me", "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code, "me: %v", env.Error)
	assert.Contains(t, string(env.Data), "ada@example.com")
}

func TestMe_ExpiredAccessRefreshesInPlace(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cookies := ts.registerAndLogin(t)
	refresh := cookieByName(cookies, refreshCookieName)
	require.NotNil(t, refresh)

	var user models.User
	require.NoError(t, ts.repo.DB.Where("email = ?", "ada@example.com").First(&user).Error)
	expired, err := ts.tokens.SignAccessToken(user.ID, user.Email, user.Role, user.Name, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/auth/me", "",
		&http.Cookie{Name: accessCookieName, Value: expired},
		&http.Cookie{Name: refreshCookieName, Value: refresh.Value})
	require.Equal(t, http.StatusOK, rec.Code, "me: %v", env.Error)

	// the pair was rotated in place
	rotated := rec.Result().Cookies()
	newAccess := cookieByName(rotated, accessCookieName)
	require.NotNil(t, newAccess)
	assert.NotEqual(t, expired, newAccess.Value)
}

func TestLogout_AlwaysClearsCookies(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/auth/logout", "",
		&http.Cookie{Name: refreshCookieName, Value: "junk"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	cookies := rec.Result().Cookies()
	access := cookieByName(cookies, accessCookieName)
	refresh := cookieByName(cookies, refreshCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Less(t, access.MaxAge, 0)
	assert.Less(t, refresh.MaxAge, 0)
}

func TestResolveCart_CreatedVsExisting(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	session := uuid.NewString()
	body := fmt.Sprintf(`{"session_id":%q}`, session)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts", body)
	require.Equal(t, http.StatusCreated, rec.Code, "resolve: %v", env.Error)

	rec, env = ts.do(t, http.MethodPost, "/api/v1/carts", body)
	assert.Equal(t, http.StatusOK, rec.Code, "resolve again: %v", env.Error)
}

func TestCreateGuestCart(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts/guest", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		GuestCartID  uuid.UUID `json:"guest_cart_id"`
		SessionToken string    `json:"session_token"`
		ExpiresAt    time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEqual(t, uuid.Nil, data.GuestCartID)
	assert.NotEmpty(t, data.SessionToken)
	assert.True(t, data.ExpiresAt.After(time.Now()))
}

func TestGetCart_Missing(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodGet, "/api/v1/carts/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCartItemFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	p := ts.seedProduct(t, "100.00")

	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts/guest", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var guest struct {
		GuestCartID uuid.UUID `json:"guest_cart_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &guest))
	base := "/api/v1/carts/" + guest.GuestCartID.String()

	rec, env = ts.do(t, http.MethodPost, base+"/items",
		fmt.Sprintf(`{"product_id":%q,"quantity":2}`, p.ID))
	require.Equal(t, http.StatusCreated, rec.Code, "add: %v", env.Error)

	var added struct {
		Item models.CartItem `json:"item"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))
	itemPath := base + "/items/" + added.Item.ID.String()

	// zero quantity is a validation error, not an implicit delete
	rec, env = ts.do(t, http.MethodPatch, itemPath, `{"quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = ts.do(t, http.MethodPatch, itemPath, `{"quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code, "patch: %v", env.Error)

	rec, env = ts.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		Summary pricing.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "500", view.Summary.Subtotal.String())
	assert.Equal(t, "590", view.Summary.GrandTotal.String())

	rec, env = ts.do(t, http.MethodDelete, itemPath, "")
	require.Equal(t, http.StatusOK, rec.Code, "delete: %v", env.Error)

	rec, env = ts.do(t, http.MethodDelete, itemPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItem_MissingProductID(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts/guest", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var guest struct {
		GuestCartID uuid.UUID `json:"guest_cart_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &guest))

	rec, env = ts.do(t, http.MethodPost, "/api/v1/carts/"+guest.GuestCartID.String()+"/items",
		`{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestExtendExpiration_Endpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts/guest", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var guest struct {
		GuestCartID uuid.UUID `json:"guest_cart_id"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &guest))
	base := "/api/v1/carts/" + guest.GuestCartID.String()

	rec, env = ts.do(t, http.MethodPost, base+"/extend", `{"hours":200}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = ts.do(t, http.MethodPost, base+"/extend", `{"hours":24}`)
	require.Equal(t, http.StatusOK, rec.Code, "extend: %v", env.Error)

	var data struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.WithinDuration(t, guest.ExpiresAt.Add(24*time.Hour), data.ExpiresAt, time.Second)
}

func TestCheckout_Endpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	p := ts.seedProduct(t, "50.00")

	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts/guest", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var guest struct {
		GuestCartID uuid.UUID `json:"guest_cart_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &guest))
	base := "/api/v1/carts/" + guest.GuestCartID.String()

	rec, env = ts.do(t, http.MethodPost, base+"/items",
		fmt.Sprintf(`{"product_id":%q,"quantity":3}`, p.ID))
	require.Equal(t, http.StatusCreated, rec.Code, "add: %v", env.Error)

	rec, env = ts.do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, "checkout: %v", env.Error)

	var res struct {
		Order struct {
			GrandTotal decimal.Decimal `json:"grand_total"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "177", res.Order.GrandTotal.String())

	// a converted cart is gone from the active view
	rec, _ = ts.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_Endpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	cookies := ts.registerAndLogin(t)
	p := ts.seedProduct(t, "40.00")

	var user models.User
	require.NoError(t, ts.repo.DB.Where("email = ?", "ada@example.com").First(&user).Error)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/carts",
		fmt.Sprintf(`{"user_id":%q}`, user.ID))
	require.Equal(t, http.StatusCreated, rec.Code, "resolve: %v", env.Error)
	var resolved struct {
		Cart models.Cart `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	base := "/api/v1/carts/" + resolved.Cart.ID.String()

	rec, env = ts.do(t, http.MethodPost, base+"/items",
		fmt.Sprintf(`{"product_id":%q,"quantity":1}`, p.ID))
	require.Equal(t, http.StatusCreated, rec.Code, "add: %v", env.Error)

	rec, env = ts.do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusCreated, rec.Code, "checkout: %v", env.Error)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/orders", "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code, "orders: %v", env.Error)

	var data struct {
		Orders []models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Orders, 1)
	assert.Equal(t, "47.2", data.Orders[0].GrandTotal.String())

	// unauthenticated callers get nothing
	rec, _ = ts.do(t, http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProducts_Endpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	p := ts.seedProduct(t, "19.99")

	rec, env := ts.do(t, http.MethodGet, "/api/v1/products/"+p.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code, "get: %v", env.Error)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "widget")
}
