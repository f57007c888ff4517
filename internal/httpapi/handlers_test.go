package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wrsmile/backend/internal/cache"
	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/service"
	"wrsmile/backend/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier123")
	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, time.Minute, "WR Smile & Supplies", "LKR")
	auth := NewAuthManager(testSecret, time.Hour, repo)
	return New(svc, auth, "http://127.0.0.1:3000").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	return resp.AccessToken
}

func TestHealthNeedsNoAuth(t *testing.T) {
	handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler := newTestAPI(t)
	for i := 0; i < 5; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
}

func TestMissingBearerToken(t *testing.T) {
	handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestListProducts(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 3 {
		t.Fatalf("expected 3 seeded products, got %d", len(resp.Products))
	}
}

func TestCreateProductForbiddenForCashier(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name: "Nails", TotalCost: 100, MarginType: domain.MarginFixed, MarginValue: 20,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutAndReceiptFlow(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		PaymentType: domain.PaymentCash,
		Discount:    500,
		Lines:       []domain.CheckoutLine{{ProductID: "1", Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var checkout domain.BillResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &checkout); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if checkout.Bill.FinalAmount != 3500 {
		t.Fatalf("unexpected finalAmount %v", checkout.Bill.FinalAmount)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/bills/"+checkout.Bill.ID+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var receipt domain.ReceiptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(receipt.Text, "*Total: LKR 3500*") {
		t.Fatalf("receipt missing total:\n%s", receipt.Text)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/bills", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var bills struct {
		Bills []domain.Bill `json:"bills"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bills); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bills.Bills) != 1 || bills.Bills[0].ID != checkout.Bill.ID {
		t.Fatalf("unexpected bill list: %+v", bills.Bills)
	}
}

func TestCheckoutValidationStatus(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		PaymentType: domain.PaymentCash,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}
}

func TestPaymentUnknownCustomer(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/payments", token, domain.PaymentRequest{CustomerID: "missing", Amount: 100})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCustomerLedgerEndpoint(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/customers/1/ledger", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var ledger domain.CustomerLedgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ledger); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ledger.Customer.Name != "Mohamed Nazeer" || ledger.Customer.BalanceDue != 3000 {
		t.Fatalf("unexpected ledger customer: %+v", ledger.Customer)
	}
}

func TestCashierManagementRequiresAdmin(t *testing.T) {
	handler := newTestAPI(t)

	cashierToken := login(t, handler, "cashier", "cashier123")
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/users/cashiers", cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	adminToken := login(t, handler, "admin", "admin123")
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/users/cashiers", adminToken, domain.CashierCreateRequest{Username: "clerk2", Password: "secret99"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/users/cashiers", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Cashiers []domain.CashierUser `json:"cashiers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Cashiers) != 2 {
		t.Fatalf("expected seeded cashier plus clerk2, got %+v", resp.Cashiers)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodOptions, "/api/v1/products", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected CORS origin %q", origin)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"paymentType":"CASH","bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
