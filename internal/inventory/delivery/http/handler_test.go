package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	_ "github.com/tair/smart-inventory/docs"
	inventoryhttp "github.com/tair/smart-inventory/internal/inventory/delivery/http"
	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/repository"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
	"github.com/tair/smart-inventory/internal/inventory/usecase/query"
	"github.com/tair/smart-inventory/pkg/auth"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	store  *repository.MemoryStore
	tokens *auth.TokenManager
	router *mux.Router
}

func newTestServer(t *testing.T, uow domain.UnitOfWork) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	for _, b := range []domain.Branch{{ID: 1, Name: "Downtown"}, {ID: 2, Name: "Airport"}} {
		if _, err := store.PutBranch(b); err != nil {
			t.Fatalf("PutBranch: %v", err)
		}
	}
	if _, err := store.PutProduct(domain.Product{
		ID: 1, Name: "Widget", SKU: "W-1",
		SalePrice:     decimal.RequireFromString("20.00"),
		TaxPercentage: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("PutProduct: %v", err)
	}
	if uow == nil {
		uow = store
	}

	tokens, err := auth.NewTokenManager("test-secret", "smart-inventory")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	summary := query.NewGetSummaryReportHandler(store, nil, query.ReportOptions{})
	handler := inventoryhttp.NewInventoryHandler(
		inventoryhttp.Commands{
			AddStock:      command.NewAddStockHandler(uow, nil, nil),
			AdjustStock:   command.NewAdjustStockHandler(uow, nil, nil),
			TransferStock: command.NewTransferStockHandler(uow, nil, nil),
			CreateOrder:   command.NewCreateOrderHandler(uow, nil, nil),
		},
		inventoryhttp.Queries{
			Summary:        summary,
			BranchReport:   query.NewGetBranchReportHandler(summary),
			LowStock:       query.NewGetLowStockHandler(store),
			ListInventory:  query.NewListInventoryHandler(store),
			BranchProducts: query.NewListBranchProductsHandler(store),
			History:        query.NewMovementHistoryHandler(store),
			Stats:          query.NewInventoryStatsHandler(store),
			Scope:          query.NewScopeResolver(store),
		},
		tokens,
		inventoryhttp.NewMetrics(nil),
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router, nil)

	return &testServer{t: t, store: store, tokens: tokens, router: router}
}

func (s *testServer) token(role string, branches ...uint) string {
	s.t.Helper()
	token, err := s.tokens.GenerateToken(auth.Claims{UserID: 7, Role: role, BranchIDs: branches}, time.Hour)
	if err != nil {
		s.t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(http.MethodGet, "/api/inventory", "", nil)
	if rec.Code != http.StatusUnauthorized || env.Success {
		t.Fatalf("status = %d, success = %v, want 401", rec.Code, env.Success)
	}

	rec, _ = s.do(http.MethodGet, "/api/inventory", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a bad token", rec.Code)
	}

	rec, _ = s.do(http.MethodGet, "/api/inventory", s.token("janitor", 1), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for an unknown role", rec.Code)
	}
}

func TestAddStock(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(domain.RoleBranchManager, 1)

	rec, env := s.do(http.MethodPost, "/api/inventory/add", token, map[string]interface{}{
		"branch_id": 1, "product_id": 1, "quantity": 12, "note": "delivery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s), want 201", rec.Code, env.Error)
	}
	var record domain.InventoryRecord
	if err := json.Unmarshal(env.Data, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.Quantity != 12 {
		t.Errorf("quantity = %d, want 12", record.Quantity)
	}
	if movements := s.store.Movements(); len(movements) != 1 || movements[0].UserID != 7 {
		t.Errorf("movements = %+v, want one movement attributed to user 7", movements)
	}
}

func TestAddStockRejects(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(domain.RoleBranchManager, 1)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed json", `{"branch_id":`, http.StatusBadRequest},
		{"zero quantity", map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": 0}, http.StatusUnprocessableEntity},
		{"unknown product", map[string]interface{}{"branch_id": 1, "product_id": 99, "quantity": 1}, http.StatusNotFound},
		{"foreign branch", map[string]interface{}{"branch_id": 2, "product_id": 1, "quantity": 1}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(http.MethodPost, "/api/inventory/add", token, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d (%s), want %d", rec.Code, env.Error, tt.status)
			}
			if env.Success || env.Error == "" {
				t.Errorf("envelope = %+v, want failure with message", env)
			}
		})
	}
	if got := len(s.store.Movements()); got != 0 {
		t.Errorf("movements = %d, want 0", got)
	}
}

func TestAdjustStockNeverNegative(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(domain.RoleBranchManager, 1)

	s.do(http.MethodPost, "/api/inventory/add", token, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": 10})

	rec, _ := s.do(http.MethodPost, "/api/inventory/adjust", token, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": -15})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	rec, _ = s.do(http.MethodPost, "/api/inventory/adjust", token, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": -10})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if q, _ := s.store.Quantity(1, 1); q != 0 {
		t.Errorf("quantity = %d, want 0", q)
	}
}

func TestTransferInsufficientStock(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(domain.RoleSuperAdmin)

	s.do(http.MethodPost, "/api/inventory/add", admin, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": 3})

	rec, env := s.do(http.MethodPost, "/api/inventory/transfer", admin, map[string]interface{}{
		"from_branch_id": 1, "to_branch_id": 2, "product_id": 1, "quantity": 5,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d (%s), want 409", rec.Code, env.Error)
	}

	rec, _ = s.do(http.MethodPost, "/api/inventory/transfer", admin, map[string]interface{}{
		"from_branch_id": 1, "to_branch_id": 2, "product_id": 1, "quantity": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if q, _ := s.store.Quantity(2, 1); q != 3 {
		t.Errorf("destination quantity = %d, want 3", q)
	}
}

func TestCreateOrder(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(domain.RoleSales, 1)

	s.do(http.MethodPost, "/api/inventory/add", token, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": 5})

	rec, env := s.do(http.MethodPost, "/api/orders", token, map[string]interface{}{
		"branch_id": 1,
		"items":     []map[string]interface{}{{"product_id": 1, "quantity": 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s), want 201", rec.Code, env.Error)
	}
	var order domain.Order
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if !order.Total.Equal(decimal.RequireFromString("66.00")) {
		t.Errorf("total = %s, want 66.00", order.Total)
	}

	rec, _ = s.do(http.MethodPost, "/api/orders", token, map[string]interface{}{
		"branch_id": 1,
		"items":     []map[string]interface{}{{"product_id": 1, "quantity": 3}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 with 2 units left", rec.Code)
	}
	if q, _ := s.store.Quantity(1, 1); q != 2 {
		t.Errorf("quantity = %d, want 2", q)
	}
}

type contendedUnitOfWork struct{}

func (contendedUnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo domain.LedgerRepository) error) error {
	return domain.Contention("run transaction", context.DeadlineExceeded)
}

func TestContentionReturnsRetryAfter(t *testing.T) {
	s := newTestServer(t, contendedUnitOfWork{})

	rec, env := s.do(http.MethodPost, "/api/inventory/add", s.token(domain.RoleSuperAdmin), map[string]interface{}{
		"branch_id": 1, "product_id": 1, "quantity": 1,
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d (%s), want 503", rec.Code, env.Error)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestReportsAreScoped(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.token(domain.RoleSuperAdmin)
	manager := s.token(domain.RoleBranchManager, 1)

	s.do(http.MethodPost, "/api/inventory/add", admin, map[string]interface{}{"branch_id": 1, "product_id": 1, "quantity": 4})
	s.do(http.MethodPost, "/api/inventory/add", admin, map[string]interface{}{"branch_id": 2, "product_id": 1, "quantity": 50})

	rec, env := s.do(http.MethodGet, "/api/reports/summary", manager, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", rec.Code)
	}
	var report query.SummaryReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.BranchIDs) != 1 || report.BranchIDs[0] != 1 {
		t.Errorf("scope = %v, want [1]", report.BranchIDs)
	}
	if len(report.LowStock) != 1 || report.LowStock[0].BranchID != 1 {
		t.Errorf("low stock = %+v, want the branch 1 record only", report.LowStock)
	}

	rec, _ = s.do(http.MethodGet, "/api/reports/branches/2", manager, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign branch report status = %d, want 403", rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/reports/branches/2", admin, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin branch report status = %d, want 200", rec.Code)
	}

	rec, env = s.do(http.MethodGet, "/api/inventory", manager, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("inventory status = %d, want 200", rec.Code)
	}
	var items []query.InventoryItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode inventory: %v", err)
	}
	if len(items) != 1 || items[0].BranchName != "Downtown" {
		t.Errorf("inventory = %+v, want one Downtown row", items)
	}

	rec, env = s.do(http.MethodGet, "/api/inventory/stats", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", rec.Code)
	}
	var stats domain.InventoryStats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalVolume != 54 {
		t.Errorf("total volume = %d, want 54", stats.TotalVolume)
	}

	rec, env = s.do(http.MethodGet, "/api/inventory/history?limit=1", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", rec.Code)
	}
	var history []query.MovementView
	if err := json.Unmarshal(env.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].BranchID != 2 {
		t.Errorf("history = %+v, want the newest movement at branch 2", history)
	}

	rec, _ = s.do(http.MethodGet, "/api/inventory/branches/abc/products", admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad branch id status = %d, want 400", rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/inventory/branches/1/products", manager, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("branch products status = %d, want 200", rec.Code)
	}
}

type failingPinger struct{}

func (failingPinger) PingContext(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)
	rec, env := s.do(http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d, want healthy", rec.Code)
	}

	router := mux.NewRouter()
	inventoryhttp.NewInventoryHandler(inventoryhttp.Commands{}, inventoryhttp.Queries{}, s.tokens, nil).
		RegisterHealthCheck(router, failingPinger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", res.Code)
	}
}

func TestSwaggerDocs(t *testing.T) {
	router := mux.NewRouter()
	inventoryhttp.RegisterSwaggerDocs(router)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/swagger", nil))
	if res.Code != http.StatusMovedPermanently || res.Header().Get("Location") != "/swagger/index.html" {
		t.Errorf("redirect = %d %q", res.Code, res.Header().Get("Location"))
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("doc.json status = %d, want 200", res.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	if _, ok := doc["paths"]; !ok {
		t.Error("doc.json has no paths")
	}
}
