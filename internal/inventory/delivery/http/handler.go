package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tair/smart-inventory/internal/inventory/domain"
	"github.com/tair/smart-inventory/internal/inventory/usecase/command"
	"github.com/tair/smart-inventory/internal/inventory/usecase/query"
	"github.com/tair/smart-inventory/pkg/logger"
)

// Commands groups the write-side handlers.
type Commands struct {
	AddStock      *command.AddStockHandler
	AdjustStock   *command.AdjustStockHandler
	TransferStock *command.TransferStockHandler
	CreateOrder   *command.CreateOrderHandler
}

// Queries groups the read-side handlers.
type Queries struct {
	Summary        *query.GetSummaryReportHandler
	BranchReport   *query.GetBranchReportHandler
	LowStock       *query.GetLowStockHandler
	ListInventory  *query.ListInventoryHandler
	BranchProducts *query.ListBranchProductsHandler
	History        *query.MovementHistoryHandler
	Stats          *query.InventoryStatsHandler
	Scope          *query.ScopeResolver
}

// InventoryHandler handles HTTP requests for the stock ledger, orders and reports
type InventoryHandler struct {
	commands Commands
	queries  Queries
	tokens   TokenValidator
	metrics  *Metrics
}

// NewInventoryHandler creates a new inventory handler. metrics may be nil.
func NewInventoryHandler(commands Commands, queries Queries, tokens TokenValidator, metrics *Metrics) *InventoryHandler {
	return &InventoryHandler{
		commands: commands,
		queries:  queries,
		tokens:   tokens,
		metrics:  metrics,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type stockRequest struct {
	BranchID  uint   `json:"branch_id"`
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

type transferRequest struct {
	FromBranchID uint   `json:"from_branch_id"`
	ToBranchID   uint   `json:"to_branch_id"`
	ProductID    uint   `json:"product_id"`
	Quantity     int    `json:"quantity"`
	Note         string `json:"note"`
}

type orderRequest struct {
	BranchID uint               `json:"branch_id"`
	Items    []domain.OrderLine `json:"items"`
}

// AddStock godoc
// @Summary Add stock
// @Description Receive units of a product at a branch. Creates the inventory record on first use.
// @Tags Inventory
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{branch_id=int,product_id=int,quantity=int,note=string} true "Stock entry"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 422 {object} object{success=bool,error=string}
// @Router /api/inventory/add [post]
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	var req stockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireBranch(w, r, actor, req.BranchID) {
		return
	}

	record, err := h.commands.AddStock.Handle(r.Context(), command.AddStockCommand{
		Actor:     actor,
		BranchID:  req.BranchID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Stock added successfully",
		Data:    record,
	})
}

// AdjustStock godoc
// @Summary Adjust stock
// @Description Apply a signed correction to an existing inventory record. The result may not go below zero.
// @Tags Inventory
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{branch_id=int,product_id=int,quantity=int,note=string} true "Signed delta in quantity"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 422 {object} object{success=bool,error=string}
// @Router /api/inventory/adjust [post]
func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	var req stockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireBranch(w, r, actor, req.BranchID) {
		return
	}

	record, err := h.commands.AdjustStock.Handle(r.Context(), command.AdjustStockCommand{
		Actor:     actor,
		BranchID:  req.BranchID,
		ProductID: req.ProductID,
		Delta:     req.Quantity,
		Note:      req.Note,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stock adjusted successfully",
		Data:    record,
	})
}

// TransferStock godoc
// @Summary Transfer stock
// @Description Move units of a product from one branch to another atomically
// @Tags Inventory
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{from_branch_id=int,to_branch_id=int,product_id=int,quantity=int,note=string} true "Transfer"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/inventory/transfer [post]
func (h *InventoryHandler) TransferStock(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Sending stock away is the privileged side of a transfer.
	if !requireBranch(w, r, actor, req.FromBranchID) {
		return
	}

	result, err := h.commands.TransferStock.Handle(r.Context(), command.TransferStockCommand{
		Actor:        actor,
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		Note:         req.Note,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stock transferred successfully",
		Data: map[string]interface{}{
			"source":      result.Source,
			"destination": result.Destination,
		},
	})
}

// CreateOrder godoc
// @Summary Create order
// @Description Sell one or more products at a branch. Either every line is fulfilled or the order fails.
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{branch_id=int,items=[]object{product_id=int,quantity=int}} true "Order"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/orders [post]
func (h *InventoryHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	var req orderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireBranch(w, r, actor, req.BranchID) {
		return
	}

	order, err := h.commands.CreateOrder.Handle(r.Context(), command.CreateOrderCommand{
		Actor:    actor,
		BranchID: req.BranchID,
		Lines:    req.Items,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Order created successfully",
		Data:    order,
	})
}

// GetSummaryReport godoc
// @Summary Summary report
// @Description Sales totals, order count, top products and low stock across the caller's branches
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Number of top products (default 5)"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /api/reports/summary [get]
func (h *InventoryHandler) GetSummaryReport(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.resolveScope(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	report, err := h.queries.Summary.Handle(r.Context(), query.GetSummaryReportQuery{
		BranchIDs: scope,
		Limit:     limit,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// GetBranchReport godoc
// @Summary Branch report
// @Description Summary report restricted to a single branch
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Param id path int true "Branch ID"
// @Param limit query int false "Number of top products (default 5)"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/reports/branches/{id} [get]
func (h *InventoryHandler) GetBranchReport(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	branchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireBranch(w, r, actor, branchID) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	report, err := h.queries.BranchReport.Handle(r.Context(), query.GetBranchReportQuery{
		BranchID: branchID,
		Limit:    limit,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    report,
	})
}

// GetLowStock godoc
// @Summary Low stock
// @Description Inventory records at or below the low stock threshold in the caller's branches
// @Tags Reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/reports/low-stock [get]
func (h *InventoryHandler) GetLowStock(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.resolveScope(w, r)
	if !ok {
		return
	}

	items, err := h.queries.LowStock.Handle(r.Context(), query.GetLowStockQuery{BranchIDs: scope})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    items,
	})
}

// ListInventory godoc
// @Summary List inventory
// @Description Inventory records with product and branch names in the caller's branches
// @Tags Inventory
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/inventory [get]
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.resolveScope(w, r)
	if !ok {
		return
	}

	items, err := h.queries.ListInventory.Handle(r.Context(), query.ListInventoryQuery{BranchIDs: scope})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    items,
	})
}

// ListBranchProducts godoc
// @Summary Products available at a branch
// @Description Products with stock greater than zero at the branch
// @Tags Inventory
// @Security BearerAuth
// @Produce json
// @Param id path int true "Branch ID"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/inventory/branches/{id}/products [get]
func (h *InventoryHandler) ListBranchProducts(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r.Context())

	branchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !requireBranch(w, r, actor, branchID) {
		return
	}

	products, err := h.queries.BranchProducts.Handle(r.Context(), query.ListBranchProductsQuery{BranchID: branchID})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    products,
	})
}

// GetMovementHistory godoc
// @Summary Stock movement history
// @Description Movement log of the caller's branches, newest first
// @Tags Inventory
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Limit (default 50, max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/inventory/history [get]
func (h *InventoryHandler) GetMovementHistory(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.resolveScope(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	movements, err := h.queries.History.Handle(r.Context(), query.MovementHistoryQuery{
		BranchIDs: scope,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    movements,
	})
}

// GetInventoryStats godoc
// @Summary Inventory statistics
// @Description Total volume, low stock, out of stock and distinct SKU counts in the caller's branches
// @Tags Inventory
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=object}
// @Router /api/inventory/stats [get]
func (h *InventoryHandler) GetInventoryStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.resolveScope(w, r)
	if !ok {
		return
	}

	stats, err := h.queries.Stats.Handle(r.Context(), query.InventoryStatsQuery{BranchIDs: scope})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(router *mux.Router) {
	authed := AuthMiddleware(h.tokens)
	route := func(path, method string, fn http.HandlerFunc) {
		router.HandleFunc(path, h.metrics.instrument(path, authed(fn))).Methods(method)
	}

	route("/api/inventory/add", http.MethodPost, h.AddStock)
	route("/api/inventory/adjust", http.MethodPost, h.AdjustStock)
	route("/api/inventory/transfer", http.MethodPost, h.TransferStock)
	route("/api/orders", http.MethodPost, h.CreateOrder)

	route("/api/inventory", http.MethodGet, h.ListInventory)
	route("/api/inventory/branches/{id}/products", http.MethodGet, h.ListBranchProducts)
	route("/api/inventory/history", http.MethodGet, h.GetMovementHistory)
	route("/api/inventory/stats", http.MethodGet, h.GetInventoryStats)

	route("/api/reports/summary", http.MethodGet, h.GetSummaryReport)
	route("/api/reports/branches/{id}", http.MethodGet, h.GetBranchReport)
	route("/api/reports/low-stock", http.MethodGet, h.GetLowStock)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RegisterHealthCheck registers health check endpoint. A nil db reports healthy.
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *InventoryHandler) RegisterHealthCheck(router *mux.Router, db Pinger) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Error(r.Context()).Err(err).Msg("Health check failed")
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Database unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Inventory service is healthy",
		})
	}).Methods("GET")
}

func (h *InventoryHandler) resolveScope(w http.ResponseWriter, r *http.Request) ([]uint, bool) {
	scope, err := h.queries.Scope.Resolve(r.Context(), mustActor(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return nil, false
	}
	return scope, true
}

// mustActor is only called behind AuthMiddleware.
func mustActor(ctx context.Context) domain.Actor {
	actor, _ := ActorFromContext(ctx)
	return actor
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Invalid branch ID")
		return 0, false
	}
	return uint(id), true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
