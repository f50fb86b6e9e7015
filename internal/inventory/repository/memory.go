package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/smart-inventory/internal/inventory/domain"
)

var errLockTimeout = errors.New("lock timeout exceeded")

type recordKey struct {
	branchID  uint
	productID uint
}

// MemoryStore is a process-local Store. Row locks are held from first
// acquisition until the transaction ends, and writes stay private to the
// transaction until commit.
type MemoryStore struct {
	mu        sync.RWMutex
	branches  map[uint]domain.Branch
	products  map[uint]domain.Product
	records   map[recordKey]domain.InventoryRecord
	movements []domain.StockMovement
	orders    []domain.Order
	rowLocks  map[recordKey]chan struct{}

	lockTimeout time.Duration
	now         func() time.Time

	branchSeq, productSeq, recordSeq, movementSeq, orderSeq, itemSeq atomic.Uint64
}

type MemoryOption func(*MemoryStore)

// WithLockTimeout bounds how long a transaction waits for a row lock.
func WithLockTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.lockTimeout = d
	}
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		branches: make(map[uint]domain.Branch),
		products: make(map[uint]domain.Product),
		records:  make(map[recordKey]domain.InventoryRecord),
		rowLocks: make(map[recordKey]chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutBranch inserts or replaces a branch, assigning an id when it has none.
func (s *MemoryStore) PutBranch(b domain.Branch) (domain.Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ManagerID != nil {
		for id, other := range s.branches {
			if id != b.ID && other.ManagerID != nil && *other.ManagerID == *b.ManagerID {
				return domain.Branch{}, domain.Validation("put_branch",
					fmt.Sprintf("user %d already manages branch %d", *b.ManagerID, id))
			}
		}
	}
	if b.ID == 0 {
		b.ID = uint(s.branchSeq.Add(1))
	} else if uint64(b.ID) > s.branchSeq.Load() {
		s.branchSeq.Store(uint64(b.ID))
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.branches[b.ID] = b
	return b, nil
}

// PutProduct inserts or replaces a product after validating it. SKUs are unique.
func (s *MemoryStore) PutProduct(p domain.Product) (domain.Product, error) {
	if p.Status == "" {
		p.Status = domain.ProductStatusActive
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, other := range s.products {
		if id != p.ID && strings.EqualFold(other.SKU, p.SKU) {
			return domain.Product{}, domain.Validation("put_product", fmt.Sprintf("sku %q already exists", p.SKU))
		}
	}
	if p.ID == 0 {
		p.ID = uint(s.productSeq.Add(1))
	} else if uint64(p.ID) > s.productSeq.Load() {
		s.productSeq.Store(uint64(p.ID))
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

// Quantity reads the committed quantity of a record.
func (s *MemoryStore) Quantity(branchID, productID uint) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{branchID, productID}]
	return r.Quantity, ok
}

// Movements returns a copy of the committed movement log in insertion order.
func (s *MemoryStore) Movements() []domain.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.movements)
}

// Orders returns a copy of the committed orders in insertion order.
func (s *MemoryStore) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = cloneOrder(o)
	}
	return out
}

func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo domain.LedgerRepository) error) error {
	if err := ctx.Err(); err != nil {
		return contextError("begin_transaction", err)
	}

	tx := &memoryTx{
		store:   s,
		held:    make(map[recordKey]chan struct{}),
		pending: make(map[recordKey]domain.InventoryRecord),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return contextError("commit_transaction", err)
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) rowLock(key recordKey) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[key] = ch
	}
	return ch
}

type memoryTx struct {
	store     *MemoryStore
	held      map[recordKey]chan struct{}
	pending   map[recordKey]domain.InventoryRecord
	movements []domain.StockMovement
	orders    []domain.Order
}

func (tx *memoryTx) lock(ctx context.Context, key recordKey) error {
	if _, ok := tx.held[key]; ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return contextError("lock_record", err)
	}

	ch := tx.store.rowLock(key)
	var timeout <-chan time.Time
	if tx.store.lockTimeout > 0 {
		timer := time.NewTimer(tx.store.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
		tx.held[key] = ch
		return nil
	case <-ctx.Done():
		return contextError("lock_record", ctx.Err())
	case <-timeout:
		return domain.Contention("lock_record", errLockTimeout)
	}
}

// contextError reports an expired deadline as contention. Cancellation is
// wrapped and left unclassified.
func contextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Contention(op, err)
	}
	return fmt.Errorf("failed to %s: %w", strings.ReplaceAll(op, "_", " "), err)
}

func (tx *memoryTx) release() {
	for key, ch := range tx.held {
		<-ch
		delete(tx.held, key)
	}
}

func (tx *memoryTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, record := range tx.pending {
		s.records[key] = record
	}
	s.movements = append(s.movements, tx.movements...)
	s.orders = append(s.orders, tx.orders...)
}

func (tx *memoryTx) current(key recordKey) (domain.InventoryRecord, bool) {
	if r, ok := tx.pending[key]; ok {
		return r, true
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	r, ok := tx.store.records[key]
	return r, ok
}

func (tx *memoryTx) FindBranch(ctx context.Context, id uint) (*domain.Branch, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	b, ok := tx.store.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (tx *memoryTx) FindProduct(ctx context.Context, id uint) (*domain.Product, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	p, ok := tx.store.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *memoryTx) LockRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	key := recordKey{branchID, productID}
	if err := tx.lock(ctx, key); err != nil {
		return nil, err
	}
	r, ok := tx.current(key)
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (tx *memoryTx) LockRecords(ctx context.Context, branchID uint, productIDs []uint) error {
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if err := tx.lock(ctx, recordKey{branchID, id}); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) LockOrCreateRecord(ctx context.Context, branchID, productID uint) (*domain.InventoryRecord, error) {
	key := recordKey{branchID, productID}
	if err := tx.lock(ctx, key); err != nil {
		return nil, err
	}
	if r, ok := tx.current(key); ok {
		return &r, nil
	}

	now := tx.store.now()
	r := domain.InventoryRecord{
		ID:        uint(tx.store.recordSeq.Add(1)),
		BranchID:  branchID,
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx.pending[key] = r
	return &r, nil
}

func (tx *memoryTx) UpdateQuantity(ctx context.Context, record *domain.InventoryRecord) error {
	key := recordKey{record.BranchID, record.ProductID}
	if _, ok := tx.held[key]; !ok {
		return fmt.Errorf("failed to update inventory: record %d/%d is not locked by this transaction",
			record.BranchID, record.ProductID)
	}
	if record.Quantity < 0 {
		return domain.InvariantViolation("update_quantity", "quantity must not be negative", record.BranchID, record.ProductID)
	}

	stored := *record
	stored.Product, stored.Branch = nil, nil
	stored.UpdatedAt = tx.store.now()
	tx.pending[key] = stored
	record.UpdatedAt = stored.UpdatedAt
	return nil
}

func (tx *memoryTx) AppendMovements(ctx context.Context, movements []domain.StockMovement) error {
	now := tx.store.now()
	for i := range movements {
		if !movements[i].Type.Valid() {
			return fmt.Errorf("failed to append movement: unknown type %q", movements[i].Type)
		}
		movements[i].ID = uint(tx.store.movementSeq.Add(1))
		movements[i].CreatedAt = now
		stored := movements[i]
		stored.Product, stored.Branch = nil, nil
		tx.movements = append(tx.movements, stored)
	}
	return nil
}

func (tx *memoryTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := tx.store.now()
	order.ID = uint(tx.store.orderSeq.Add(1))
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uint(tx.store.itemSeq.Add(1))
		order.Items[i].OrderID = order.ID
		order.Items[i].CreatedAt = now
		order.Items[i].UpdatedAt = now
	}
	tx.orders = append(tx.orders, cloneOrder(*order))
	return nil
}

func (s *MemoryStore) SalesTotal(ctx context.Context, branchIDs []uint, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	total := decimal.Zero
	for _, o := range s.orders {
		if !scope[o.BranchID] || o.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !o.CreatedAt.Before(to) {
			continue
		}
		total = total.Add(o.Total)
	}
	return total, nil
}

func (s *MemoryStore) CountOrders(ctx context.Context, branchIDs []uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	var n int64
	for _, o := range s.orders {
		if scope[o.BranchID] {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) TopProducts(ctx context.Context, branchIDs []uint, limit int) ([]domain.ProductSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	sold := make(map[uint]int64)
	for _, o := range s.orders {
		if !scope[o.BranchID] {
			continue
		}
		for _, item := range o.Items {
			sold[item.ProductID] += int64(item.Quantity)
		}
	}

	out := make([]domain.ProductSales, 0, len(sold))
	for productID, qty := range sold {
		out = append(out, domain.ProductSales{ProductID: productID, Name: s.products[productID].Name, TotalSold: qty})
	}
	slices.SortFunc(out, func(a, b domain.ProductSales) int {
		if c := cmp.Compare(b.TotalSold, a.TotalSold); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LowStock(ctx context.Context, branchIDs []uint, threshold int) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	var out []domain.InventoryRecord
	for _, r := range s.records {
		if scope[r.BranchID] && r.Quantity <= threshold {
			out = append(out, s.withRelations(r))
		}
	}
	slices.SortFunc(out, func(a, b domain.InventoryRecord) int {
		if c := cmp.Compare(a.Quantity, b.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) ListBranchIDs(ctx context.Context) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint, 0, len(s.branches))
	for id := range s.branches {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) ListInventory(ctx context.Context, branchIDs []uint) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	var out []domain.InventoryRecord
	for _, r := range s.records {
		if scope[r.BranchID] {
			out = append(out, s.withRelations(r))
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) ListAvailable(ctx context.Context, branchID uint) ([]domain.InventoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InventoryRecord
	for _, r := range s.records {
		if r.BranchID == branchID && r.Quantity > 0 {
			out = append(out, s.withRelations(r))
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) ListMovements(ctx context.Context, branchIDs []uint, limit, offset int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	var out []domain.StockMovement
	for _, m := range s.movements {
		if !scope[m.BranchID] {
			continue
		}
		if p, ok := s.products[m.ProductID]; ok {
			m.Product = &p
		}
		if b, ok := s.branches[m.BranchID]; ok {
			m.Branch = &b
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b domain.StockMovement) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InventoryStats(ctx context.Context, branchIDs []uint, threshold int) (*domain.InventoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := branchSet(branchIDs)
	stats := &domain.InventoryStats{}
	skus := make(map[uint]struct{})
	for _, r := range s.records {
		if !scope[r.BranchID] {
			continue
		}
		stats.TotalVolume += int64(r.Quantity)
		if r.Quantity <= threshold {
			stats.LowStockCount++
		}
		if r.Quantity <= 0 {
			stats.OutOfStockCount++
		}
		skus[r.ProductID] = struct{}{}
	}
	stats.TotalSKUs = int64(len(skus))
	return stats, nil
}

// withRelations must be called with s.mu held.
func (s *MemoryStore) withRelations(r domain.InventoryRecord) domain.InventoryRecord {
	if p, ok := s.products[r.ProductID]; ok {
		r.Product = &p
	}
	if b, ok := s.branches[r.BranchID]; ok {
		r.Branch = &b
	}
	return r
}

func sortRecords(records []domain.InventoryRecord) {
	slices.SortFunc(records, func(a, b domain.InventoryRecord) int {
		if c := cmp.Compare(a.BranchID, b.BranchID); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
}

func branchSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}
