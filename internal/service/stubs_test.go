package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"stockpos/internal/model"
	"stockpos/internal/repository"
	"stockpos/internal/worker"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────

// memStore backs every stub repository. Transactions are serialized on txMu,
// which stands in for the product row lock, and roll back to a snapshot when
// the unit of work fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products   map[uint]*model.Product
	categories map[uint]*model.Category
	users      map[uint]*model.User
	sales      []model.Sale
	movements  []model.StockMovement
	nextID     uint

	lockCalls   int
	failLock    error
	failSale    error
	failListing error
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[uint]*model.Product),
		categories: make(map[uint]*model.Category),
		users:      make(map[uint]*model.User),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	products  map[uint]model.Product
	sales     []model.Sale
	movements []model.StockMovement
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		products:  make(map[uint]model.Product, len(s.products)),
		sales:     append([]model.Sale(nil), s.sales...),
		movements: append([]model.StockMovement(nil), s.movements...),
	}
	for id, p := range s.products {
		snap.products[id] = *p
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[uint]*model.Product, len(snap.products))
	for id, p := range snap.products {
		p := p
		s.products[id] = &p
	}
	s.sales = snap.sales
	s.movements = snap.movements
}

func (s *memStore) seedProduct(name string, price string, qty int, active bool) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{
		ID:       s.id(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		IsActive: active,
	}
	s.products[p.ID] = p
	cp := *p
	return &cp
}

func (s *memStore) seedUser(email string) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: s.id(), Email: email}
	s.users[u.ID] = u
	return u
}

func (s *memStore) seedSale(productID, userID uint, qty int, unit string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price := decimal.RequireFromString(unit)
	s.sales = append(s.sales, model.Sale{
		ID:           s.id(),
		ProductID:    productID,
		UserID:       userID,
		QuantitySold: qty,
		UnitPrice:    price,
		TotalAmount:  price.Mul(decimal.NewFromInt(int64(qty))),
		SaleTime:     at,
	})
}

func (s *memStore) quantity(id uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

func (s *memStore) salesFor(id uint) []model.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Sale
	for _, sale := range s.sales {
		if sale.ProductID == id {
			out = append(out, sale)
		}
	}
	return out
}

func (s *memStore) movementsFor(id uint) []model.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StockMovement
	for _, m := range s.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out
}

// withRelations fills Product and User the way Preload would.
func (s *memStore) withRelations(sale model.Sale) model.Sale {
	if p, ok := s.products[sale.ProductID]; ok {
		cp := *p
		sale.Product = &cp
	}
	if u, ok := s.users[sale.UserID]; ok {
		cp := *u
		sale.User = &cp
	}
	return sale
}

// ── Transactor ────────────────────────────────────────────────────────────────

type memTransactor struct{ s *memStore }

func (t memTransactor) WithinTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	snap := t.s.snapshot()
	if err := fn(nil); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

var _ repository.Transactor = memTransactor{}

// ── Products ──────────────────────────────────────────────────────────────────

type stubProductRepo struct{ s *memStore }

func (r stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r stubProductRepo) FindByID(_ context.Context, id uint) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	if cp.CategoryID != nil {
		if c, ok := r.s.categories[*cp.CategoryID]; ok {
			cc := *c
			cp.Category = &cc
		}
	}
	return &cp, nil
}

func (r stubProductRepo) sorted(filter func(*model.Product) bool, less func(a, b model.Product) bool) []model.Product {
	var out []model.Product
	for _, p := range r.s.products {
		if filter(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r stubProductRepo) List(_ context.Context, q repository.ProductQuery) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListing != nil {
		return nil, 0, r.s.failListing
	}
	list := r.sorted(func(p *model.Product) bool {
		return q.Search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search))
	}, func(a, b model.Product) bool {
		var less bool
		switch q.Sort {
		case "product_name":
			less = a.Name < b.Name
		case "quantity":
			less = a.Quantity < b.Quantity
		case "price":
			less = a.Price.LessThan(b.Price)
		default:
			less = a.ID < b.ID
		}
		if q.Desc {
			return !less
		}
		return less
	})
	total := int64(len(list))
	if q.Offset >= len(list) {
		return nil, total, nil
	}
	list = list[q.Offset:]
	if q.Limit > 0 && len(list) > q.Limit {
		list = list[:q.Limit]
	}
	return list, total, nil
}

func (r stubProductRepo) UpdateDetailsTx(_ *gorm.DB, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Name = p.Name
	stored.Price = p.Price
	stored.IsActive = p.IsActive
	stored.CategoryID = p.CategoryID
	stored.Description = p.Description
	return nil
}

func (r stubProductRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, sale := range r.s.sales {
		if sale.ProductID == id {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.s.products, id)
	return nil
}

func (r stubProductRepo) ListSellable(_ context.Context, activeOnly bool) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sorted(func(p *model.Product) bool {
		return p.Quantity > 0 && (!activeOnly || p.IsActive)
	}, func(a, b model.Product) bool { return a.Name < b.Name }), nil
}

func (r stubProductRepo) ListBelow(_ context.Context, threshold, limit int) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListing != nil {
		return nil, r.s.failListing
	}
	list := r.sorted(func(p *model.Product) bool { return p.Quantity < threshold },
		func(a, b model.Product) bool { return a.Quantity < b.Quantity })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r stubProductRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.products)), nil
}

func (r stubProductRepo) CountBelow(ctx context.Context, threshold int) (int64, error) {
	list, err := r.ListBelow(ctx, threshold, 0)
	return int64(len(list)), err
}

func (r stubProductRepo) LockForUpdateTx(_ *gorm.DB, id uint) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lockCalls++
	if r.s.failLock != nil {
		return nil, r.s.failLock
	}
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r stubProductRepo) DecrementQuantityTx(_ *gorm.DB, id uint, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Quantity < qty {
		return repository.ErrStockConflict
	}
	p.Quantity -= qty
	return nil
}

func (r stubProductRepo) IncrementQuantityTx(_ *gorm.DB, id uint, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Quantity += qty
	return nil
}

var _ repository.ProductRepository = stubProductRepo{}

// ── Sales ─────────────────────────────────────────────────────────────────────

type stubSaleRepo struct{ s *memStore }

func (r stubSaleRepo) CreateTx(_ *gorm.DB, sale *model.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failSale != nil {
		return r.s.failSale
	}
	sale.ID = r.s.id()
	r.s.sales = append(r.s.sales, *sale)
	return nil
}

// newestFirst returns the sales matching keep, newest first, with relations.
func (r stubSaleRepo) newestFirst(keep func(model.Sale) bool) []model.Sale {
	var out []model.Sale
	for _, sale := range r.s.sales {
		if keep(sale) {
			out = append(out, r.s.withRelations(sale))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SaleTime.Equal(out[j].SaleTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].SaleTime.After(out[j].SaleTime)
	})
	return out
}

func inRange(t, from, to time.Time) bool { return !t.Before(from) && t.Before(to) }

func (r stubSaleRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListing != nil {
		return nil, r.s.failListing
	}
	return r.newestFirst(func(s model.Sale) bool { return inRange(s.SaleTime, from, to) }), nil
}

func (r stubSaleRepo) ListPage(_ context.Context, limit, offset int) ([]model.Sale, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.newestFirst(func(model.Sale) bool { return true })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r stubSaleRepo) ListRecent(_ context.Context, limit int) ([]model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.newestFirst(func(model.Sale) bool { return true })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r stubSaleRepo) SummaryBetween(_ context.Context, from, to time.Time) (int64, decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failListing != nil {
		return 0, decimal.Zero, r.s.failListing
	}
	var count int64
	total := decimal.Zero
	for _, sale := range r.s.sales {
		if inRange(sale.SaleTime, from, to) {
			count++
			total = total.Add(sale.TotalAmount)
		}
	}
	return count, total, nil
}

func (r stubSaleRepo) DailyTotalsSince(_ context.Context, since time.Time) ([]repository.DailyTotal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay := map[time.Time]decimal.Decimal{}
	for _, sale := range r.s.sales {
		if sale.SaleTime.Before(since) {
			continue
		}
		t := sale.SaleTime.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = byDay[day].Add(sale.TotalAmount)
	}
	out := make([]repository.DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, repository.DailyTotal{Day: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r stubSaleRepo) TopProducts(_ context.Context, limit int) ([]repository.ProductQuantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byProduct := map[uint]int64{}
	for _, sale := range r.s.sales {
		byProduct[sale.ProductID] += int64(sale.QuantitySold)
	}
	out := make([]repository.ProductQuantity, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, repository.ProductQuantity{ProductName: r.s.products[id].Name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.SaleRepository = stubSaleRepo{}

// ── Stock movements ───────────────────────────────────────────────────────────

type stubMovementRepo struct{ s *memStore }

func (r stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = r.s.id()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r stubMovementRepo) List(_ context.Context, q repository.MovementQuery) ([]model.StockMovement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if (q.ProductID == 0 || m.ProductID == q.ProductID) && (q.Type == "" || m.MovementType == q.Type) {
			if p, ok := r.s.products[m.ProductID]; ok {
				cp := *p
				m.Product = &cp
			}
			out = append(out, m)
		}
	}
	total := int64(len(out))
	if q.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

var _ repository.StockMovementRepository = stubMovementRepo{}

// ── Users ─────────────────────────────────────────────────────────────────────

type stubUserRepo struct{ s *memStore }

func (r stubUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = r.s.id()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r stubUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubUserRepo) Upsert(ctx context.Context, u *model.User) error {
	if existing, err := r.FindByEmail(ctx, u.Email); err == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		r.s.users[existing.ID].PasswordHash = u.PasswordHash
		u.ID = existing.ID
		return nil
	}
	return r.Create(ctx, u)
}

var _ repository.UserRepository = stubUserRepo{}

// ── Categories ────────────────────────────────────────────────────────────────

type stubCategoryRepo struct{ s *memStore }

func (r stubCategoryRepo) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r stubCategoryRepo) FindByID(_ context.Context, id uint) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r stubCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r stubCategoryRepo) Update(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r stubCategoryRepo) Delete(_ context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	delete(r.s.categories, id)
	return nil
}

func (r stubCategoryRepo) ExistsByName(_ context.Context, name string, excludeID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.CategoryRepository = stubCategoryRepo{}

// ── Notifier ──────────────────────────────────────────────────────────────────

type stubNotifier struct {
	mu       sync.Mutex
	payloads []worker.LowStockPayload
	err      error
}

func (n *stubNotifier) EnqueueLowStock(_ context.Context, p worker.LowStockPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return n.err
}

func (n *stubNotifier) sent() []worker.LowStockPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]worker.LowStockPayload(nil), n.payloads...)
}

var errStoreDown = errors.New("connection reset by peer")
