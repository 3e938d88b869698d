package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/fulfillment/internal/catalog/domain"
)

// Stock is the slice of the inventory ledger the register needs: it pushes
// quantities down on create/upsert and reads them back when composing a
// product view, so catalog reads can never disagree with the ledger.
type Stock interface {
	SetQuantity(productID string, qty int) (int, int)
	Quantity(productID string) (int, error)
}

// Register stores product metadata keyed by product id, in insertion order.
type Register struct {
	log   *slog.Logger
	stock Stock

	mu       sync.RWMutex
	products map[string]*record
	inserted []string
}

type record struct {
	name        string
	description string
	price       decimal.Decimal
	category    string
	sku         string
	createdAt   time.Time
	updatedAt   time.Time
}

func NewRegister(log *slog.Logger, stock Stock) *Register {
	return &Register{
		log:      log,
		stock:    stock,
		products: make(map[string]*record),
	}
}

// Create registers a new product under a fresh identifier and seeds its
// stock quantity in the ledger.
func (r *Register) Create(spec domain.Spec) (domain.Product, error) {
	if err := spec.Validate(); err != nil {
		return domain.Product{}, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	r.mu.Lock()
	r.products[id] = &record{
		name:        spec.Name,
		description: spec.Description,
		price:       spec.Price,
		category:    spec.Category,
		sku:         spec.SKU,
		createdAt:   now,
		updatedAt:   now,
	}
	r.inserted = append(r.inserted, id)
	r.mu.Unlock()

	r.stock.SetQuantity(id, spec.Quantity)

	r.log.Info("product created", "product_id", id, "name", spec.Name, "quantity", spec.Quantity)
	return r.view(id, spec.Quantity, now, now, spec), nil
}

// Upsert replaces the mutable fields of an existing product and pushes the
// new quantity into the ledger. Unknown products are not created here; a
// product event carrying an id it has never seen is a caller mistake.
func (r *Register) Upsert(productID string, spec domain.Spec) (domain.Product, error) {
	if err := spec.Validate(); err != nil {
		return domain.Product{}, err
	}

	r.mu.Lock()
	rec, ok := r.products[productID]
	if !ok {
		r.mu.Unlock()
		return domain.Product{}, domain.ErrNotFound
	}
	now := time.Now().UTC()
	created := rec.createdAt
	rec.name = spec.Name
	rec.description = spec.Description
	rec.price = spec.Price
	rec.category = spec.Category
	rec.sku = spec.SKU
	rec.updatedAt = now
	r.mu.Unlock()

	r.stock.SetQuantity(productID, spec.Quantity)

	r.log.Info("product updated", "product_id", productID, "name", spec.Name)
	return r.view(productID, spec.Quantity, created, now, spec), nil
}

// Get returns the composed product view, with quantity and availability read
// from the ledger.
func (r *Register) Get(productID string) (domain.Product, error) {
	r.mu.RLock()
	rec, ok := r.products[productID]
	if !ok {
		r.mu.RUnlock()
		return domain.Product{}, domain.ErrNotFound
	}
	p := rec.product(productID)
	r.mu.RUnlock()

	qty, err := r.stock.Quantity(productID)
	if err != nil {
		return domain.Product{}, err
	}
	p.Quantity = qty
	p.Available = qty > 0
	return p, nil
}

// ListFilter narrows List output. Zero values match everything.
type ListFilter struct {
	Category      string
	AvailableOnly bool
}

// List returns products in insertion order. Pagination is a plain slice of
// the filtered order; there is no secondary sort.
func (r *Register) List(f ListFilter, limit, offset int) []domain.Product {
	r.mu.RLock()
	ids := make([]string, len(r.inserted))
	copy(ids, r.inserted)
	r.mu.RUnlock()

	var out []domain.Product
	for _, id := range ids {
		p, err := r.Get(id)
		if err != nil {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.AvailableOnly && !p.Available {
			continue
		}
		out = append(out, p)
	}

	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *record) product(id string) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        r.name,
		Description: r.description,
		Price:       r.price,
		Category:    r.category,
		SKU:         r.sku,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

func (r *Register) view(id string, qty int, created, updated time.Time, spec domain.Spec) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        spec.Name,
		Description: spec.Description,
		Price:       spec.Price,
		Quantity:    qty,
		Available:   qty > 0,
		Category:    spec.Category,
		SKU:         spec.SKU,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
}
