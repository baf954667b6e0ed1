package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// Memory is the fallback Store used when the database is unreachable at
// startup. All state lives behind one mutex, which also gives the
// confirmation path its transactional behavior.
type Memory struct {
	mu            sync.Mutex
	products      map[primitive.ObjectID]*models.Product
	orders        map[primitive.ObjectID]*models.Order
	notifications []models.Notification
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[primitive.ObjectID]*models.Product),
		orders:   make(map[primitive.ObjectID]*models.Order),
	}
}

func (m *Memory) Products() ProductStore           { return (*memoryProducts)(m) }
func (m *Memory) Orders() OrderStore               { return (*memoryOrders)(m) }
func (m *Memory) Notifications() NotificationStore { return (*memoryNotifications)(m) }

func (m *Memory) ConfirmOrder(_ context.Context, orderID primitive.ObjectID, paymentID string) (*models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if order.Payment.Status != models.PaymentStatusPending {
		copied := *order
		return &copied, false, nil
	}

	// Verify the whole cart before touching any stock so a mid-loop
	// failure cannot leave a partial decrement behind.
	for _, item := range order.Items {
		product, ok := m.products[item.ProductID]
		if !ok {
			return nil, false, ErrNotFound
		}
		if product.Stock < item.Quantity {
			return nil, false, ErrInsufficientStock
		}
	}

	for _, item := range order.Items {
		product := m.products[item.ProductID]
		product.Stock -= item.Quantity
		if product.Stock <= 0 {
			product.Status = models.ProductStatusOutOfStock
		}
	}

	order.Status = models.OrderStatusConfirmed
	order.Payment.Status = models.PaymentStatusCompleted
	order.Payment.PaymentID = paymentID
	order.UpdatedAt = time.Now()

	copied := *order
	return &copied, true, nil
}

/* =========================
   PRODUCTS
========================= */

type memoryProducts Memory

func (m *memoryProducts) Get(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *product
	copied.InStock = copied.Stock > 0
	return &copied, nil
}

func (m *memoryProducts) List(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Product, 0)
	for _, product := range m.products {
		if filter.FarmerID != nil && product.FarmerID != *filter.FarmerID {
			continue
		}
		if filter.VisibleOnly && product.Visibility == models.ProductHidden {
			continue
		}
		copied := *product
		copied.InStock = copied.Stock > 0
		out = append(out, copied)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return paginate(out, filter.Page, filter.Limit), nil
}

func (m *memoryProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	copied := *p
	m.products[p.ID] = &copied
	return nil
}

func (m *memoryProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[p.ID]
	if !ok || existing.FarmerID != p.FarmerID {
		return ErrNotFound
	}
	copied := *p
	copied.UpdatedAt = time.Now()
	m.products[p.ID] = &copied
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, id, farmerID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.products[id]
	if !ok || existing.FarmerID != farmerID {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memoryProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	if product.Stock < qty {
		return ErrInsufficientStock
	}
	product.Stock -= qty
	if product.Stock <= 0 {
		product.Status = models.ProductStatusOutOfStock
	}
	return nil
}

/* =========================
   ORDERS
========================= */

type memoryOrders Memory

func (m *memoryOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	copied := *o
	m.orders[o.ID] = &copied
	return nil
}

func (m *memoryOrders) Get(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memoryOrders) ListByCustomer(_ context.Context, customerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return m.list(func(o *models.Order) bool { return o.CustomerID == customerID }, page, limit)
}

func (m *memoryOrders) ListByFarmer(_ context.Context, farmerID primitive.ObjectID, page, limit int64) ([]models.Order, error) {
	return m.list(func(o *models.Order) bool { return o.FarmerID == farmerID }, page, limit)
}

func (m *memoryOrders) list(match func(*models.Order) bool, page, limit int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Order, 0)
	for _, order := range m.orders {
		if match(order) {
			out = append(out, *order)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return paginate(out, page, limit), nil
}

func (m *memoryOrders) AttachSession(_ context.Context, id primitive.ObjectID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Payment.SessionID = sessionID
	order.UpdatedAt = time.Now()
	return nil
}

func (m *memoryOrders) Cancel(_ context.Context, id primitive.ObjectID, paymentStatus string, requirePaymentPending bool) (*models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, false, ErrNotFound
	}

	if order.Status == models.OrderStatusCancelled {
		copied := *order
		return &copied, false, nil
	}
	if requirePaymentPending && order.Payment.Status != models.PaymentStatusPending {
		copied := *order
		return &copied, false, ErrPreconditionFailed
	}

	order.Status = models.OrderStatusCancelled
	order.Payment.Status = paymentStatus
	order.UpdatedAt = time.Now()

	copied := *order
	return &copied, true, nil
}

func (m *memoryOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

func (m *memoryOrders) SetFeedback(_ context.Context, id primitive.ObjectID, fb models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if order.Status != models.OrderStatusDelivered || order.Feedback != nil {
		return ErrPreconditionFailed
	}
	order.Feedback = &fb
	order.UpdatedAt = time.Now()
	return nil
}

func (m *memoryOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

/* =========================
   NOTIFICATIONS
========================= */

type memoryNotifications Memory

func (m *memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

// All returns every stored notification; used by tests.
func (m *Memory) AllNotifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

func paginate[T any](items []T, page, limit int64) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= int64(len(items)) {
		return []T{}
	}
	end := start + limit
	if end > int64(len(items)) {
		end = int64(len(items))
	}
	return items[start:end]
}
