package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

// In-memory fakes for the repository and collaborator interfaces. They
// enforce the same semantics as the real implementations (transition
// table, unassigned-only linking) so service tests exercise real
// behavior without a database.

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (r *memOrderRepo) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.SessionID != nil && *order.SessionID == sessionID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) FindByUserID(_ context.Context, userID string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *memOrderRepo) SetSessionID(_ context.Context, orderID uuid.UUID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.SessionID = &sessionID
	return nil
}

func (r *memOrderRepo) SetPrescriptionID(_ context.Context, orderID, prescriptionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.PrescriptionID = &prescriptionID
	return nil
}

func (r *memOrderRepo) Transition(_ context.Context, orderID uuid.UUID, to models.OrderStatus, mutate func(*models.Order)) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, false, nil
	}
	if !models.CanTransition(order.Status, to) {
		cp := *order
		return &cp, false, nil
	}
	order.Status = to
	if mutate != nil {
		mutate(order)
	}
	cp := *order
	return &cp, true, nil
}

func (r *memOrderRepo) DeleteIfPending(_ context.Context, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.Status != models.StatusPending {
		return false, nil
	}
	delete(r.orders, orderID)
	return true, nil
}

// FindPaged sorts newest-first and slices like the real query; filters
// other than paging are ignored.
func (r *memOrderRepo) FindPaged(_ context.Context, _ repository.OrderFilter, page repository.PageRequest) (*repository.PagedResult[models.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page = page.Normalize(10, map[string]string{"orderdate": "order_date"}, "orderdate", true)

	var out []models.Order
	for _, order := range r.orders {
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	total := int64(len(out))

	offset := page.Offset()
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + page.Size
	if end > len(out) {
		end = len(out)
	}
	return &repository.PagedResult[models.Order]{
		Items:      out[offset:end],
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}, nil
}

type memCartRepo struct {
	mu      sync.Mutex
	carts   map[string]*models.Cart
	deletes int
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]*models.Cart{}}
}

func (r *memCartRepo) Get(_ context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	return &cp, nil
}

func (r *memCartRepo) Save(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart.Version++
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	r.carts[cart.UserID] = &cp
	return nil
}

func (r *memCartRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	r.deletes++
	return nil
}

func (r *memCartRepo) Mutate(_ context.Context, userID string, fn func(*models.Cart) error) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.Version++
	r.carts[userID] = cart
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	return &cp, nil
}

type memProductRepo struct {
	products map[uuid.UUID]*models.Product
}

func newMemProductRepo(products ...*models.Product) *memProductRepo {
	r := &memProductRepo{products: map[uuid.UUID]*models.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) FindPaged(_ context.Context, _ repository.ProductFilter, _ repository.PageRequest) (*repository.PagedResult[models.Product], error) {
	return &repository.PagedResult[models.Product]{}, nil
}

type memPrescriptionRepo struct {
	mu            sync.Mutex
	prescriptions map[uuid.UUID]*models.Prescription
	orders        *memOrderRepo
}

func newMemPrescriptionRepo(orders *memOrderRepo) *memPrescriptionRepo {
	return &memPrescriptionRepo{
		prescriptions: map[uuid.UUID]*models.Prescription{},
		orders:        orders,
	}
}

func (r *memPrescriptionRepo) Create(_ context.Context, p *models.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.prescriptions[p.ID] = &cp
	return nil
}

func (r *memPrescriptionRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPrescriptionRepo) FindWithOrder(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if p.OrderID != nil && r.orders != nil {
		p.Order, _ = r.orders.FindByID(ctx, *p.OrderID)
	}
	return p, nil
}

func (r *memPrescriptionRepo) FindByUserID(_ context.Context, userID string) ([]models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prescription
	for _, p := range r.prescriptions {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// FindUnassignedByUser returns newest first, like the real query.
func (r *memPrescriptionRepo) FindUnassignedByUser(_ context.Context, userID string) ([]models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prescription
	for _, p := range r.prescriptions {
		if p.UserID == userID && p.OrderID == nil {
			out = append(out, *p)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UploadDate.After(out[i].UploadDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *memPrescriptionRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prescription
	for _, p := range r.prescriptions {
		if p.OrderID != nil && *p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPrescriptionRepo) FindPending(_ context.Context) ([]models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prescription
	for _, p := range r.prescriptions {
		if p.Status == models.PrescriptionPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPrescriptionRepo) HasPending(ctx context.Context) (bool, error) {
	out, err := r.FindPending(ctx)
	return len(out) > 0, err
}

func (r *memPrescriptionRepo) Assign(_ context.Context, prescriptionID, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[prescriptionID]
	if !ok || p.OrderID != nil {
		return nil
	}
	p.OrderID = &orderID
	return nil
}

func (r *memPrescriptionRepo) ApplyVerification(ctx context.Context, p *models.Prescription, orderTo models.OrderStatus) (bool, error) {
	r.mu.Lock()
	cp := *p
	cp.Order = nil
	r.prescriptions[p.ID] = &cp
	r.mu.Unlock()

	orderID, linked := p.AssignedOrder()
	if !linked || r.orders == nil {
		return false, nil
	}
	_, applied, err := r.orders.Transition(ctx, orderID, orderTo, nil)
	return applied, err
}

type memAddressRepo struct {
	addresses map[uuid.UUID]*models.Address
}

func newMemAddressRepo(addresses ...*models.Address) *memAddressRepo {
	r := &memAddressRepo{addresses: map[uuid.UUID]*models.Address{}}
	for _, a := range addresses {
		r.addresses[a.ID] = a
	}
	return r
}

func (r *memAddressRepo) Create(_ context.Context, a *models.Address) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.addresses[a.ID] = a
	return nil
}

func (r *memAddressRepo) FindByIDAndUser(_ context.Context, id uuid.UUID, userID string) (*models.Address, error) {
	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAddressRepo) FindByUser(_ context.Context, userID string) ([]models.Address, error) {
	var out []models.Address
	for _, a := range r.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAddressRepo) SetDefault(_ context.Context, id uuid.UUID, userID string) (bool, error) {
	a, ok := r.addresses[id]
	if !ok || a.UserID != userID {
		return false, nil
	}
	for _, other := range r.addresses {
		other.IsDefault = other.ID == id
	}
	return true, nil
}

// fakeGateway is a scripted payment processor.
type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]*PaymentSession
	createErr error
	getErr    error
	created   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*PaymentSession{}}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, order *models.Order, _, _ string) (*SessionHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created++
	id := fmt.Sprintf("cs_test_%d", g.created)
	g.sessions[id] = &PaymentSession{}
	return &SessionHandle{SessionID: id, RedirectURL: "https://checkout.example/" + id}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, sessionID string) (*PaymentSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	sess, ok := g.sessions[sessionID]
	if !ok {
		return &PaymentSession{}, nil
	}
	cp := *sess
	return &cp, nil
}

func (g *fakeGateway) markPaid(sessionID, paymentIntentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID] = &PaymentSession{Paid: true, PaymentIntentID: paymentIntentID}
}

// capturePublisher records events instead of writing to Kafka.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *capturePublisher) SendOrderEvent(evt models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) ofType(eventType string) []models.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.OrderEvent
	for _, evt := range p.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureNotifier struct {
	mu    sync.Mutex
	mails []sentMail
}

func (n *captureNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mails = append(n.mails, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// memFileStore keeps uploads in memory keyed by generated name.
type memFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: map[string][]byte{}}
}

func (s *memFileStore) Save(_ context.Context, r io.Reader, ext string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := uuid.New().String() + ext
	s.files[name] = data
	return name, nil
}

func (s *memFileStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[ref]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

// memStatsRepo answers dashboard aggregates from the shared in-memory
// order store plus scripted catalog numbers.
type memStatsRepo struct {
	orders          *memOrderRepo
	productTotal    int64
	productRx       int64
	byCategory      map[string]int64
	customers       int64
	ordersByRegionM map[string]int64
}

func (r *memStatsRepo) OrdersInRange(_ context.Context, from, to time.Time) ([]models.Order, error) {
	r.orders.mu.Lock()
	defer r.orders.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders.orders {
		if order.OrderDate.Before(from) || order.OrderDate.After(to) {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (r *memStatsRepo) ProductCounts(_ context.Context) (int64, int64, error) {
	return r.productTotal, r.productRx, nil
}

func (r *memStatsRepo) ProductCountsByCategory(_ context.Context) (map[string]int64, error) {
	return r.byCategory, nil
}

func (r *memStatsRepo) DistinctCustomerCount(_ context.Context) (int64, error) {
	return r.customers, nil
}

func (r *memStatsRepo) OrdersByRegion(_ context.Context) (map[string]int64, error) {
	return r.ordersByRegionM, nil
}

type staticDirectory struct {
	emails map[string]string
}

func (d *staticDirectory) EmailForUser(_ context.Context, userID string) (string, error) {
	email, ok := d.emails[userID]
	if !ok {
		return "", errors.New("unknown user")
	}
	return email, nil
}
