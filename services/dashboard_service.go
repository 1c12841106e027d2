package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/pharmadirect/pharmacy-backend/common/errors"
	"github.com/pharmadirect/pharmacy-backend/models"
	"github.com/pharmadirect/pharmacy-backend/repository"
)

const (
	// defaultDashboardWindow is the reporting range when the caller
	// passes none.
	defaultDashboardWindow = 30 * 24 * time.Hour

	recentOrderCount = 10
	topProductCount  = 5
)

// OrderStatistics summarizes order volume over the reporting range.
// Pending counts orders still awaiting fulfillment, paid or not.
type OrderStatistics struct {
	TotalOrders     int `json:"total_orders"`
	PendingOrders   int `json:"pending_orders"`
	CompletedOrders int `json:"completed_orders"`
	CancelledOrders int `json:"cancelled_orders"`
	OrdersToday     int `json:"orders_today"`
	OrdersThisWeek  int `json:"orders_this_week"`
	OrdersThisMonth int `json:"orders_this_month"`
}

// SalesStatistics summarizes revenue over the reporting range. All
// amounts are minor units, counted over paid orders only.
type SalesStatistics struct {
	TotalRevenue      int64            `json:"total_revenue"`
	RevenueToday      int64            `json:"revenue_today"`
	RevenueThisWeek   int64            `json:"revenue_this_week"`
	RevenueThisMonth  int64            `json:"revenue_this_month"`
	AverageOrderValue int64            `json:"average_order_value"`
	RevenueByDay      map[string]int64 `json:"revenue_by_day"`
}

type ProductStatistics struct {
	TotalProducts      int64            `json:"total_products"`
	RxRequiredProducts int64            `json:"rx_required_products"`
	ProductsByCategory map[string]int64 `json:"products_by_category"`
}

type CustomerStatistics struct {
	TotalCustomers int64            `json:"total_customers"`
	OrdersByRegion map[string]int64 `json:"orders_by_region"`
}

type RecentOrder struct {
	OrderID         uuid.UUID          `json:"order_id"`
	UserID          string             `json:"user_id"`
	OrderDate       time.Time          `json:"order_date"`
	Status          models.OrderStatus `json:"status"`
	TotalAmount     int64              `json:"total_amount"`
	HasPrescription bool               `json:"has_prescription"`
}

type TopSellingProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Revenue   int64     `json:"revenue"`
}

// Dashboard is the admin overview: order and sales statistics over the
// reporting range, catalog and customer breakdowns, the latest orders
// and the top sellers.
type Dashboard struct {
	From               time.Time           `json:"from"`
	To                 time.Time           `json:"to"`
	OrderStatistics    OrderStatistics     `json:"order_statistics"`
	SalesStatistics    SalesStatistics     `json:"sales_statistics"`
	ProductStatistics  ProductStatistics   `json:"product_statistics"`
	CustomerStatistics CustomerStatistics  `json:"customer_statistics"`
	RecentOrders       []RecentOrder       `json:"recent_orders"`
	TopSellingProducts []TopSellingProduct `json:"top_selling_products"`
}

// DashboardService builds the admin dashboard. Zero from/to default to
// the trailing 30 days.
type DashboardService interface {
	GetDashboard(ctx context.Context, from, to time.Time) (*Dashboard, error)
}

type dashboardServiceImpl struct {
	stats  repository.DashboardRepository
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(stats repository.DashboardRepository, orders repository.OrderRepository, logger *zap.Logger) DashboardService {
	return &dashboardServiceImpl{stats: stats, orders: orders, logger: logger}
}

func (s *dashboardServiceImpl) GetDashboard(ctx context.Context, from, to time.Time) (*Dashboard, error) {
	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-defaultDashboardWindow)
	}
	if from.After(to) {
		from, to = to, from
	}

	orders, err := s.stats.OrdersInRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	dashboard := &Dashboard{
		From:               from,
		To:                 to,
		OrderStatistics:    orderStatistics(orders, now),
		SalesStatistics:    salesStatistics(orders, from, to, now),
		TopSellingProducts: topSellingProducts(orders, topProductCount),
	}

	total, rx, err := s.stats.ProductCounts(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	byCategory, err := s.stats.ProductCountsByCategory(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	dashboard.ProductStatistics = ProductStatistics{
		TotalProducts:      total,
		RxRequiredProducts: rx,
		ProductsByCategory: byCategory,
	}

	customers, err := s.stats.DistinctCustomerCount(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	byRegion, err := s.stats.OrdersByRegion(ctx)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	dashboard.CustomerStatistics = CustomerStatistics{
		TotalCustomers: customers,
		OrdersByRegion: byRegion,
	}

	recent, err := s.recentOrders(ctx)
	if err != nil {
		return nil, err
	}
	dashboard.RecentOrders = recent

	return dashboard, nil
}

// recentOrders reuses the paged reporting query: first page, newest
// first.
func (s *dashboardServiceImpl) recentOrders(ctx context.Context) ([]RecentOrder, error) {
	page := repository.PageRequest{
		Number:   1,
		Size:     recentOrderCount,
		SortBy:   "orderdate",
		SortDesc: true,
	}
	result, err := s.orders.FindPaged(ctx, repository.OrderFilter{}, page)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	out := make([]RecentOrder, 0, len(result.Items))
	for _, order := range result.Items {
		out = append(out, RecentOrder{
			OrderID:         order.ID,
			UserID:          order.UserID,
			OrderDate:       order.OrderDate,
			Status:          order.Status,
			TotalAmount:     order.TotalAmount,
			HasPrescription: order.PrescriptionID != nil,
		})
	}
	return out, nil
}

// revenueCounted reports whether the order's money has actually landed:
// PaymentReceived and every state past it.
func revenueCounted(status models.OrderStatus) bool {
	return paymentApplied(status)
}

func orderStatistics(orders []models.Order, now time.Time) OrderStatistics {
	today := now.Truncate(24 * time.Hour)
	startOfWeek := today.AddDate(0, 0, -int(now.Weekday()))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := OrderStatistics{TotalOrders: len(orders)}
	for _, order := range orders {
		switch order.Status {
		case models.StatusPending, models.StatusPaymentReceived:
			stats.PendingOrders++
		case models.StatusCompleted:
			stats.CompletedOrders++
		case models.StatusRejected:
			stats.CancelledOrders++
		}
		if !order.OrderDate.Before(today) {
			stats.OrdersToday++
		}
		if !order.OrderDate.Before(startOfWeek) {
			stats.OrdersThisWeek++
		}
		if !order.OrderDate.Before(startOfMonth) {
			stats.OrdersThisMonth++
		}
	}
	return stats
}

func salesStatistics(orders []models.Order, from, to, now time.Time) SalesStatistics {
	today := now.Truncate(24 * time.Hour)
	startOfWeek := today.AddDate(0, 0, -int(now.Weekday()))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := SalesStatistics{RevenueByDay: map[string]int64{}}
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		stats.RevenueByDay[day.Format("2006-01-02")] = 0
	}

	var paidOrders int64
	for _, order := range orders {
		if !revenueCounted(order.Status) {
			continue
		}
		paidOrders++
		stats.TotalRevenue += order.TotalAmount

		if !order.OrderDate.Before(today) {
			stats.RevenueToday += order.TotalAmount
		}
		if !order.OrderDate.Before(startOfWeek) {
			stats.RevenueThisWeek += order.TotalAmount
		}
		if !order.OrderDate.Before(startOfMonth) {
			stats.RevenueThisMonth += order.TotalAmount
		}
		key := order.OrderDate.Format("2006-01-02")
		if _, ok := stats.RevenueByDay[key]; ok {
			stats.RevenueByDay[key] += order.TotalAmount
		}
	}
	if paidOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / paidOrders
	}
	return stats
}

// topSellingProducts ranks products by revenue across paid orders,
// using the frozen line price and name so later catalog edits cannot
// rewrite history.
func topSellingProducts(orders []models.Order, limit int) []TopSellingProduct {
	type tally struct {
		name     string
		quantity int
		revenue  int64
	}
	byProduct := map[uuid.UUID]*tally{}

	for _, order := range orders {
		if !revenueCounted(order.Status) {
			continue
		}
		for _, item := range order.Items {
			t, ok := byProduct[item.ProductID]
			if !ok {
				t = &tally{name: item.ProductName}
				byProduct[item.ProductID] = t
			}
			t.quantity += item.Quantity
			t.revenue += item.Extension()
		}
	}

	out := make([]TopSellingProduct, 0, len(byProduct))
	for id, t := range byProduct {
		out = append(out, TopSellingProduct{
			ProductID: id,
			Name:      t.name,
			Quantity:  t.quantity,
			Revenue:   t.revenue,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
