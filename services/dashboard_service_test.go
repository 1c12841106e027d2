package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmadirect/pharmacy-backend/models"
)

type dashboardFixture struct {
	orders *memOrderRepo
	stats  *memStatsRepo
	svc    DashboardService
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{orders: newMemOrderRepo()}
	f.stats = &memStatsRepo{
		orders:          f.orders,
		productTotal:    40,
		productRx:       12,
		byCategory:      map[string]int64{"Pain Relief": 25, "Antibiotics": 15},
		customers:       3,
		ordersByRegionM: map[string]int64{"West Yorkshire": 2},
	}
	f.svc = NewDashboardService(f.stats, f.orders, zap.NewNop())
	return f
}

func (f *dashboardFixture) seedOrder(t *testing.T, userID string, status models.OrderStatus, total int64, date time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:      userID,
		AddressID:   uuid.New(),
		ShipLine1:   "12 High Street",
		ShipCity:    "Leeds",
		ShipRegion:  "West Yorkshire",
		OrderDate:   date,
		Status:      status,
		TotalAmount: total,
		Items:       items,
	}
	require.NoError(t, f.orders.Create(context.Background(), order))
	return order
}

func TestDashboardOrderStatistics(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now().UTC()

	f.seedOrder(t, "user-1", models.StatusPending, 1000, now.Add(-time.Second))
	f.seedOrder(t, "user-1", models.StatusPaymentReceived, 2000, now.Add(-2*time.Second))
	f.seedOrder(t, "user-2", models.StatusCompleted, 3000, now.AddDate(0, 0, -10))
	f.seedOrder(t, "user-2", models.StatusRejected, 4000, now.AddDate(0, 0, -20))

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	stats := dashboard.OrderStatistics
	assert.Equal(t, 4, stats.TotalOrders)
	assert.Equal(t, 2, stats.PendingOrders, "Pending and PaymentReceived both await fulfillment")
	assert.Equal(t, 1, stats.CompletedOrders)
	assert.Equal(t, 1, stats.CancelledOrders)
	assert.Equal(t, 2, stats.OrdersToday)
}

func TestDashboardRevenueCountsPaidOrdersOnly(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now().UTC()

	f.seedOrder(t, "user-1", models.StatusPending, 9999, now.Add(-time.Second))
	f.seedOrder(t, "user-1", models.StatusPaymentReceived, 2000, now.Add(-2*time.Second))
	f.seedOrder(t, "user-2", models.StatusApproved, 3000, now.AddDate(0, 0, -3))
	f.seedOrder(t, "user-2", models.StatusCompleted, 4000, now.AddDate(0, 0, -5))
	f.seedOrder(t, "user-2", models.StatusRejected, 8888, now.AddDate(0, 0, -6))

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	stats := dashboard.SalesStatistics
	assert.Equal(t, int64(9000), stats.TotalRevenue, "unpaid and rejected orders carry no revenue")
	assert.Equal(t, int64(3000), stats.AverageOrderValue)
	assert.Equal(t, int64(2000), stats.RevenueToday)

	dayKey := now.Add(-2 * time.Second).Format("2006-01-02")
	assert.Equal(t, int64(2000), stats.RevenueByDay[dayKey])
}

func TestDashboardTopSellingProductsUseFrozenLines(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now().UTC()
	aspirin := uuid.New()
	bandages := uuid.New()

	f.seedOrder(t, "user-1", models.StatusCompleted, 5000, now.Add(-time.Hour),
		models.OrderItem{ProductID: aspirin, ProductName: "Aspirin 100mg", Quantity: 4, UnitPrice: 500},
		models.OrderItem{ProductID: bandages, ProductName: "Bandages", Quantity: 1, UnitPrice: 3000},
	)
	f.seedOrder(t, "user-2", models.StatusPaymentReceived, 1000, now.Add(-2*time.Hour),
		models.OrderItem{ProductID: aspirin, ProductName: "Aspirin 100mg", Quantity: 2, UnitPrice: 500},
	)
	// Unpaid order must not count toward sales rankings.
	f.seedOrder(t, "user-2", models.StatusPending, 90000, now.Add(-3*time.Hour),
		models.OrderItem{ProductID: bandages, ProductName: "Bandages", Quantity: 30, UnitPrice: 3000},
	)

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	top := dashboard.TopSellingProducts
	require.Len(t, top, 2)
	assert.Equal(t, "Aspirin 100mg", top[0].Name)
	assert.Equal(t, 6, top[0].Quantity)
	assert.Equal(t, int64(3000), top[0].Revenue)
	assert.Equal(t, "Bandages", top[1].Name)
	assert.Equal(t, int64(3000), top[1].Revenue)
}

func TestDashboardRecentOrdersNewestFirst(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now().UTC()

	for i := 0; i < 12; i++ {
		f.seedOrder(t, "user-1", models.StatusPending, 1000, now.Add(-time.Duration(i)*time.Hour))
	}

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, dashboard.RecentOrders, 10)
	for i := 1; i < len(dashboard.RecentOrders); i++ {
		assert.False(t, dashboard.RecentOrders[i-1].OrderDate.Before(dashboard.RecentOrders[i].OrderDate),
			"recent orders must be newest first")
	}
}

func TestDashboardCatalogAndCustomerBreakdowns(t *testing.T) {
	f := newDashboardFixture(t)

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int64(40), dashboard.ProductStatistics.TotalProducts)
	assert.Equal(t, int64(12), dashboard.ProductStatistics.RxRequiredProducts)
	assert.Equal(t, int64(25), dashboard.ProductStatistics.ProductsByCategory["Pain Relief"])
	assert.Equal(t, int64(3), dashboard.CustomerStatistics.TotalCustomers)
	assert.Equal(t, int64(2), dashboard.CustomerStatistics.OrdersByRegion["West Yorkshire"])
}

func TestDashboardWindowDefaultsAndSwaps(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now().UTC()

	f.seedOrder(t, "user-1", models.StatusCompleted, 1000, now.AddDate(0, 0, -40))
	f.seedOrder(t, "user-1", models.StatusCompleted, 2000, now.AddDate(0, 0, -5))

	dashboard, err := f.svc.GetDashboard(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, dashboard.OrderStatistics.TotalOrders, "default window is the trailing 30 days")

	// An inverted range is swapped, not rejected.
	from := now.AddDate(0, 0, -60)
	dashboard, err = f.svc.GetDashboard(context.Background(), now, from)
	require.NoError(t, err)
	assert.Equal(t, 2, dashboard.OrderStatistics.TotalOrders)
	assert.True(t, dashboard.From.Before(dashboard.To))
}
