package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukapos/dukapos-api/internal/domain/enum"
	"github.com/dukapos/dukapos-api/internal/domain/repository"
	"github.com/dukapos/dukapos-api/pkg/pagination"
)

// DashboardService provides dashboard statistics
type DashboardService struct {
	saleRepo      repository.SaleRepository
	returnRepo    repository.SaleReturnRepository
	productRepo   repository.ProductRepository
	customerRepo  repository.CustomerRepository
	analyticsRepo repository.AnalyticsRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	saleRepo repository.SaleRepository,
	returnRepo repository.SaleReturnRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	analyticsRepo repository.AnalyticsRepository,
) *DashboardService {
	return &DashboardService{
		saleRepo:      saleRepo,
		returnRepo:    returnRepo,
		productRepo:   productRepo,
		customerRepo:  customerRepo,
		analyticsRepo: analyticsRepo,
	}
}

// DashboardStats represents dashboard statistics
type DashboardStats struct {
	TotalCustomers    int64                `json:"total_customers"`
	TotalProducts     int64                `json:"total_products"`
	TotalSales        int64                `json:"total_sales"`
	TotalReturns      int64                `json:"total_returns"`
	TotalRevenue      float64              `json:"total_revenue"`
	MonthlyRevenue    float64              `json:"monthly_revenue"`
	LowStockCount     int64                `json:"low_stock_count"`
	DueSalesCount     int64                `json:"due_sales_count"`
	PendingReturns    int64                `json:"pending_returns"`
	DailySalesData    []DailySalesPoint    `json:"daily_sales_data"`
	CategorySalesData []CategorySalesPoint `json:"category_sales_data"`
	TakingsByMethod   []MethodTakingsPoint `json:"takings_by_method"`
}

// DailySalesPoint represents a daily sales data point
type DailySalesPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// CategorySalesPoint represents sales by category
type CategorySalesPoint struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MethodTakingsPoint represents takings through one tender type
type MethodTakingsPoint struct {
	Method string  `json:"method"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// GetDashboardStats returns dashboard statistics
func (s *DashboardService) GetDashboardStats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	stats := &DashboardStats{}

	// Counts only; a single-row page keeps the queries cheap.
	paginationParams := pagination.DefaultPagination()
	paginationParams.PerPage = 1

	// Customers - show all customers for admin dashboard (skipUserFilter = true)
	_, customerCount, err := s.customerRepo.List(ctx, userID, paginationParams, "", true)
	if err != nil {
		return nil, err
	}
	stats.TotalCustomers = customerCount

	productParams := &repository.ProductFilterParams{
		Pagination:     paginationParams,
		SkipUserFilter: true,
	}
	_, productCount, err := s.productRepo.List(ctx, userID, productParams)
	if err != nil {
		return nil, err
	}
	stats.TotalProducts = productCount

	lowStockProducts, err := s.productRepo.GetLowStock(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.LowStockCount = int64(len(lowStockProducts))

	saleParams := &repository.SaleFilterParams{
		Pagination:     paginationParams,
		SkipUserFilter: true,
	}
	_, saleCount, err := s.saleRepo.List(ctx, userID, saleParams)
	if err != nil {
		return nil, err
	}
	stats.TotalSales = saleCount

	_, dueCount, err := s.saleRepo.GetDueSales(ctx, userID, paginationParams)
	if err != nil {
		return nil, err
	}
	stats.DueSalesCount = dueCount

	returnParams := &repository.SaleReturnFilterParams{
		Pagination:     paginationParams,
		SkipUserFilter: true,
	}
	_, returnCount, err := s.returnRepo.List(ctx, userID, returnParams)
	if err != nil {
		return nil, err
	}
	stats.TotalReturns = returnCount

	pendingStatus := enum.ReturnStatusPending
	pendingReturnParams := &repository.SaleReturnFilterParams{
		Pagination:     paginationParams,
		Status:         &pendingStatus,
		SkipUserFilter: true,
	}
	_, pendingReturnCount, err := s.returnRepo.List(ctx, userID, pendingReturnParams)
	if err != nil {
		return nil, err
	}
	stats.PendingReturns = pendingReturnCount

	stats.TotalRevenue, err = s.analyticsRepo.GetTotalRevenue(ctx)
	if err != nil {
		return nil, err
	}
	stats.MonthlyRevenue, err = s.analyticsRepo.GetMonthlyRevenue(ctx)
	if err != nil {
		return nil, err
	}

	dailySales, err := s.analyticsRepo.GetDailySales(ctx, 7)
	if err != nil {
		return nil, err
	}
	stats.DailySalesData = make([]DailySalesPoint, 0, len(dailySales))
	for _, day := range dailySales {
		stats.DailySalesData = append(stats.DailySalesData, DailySalesPoint{
			Date:    day.Date.Format("Jan 02"),
			Revenue: day.Revenue,
			Profit:  day.Profit,
		})
	}

	categorySales, err := s.analyticsRepo.GetSalesByCategory(ctx)
	if err != nil {
		return nil, err
	}
	stats.CategorySalesData = make([]CategorySalesPoint, 0, len(categorySales))
	for _, cat := range categorySales {
		stats.CategorySalesData = append(stats.CategorySalesData, CategorySalesPoint{
			Category: cat.CategoryName,
			Amount:   cat.TotalSales,
		})
	}

	takings, err := s.analyticsRepo.GetTakingsByMethod(ctx, 30)
	if err != nil {
		return nil, err
	}
	stats.TakingsByMethod = make([]MethodTakingsPoint, 0, len(takings))
	for _, t := range takings {
		stats.TakingsByMethod = append(stats.TakingsByMethod, MethodTakingsPoint{
			Method: t.Method,
			Total:  t.Total,
			Count:  t.Count,
		})
	}

	return stats, nil
}
