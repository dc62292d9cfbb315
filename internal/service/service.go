package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tharun18-2004/bar-manager-sub001/internal/analytics"
	"github.com/tharun18-2004/bar-manager-sub001/internal/cache"
	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
	"github.com/tharun18-2004/bar-manager-sub001/internal/xid"
)

// ErrForbidden marks an actor-role failure so the transport layer can map
// it to 403 instead of a generic 5xx.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	reconciler *analytics.Reconciler
	resolver   *analytics.Resolver
	cache      cache.AnalyticsCache
	cacheTTL   time.Duration
	aggOpts    analytics.Options

	// now is swapped out in tests for deterministic windows.
	now func() time.Time
}

func New(repo store.Repository, analyticsCache cache.AnalyticsCache, cacheTTL time.Duration) *Service {
	if analyticsCache == nil {
		analyticsCache = cache.NoopAnalyticsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Service{
		repo:       repo,
		reconciler: analytics.NewReconciler(repo),
		resolver:   analytics.NewResolver(repo),
		cache:      analyticsCache,
		cacheTTL:   cacheTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

const topItemsLimit = 5

// Dashboard builds the owner dashboard for the requested window. Responses
// are cached per window start so repeated polling within the TTL does not
// re-read the whole range.
func (s *Service) Dashboard(ctx context.Context, rangeToken string, tzOffsetMinutes int) (domain.DashboardResponse, error) {
	kind := analytics.ParseRangeKind(rangeToken)
	offset := analytics.ClampOffset(tzOffsetMinutes)
	rng := analytics.ComputeRange(kind, offset, s.now())

	cacheKey := fmt.Sprintf("dashboard:%s:%d:%s", kind, offset, rng.StartISO)
	var cached domain.DashboardResponse
	if s.cacheLookup(ctx, cacheKey, &cached) {
		return cached, nil
	}

	orders, err := s.reconciler.LoadOrders(ctx, rng)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	monthOrders := orders
	if kind != analytics.RangeMonth {
		monthRng := analytics.ComputeRange(analytics.RangeMonth, offset, s.now())
		monthOrders, err = s.reconciler.LoadOrders(ctx, monthRng)
		if err != nil {
			return domain.DashboardResponse{}, err
		}
	}

	lowStock, err := s.repo.ListLowStockItems(ctx)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	resp := domain.DashboardResponse{
		Range:         string(kind),
		StartISO:      rng.StartISO,
		EndISO:        rng.EndISO,
		TotalSales:    analytics.Round2(analytics.TotalRevenue(orders)),
		TotalOrders:   analytics.TotalCount(orders),
		TopItems:      analytics.TopItems(orders, topItemsLimit, s.aggOpts),
		LowStockItems: lowStock,
		MonthlyOverview: domain.MonthlyOverview{
			TotalSales:  analytics.Round2(analytics.TotalRevenue(monthOrders)),
			TotalOrders: analytics.TotalCount(monthOrders),
		},
		PaymentBreakdown: analytics.PaymentBreakdown(orders),
	}

	s.cacheStore(ctx, cacheKey, resp)
	return resp, nil
}

// RevenueAnalytics builds the revenue screen: a daily series over the
// current month, a fixed 12-slot series over the current year, and the
// month's best-selling item.
func (s *Service) RevenueAnalytics(ctx context.Context, tzOffsetMinutes int) (domain.RevenueAnalyticsResponse, error) {
	offset := analytics.ClampOffset(tzOffsetMinutes)
	monthRng := analytics.ComputeRange(analytics.RangeMonth, offset, s.now())
	yearRng := analytics.ComputeRange(analytics.RangeYear, offset, s.now())

	cacheKey := fmt.Sprintf("revenue:%d:%s", offset, monthRng.StartISO)
	var cached domain.RevenueAnalyticsResponse
	if s.cacheLookup(ctx, cacheKey, &cached) {
		return cached, nil
	}

	monthOrders, err := s.reconciler.LoadOrders(ctx, monthRng)
	if err != nil {
		return domain.RevenueAnalyticsResponse{}, err
	}
	yearOrders, err := s.reconciler.LoadOrders(ctx, yearRng)
	if err != nil {
		return domain.RevenueAnalyticsResponse{}, err
	}

	resp := domain.RevenueAnalyticsResponse{
		DailyRevenue:   analytics.DailyRevenue(monthOrders, offset),
		MonthlySales:   analytics.MonthlyRevenue(yearOrders, offset),
		TopSellingItem: s.resolver.ResolveTopItem(ctx, monthRng, monthOrders),
	}

	s.cacheStore(ctx, cacheKey, resp)
	return resp, nil
}

func (s *Service) ListOrders(ctx context.Context, rangeToken string, tzOffsetMinutes int) (domain.OrderListResponse, error) {
	kind := analytics.ParseRangeKind(rangeToken)
	rng := analytics.ComputeRange(kind, tzOffsetMinutes, s.now())
	orders, err := s.reconciler.LoadOrders(ctx, rng)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	if orders == nil {
		orders = []domain.CanonicalOrder{}
	}
	return domain.OrderListResponse{Orders: orders, Range: rng}, nil
}

func (s *Service) RecordOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderCreateResponse, error) {
	if len(req.Items) == 0 {
		return domain.OrderCreateResponse{}, fmt.Errorf("%w: order needs at least one item", store.ErrInvalid)
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	var total float64
	for _, in := range req.Items {
		name := strings.TrimSpace(in.ItemName)
		id := strings.TrimSpace(in.ItemID)
		if id == "" {
			id = name
		}
		if id == "" {
			return domain.OrderCreateResponse{}, fmt.Errorf("%w: item needs an id or a name", store.ErrInvalid)
		}
		if name == "" {
			name = id
		}
		if in.Quantity <= 0 || in.UnitPrice < 0 {
			return domain.OrderCreateResponse{}, fmt.Errorf("%w: quantity must be positive and unit price non-negative", store.ErrInvalid)
		}
		lineTotal := in.UnitPrice * in.Quantity
		total += lineTotal
		items = append(items, domain.LineItem{
			ItemID:    id,
			ItemName:  name,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.UnknownPaymentMethod
	}

	order := domain.OrderRecord{
		ID:            xid.New("txn"),
		OrderID:       xid.New("ord"),
		TotalAmount:   analytics.Round2(total),
		PaymentMethod: method,
		CreatedAt:     s.now(),
		Items:         items,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderCreateResponse{}, err
	}

	s.logAudit(ctx, "order_create", "order", created.OrderID, fmt.Sprintf("total=%.2f,method=%s,items=%d", created.TotalAmount, created.PaymentMethod, len(created.Items)))
	return domain.OrderCreateResponse{Order: *created}, nil
}

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventory(ctx)
}

func (s *Service) ListLowStockItems(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListLowStockItems(ctx)
}

func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryItem, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.InventoryItem{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return domain.InventoryItem{}, fmt.Errorf("%w: name is required", store.ErrInvalid)
	}
	if req.UnitPrice < 0 || req.Quantity < 0 || req.LowStockThreshold < 0 {
		return domain.InventoryItem{}, fmt.Errorf("%w: negative values not allowed", store.ErrInvalid)
	}

	created, err := s.repo.CreateInventoryItem(ctx, domain.InventoryItem{
		Name:              req.Name,
		Category:          req.Category,
		UnitPrice:         req.UnitPrice,
		Quantity:          req.Quantity,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "inventory_create", "inventory", fmt.Sprintf("%d", created.ID), fmt.Sprintf("name=%s,qty=%.2f", created.Name, created.Quantity))
	return *created, nil
}

func (s *Service) UpdateInventoryItem(ctx context.Context, id int64, req domain.InventoryUpdateRequest) (domain.InventoryItem, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.InventoryItem{}, err
	}

	existing, err := s.repo.GetInventoryItemByID(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	item := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.InventoryItem{}, fmt.Errorf("%w: name cannot be blank", store.ErrInvalid)
		}
		item.Name = name
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: negative unit price", store.ErrInvalid)
		}
		item.UnitPrice = *req.UnitPrice
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: negative quantity", store.ErrInvalid)
		}
		item.Quantity = *req.Quantity
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return domain.InventoryItem{}, fmt.Errorf("%w: negative threshold", store.ErrInvalid)
		}
		item.LowStockThreshold = *req.LowStockThreshold
	}

	updated, err := s.repo.UpdateInventoryItem(ctx, item)
	if err != nil {
		return domain.InventoryItem{}, err
	}

	s.logAudit(ctx, "inventory_update", "inventory", fmt.Sprintf("%d", updated.ID), fmt.Sprintf("name=%s,qty=%.2f", updated.Name, updated.Quantity))
	return *updated, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.Expense{}, err
	}

	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		return domain.Expense{}, fmt.Errorf("%w: label is required", store.ErrInvalid)
	}
	if req.Amount <= 0 {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", store.ErrInvalid)
	}

	spentAt := s.now()
	if req.SpentAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.SpentAt)
		if err != nil {
			return domain.Expense{}, fmt.Errorf("%w: spentAt must be ISO-8601", store.ErrInvalid)
		}
		spentAt = parsed.UTC()
	}

	actor, _ := ActorFromContext(ctx)
	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:        xid.New("exp"),
		Label:     req.Label,
		Category:  strings.TrimSpace(req.Category),
		Amount:    analytics.Round2(req.Amount),
		SpentAt:   spentAt,
		CreatedBy: actor.Username,
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("label=%s,amount=%.2f", created.Label, created.Amount))
	return *created, nil
}

const expenseWindowDays = 90

func (s *Service) ListExpenses(ctx context.Context, limit int) ([]domain.Expense, error) {
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}
	to := s.now()
	from := to.AddDate(0, 0, -expenseWindowDays)
	return s.repo.ListExpenses(ctx, from, to, limit)
}

const auditWindowDays = 30

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}
	to := s.now()
	from := to.AddDate(0, 0, -auditWindowDays)
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	if err := s.requireOwner(ctx); err != nil {
		return domain.StaffUser{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 {
		return domain.StaffUser{}, fmt.Errorf("%w: username must be at least 3 characters", store.ErrInvalid)
	}
	if len(req.Password) < 8 {
		return domain.StaffUser{}, fmt.Errorf("%w: password must be at least 8 characters", store.ErrInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.StaffUser{}, err
	}

	user := domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      domain.RoleStaff,
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.StaffUser{}, err
	}

	s.logAudit(ctx, "staff_create", "user", username, "")
	return domain.StaffUser{Username: user.Username, Role: user.Role, Active: user.Active, CreatedAt: user.CreatedAt}, nil
}

func (s *Service) ListStaff(ctx context.Context) ([]domain.StaffUser, error) {
	if err := s.requireOwner(ctx); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StaffUser, 0, len(users))
	for _, u := range users {
		out = append(out, domain.StaffUser{Username: u.Username, Role: u.Role, Active: u.Active, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

func (s *Service) requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return fmt.Errorf("%w: owner role required", ErrForbidden)
	}
	return nil
}

func (s *Service) cacheLookup(ctx context.Context, key string, out any) bool {
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[cache] WARN: lookup failed key=%s: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		log.Printf("[cache] WARN: stale payload dropped key=%s: %v", key, err)
		return false
	}
	return true
}

func (s *Service) cacheStore(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		log.Printf("[cache] WARN: store failed key=%s: %v", key, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
