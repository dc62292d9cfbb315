package domain

import "time"

// CanonicalOrder is the unified, source-agnostic representation of one sale.
// It is constructed fresh per request by the reconciler and never persisted.
// CreatedAt is an ISO-8601 UTC timestamp string; the empty string (missing
// timestamp) sorts before every real timestamp.
type CanonicalOrder struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"orderId"`
	TotalAmount   float64    `json:"totalAmount"`
	PaymentMethod string     `json:"paymentMethod"`
	CreatedAt     string     `json:"createdAt"`
	Items         []LineItem `json:"items"`
}

type LineItem struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice,omitempty"`
	LineTotal float64 `json:"lineTotal,omitempty"`
}

// TimeRange is a half-open UTC interval [StartISO, EndISO).
type TimeRange struct {
	StartISO string `json:"startIso"`
	EndISO   string `json:"endIso"`
}

type ItemSales struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Count    float64 `json:"count"`
	Revenue  float64 `json:"revenue"`
}

type DailyRevenue struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type MonthlyRevenue struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

type PaymentTotal struct {
	PaymentMethod string  `json:"paymentMethod"`
	TotalAmount   float64 `json:"totalAmount"`
}

// TopItemResult is the best-seller computed by the top-item resolver.
// ItemName is nil when no display name could be resolved.
type TopItemResult struct {
	ItemID   string  `json:"itemId"`
	ItemName *string `json:"itemName"`
	Quantity float64 `json:"quantity"`
}

type MonthlyOverview struct {
	TotalSales  float64 `json:"totalSales"`
	TotalOrders int     `json:"totalOrders"`
}

type DashboardResponse struct {
	Range            string          `json:"range"`
	StartISO         string          `json:"startIso"`
	EndISO           string          `json:"endIso"`
	TotalSales       float64         `json:"totalSales"`
	TotalOrders      int             `json:"totalOrders"`
	TopItems         []ItemSales     `json:"topItems"`
	LowStockItems    []InventoryItem `json:"lowStockItems"`
	MonthlyOverview  MonthlyOverview `json:"monthlyOverview"`
	PaymentBreakdown []PaymentTotal  `json:"paymentBreakdown"`
}

type RevenueAnalyticsResponse struct {
	DailyRevenue   []DailyRevenue   `json:"dailyRevenue"`
	MonthlySales   []MonthlyRevenue `json:"monthlySales"`
	TopSellingItem *TopItemResult   `json:"topSellingItem"`
}

type OrderListResponse struct {
	Orders []CanonicalOrder `json:"orders"`
	Range  TimeRange        `json:"range"`
}

type OrderItemInput struct {
	ItemID    string  `json:"itemId"`
	ItemName  string  `json:"itemName"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type OrderCreateRequest struct {
	PaymentMethod string           `json:"paymentMethod"`
	Items         []OrderItemInput `json:"items"`
}

// OrderRecord is the persistence model for a sale recorded at the POS.
type OrderRecord struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"orderId"`
	TotalAmount   float64    `json:"totalAmount"`
	PaymentMethod string     `json:"paymentMethod"`
	CreatedAt     time.Time  `json:"createdAt"`
	Items         []LineItem `json:"items"`
}

type OrderCreateResponse struct {
	Order OrderRecord `json:"order"`
}

type InventoryItem struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	UnitPrice         float64   `json:"unitPrice"`
	Quantity          float64   `json:"quantity"`
	LowStockThreshold float64   `json:"lowStockThreshold"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type InventoryCreateRequest struct {
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	UnitPrice         float64 `json:"unitPrice"`
	Quantity          float64 `json:"quantity"`
	LowStockThreshold float64 `json:"lowStockThreshold"`
}

type InventoryUpdateRequest struct {
	Name              *string  `json:"name,omitempty"`
	Category          *string  `json:"category,omitempty"`
	UnitPrice         *float64 `json:"unitPrice,omitempty"`
	Quantity          *float64 `json:"quantity,omitempty"`
	LowStockThreshold *float64 `json:"lowStockThreshold,omitempty"`
}

type Expense struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	SpentAt   time.Time `json:"spentAt"`
	CreatedBy string    `json:"createdBy"`
}

type ExpenseCreateRequest struct {
	Label    string  `json:"label"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	SpentAt  string  `json:"spentAt,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// UnknownPaymentMethod is the sentinel used when a source row carries no
// payment method.
const UnknownPaymentMethod = "UNKNOWN"
