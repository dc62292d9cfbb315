package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
)

// Reconciler fans in over the transactions, orders, and legacy sales
// relations and produces one canonical order list for a window. The source
// precedence is a correctness property: transactions and orders are always
// both read, merged with transactions winning per orderId, and the legacy
// sales relation is consulted only when both are empty.
type Reconciler struct {
	src store.AnalyticsSource
}

func NewReconciler(src store.AnalyticsSource) *Reconciler {
	return &Reconciler{src: src}
}

// LoadOrders returns the canonical orders for [rng.StartISO, rng.EndISO),
// sorted ascending by createdAt. A missing relation counts as empty; any
// other storage error aborts with no partial result, since a partial window
// would silently under-report revenue.
func (r *Reconciler) LoadOrders(ctx context.Context, rng domain.TimeRange) ([]domain.CanonicalOrder, error) {
	txRows, err := r.src.ListTransactions(ctx, rng.StartISO, rng.EndISO)
	if err != nil {
		if !errors.Is(err, store.ErrRelationMissing) {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		txRows = nil
	}

	orderRows, err := r.src.ListOrders(ctx, rng.StartISO, rng.EndISO)
	if err != nil {
		if !errors.Is(err, store.ErrRelationMissing) {
			return nil, fmt.Errorf("load orders: %w", err)
		}
		orderRows = nil
	}

	if len(txRows) > 0 || len(orderRows) > 0 {
		return mergeSources(txRows, orderRows), nil
	}

	saleRows, err := r.src.ListSales(ctx, rng.StartISO, rng.EndISO)
	if err != nil {
		if !errors.Is(err, store.ErrRelationMissing) {
			return nil, fmt.Errorf("load sales: %w", err)
		}
		saleRows = nil
	}
	return normalizeSales(saleRows), nil
}

// mergeSources deduplicates on orderId with transactions taking precedence
// over orders, then sorts ascending by createdAt. Lexicographic comparison
// is correct for zero-padded ISO-8601 strings, and the empty string (missing
// timestamp) sorts first.
func mergeSources(txRows []store.TransactionRow, orderRows []store.TransactionRow) []domain.CanonicalOrder {
	merged := make(map[string]domain.CanonicalOrder, len(txRows)+len(orderRows))
	for _, row := range orderRows {
		o := normalizeTransactionRow(row)
		merged[mergeKey(o)] = o
	}
	for _, row := range txRows {
		o := normalizeTransactionRow(row)
		merged[mergeKey(o)] = o
	}

	out := make([]domain.CanonicalOrder, 0, len(merged))
	for _, o := range merged {
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

func mergeKey(o domain.CanonicalOrder) string {
	if o.OrderID != "" {
		return o.OrderID
	}
	return o.ID
}

// normalizeTransactionRow is the strict parse-and-normalize boundary for the
// transactions and orders relations. All defensive coercion for these two
// sources lives here.
func normalizeTransactionRow(row store.TransactionRow) domain.CanonicalOrder {
	return domain.CanonicalOrder{
		ID:            row.ID,
		OrderID:       row.OrderID,
		TotalAmount:   finiteOrZero(row.TotalAmount),
		PaymentMethod: normalizePaymentMethod(row.PaymentMethod),
		CreatedAt:     row.CreatedAt,
		Items:         decodeLineItems(row.ItemsJSON),
	}
}

// normalizeSales is the parse-and-normalize boundary for the legacy sales
// relation. Each surviving row becomes one synthesized order with one line
// item. The orderId prefix guarantees no collision with real order ids, and
// voided rows are dropped entirely.
func normalizeSales(rows []store.SaleRow) []domain.CanonicalOrder {
	out := make([]domain.CanonicalOrder, 0, len(rows))
	for _, row := range rows {
		if row.IsVoided {
			continue
		}
		amount := finiteOrZero(row.Amount)
		qty := math.Floor(finiteOrZero(row.Quantity))
		if qty < 1 {
			qty = 1
		}
		itemID := strings.TrimSpace(row.ItemName)
		if itemID == "" {
			itemID = "unknown"
		}
		rowID := strconv.FormatInt(row.ID, 10)
		out = append(out, domain.CanonicalOrder{
			ID:            rowID,
			OrderID:       "legacy-sales-" + rowID,
			TotalAmount:   amount,
			PaymentMethod: normalizePaymentMethod(row.PaymentMethod),
			CreatedAt:     row.CreatedAt,
			Items: []domain.LineItem{{
				ItemID:    itemID,
				ItemName:  itemID,
				Quantity:  qty,
				UnitPrice: amount / qty,
				LineTotal: amount,
			}},
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

func normalizePaymentMethod(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return domain.UnknownPaymentMethod
	}
	return s
}

// rawLineItem tolerates the field spellings and loose typing the embedded
// items payload accumulated across schema eras.
type rawLineItem struct {
	ItemID    any `json:"itemId"`
	AltID     any `json:"id"`
	ItemName  any `json:"itemName"`
	AltName   any `json:"name"`
	Quantity  any `json:"quantity"`
	AltQty    any `json:"qty"`
	UnitPrice any `json:"unitPrice"`
	AltPrice  any `json:"price"`
	LineTotal any `json:"lineTotal"`
	AltTotal  any `json:"subtotal"`
}

func decodeLineItems(raw []byte) []domain.LineItem {
	if len(raw) == 0 {
		return nil
	}
	var rows []rawLineItem
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	items := make([]domain.LineItem, 0, len(rows))
	for _, row := range rows {
		id := firstString(row.ItemID, row.AltID)
		name := firstString(row.ItemName, row.AltName)
		if id == "" {
			id = name
		}
		if id == "" {
			id = "unknown"
		}
		if name == "" {
			name = id
		}
		items = append(items, domain.LineItem{
			ItemID:    id,
			ItemName:  name,
			Quantity:  firstNumber(row.Quantity, row.AltQty),
			UnitPrice: firstNumber(row.UnitPrice, row.AltPrice),
			LineTotal: firstNumber(row.LineTotal, row.AltTotal),
		})
	}
	return items
}

func firstString(vals ...any) string {
	for _, v := range vals {
		switch s := v.(type) {
		case string:
			if t := strings.TrimSpace(s); t != "" {
				return t
			}
		case float64:
			if s == math.Trunc(s) && !math.IsInf(s, 0) {
				return strconv.FormatInt(int64(s), 10)
			}
		}
	}
	return ""
}

// firstNumber applies the parse-or-zero rule: the first value that coerces
// to a finite number wins, everything else becomes 0.
func firstNumber(vals ...any) float64 {
	for _, v := range vals {
		switch n := v.(type) {
		case float64:
			if f := finiteOrZero(n); f != 0 {
				return f
			}
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err == nil {
				if f := finiteOrZero(parsed); f != 0 {
					return f
				}
			}
		}
	}
	return 0
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
