package analytics

import (
	"context"
	"log"
	"strconv"

	"github.com/tharun18-2004/bar-manager-sub001/internal/domain"
	"github.com/tharun18-2004/bar-manager-sub001/internal/store"
)

// Resolver recomputes the single best-selling item from the normalized
// order_items relation when it is available, since embedded order JSON may
// lack canonical item identifiers. Every failure path degrades to the
// embedded-JSON ranking or to nil; the resolver never fails a request.
type Resolver struct {
	src store.AnalyticsSource
}

func NewResolver(src store.AnalyticsSource) *Resolver {
	return &Resolver{src: src}
}

// ResolveTopItem returns the top-selling item for the window covered by
// monthOrders, or nil when nothing sold with positive quantity.
func (r *Resolver) ResolveTopItem(ctx context.Context, rng domain.TimeRange, monthOrders []domain.CanonicalOrder) *domain.TopItemResult {
	names := nameLookup(monthOrders)

	rows := r.loadOrderItems(ctx, rng, monthOrders)

	winnerID, winnerQty := rankByQuantity(rows)
	if winnerID == "" {
		top := TopItems(monthOrders, 1, Options{})
		if len(top) == 0 {
			return nil
		}
		winnerID, winnerQty = top[0].ItemID, top[0].Count
	}

	return &domain.TopItemResult{
		ItemID:   winnerID,
		ItemName: r.resolveName(ctx, winnerID, names),
		Quantity: winnerQty,
	}
}

// loadOrderItems queries order_items by order-id membership, retrying by
// date range when the id-set query fails. The retry depends on the first
// query's failure signal, so the two reads stay strictly sequential.
func (r *Resolver) loadOrderItems(ctx context.Context, rng domain.TimeRange, monthOrders []domain.CanonicalOrder) []store.OrderItemRow {
	ids := collectOrderIDs(monthOrders)
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.src.ListOrderItemsByOrderIDs(ctx, ids)
	if err == nil {
		return rows
	}
	rows, err = r.src.ListOrderItemsByRange(ctx, rng.StartISO, rng.EndISO)
	if err != nil {
		log.Printf("[analytics] WARN: order_items unavailable, falling back to embedded items: %v", err)
		return nil
	}
	return rows
}

// nameLookup builds itemId -> itemName from embedded line items; the first
// non-empty name per id wins.
func nameLookup(orders []domain.CanonicalOrder) map[string]string {
	names := make(map[string]string)
	for _, o := range orders {
		for _, it := range o.Items {
			if it.ItemName == "" {
				continue
			}
			if _, ok := names[it.ItemID]; !ok {
				names[it.ItemID] = it.ItemName
			}
		}
	}
	return names
}

// collectOrderIDs gathers both business order ids and raw row ids,
// deduplicated, since order_items rows have been keyed by either across
// schema eras.
func collectOrderIDs(orders []domain.CanonicalOrder) []string {
	seen := make(map[string]struct{}, len(orders)*2)
	ids := make([]string, 0, len(orders)*2)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, o := range orders {
		add(o.OrderID)
		add(o.ID)
	}
	return ids
}

// rankByQuantity sums quantity per itemId and picks the maximum in a single
// linear scan. The strictly-greater comparison keeps the first id to reach
// the maximum.
func rankByQuantity(rows []store.OrderItemRow) (string, float64) {
	index := make(map[string]int)
	ids := make([]string, 0)
	totals := make([]float64, 0)
	for _, row := range rows {
		if row.ItemID == "" || row.Quantity <= 0 {
			continue
		}
		i, ok := index[row.ItemID]
		if !ok {
			i = len(ids)
			index[row.ItemID] = i
			ids = append(ids, row.ItemID)
			totals = append(totals, 0)
		}
		totals[i] += row.Quantity
	}
	var winnerID string
	var winnerQty float64
	for i, id := range ids {
		if totals[i] > winnerQty {
			winnerID = id
			winnerQty = totals[i]
		}
	}
	return winnerID, winnerQty
}

// resolveName prefers the embedded-items name map, then a point lookup into
// the inventory catalog for purely numeric ids, then nil.
func (r *Resolver) resolveName(ctx context.Context, itemID string, names map[string]string) *string {
	if name, ok := names[itemID]; ok && name != "" {
		return &name
	}
	numericID, err := strconv.ParseInt(itemID, 10, 64)
	if err != nil {
		return nil
	}
	item, err := r.src.GetInventoryItemByID(ctx, numericID)
	if err != nil || item == nil || item.Name == "" {
		return nil
	}
	return &item.Name
}
