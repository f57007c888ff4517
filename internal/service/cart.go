package service

import (
	"fmt"
	"strings"
	"time"

	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/store"
)

// Cart is the transient working copy of a sale. All operations are pure
// in-memory transformations; nothing touches the repository until checkout.
type Cart struct {
	items []domain.BillItem
}

func NewCart() *Cart {
	return &Cart{}
}

// AddProduct adds one unit of a catalog product. If the product is already in
// the cart the existing line absorbs it: quantity goes up by one and the line
// profit is recomputed as (sellingPrice - costPrice) * quantity.
func (c *Cart) AddProduct(p domain.Product) {
	for i := range c.items {
		if c.items[i].ProductID == p.ID {
			c.items[i].Quantity++
			c.items[i].Profit = (c.items[i].SellingPrice - c.items[i].CostPrice) * float64(c.items[i].Quantity)
			return
		}
	}

	c.items = append(c.items, domain.BillItem{
		ProductID:    p.ID,
		Name:         p.Name,
		Quantity:     1,
		CostPrice:    p.TotalCost,
		SellingPrice: p.SellingPrice,
		Profit:       p.SellingPrice - p.TotalCost,
		Warranty:     false,
	})
}

// AddManualItem appends a free-form line with a synthetic id. Cost defaults to
// zero when unspecified (which understates true cost in the profit figure) and
// quantity below one defaults to one.
func (c *Cart) AddManualItem(name string, sellingPrice float64, costPrice float64, quantity int) error {
	name = strings.TrimSpace(name)
	if name == "" || sellingPrice == 0 {
		return fmt.Errorf("%w: manual item requires a name and selling price", store.ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}

	c.items = append(c.items, domain.BillItem{
		ProductID:    fmt.Sprintf("manual-%d", time.Now().UnixMilli()),
		Name:         name,
		Quantity:     quantity,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		Profit:       (sellingPrice - costPrice) * float64(quantity),
		Warranty:     false,
	})
	return nil
}

// UpdateQuantity sets a line's quantity and recomputes its profit. Quantities
// below one are silently ignored, leaving the cart unchanged.
func (c *Cart) UpdateQuantity(index int, quantity int) {
	if quantity < 1 || index < 0 || index >= len(c.items) {
		return
	}
	item := &c.items[index]
	item.Quantity = quantity
	item.Profit = (item.SellingPrice - item.CostPrice) * float64(quantity)
}

func (c *Cart) Remove(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
}

// ToggleWarranty flips a line's warranty flag. The flag is stored on the bill
// but has no effect on totals.
func (c *Cart) ToggleWarranty(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.items[index].Warranty = !c.items[index].Warranty
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Items() []domain.BillItem {
	items := make([]domain.BillItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

type CartTotals struct {
	TotalAmount float64
	TotalCost   float64
	TotalProfit float64
	FinalAmount float64
}

// Totals sums the cart. Line profit is taken as tracked on each line, not
// recomputed here. The discount is subtracted without clamping: a discount
// larger than the total yields a negative final amount.
func (c *Cart) Totals(discount float64) CartTotals {
	totals := CartTotals{}
	for _, item := range c.items {
		totals.TotalAmount += item.SellingPrice * float64(item.Quantity)
		totals.TotalCost += item.CostPrice * float64(item.Quantity)
		totals.TotalProfit += item.Profit
	}
	totals.FinalAmount = totals.TotalAmount - discount
	return totals
}
