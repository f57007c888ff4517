package service

import (
	"strings"
	"testing"

	"wrsmile/backend/internal/domain"
)

var cement = domain.Product{
	ID:           "1",
	Name:         "Cement Bag (50kg)",
	Category:     "Construction",
	TotalCost:    1850,
	MarginType:   domain.MarginFixed,
	MarginValue:  150,
	SellingPrice: 2000,
	Stock:        100,
}

func TestAddProductMergesExistingLine(t *testing.T) {
	cart := NewCart()

	cart.AddProduct(cement)
	items := cart.Items()
	if len(items) != 1 || items[0].Quantity != 1 || items[0].Profit != 150 {
		t.Fatalf("unexpected first line: %+v", items)
	}

	cart.AddProduct(cement)
	items = cart.Items()
	if len(items) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(items))
	}
	if items[0].Quantity != 2 || items[0].SellingPrice != 2000 || items[0].Profit != 300 {
		t.Fatalf("unexpected merged line: %+v", items[0])
	}

	totals := cart.Totals(0)
	if totals.TotalAmount != 4000 || totals.TotalCost != 3700 || totals.TotalProfit != 300 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestTotalsDoNotClampDiscount(t *testing.T) {
	cart := NewCart()
	cart.AddProduct(cement)

	totals := cart.Totals(5000)
	if totals.FinalAmount != -3000 {
		t.Fatalf("expected finalAmount -3000, got %v", totals.FinalAmount)
	}
}

func TestUpdateQuantityBelowOneIsIgnored(t *testing.T) {
	cart := NewCart()
	cart.AddProduct(cement)

	cart.UpdateQuantity(0, 0)
	cart.UpdateQuantity(0, -5)

	items := cart.Items()
	if items[0].Quantity != 1 || items[0].Profit != 150 {
		t.Fatalf("cart changed by invalid quantity: %+v", items[0])
	}

	cart.UpdateQuantity(0, 3)
	items = cart.Items()
	if items[0].Quantity != 3 || items[0].Profit != 450 {
		t.Fatalf("valid quantity update not applied: %+v", items[0])
	}
}

func TestAddManualItemDefaults(t *testing.T) {
	cart := NewCart()

	if err := cart.AddManualItem("Labor", 1000, 0, 0); err != nil {
		t.Fatalf("manual item rejected: %v", err)
	}

	items := cart.Items()
	line := items[0]
	if line.CostPrice != 0 || line.Quantity != 1 || line.Profit != 1000 {
		t.Fatalf("unexpected manual line: %+v", line)
	}
	if !strings.HasPrefix(line.ProductID, "manual-") {
		t.Fatalf("expected synthetic manual id, got %s", line.ProductID)
	}
}

func TestAddManualItemRequiresNameAndPrice(t *testing.T) {
	cart := NewCart()

	if err := cart.AddManualItem("", 1000, 0, 1); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if err := cart.AddManualItem("Labor", 0, 0, 1); err == nil {
		t.Fatalf("expected error for missing price")
	}
	if cart.Len() != 0 {
		t.Fatalf("invalid manual items must not be added")
	}
}

func TestRemoveAndToggleWarranty(t *testing.T) {
	cart := NewCart()
	cart.AddProduct(cement)
	if err := cart.AddManualItem("Labor", 1000, 0, 1); err != nil {
		t.Fatalf("manual item rejected: %v", err)
	}

	cart.ToggleWarranty(0)
	if !cart.Items()[0].Warranty {
		t.Fatalf("warranty flag not set")
	}
	cart.ToggleWarranty(0)
	if cart.Items()[0].Warranty {
		t.Fatalf("warranty flag not cleared")
	}

	cart.Remove(0)
	items := cart.Items()
	if len(items) != 1 || items[0].Name != "Labor" {
		t.Fatalf("unexpected cart after remove: %+v", items)
	}

	// Out-of-range indexes are ignored.
	cart.Remove(5)
	cart.ToggleWarranty(-1)
	if cart.Len() != 1 {
		t.Fatalf("out-of-range ops must not change the cart")
	}
}
