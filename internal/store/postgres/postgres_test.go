package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/store"
	"wrsmile/backend/internal/xid"
)

// These tests need a real database with the schema applied. Set
// WRSMILE_TEST_DATABASE_URL to run them; otherwise they are skipped.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("WRSMILE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WRSMILE_TEST_DATABASE_URL not set")
	}

	s, err := New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateBillLoanTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product := domain.Product{
		ID: xid.New("prod"), Name: "Test Cement", Category: "Test",
		TotalCost: 1850, MarginType: domain.MarginFixed, MarginValue: 150,
		SellingPrice: 2000, Stock: 10,
	}
	if _, err := s.AddProduct(ctx, product); err != nil {
		t.Fatalf("add product: %v", err)
	}
	customer := domain.Customer{ID: xid.New("cus"), Name: "Test Buyer", Phone: "0770000000"}
	if _, err := s.AddCustomer(ctx, customer); err != nil {
		t.Fatalf("add customer: %v", err)
	}

	billID := xid.New("bill")
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM payments WHERE customer_id = $1`, customer.ID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM loans WHERE customer_id = $1`, customer.ID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM bills WHERE id = $1`, billID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM customers WHERE id = $1`, customer.ID)
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM products WHERE id = $1`, product.ID)
	})

	bill := domain.Bill{
		ID:           billID,
		Number:       "INV-0001",
		Date:         time.Now().UTC(),
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Items: []domain.BillItem{
			{ProductID: product.ID, Name: product.Name, Quantity: 2, CostPrice: 1850, SellingPrice: 2000, Profit: 300},
			{ProductID: "manual-1", Name: "Labor", Quantity: 1, SellingPrice: 500, Profit: 500},
		},
		TotalAmount: 4500,
		TotalCost:   3700,
		TotalProfit: 800,
		Discount:    500,
		FinalAmount: 4000,
		PaymentType: domain.PaymentLoan,
	}
	if _, err := s.CreateBill(ctx, bill); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	got, err := s.GetBillByID(ctx, billID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if len(got.Items) != 2 || got.FinalAmount != 4000 || got.CustomerID != customer.ID {
		t.Fatalf("unexpected bill: %+v", got)
	}

	p, err := s.GetProductByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock != 8 {
		t.Fatalf("expected stock 8, got %d", p.Stock)
	}

	c, err := s.GetCustomerByID(ctx, customer.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if c.TotalLoan != 4000 || c.BalanceDue != 4000 {
		t.Fatalf("unexpected aggregates: %+v", c)
	}

	loans, err := s.ListLoansByCustomer(ctx, customer.ID)
	if err != nil || len(loans) != 1 || loans[0].BillID != billID {
		t.Fatalf("unexpected loans: %+v (%v)", loans, err)
	}

	payment := domain.Payment{ID: xid.New("pay"), CustomerID: customer.ID, Amount: 1500, Date: time.Now().UTC()}
	if _, err := s.AddPayment(ctx, payment); err != nil {
		t.Fatalf("add payment: %v", err)
	}
	c, _ = s.GetCustomerByID(ctx, customer.ID)
	if c.TotalPaid != 1500 || c.BalanceDue != 2500 {
		t.Fatalf("unexpected aggregates after payment: %+v", c)
	}
}

func TestGetProductByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProductByID(context.Background(), "no-such-id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
