package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wrsmile/backend/internal/cache"
	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/store"
	"wrsmile/backend/internal/xid"
)

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
	catalog    cache.CatalogCache
	catalogTTL time.Duration
	shopName   string
	currency   string
}

func New(repo store.Repository, catalog cache.CatalogCache, catalogTTL time.Duration, shopName string, currency string) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	if catalogTTL <= 0 {
		catalogTTL = time.Minute
	}
	if shopName == "" {
		shopName = "WR Smile & Supplies"
	}
	if currency == "" {
		currency = "LKR"
	}

	return &Service{
		repo:       repo,
		catalog:    catalog,
		catalogTTL: catalogTTL,
		shopName:   shopName,
		currency:   currency,
	}
}

// ListProducts returns the catalog, optionally filtered by a case-insensitive
// name substring. The unfiltered catalog is served from cache when warm.
func (s *Service) ListProducts(ctx context.Context, search string) ([]domain.Product, error) {
	products, hit, err := s.catalog.Get(ctx)
	if err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
		hit = false
	}
	if !hit {
		products, err = s.repo.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.catalog.Set(ctx, products, s.catalogTTL); err != nil {
			log.Printf("[service] WARN: catalog cache write failed: %v", err)
		}
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return products, nil
	}

	needle := strings.ToLower(search)
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// sellingPriceFrom derives the stored selling price from cost and margin.
// This runs only on product writes; checkout always uses the stored value.
func sellingPriceFrom(totalCost float64, marginType domain.MarginType, marginValue float64) float64 {
	if marginType == domain.MarginPercentage {
		return totalCost * (1 + marginValue/100)
	}
	return totalCost + marginValue
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name required", store.ErrValidation)
	}
	if req.MarginType == "" {
		req.MarginType = domain.MarginFixed
	}
	if req.MarginType != domain.MarginFixed && req.MarginType != domain.MarginPercentage {
		return domain.Product{}, fmt.Errorf("%w: unknown margin type %q", store.ErrValidation, req.MarginType)
	}

	product := domain.Product{
		ID:            xid.New("prod"),
		Name:          req.Name,
		Category:      req.Category,
		TransportCost: req.TransportCost,
		TotalCost:     req.TotalCost,
		MarginType:    req.MarginType,
		MarginValue:   req.MarginValue,
		SellingPrice:  sellingPriceFrom(req.TotalCost, req.MarginType, req.MarginValue),
		Stock:         req.Stock,
	}

	created, err := s.repo.AddProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.dropCatalogCache(ctx)

	log.Printf("[service] product created id=%s name=%s price=%s", created.ID, created.Name, formatAmount(created.SellingPrice))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	priceInputsChanged := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: product name required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.TransportCost != nil {
		updated.TransportCost = *req.TransportCost
	}
	if req.TotalCost != nil {
		updated.TotalCost = *req.TotalCost
		priceInputsChanged = true
	}
	if req.MarginType != nil {
		if *req.MarginType != domain.MarginFixed && *req.MarginType != domain.MarginPercentage {
			return domain.Product{}, fmt.Errorf("%w: unknown margin type %q", store.ErrValidation, *req.MarginType)
		}
		updated.MarginType = *req.MarginType
		priceInputsChanged = true
	}
	if req.MarginValue != nil {
		updated.MarginValue = *req.MarginValue
		priceInputsChanged = true
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}

	// The stored selling price moves only when its inputs do. Historical bills
	// keep the prices they were written with.
	if priceInputsChanged {
		updated.SellingPrice = sellingPriceFrom(updated.TotalCost, updated.MarginType, updated.MarginValue)
	}

	if err := s.repo.UpdateProduct(ctx, updated); err != nil {
		return domain.Product{}, err
	}
	s.dropCatalogCache(ctx)

	return updated, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// CreateCustomer registers a customer with zeroed receivable aggregates. This
// backs the inline "new customer" path on the billing screen.
func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name required", store.ErrValidation)
	}

	customer := domain.Customer{
		ID:    xid.New("cus"),
		Name:  req.Name,
		Phone: strings.TrimSpace(req.Phone),
	}

	created, err := s.repo.AddCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

// CustomerLedger returns a customer's receivables view: current aggregates
// plus every loan and payment on record for them.
func (s *Service) CustomerLedger(ctx context.Context, customerID string) (domain.CustomerLedgerResponse, error) {
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.CustomerLedgerResponse{}, err
	}

	loans, err := s.repo.ListLoansByCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerLedgerResponse{}, err
	}
	payments, err := s.repo.ListPaymentsByCustomer(ctx, customerID)
	if err != nil {
		return domain.CustomerLedgerResponse{}, err
	}

	return domain.CustomerLedgerResponse{
		Customer: *customer,
		Loans:    loans,
		Payments: payments,
	}, nil
}

func (s *Service) ListLoansByCustomer(ctx context.Context, customerID string) ([]domain.Loan, error) {
	return s.repo.ListLoansByCustomer(ctx, customerID)
}

func (s *Service) ListPaymentsByCustomer(ctx context.Context, customerID string) ([]domain.Payment, error) {
	return s.repo.ListPaymentsByCustomer(ctx, customerID)
}

// Checkout finalizes a sale. It builds the cart from catalog references and
// manual entries, validates, computes totals, and hands the finished bill to
// the repository, whose CreateBill applies all side effects atomically.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.BillResponse, error) {
	if req.PaymentType == "" {
		req.PaymentType = domain.PaymentCash
	}
	if req.PaymentType != domain.PaymentCash && req.PaymentType != domain.PaymentLoan {
		return domain.BillResponse{}, fmt.Errorf("%w: payment type must be CASH or LOAN", store.ErrValidation)
	}

	cart := NewCart()
	for _, line := range req.Lines {
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.BillResponse{}, fmt.Errorf("%w: unknown product %s", store.ErrValidation, line.ProductID)
			}
			return domain.BillResponse{}, err
		}

		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		for i := 0; i < qty; i++ {
			cart.AddProduct(*product)
		}
		if line.Warranty {
			cart.ToggleWarranty(cart.indexOf(product.ID))
		}
	}
	for _, manual := range req.ManualLines {
		if err := cart.AddManualItem(manual.Name, manual.SellingPrice, manual.CostPrice, manual.Quantity); err != nil {
			return domain.BillResponse{}, err
		}
		if manual.Warranty {
			cart.ToggleWarranty(cart.Len() - 1)
		}
	}

	if cart.Len() == 0 {
		return domain.BillResponse{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	customerName := "Walk-in Customer"
	if req.PaymentType == domain.PaymentLoan && req.CustomerID == "" {
		return domain.BillResponse{}, fmt.Errorf("%w: customer required for loan sales", store.ErrValidation)
	}
	if req.CustomerID != "" {
		customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
		switch {
		case err == nil:
			customerName = customer.Name
		case errors.Is(err, store.ErrNotFound):
			if req.PaymentType == domain.PaymentLoan {
				return domain.BillResponse{}, fmt.Errorf("%w: customer required for loan sales", store.ErrValidation)
			}
			// Cash sale with a stale customer id still goes through as walk-in.
		default:
			return domain.BillResponse{}, err
		}
	}

	now := time.Now().UTC()
	totals := cart.Totals(req.Discount)

	bill := domain.Bill{
		ID:           xid.New("bill"),
		Number:       xid.BillNumber(now),
		Date:         now,
		CustomerID:   req.CustomerID,
		CustomerName: customerName,
		Items:        cart.Items(),
		TotalAmount:  totals.TotalAmount,
		TotalCost:    totals.TotalCost,
		TotalProfit:  totals.TotalProfit,
		Discount:     req.Discount,
		FinalAmount:  totals.FinalAmount,
		PaymentType:  req.PaymentType,
	}

	created, err := s.repo.CreateBill(ctx, bill)
	if err != nil {
		return domain.BillResponse{}, err
	}

	log.Printf("[service] checkout bill=%s number=%s type=%s final=%s items=%d",
		created.ID, created.Number, created.PaymentType, formatAmount(created.FinalAmount), len(created.Items))

	return domain.BillResponse{Bill: *created}, nil
}

func (s *Service) ListBills(ctx context.Context) ([]domain.Bill, error) {
	return s.repo.ListBills(ctx)
}

func (s *Service) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	bill, err := s.repo.GetBillByID(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	return *bill, nil
}

// RecordPayment appends a payment and moves the customer's aggregates. The
// amount is taken as given: there is no check against the outstanding balance,
// so overpayment drives BalanceDue negative.
func (s *Service) RecordPayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return domain.PaymentResponse{}, fmt.Errorf("%w: customer required for payment", store.ErrValidation)
	}
	if _, err := s.repo.GetCustomerByID(ctx, req.CustomerID); err != nil {
		return domain.PaymentResponse{}, err
	}

	payment := domain.Payment{
		ID:         xid.New("pay"),
		LoanID:     strings.TrimSpace(req.LoanID),
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Date:       time.Now().UTC(),
		Note:       strings.TrimSpace(req.Note),
	}

	created, err := s.repo.AddPayment(ctx, payment)
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	log.Printf("[service] payment recorded id=%s customer=%s amount=%s", created.ID, created.CustomerID, formatAmount(created.Amount))

	return domain.PaymentResponse{Payment: *created, Customer: *customer}, nil
}

// Receipt renders the plain-text bill summary and the WhatsApp deep link the
// billing screen opens after a sale.
func (s *Service) Receipt(ctx context.Context, billID string) (domain.ReceiptResponse, error) {
	bill, err := s.repo.GetBillByID(ctx, billID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", s.shopName)
	fmt.Fprintf(&b, "Bill No: %s\n", bill.Number)
	fmt.Fprintf(&b, "Date: %s\n", bill.Date.Format("02/01/2006"))
	b.WriteString("------------------------\n")
	for _, item := range bill.Items {
		fmt.Fprintf(&b, "%s x%d = %s\n", item.Name, item.Quantity, formatAmount(item.SellingPrice*float64(item.Quantity)))
	}
	b.WriteString("------------------------\n")
	fmt.Fprintf(&b, "*Total: %s %s*", s.currency, formatAmount(bill.FinalAmount))

	text := b.String()
	return domain.ReceiptResponse{
		BillID:      bill.ID,
		Number:      bill.Number,
		Text:        text,
		WhatsAppURL: "https://wa.me/?text=" + url.QueryEscape(text),
	}, nil
}

func (s *Service) dropCatalogCache(ctx context.Context) {
	if err := s.catalog.Drop(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache drop failed: %v", err)
	}
}

// formatAmount prints money the way the original receipts did: no trailing
// zeros, full precision only when the value has a fraction.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
