package memory

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/store"
	"wrsmile/backend/internal/xid"
)

// Store is the in-memory repository. Collections are ordered slices, matching
// the persisted layout of the original single-operator tool; every mutation is
// a read-modify-write under one lock, which is what makes CreateBill and
// AddPayment atomic here.
type Store struct {
	mu        sync.RWMutex
	products  []domain.Product
	customers []domain.Customer
	bills     []domain.Bill
	loans     []domain.Loan
	payments  []domain.Payment
	users     map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. The Postgres store is
// used in production (DATABASE_URL set), so these never leave dev.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with the shop's starter catalog and
// customer book, the dataset the collections fall back to on first access.
func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "1", Name: "Cement Bag (50kg)", Category: "Construction", TransportCost: 50, TotalCost: 1850, MarginType: domain.MarginFixed, MarginValue: 150, SellingPrice: 2000, Stock: 100},
		{ID: "2", Name: "PVC Pipe 4\"", Category: "Plumbing", TransportCost: 20, TotalCost: 820, MarginType: domain.MarginPercentage, MarginValue: 20, SellingPrice: 984, Stock: 50},
		{ID: "3", Name: "Paint Bucket (10L)", Category: "Paints", TransportCost: 100, TotalCost: 4600, MarginType: domain.MarginFixed, MarginValue: 400, SellingPrice: 5000, Stock: 25},
	}

	customers := []domain.Customer{
		{ID: "1", Name: "Mohamed Nazeer", Phone: "0771234567", TotalLoan: 5000, TotalPaid: 2000, BalanceDue: 3000},
		{ID: "2", Name: "K. Perera", Phone: "0719876543", TotalLoan: 0, TotalPaid: 0, BalanceDue: 0},
	}

	return &Store{
		products:  products,
		customers: customers,
		bills:     make([]domain.Bill, 0, 64),
		loans:     make([]domain.Loan, 0, 32),
		payments:  make([]domain.Payment, 0, 32),
		users:     seedUsers(),
	}
}

// New returns an empty store with only the seed user accounts.
func New() *Store {
	return &Store{users: seedUsers()}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, len(s.products))
	copy(result, s.products)
	return result, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AddProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ID == product.ID {
			return nil, store.ErrValidation
		}
	}
	s.products = append(s.products, product)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.products {
		if p.ID == product.ID {
			s.products[i] = product
			return nil
		}
	}
	// Unknown id: replace-by-id semantics make this a no-op.
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Customer, len(s.customers))
	copy(result, s.customers)
	return result, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) AddCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.ID == customer.ID {
			return nil, store.ErrValidation
		}
	}
	s.customers = append(s.customers, customer)
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.customers {
		if c.ID == customer.ID {
			s.customers[i] = customer
			return nil
		}
	}
	return nil
}

func (s *Store) ListBills(_ context.Context) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Bill, len(s.bills))
	copy(result, s.bills)
	return result, nil
}

func (s *Store) GetBillByID(_ context.Context, id string) (*domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bills {
		if b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateBill applies the whole finalize sequence under one lock: prepend the
// bill, decrement stock for catalog-backed lines, and for LOAN bills bump the
// customer aggregates and append the Loan record.
func (s *Store) CreateBill(_ context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.ID == "" || len(bill.Items) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest first.
	s.bills = append([]domain.Bill{bill}, s.bills...)

	for _, item := range bill.Items {
		for i := range s.products {
			if s.products[i].ID == item.ProductID {
				// No floor at zero; oversold stock goes negative.
				s.products[i].Stock -= item.Quantity
				break
			}
		}
	}

	if bill.PaymentType == domain.PaymentLoan && bill.CustomerID != "" {
		for i := range s.customers {
			if s.customers[i].ID == bill.CustomerID {
				s.customers[i].TotalLoan += bill.FinalAmount
				s.customers[i].BalanceDue += bill.FinalAmount
				break
			}
		}
		s.loans = append(s.loans, domain.Loan{
			ID:         xid.New("loan"),
			CustomerID: bill.CustomerID,
			BillID:     bill.ID,
			Amount:     bill.FinalAmount,
			Date:       bill.Date,
		})
	}

	created := bill
	return &created, nil
}

func (s *Store) ListLoansByCustomer(_ context.Context, customerID string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Full scan; fine at single-shop scale.
	result := make([]domain.Loan, 0, 8)
	for _, l := range s.loans {
		if l.CustomerID == customerID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (s *Store) ListPaymentsByCustomer(_ context.Context, customerID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Payment, 0, 8)
	for _, p := range s.payments {
		if p.CustomerID == customerID {
			result = append(result, p)
		}
	}
	return result, nil
}

// AddPayment appends the payment and moves the customer aggregates in the
// same locked step. Amounts are applied as given; overpayment drives
// BalanceDue negative.
func (s *Store) AddPayment(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	if payment.ID == "" || payment.CustomerID == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.payments = append(s.payments, payment)

	for i := range s.customers {
		if s.customers[i].ID == payment.CustomerID {
			s.customers[i].TotalPaid += payment.Amount
			s.customers[i].BalanceDue -= payment.Amount
			break
		}
	}

	created := payment
	return &created, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
