package store

import (
	"context"
	"errors"

	"wrsmile/backend/internal/domain"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// Repository owns the five persisted collections (products, customers, bills,
// loans, payments) plus auth users. Implementations must make CreateBill and
// AddPayment atomic: every collection mutation they imply becomes visible
// together or not at all.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	AddProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// UpdateProduct replaces the record with the same id. Unknown ids are a
	// silent no-op, not an error.
	UpdateProduct(ctx context.Context, product domain.Product) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	AddCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) error

	ListBills(ctx context.Context) ([]domain.Bill, error)
	GetBillByID(ctx context.Context, id string) (*domain.Bill, error)
	// CreateBill appends the bill most-recent-first and applies its side
	// effects in one atomic step: stock decrements for catalog-backed lines
	// (manual lines skipped, no floor at zero), and for LOAN bills the
	// customer aggregate bump plus the Loan record.
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)

	ListLoansByCustomer(ctx context.Context, customerID string) ([]domain.Loan, error)

	ListPaymentsByCustomer(ctx context.Context, customerID string) ([]domain.Payment, error)
	// AddPayment appends the payment and adjusts the customer's TotalPaid and
	// BalanceDue atomically. Amounts are applied as given, without clamping.
	AddPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
