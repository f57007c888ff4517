package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"wrsmile/backend/internal/domain"
	"wrsmile/backend/internal/store"
	"wrsmile/backend/internal/xid"
)

// Store is the Postgres-backed repository. Bill items are stored as jsonb on
// the bill row, keeping the bill an immutable snapshot the way the original
// persisted it.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, transport_cost, total_cost, margin_type, margin_value, selling_price, stock
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.TransportCost, &p.TotalCost, &p.MarginType, &p.MarginValue, &p.SellingPrice, &p.Stock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, transport_cost, total_cost, margin_type, margin_value, selling_price, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.TransportCost, &p.TotalCost, &p.MarginType, &p.MarginValue, &p.SellingPrice, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) AddProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, transport_cost, total_cost, margin_type, margin_value, selling_price, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
	`, product.ID, product.Name, product.Category, product.TransportCost, product.TotalCost, product.MarginType, product.MarginValue, product.SellingPrice, product.Stock)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) error {
	// Replace-by-id; zero rows affected is a silent no-op.
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, transport_cost = $4, total_cost = $5,
		    margin_type = $6, margin_value = $7, selling_price = $8, stock = $9, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.TransportCost, product.TotalCost, product.MarginType, product.MarginValue, product.SellingPrice, product.Stock)
	return err
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, total_loan, total_paid, balance_due
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.TotalLoan, &c.TotalPaid, &c.BalanceDue); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, total_loan, total_paid, balance_due
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.TotalLoan, &c.TotalPaid, &c.BalanceDue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) AddCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrValidation
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, total_loan, total_paid, balance_due, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
	`, customer.ID, customer.Name, customer.Phone, customer.TotalLoan, customer.TotalPaid, customer.BalanceDue)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, total_loan = $4, total_paid = $5, balance_due = $6, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.Name, customer.Phone, customer.TotalLoan, customer.TotalPaid, customer.BalanceDue)
	return err
}

func (s *Store) ListBills(ctx context.Context) ([]domain.Bill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, date, customer_id, customer_name, items,
		       total_amount, total_cost, total_profit, discount, final_amount, payment_type
		FROM bills
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 64)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bills, nil
}

func (s *Store) GetBillByID(ctx context.Context, id string) (*domain.Bill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, number, date, customer_id, customer_name, items,
		       total_amount, total_cost, total_profit, discount, final_amount, payment_type
		FROM bills
		WHERE id = $1
	`, id)

	bill, err := scanBill(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		bill       domain.Bill
		customerID sql.NullString
		itemsJSON  []byte
	)
	err := row.Scan(&bill.ID, &bill.Number, &bill.Date, &customerID, &bill.CustomerName, &itemsJSON,
		&bill.TotalAmount, &bill.TotalCost, &bill.TotalProfit, &bill.Discount, &bill.FinalAmount, &bill.PaymentType)
	if err != nil {
		return domain.Bill{}, err
	}
	bill.CustomerID = customerID.String
	if err := json.Unmarshal(itemsJSON, &bill.Items); err != nil {
		return domain.Bill{}, err
	}
	return bill, nil
}

// CreateBill runs the finalize sequence in one SQL transaction: insert the
// bill, decrement stock for catalog-backed lines, and for LOAN bills bump the
// customer aggregates and insert the Loan row. A crash mid-sequence leaves
// nothing behind.
func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if bill.ID == "" || len(bill.Items) == 0 {
		return nil, store.ErrValidation
	}

	itemsJSON, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var customerID any
	if bill.CustomerID != "" {
		customerID = bill.CustomerID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, number, date, customer_id, customer_name, items,
		                   total_amount, total_cost, total_profit, discount, final_amount, payment_type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
	`, bill.ID, bill.Number, bill.Date, customerID, bill.CustomerName, itemsJSON,
		bill.TotalAmount, bill.TotalCost, bill.TotalProfit, bill.Discount, bill.FinalAmount, bill.PaymentType)
	if err != nil {
		return nil, err
	}

	for _, item := range bill.Items {
		// Manual lines carry synthetic ids that match no catalog row, so the
		// update is naturally a no-op for them. No floor at zero.
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1
		`, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
	}

	if bill.PaymentType == domain.PaymentLoan && bill.CustomerID != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			SET total_loan = total_loan + $2, balance_due = balance_due + $2, updated_at = now()
			WHERE id = $1
		`, bill.CustomerID, bill.FinalAmount)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO loans (id, customer_id, bill_id, amount, date)
			VALUES ($1,$2,$3,$4,$5)
		`, xid.New("loan"), bill.CustomerID, bill.ID, bill.FinalAmount, bill.Date)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := bill
	return &created, nil
}

func (s *Store) ListLoansByCustomer(ctx context.Context, customerID string) ([]domain.Loan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, bill_id, amount, date
		FROM loans
		WHERE customer_id = $1
		ORDER BY date
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0, 16)
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(&l.ID, &l.CustomerID, &l.BillID, &l.Amount, &l.Date); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *Store) ListPaymentsByCustomer(ctx context.Context, customerID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(loan_id, ''), customer_id, amount, date, COALESCE(note, '')
		FROM payments
		WHERE customer_id = $1
		ORDER BY date
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 16)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.CustomerID, &p.Amount, &p.Date, &p.Note); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

// AddPayment inserts the payment and adjusts the customer aggregates in one
// transaction. No clamping against the outstanding balance.
func (s *Store) AddPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	if payment.ID == "" || payment.CustomerID == "" {
		return nil, store.ErrValidation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var loanID any
	if payment.LoanID != "" {
		loanID = payment.LoanID
	}
	var note any
	if payment.Note != "" {
		note = payment.Note
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, loan_id, customer_id, amount, date, note)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, loanID, payment.CustomerID, payment.Amount, payment.Date, note)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET total_paid = total_paid + $2, balance_due = balance_due - $2, updated_at = now()
		WHERE id = $1
	`, payment.CustomerID, payment.Amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
