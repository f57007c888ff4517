package domain

import "time"

// MarginType selects how a product's selling price is derived from its cost.
type MarginType string

const (
	MarginPercentage MarginType = "PERCENTAGE"
	MarginFixed      MarginType = "FIXED"
)

// PaymentType distinguishes immediate cash sales from credit (receivable) sales.
type PaymentType string

const (
	PaymentCash PaymentType = "CASH"
	PaymentLoan PaymentType = "LOAN"
)

// Product is a catalog record. SellingPrice is computed from cost and margin
// at write time and stored; checkout never re-derives it.
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	TransportCost float64    `json:"transportCost"`
	TotalCost     float64    `json:"totalCost"`
	MarginType    MarginType `json:"marginType"`
	MarginValue   float64    `json:"marginValue"`
	SellingPrice  float64    `json:"sellingPrice"`
	Stock         int        `json:"stock"`
}

// Customer carries running receivable aggregates. The intended invariant is
// BalanceDue == TotalLoan - TotalPaid, maintained by the store's write paths
// and never recomputed after the fact.
type Customer struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	TotalLoan  float64 `json:"totalLoan"`
	TotalPaid  float64 `json:"totalPaid"`
	BalanceDue float64 `json:"balanceDue"`
}

// BillItem is one cart line. ProductID is a catalog id, or a synthetic
// "manual-" id for free-form entries with no catalog backing.
type BillItem struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	CostPrice    float64 `json:"costPrice"`
	SellingPrice float64 `json:"sellingPrice"`
	Profit       float64 `json:"profit"`
	Warranty     bool    `json:"warranty"`
}

// Bill is an immutable ledger snapshot of a completed sale. Stored totals are
// authoritative; later corrections to product cost or price do not change them.
type Bill struct {
	ID           string      `json:"id"`
	Number       string      `json:"number"`
	Date         time.Time   `json:"date"`
	CustomerID   string      `json:"customerId,omitempty"`
	CustomerName string      `json:"customerName"`
	Items        []BillItem  `json:"items"`
	TotalAmount  float64     `json:"totalAmount"`
	TotalCost    float64     `json:"totalCost"`
	TotalProfit  float64     `json:"totalProfit"`
	Discount     float64     `json:"discount"`
	FinalAmount  float64     `json:"finalAmount"`
	PaymentType  PaymentType `json:"paymentType"`
}

// Loan is the receivable created for a LOAN-type bill, exactly one per bill.
type Loan struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	BillID     string    `json:"billId"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
}

// Payment reduces a customer's outstanding balance. LoanID is informational;
// balance math is global per customer, not per loan.
type Payment struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loanId,omitempty"`
	CustomerID string    `json:"customerId"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	Note       string    `json:"note,omitempty"`
}

type ProductCreateRequest struct {
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	TransportCost float64    `json:"transportCost"`
	TotalCost     float64    `json:"totalCost"`
	MarginType    MarginType `json:"marginType"`
	MarginValue   float64    `json:"marginValue"`
	Stock         int        `json:"stock"`
}

type ProductUpdateRequest struct {
	Name          *string     `json:"name,omitempty"`
	Category      *string     `json:"category,omitempty"`
	TransportCost *float64    `json:"transportCost,omitempty"`
	TotalCost     *float64    `json:"totalCost,omitempty"`
	MarginType    *MarginType `json:"marginType,omitempty"`
	MarginValue   *float64    `json:"marginValue,omitempty"`
	Stock         *int        `json:"stock,omitempty"`
}

type CustomerCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CheckoutLine references a catalog product by id.
type CheckoutLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Warranty  bool   `json:"warranty"`
}

// ManualLine is a free-form cart entry with no catalog product behind it.
type ManualLine struct {
	Name         string  `json:"name"`
	SellingPrice float64 `json:"sellingPrice"`
	CostPrice    float64 `json:"costPrice"`
	Quantity     int     `json:"quantity"`
	Warranty     bool    `json:"warranty"`
}

type CheckoutRequest struct {
	CustomerID  string         `json:"customerId,omitempty"`
	PaymentType PaymentType    `json:"paymentType"`
	Discount    float64        `json:"discount"`
	Lines       []CheckoutLine `json:"lines"`
	ManualLines []ManualLine   `json:"manualLines,omitempty"`
}

type BillResponse struct {
	Bill Bill `json:"bill"`
}

type PaymentRequest struct {
	CustomerID string  `json:"customerId"`
	LoanID     string  `json:"loanId,omitempty"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note,omitempty"`
}

type PaymentResponse struct {
	Payment  Payment  `json:"payment"`
	Customer Customer `json:"customer"`
}

// CustomerLedgerResponse is the receivables view for one customer.
type CustomerLedgerResponse struct {
	Customer Customer  `json:"customer"`
	Loans    []Loan    `json:"loans"`
	Payments []Payment `json:"payments"`
}

// ReceiptResponse carries the plain-text bill summary and the WhatsApp deep
// link built from it. The link is presentation glue, not an integration.
type ReceiptResponse struct {
	BillID      string `json:"billId"`
	Number      string `json:"number"`
	Text        string `json:"text"`
	WhatsAppURL string `json:"whatsappUrl"`
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

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
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
