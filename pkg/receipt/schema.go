// Package receipt defines the transport-agnostic receipt data model
package receipt

import (
	"github.com/shopspring/decimal"
)

// Data is the normalized description of a receipt to print.
// It is built fresh for every print call and not modified afterwards.
type Data struct {
	ShopName        string     `json:"shopName"`
	ShopDescription string     `json:"shopDescription,omitempty"`
	Email           string     `json:"email,omitempty"`
	FooterText      string     `json:"footerText,omitempty"`
	InvoiceID       string     `json:"invoiceId"`
	Date            string     `json:"date"` // pre-formatted, printed as is
	CustomerName    string     `json:"customerName"`
	Items           []LineItem `json:"items"`
	Subtotal        float64    `json:"subtotal"`
	PaidAmount      float64    `json:"paidAmount"`
	DueAmount       float64    `json:"dueAmount"` // trusted as provided, never recomputed
}

// LineItem is a single row of the item table
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"` // unit price
}

// shortInvoiceLen is how many trailing characters of the invoice ID are printed
const shortInvoiceLen = 8

// ShortInvoiceID returns the last 8 characters of the invoice ID
func (d *Data) ShortInvoiceID() string {
	runes := []rune(d.InvoiceID)
	if len(runes) <= shortInvoiceLen {
		return d.InvoiceID
	}
	return string(runes[len(runes)-shortInvoiceLen:])
}

// LineTotal returns quantity * unit price
func (li LineItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Money formats an amount with exactly two decimals
func Money(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
