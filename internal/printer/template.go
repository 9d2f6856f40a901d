package printer

import (
	"bytes"
	"fmt"

	hescpos "github.com/hennedo/escpos"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// templateFeed is the number of blank lines before the cut
const templateFeed = 3

// TemplateEncoder lays out order payloads for the print endpoint. The
// trailing cut sequence depends on the family.
type TemplateEncoder struct {
	family Family
	width  int
}

// NewTemplateEncoder creates an encoder for the given family and character width
func NewTemplateEncoder(family Family, width int) *TemplateEncoder {
	if width < escpos.NarrowWidth {
		width = escpos.Width
	}
	return &TemplateEncoder{family: family, width: width}
}

// Encode renders o into printer commands
func (t *TemplateEncoder) Encode(o *receipt.Order) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: order data is required", ErrInvalidRequest)
	}

	var buf bytes.Buffer
	p := hescpos.New(&buf)
	w := &templateWriter{p: p, width: t.width}

	w.raw([]byte{0x1B, '@'})

	d := o.Data()

	p.Justify(hescpos.JustifyCenter)
	p.Bold(true).Size(2, 2)
	w.line(escpos.Truncate(d.ShopName, t.width/2))
	p.Bold(false).Size(1, 1)
	if d.ShopDescription != "" {
		w.line(d.ShopDescription)
	}
	if d.Email != "" {
		w.line(d.Email)
	}
	w.blank()

	p.Justify(hescpos.JustifyLeft)
	if d.Date != "" {
		w.line(escpos.Fit("Date: "+d.Date, t.width))
	}
	w.line(escpos.Fit("Order: "+d.ShortInvoiceID(), t.width))
	if d.CustomerName != "" {
		w.line(escpos.Fit("Customer: "+d.CustomerName, t.width))
	}
	w.blank()

	p.Bold(true)
	w.line(escpos.Columns("Item", "Total", t.width))
	p.Bold(false)
	w.line(escpos.Rule("-", t.width))
	for _, item := range d.Items {
		w.line(escpos.ItemLine(item, t.width))
	}
	w.line(escpos.Rule("-", t.width))

	p.Justify(hescpos.JustifyRight)
	w.line("Subtotal: " + receipt.Money(o.Subtotal))
	if o.Tax != 0 {
		w.line("Tax: " + receipt.Money(o.Tax))
	}
	p.Bold(true)
	w.line("Total: " + receipt.Money(o.Total))
	p.Bold(false)
	if o.PaidAmount != 0 || o.DueAmount != 0 {
		w.line("Paid: " + receipt.Money(o.PaidAmount))
		w.line("Due: " + receipt.Money(o.DueAmount))
	}
	w.blank()

	p.Justify(hescpos.JustifyCenter)
	if d.FooterText != "" {
		w.line(d.FooterText)
	}
	for i := 0; i < templateFeed; i++ {
		w.blank()
	}

	w.raw(t.family.cutSequence())

	if w.err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", w.err)
	}
	if err := p.Print(); err != nil {
		return nil, fmt.Errorf("failed to flush order: %w", err)
	}
	return buf.Bytes(), nil
}

// templateWriter keeps the first write error
type templateWriter struct {
	p     *hescpos.Escpos
	width int
	err   error
}

func (w *templateWriter) line(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.p.Write(s); err != nil {
		w.err = err
		return
	}
	w.blank()
}

func (w *templateWriter) blank() {
	if w.err != nil {
		return
	}
	_, w.err = w.p.LineFeed()
}

func (w *templateWriter) raw(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.p.WriteRaw(b)
}
