package escpos

import (
	"fmt"

	"github.com/storekit/thermalprint/pkg/receipt"
)

// Line is one laid-out text line of a receipt together with its style
type Line struct {
	Text  string
	Align Align
	Bold  bool
	Large bool
}

// footerFeed is the number of blank lines fed before the cut
const footerFeed = 3

// Encoder turns receipts into ESC/POS byte streams
type Encoder struct {
	width    int
	codePage *CodePage
}

// Option configures an Encoder
type Option func(*Encoder)

// WithWidth sets the character width (48 for 80 mm paper, 32 for 58 mm)
func WithWidth(width int) Option {
	return func(e *Encoder) {
		if width >= NarrowWidth {
			e.width = width
		}
	}
}

// WithCodePage selects a single-byte code page and transcodes all text into it.
// Without this option text is written as raw UTF-8 bytes.
func WithCodePage(cp CodePage) Option {
	return func(e *Encoder) {
		e.codePage = &cp
	}
}

// NewEncoder creates an encoder for 80 mm paper with UTF-8 text
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{width: Width}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode encodes a receipt with the default encoder
func Encode(r *receipt.Data) []byte {
	return NewEncoder().Encode(r)
}

// Width returns the configured character width
func (e *Encoder) Width() int {
	return e.width
}

// Encode produces the complete command stream for r, from initialize to cut
func (e *Encoder) Encode(r *receipt.Data) []byte {
	var text func(string) []byte
	if e.codePage != nil {
		text = e.codePage.Encode
	}
	b := newBuilder(text)

	b.Initialize()
	if e.codePage != nil {
		b.SelectCodePage(e.codePage.Number)
	}

	// state after ESC @
	align, bold, large := AlignLeft, false, false

	for _, line := range Lines(r, e.width) {
		if line.Align != align {
			b.SetAlignment(line.Align)
			align = line.Align
		}
		if line.Large != large {
			b.SetLarge(line.Large)
			large = line.Large
		}
		if line.Bold != bold {
			b.SetBold(line.Bold)
			bold = line.Bold
		}
		b.WriteText(line.Text)
		b.LineFeed()
	}

	b.FeedAndCut()
	return b.Bytes()
}

// Lines lays out a receipt as styled text lines of the given width
func Lines(r *receipt.Data, width int) []Line {
	if r == nil {
		r = &receipt.Data{}
	}
	if width < NarrowWidth {
		width = Width
	}

	var lines []Line
	add := func(text string, align Align, bold, large bool) {
		lines = append(lines, Line{Text: text, Align: align, Bold: bold, Large: large})
	}

	// Header
	add(Truncate(r.ShopName, width/2), AlignCenter, false, true)
	if r.ShopDescription != "" {
		add(Truncate(r.ShopDescription, width), AlignCenter, false, false)
	}
	if r.Email != "" {
		add(Truncate(r.Email, width), AlignCenter, false, false)
	}
	add("", AlignCenter, false, false)

	// Info
	add(Fit("Date: "+r.Date, width), AlignLeft, false, false)
	add(Fit("Invoice: "+r.ShortInvoiceID(), width), AlignLeft, false, false)
	add(Fit("Customer: "+r.CustomerName, width), AlignLeft, false, false)
	add("", AlignLeft, false, false)

	// Items
	add(Columns("Item", "Total", width), AlignLeft, true, false)
	add(Rule("-", width), AlignLeft, false, false)
	for _, item := range r.Items {
		add(ItemLine(item, width), AlignLeft, false, false)
	}
	add(Rule("-", width), AlignLeft, false, false)

	// Totals
	add("Subtotal: "+receipt.Money(r.Subtotal), AlignRight, false, false)
	add("Paid: "+receipt.Money(r.PaidAmount), AlignRight, false, false)
	add("Due: "+receipt.Money(r.DueAmount), AlignRight, true, false)
	add("", AlignRight, false, false)

	// Footer
	if r.FooterText != "" {
		add(Truncate(r.FooterText, width), AlignCenter, false, false)
	}
	for i := 0; i < footerFeed; i++ {
		add("", AlignCenter, false, false)
	}

	return lines
}

// ItemLine formats a single item row: "<name> (<qty>x<price>)" and the line total
func ItemLine(item receipt.LineItem, width int) string {
	suffix := fmt.Sprintf("(%dx%s)", item.Quantity, receipt.Money(item.Price))
	return ItemRow(item.Name, suffix, item.LineTotal().StringFixed(2), width)
}
