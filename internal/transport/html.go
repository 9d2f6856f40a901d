package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/storekit/thermalprint/internal/settings"
	"github.com/storekit/thermalprint/pkg/receipt"
)

// DocumentSink receives rendered print documents
type DocumentSink interface {
	Submit(ctx context.Context, name string, doc []byte) error
}

// SpoolSink writes documents into a spool directory for the platform print service
type SpoolSink struct {
	Dir string
}

// Submit writes the document as <Dir>/<name>
func (s SpoolSink) Submit(ctx context.Context, name string, doc []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), doc, 0644); err != nil {
		return fmt.Errorf("failed to write print document: %w", err)
	}
	return nil
}

// HTMLDriver renders receipts as HTML print documents
type HTMLDriver struct {
	sink   DocumentSink
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewHTMLDriver creates an HTML driver that submits documents to sink
func NewHTMLDriver(sink DocumentSink, opts ...Option) *HTMLDriver {
	o := buildOptions(opts)
	return &HTMLDriver{
		sink:   sink,
		logger: o.logger.Named("html"),
		now:    time.Now,
	}
}

// Name returns the transport name
func (d *HTMLDriver) Name() string {
	return NameHTML
}

// Print renders r and hands the document to the sink
func (d *HTMLDriver) Print(ctx context.Context, r *receipt.Data, _ settings.AppSettings) error {
	doc, err := RenderHTML(r)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	name := documentName(r, d.now())
	if err := d.sink.Submit(ctx, name, doc); err != nil {
		return &TransportError{Transport: NameHTML, Err: err}
	}

	d.logger.Debug("print document submitted", zap.String("document", name), zap.Int("bytes", len(doc)))
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func documentName(r *receipt.Data, at time.Time) string {
	id := unsafeName.ReplaceAllString(r.ShortInvoiceID(), "")
	if id == "" {
		id = "receipt"
	}
	return fmt.Sprintf("receipt-%s-%s.html", id, at.UTC().Format("20060102T150405.000"))
}

type htmlItem struct {
	Name     string
	Quantity int
	Price    string
	Total    string
}

type htmlView struct {
	*receipt.Data
	ShortID  string
	Items    []htmlItem
	Subtotal string
	Paid     string
	Due      string
	QRCode   template.URL
	Barcode  template.URL
}

// RenderHTML produces the print document for r, with the invoice ID encoded
// as a QR code and a Code 128 barcode when it is set
func RenderHTML(r *receipt.Data) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("receipt is required")
	}

	view := htmlView{
		Data:     r,
		ShortID:  r.ShortInvoiceID(),
		Subtotal: receipt.Money(r.Subtotal),
		Paid:     receipt.Money(r.PaidAmount),
		Due:      receipt.Money(r.DueAmount),
	}
	for _, item := range r.Items {
		view.Items = append(view.Items, htmlItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    receipt.Money(item.Price),
			Total:    item.LineTotal().StringFixed(2),
		})
	}

	if r.InvoiceID != "" {
		if qr, err := qrcode.Encode(r.InvoiceID, qrcode.Medium, 128); err == nil {
			view.QRCode = dataURI(qr)
		}
		if bc, err := code128Image(r.InvoiceID); err == nil {
			view.Barcode = dataURI(bc)
		}
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render print document: %w", err)
	}
	return buf.Bytes(), nil
}

func code128Image(content string) ([]byte, error) {
	code, err := code128.Encode(content)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, 300, 60)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataURI(pngData []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData))
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.ShortID}}</title>
<style>
@page { size: 80mm auto; margin: 0; }
body { font-family: monospace; width: 72mm; margin: 4mm; font-size: 12px; }
.center { text-align: center; }
.right { text-align: right; }
.shop { font-size: 20px; font-weight: bold; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 1px 0; }
thead th { border-bottom: 1px dashed #000; text-align: left; }
tfoot td { border-top: 1px dashed #000; }
.due { font-weight: bold; }
</style>
</head>
<body onload="window.print()">
<div class="center">
<div class="shop">{{.ShopName}}</div>
{{if .ShopDescription}}<div>{{.ShopDescription}}</div>{{end}}
{{if .Email}}<div>{{.Email}}</div>{{end}}
</div>
<p>
Date: {{.Date}}<br>
Invoice: {{.ShortID}}<br>
Customer: {{.CustomerName}}
</p>
<table>
<thead><tr><th>Item</th><th class="right">Total</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.Name}} ({{.Quantity}}x{{.Price}})</td><td class="right">{{.Total}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td></td><td></td></tr></tfoot>
</table>
<div class="right">
<div>Subtotal: {{.Subtotal}}</div>
<div>Paid: {{.Paid}}</div>
<div class="due">Due: {{.Due}}</div>
</div>
{{if .FooterText}}<p class="center">{{.FooterText}}</p>{{end}}
{{if .QRCode}}<div class="center"><img alt="invoice QR code" src="{{.QRCode}}"></div>{{end}}
{{if .Barcode}}<div class="center"><img alt="invoice barcode" src="{{.Barcode}}"></div>{{end}}
</body>
</html>
`))
