package escpos

import (
	"bytes"
	"strings"
	"testing"

	"github.com/storekit/thermalprint/pkg/receipt"
)

// textLines strips the control sequences the encoder emits and splits on LF
func textLines(t *testing.T, data []byte) []string {
	t.Helper()

	var out bytes.Buffer
	for i := 0; i < len(data); {
		switch data[i] {
		case ESC:
			if i+1 < len(data) && data[i+1] == '@' {
				i += 2
				continue
			}
			i += 3 // ESC a n, ESC E n, ESC t n
		case GS:
			if i+1 < len(data) && data[i+1] == 'V' {
				i += 4
				continue
			}
			i += 3 // GS ! n
		default:
			out.WriteByte(data[i])
			i++
		}
	}

	lines := strings.Split(out.String(), "\n")
	// the stream ends with LF, drop the empty tail
	return lines[:len(lines)-1]
}

func acmeReceipt() *receipt.Data {
	return &receipt.Data{
		ShopName:     "Acme",
		InvoiceID:    "INV-2024-00001234",
		Date:         "2024-05-01 10:00",
		CustomerName: "Jane Doe",
		Items:        []receipt.LineItem{{Name: "Bolt", Quantity: 3, Price: 2.50}},
		Subtotal:     7.50,
		PaidAmount:   7.50,
		DueAmount:    0,
	}
}

func TestEncode_Deterministic(t *testing.T) {
	r := acmeReceipt()
	r.ShopDescription = "Hardware"
	r.FooterText = "Thank you!"

	first := Encode(r)
	for i := 0; i < 5; i++ {
		if !bytes.Equal(first, Encode(r)) {
			t.Fatal("Expected identical output across calls")
		}
	}
}

func TestEncode_FramingBytes(t *testing.T) {
	data := Encode(acmeReceipt())

	if !bytes.HasPrefix(data, []byte{ESC, '@'}) {
		t.Errorf("Expected initialize first, got % X", data[:2])
	}
	if !bytes.HasSuffix(data, []byte{GS, 'V', 65, 3}) {
		t.Errorf("Expected feed-and-cut last, got % X", data[len(data)-4:])
	}
	// header: center then double size
	if !bytes.HasPrefix(data[2:], []byte{ESC, 'a', 1, GS, '!', 0x11}) {
		t.Errorf("Expected centered double-size header, got % X", data[2:8])
	}
}

func TestEncode_DueBoldedAndReset(t *testing.T) {
	data := Encode(acmeReceipt())

	due := []byte{ESC, 'E', 1}
	due = append(due, []byte("Due: 0.00")...)
	due = append(due, LF, ESC, 'E', 0)
	if !bytes.Contains(data, due) {
		t.Error("Expected Due line wrapped in bold on/off")
	}
}

func TestEncode_ColumnWidth(t *testing.T) {
	r := acmeReceipt()
	r.Items = append(r.Items,
		receipt.LineItem{Name: "A very very long item name that will not fit on one line", Quantity: 10, Price: 99.99},
		receipt.LineItem{Name: "Nut", Quantity: 0, Price: 0},
	)
	lines := textLines(t, Encode(r))

	for _, line := range lines {
		isInfo := strings.HasPrefix(line, "Date: ") ||
			strings.HasPrefix(line, "Invoice: ") ||
			strings.HasPrefix(line, "Customer: ")
		isItem := strings.HasPrefix(line, "Item ") || strings.Contains(line, "x")
		if (isInfo || isItem) && !strings.HasPrefix(line, "Subtotal") && line != "" {
			if TextWidth(line) != Width {
				t.Errorf("Expected %d columns, got %d: %q", Width, TextWidth(line), line)
			}
		}
	}
}

func TestEncode_ItemLines(t *testing.T) {
	r := acmeReceipt()
	r.Items = []receipt.LineItem{
		{Name: "Bolt", Quantity: 3, Price: 2.50},
		{Name: "Washer", Quantity: 10, Price: 0.15},
		{Name: "Hammer", Quantity: 1, Price: 24.99},
	}
	lines := textLines(t, Encode(r))

	rule := strings.Repeat("-", Width)
	var items []string
	inTable := false
	for _, line := range lines {
		if line == rule {
			if inTable {
				break
			}
			inTable = true
			continue
		}
		if inTable {
			items = append(items, line)
		}
	}

	if len(items) != len(r.Items) {
		t.Fatalf("Expected %d item lines, got %d", len(r.Items), len(items))
	}
	for i, item := range r.Items {
		total := item.LineTotal().StringFixed(2)
		if !strings.Contains(items[i], item.Name) {
			t.Errorf("Item line %d missing name %q: %q", i, item.Name, items[i])
		}
		if !strings.HasSuffix(items[i], total) {
			t.Errorf("Item line %d missing total %s: %q", i, total, items[i])
		}
	}
}

func TestEncode_ZeroItems(t *testing.T) {
	r := &receipt.Data{ShopName: "Empty Shop", FooterText: "Bye"}
	lines := textLines(t, Encode(r))
	joined := strings.Join(lines, "\n")

	for _, want := range []string{"Empty Shop", "Item", "Subtotal: 0.00", "Paid: 0.00", "Due: 0.00", "Bye"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestEncode_NilReceipt(t *testing.T) {
	data := Encode(nil)
	if len(data) == 0 {
		t.Error("Expected output for nil receipt")
	}
}

func TestEncode_EndToEndExample(t *testing.T) {
	lines := textLines(t, Encode(acmeReceipt()))

	var itemLine, paidLine string
	var dues []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "Bolt"):
			itemLine = line
		case strings.HasPrefix(line, "Paid: "):
			paidLine = line
		case strings.HasPrefix(line, "Due: "):
			dues = append(dues, strings.TrimPrefix(line, "Due: "))
		}
	}

	if len(itemLine) < 4 || itemLine[len(itemLine)-4:] != "7.50" {
		t.Errorf("Expected item line to end with 7.50, got %q", itemLine)
	}
	if len(paidLine) < 4 || paidLine[len(paidLine)-4:] != "7.50" {
		t.Errorf("Expected paid line to end with 7.50, got %q", paidLine)
	}
	if len(dues) != 1 || dues[0] != "0.00" {
		t.Errorf("Expected a single Due of 0.00, got %v", dues)
	}
}

func TestEncode_InvoiceTruncated(t *testing.T) {
	lines := textLines(t, Encode(acmeReceipt()))
	found := false
	for _, line := range lines {
		if strings.TrimRight(line, " ") == "Invoice: 00001234" {
			found = true
		}
	}
	if !found {
		t.Error("Expected invoice line with last 8 characters")
	}
}

func TestEncode_UTF8Preserved(t *testing.T) {
	r := acmeReceipt()
	r.CustomerName = "Żółć Ñandú"
	data := Encode(r)
	if !bytes.Contains(data, []byte("Żółć Ñandú")) {
		t.Error("Expected raw UTF-8 bytes without code page remapping")
	}
	if bytes.Contains(data, []byte{ESC, 't'}) {
		t.Error("Expected no code page selection by default")
	}
}

func TestEncode_WithCodePage(t *testing.T) {
	r := acmeReceipt()
	r.CustomerName = "Müller 日本"
	data := NewEncoder(WithCodePage(PC850)).Encode(r)

	if !bytes.HasPrefix(data, []byte{ESC, '@', ESC, 't', 2}) {
		t.Errorf("Expected code page selection after init, got % X", data[:5])
	}
	// ü is 0x81 in PC850, unmappable runes become '?'
	if !bytes.Contains(data, []byte{'M', 0x81, 'l', 'l', 'e', 'r', ' ', '?', '?'}) {
		t.Error("Expected transcoded customer name")
	}
}

func TestEncode_NarrowWidth(t *testing.T) {
	enc := NewEncoder(WithWidth(NarrowWidth))
	if enc.Width() != NarrowWidth {
		t.Fatalf("Expected width %d, got %d", NarrowWidth, enc.Width())
	}
	for _, line := range textLines(t, enc.Encode(acmeReceipt())) {
		if TextWidth(line) > NarrowWidth {
			t.Errorf("Line wider than %d: %q", NarrowWidth, line)
		}
	}
}

func TestLookupCodePage(t *testing.T) {
	cp, err := LookupCodePage("pc858")
	if err != nil {
		t.Fatalf("Failed to look up code page: %v", err)
	}
	if cp.Number != 19 {
		t.Errorf("Expected 19, got %d", cp.Number)
	}
	if _, err := LookupCodePage("koi8"); err == nil {
		t.Error("Expected error for unknown code page")
	}
}
