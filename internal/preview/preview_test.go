package preview

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/storekit/thermalprint/internal/escpos"
	"github.com/storekit/thermalprint/pkg/receipt"
)

func sampleReceipt() *receipt.Data {
	return &receipt.Data{
		ShopName:     "Acme Hardware",
		InvoiceID:    "inv-0000-1111-2222ab",
		CustomerName: "Jane",
		Items: []receipt.LineItem{
			{Name: "Bolt", Quantity: 3, Price: 2.5},
		},
		Subtotal:   7.5,
		PaidAmount: 10,
		FooterText: "Thank you",
	}
}

func countBlack(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r == 0 {
				n++
			}
		}
	}
	return n
}

func TestRender_PaperWidth(t *testing.T) {
	cases := map[int]int{
		escpos.Width:       Paper80mm,
		escpos.NarrowWidth: Paper58mm,
		0:                  Paper80mm,
	}
	for width, want := range cases {
		r, err := New(width)
		if err != nil {
			t.Fatalf("New(%d) failed: %v", width, err)
		}
		img := r.Render(sampleReceipt())
		if got := img.Bounds().Dx(); got != want {
			t.Errorf("width %d: expected %d dots, got %d", width, want, got)
		}
	}
}

func TestRender_DrawsText(t *testing.T) {
	r, _ := New(escpos.Width)
	img := r.Render(sampleReceipt())

	if img.Bounds().Dy() <= margin*2 {
		t.Fatalf("Expected content height, got %d", img.Bounds().Dy())
	}
	if countBlack(img) == 0 {
		t.Error("Expected black pixels in rendered receipt")
	}
}

func TestRender_TallerWithMoreItems(t *testing.T) {
	r, _ := New(escpos.Width)
	short := r.Render(sampleReceipt())

	long := sampleReceipt()
	for i := 0; i < 5; i++ {
		long.Items = append(long.Items, receipt.LineItem{Name: "Nut", Quantity: 1, Price: 1})
	}
	tall := r.Render(long)

	if tall.Bounds().Dy() <= short.Bounds().Dy() {
		t.Errorf("Expected %d > %d", tall.Bounds().Dy(), short.Bounds().Dy())
	}
}

func TestWritePNG(t *testing.T) {
	r, _ := New(escpos.NarrowWidth)

	var buf bytes.Buffer
	if err := r.WritePNG(&buf, sampleReceipt()); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != Paper58mm {
		t.Errorf("Expected %d dots, got %d", Paper58mm, img.Bounds().Dx())
	}
}

func TestWithFont_MissingFile(t *testing.T) {
	_, err := New(escpos.Width, WithFont(filepath.Join(t.TempDir(), "missing.ttf"), 12))
	if err == nil {
		t.Error("Expected error for missing font file")
	}
}
