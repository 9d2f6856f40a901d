// Package escpos encodes receipts into ESC/POS command streams
package escpos

import (
	"bytes"
)

// ESC/POS commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Align is the ESC a justification argument
type Align byte

const (
	AlignLeft   Align = 0
	AlignCenter Align = 1
	AlignRight  Align = 2
)

// Character size arguments for GS !
const (
	sizeNormal byte = 0x00
	sizeDouble byte = 0x11 // double width + double height
)

// builder accumulates ESC/POS commands
type builder struct {
	buffer *bytes.Buffer
	text   func(string) []byte
}

func newBuilder(text func(string) []byte) *builder {
	if text == nil {
		text = func(s string) []byte { return []byte(s) }
	}
	return &builder{
		buffer: new(bytes.Buffer),
		text:   text,
	}
}

// Initialize resets the printer (ESC @)
func (b *builder) Initialize() {
	b.buffer.WriteByte(ESC)
	b.buffer.WriteByte('@')
}

// SelectCodePage selects a character code table (ESC t n)
func (b *builder) SelectCodePage(n byte) {
	b.buffer.Write([]byte{ESC, 't', n})
}

// SetAlignment sets justification (ESC a n)
func (b *builder) SetAlignment(align Align) {
	b.buffer.Write([]byte{ESC, 'a', byte(align)})
}

// SetLarge switches between double and normal character size (GS ! n)
func (b *builder) SetLarge(large bool) {
	size := sizeNormal
	if large {
		size = sizeDouble
	}
	b.buffer.Write([]byte{GS, '!', size})
}

// SetBold enables or disables emphasized mode (ESC E n)
func (b *builder) SetBold(enabled bool) {
	b.buffer.WriteByte(ESC)
	b.buffer.WriteByte('E')
	if enabled {
		b.buffer.WriteByte(1)
	} else {
		b.buffer.WriteByte(0)
	}
}

// WriteText writes text through the configured text encoding
func (b *builder) WriteText(text string) {
	b.buffer.Write(b.text(text))
}

// LineFeed sends line feed
func (b *builder) LineFeed() {
	b.buffer.WriteByte(LF)
}

// FeedAndCut feeds the paper to the cutter and performs a full cut (GS V 65 n)
func (b *builder) FeedAndCut() {
	b.buffer.Write([]byte{GS, 'V', 65, 3})
}

// Bytes returns the generated commands
func (b *builder) Bytes() []byte {
	return b.buffer.Bytes()
}
