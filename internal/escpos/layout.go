package escpos

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Width is the character width of 80 mm paper at the standard font
const Width = 48

// NarrowWidth is the character width of 58 mm paper
const NarrowWidth = 32

// TextWidth returns the number of printer columns s occupies
func TextWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s so it occupies at most width columns
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "")
}

// Fit truncates or right-pads s to exactly width columns
func Fit(s string, width int) string {
	return runewidth.FillRight(Truncate(s, width), width)
}

// Rule returns a horizontal rule of width columns
func Rule(ch string, width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat(ch, width)
}

// Columns lays out left and right on one line of exactly width columns.
// The right part is kept intact; the left part is truncated so that at least
// one space separates the two.
func Columns(left, right string, width int) string {
	rw := TextWidth(right)
	if rw >= width {
		return Fit(right, width)
	}

	avail := width - rw - 1
	left = Truncate(left, avail)
	return runewidth.FillRight(left, width-rw) + right
}

// ItemRow lays out "<name> <suffix>" on the left and total on the right.
// When the row is too long the name is shortened first; the suffix is only
// cut when it cannot fit on its own.
func ItemRow(name, suffix, total string, width int) string {
	avail := width - TextWidth(total) - 1
	if avail <= 0 {
		return Columns("", total, width)
	}

	left := suffix
	if name != "" {
		left = name + " " + suffix
	}

	if TextWidth(left) > avail && name != "" {
		nameRoom := avail - TextWidth(suffix) - 1
		if nameRoom > 0 {
			left = Truncate(name, nameRoom) + " " + suffix
		}
	}

	return Columns(left, total, width)
}
