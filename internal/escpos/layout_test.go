package escpos

import (
	"strings"
	"testing"
)

func TestFit(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abcd"},
		{"", 3, "   "},
		{"abc", 3, "abc"},
	}

	for _, tt := range tests {
		if got := Fit(tt.in, tt.width); got != tt.want {
			t.Errorf("Fit(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestFit_WideRunes(t *testing.T) {
	got := Fit("日本語テキスト", 5)
	if TextWidth(got) != 5 {
		t.Errorf("Expected width 5, got %d (%q)", TextWidth(got), got)
	}
}

func TestRule(t *testing.T) {
	if got := Rule("-", 48); got != strings.Repeat("-", 48) {
		t.Errorf("Unexpected rule: %q", got)
	}
	if got := Rule("-", 0); got != "" {
		t.Errorf("Expected empty rule, got %q", got)
	}
}

func TestColumns(t *testing.T) {
	got := Columns("Item", "Total", 20)
	if got != "Item           Total" {
		t.Errorf("Unexpected columns: %q", got)
	}
	if len(got) != 20 {
		t.Errorf("Expected 20 columns, got %d", len(got))
	}
}

func TestColumns_LeftTruncatedKeepsGap(t *testing.T) {
	got := Columns(strings.Repeat("x", 30), "99.99", 20)
	if len(got) != 20 {
		t.Fatalf("Expected 20 columns, got %d", len(got))
	}
	if !strings.HasSuffix(got, " 99.99") {
		t.Errorf("Expected a space before the right column, got %q", got)
	}
}

func TestColumns_RightTooWide(t *testing.T) {
	got := Columns("left", strings.Repeat("9", 25), 20)
	if got != strings.Repeat("9", 20) {
		t.Errorf("Unexpected columns: %q", got)
	}
}

func TestItemRow_Fits(t *testing.T) {
	got := ItemRow("Bolt", "(3x2.50)", "7.50", 48)
	if TextWidth(got) != 48 {
		t.Fatalf("Expected 48 columns, got %d", TextWidth(got))
	}
	if !strings.HasPrefix(got, "Bolt (3x2.50) ") {
		t.Errorf("Unexpected left part: %q", got)
	}
	if !strings.HasSuffix(got, "7.50") {
		t.Errorf("Unexpected right part: %q", got)
	}
}

func TestItemRow_LongNameTruncated(t *testing.T) {
	name := "Extra long stainless steel hex head bolt with washer and nut"
	got := ItemRow(name, "(12x1234.50)", "14814.00", 48)

	if TextWidth(got) != 48 {
		t.Fatalf("Expected 48 columns, got %d: %q", TextWidth(got), got)
	}
	if !strings.Contains(got, "(12x1234.50) 14814.00") {
		t.Errorf("Expected suffix and total intact with one space gap, got %q", got)
	}
	if !strings.HasPrefix(got, "Extra long") {
		t.Errorf("Expected name prefix kept, got %q", got)
	}
}

func TestItemRow_SuffixTooLong(t *testing.T) {
	got := ItemRow("Nut", "(1x"+strings.Repeat("9", 40)+".00)", "1.00", 30)
	if TextWidth(got) != 30 {
		t.Fatalf("Expected 30 columns, got %d", TextWidth(got))
	}
	if !strings.HasSuffix(got, " 1.00") {
		t.Errorf("Expected total kept, got %q", got)
	}
}

func TestItemRow_EmptyName(t *testing.T) {
	got := ItemRow("", "(1x2.00)", "2.00", 20)
	if !strings.HasPrefix(got, "(1x2.00)") {
		t.Errorf("Expected row to start with suffix, got %q", got)
	}
}
