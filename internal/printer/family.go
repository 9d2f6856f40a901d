package printer

import (
	"fmt"
	"strings"

	"github.com/storekit/thermalprint/pkg/receipt"
)

// Family is a printer command-set family
type Family string

const (
	FamilyEpson Family = "epson"
	FamilyStar  Family = "star"
)

// DefaultFamily returns the command family used for a printer type when the
// request does not name one. Network and serial printers speak Epson, USB
// printers default to Star.
func DefaultFamily(printerType string) (Family, error) {
	switch printerType {
	case receipt.PrinterTCP, receipt.PrinterSerial:
		return FamilyEpson, nil
	case receipt.PrinterUSB:
		return FamilyStar, nil
	}
	return "", fmt.Errorf("%w: unsupported printer type %q", ErrInvalidRequest, printerType)
}

// ResolveFamily applies the options.family override on top of DefaultFamily
func ResolveFamily(target receipt.PrinterTarget) (Family, error) {
	def, err := DefaultFamily(target.Type)
	if err != nil {
		return "", err
	}

	switch Family(strings.ToLower(target.Options.Family)) {
	case "":
		return def, nil
	case FamilyEpson:
		return FamilyEpson, nil
	case FamilyStar:
		return FamilyStar, nil
	}
	return "", fmt.Errorf("%w: unsupported printer family %q", ErrInvalidRequest, target.Options.Family)
}

// cutSequence is the trailing feed-and-cut of each family
func (f Family) cutSequence() []byte {
	if f == FamilyStar {
		// ESC d 3: Star line mode feed to cutter and partial cut
		return []byte{0x1B, 'd', 0x03}
	}
	// GS V 65 3: feed 3 lines and partial cut
	return []byte{0x1D, 'V', 65, 3}
}
