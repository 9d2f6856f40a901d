package receipt

// Printer types accepted by the print endpoint
const (
	PrinterTCP    = "tcp"
	PrinterUSB    = "usb"
	PrinterSerial = "serial"
)

// PrintRequest is the body of POST /api/print
type PrintRequest struct {
	Printer PrinterTarget `json:"printer"`
	Data    Order         `json:"data"`
}

// PrinterTarget selects the hardware printer the server writes to
type PrinterTarget struct {
	Type    string         `json:"type"`
	Options PrinterOptions `json:"options"`
}

// PrinterOptions holds the connection parameters for each printer type.
// Only the fields relevant to the chosen type are read.
type PrinterOptions struct {
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	VendorID  uint16 `json:"vendorId,omitempty"`
	ProductID uint16 `json:"productId,omitempty"`
	BaudRate  int    `json:"baudRate,omitempty"`
	Path      string `json:"path,omitempty"`
	Family    string `json:"family,omitempty"` // overrides the default command family
}

// PrintResponse is the body of every print endpoint response
type PrintResponse struct {
	Message string `json:"message"`
}
