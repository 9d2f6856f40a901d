package receipt

// Order is the payload accepted by the print endpoint. It carries the order
// fields POS checkout flows send plus the receipt presentation fields, so a
// receipt forwarded by the network driver prints the same as a local one.
type Order struct {
	OrderID      string     `json:"orderId"`
	CustomerName string     `json:"customerName"`
	Items        []LineItem `json:"items"`
	Subtotal     float64    `json:"subtotal"`
	Tax          float64    `json:"tax"`
	Total        float64    `json:"total"`

	ShopName        string  `json:"shopName,omitempty"`
	ShopDescription string  `json:"shopDescription,omitempty"`
	Email           string  `json:"email,omitempty"`
	FooterText      string  `json:"footerText,omitempty"`
	Date            string  `json:"date,omitempty"`
	PaidAmount      float64 `json:"paidAmount,omitempty"`
	DueAmount       float64 `json:"dueAmount,omitempty"`
}

// OrderFromData converts a receipt into the print endpoint payload.
// Receipts carry no tax, so Total equals Subtotal.
func OrderFromData(d *Data) Order {
	items := make([]LineItem, len(d.Items))
	copy(items, d.Items)

	return Order{
		OrderID:         d.InvoiceID,
		CustomerName:    d.CustomerName,
		Items:           items,
		Subtotal:        d.Subtotal,
		Total:           d.Subtotal,
		ShopName:        d.ShopName,
		ShopDescription: d.ShopDescription,
		Email:           d.Email,
		FooterText:      d.FooterText,
		Date:            d.Date,
		PaidAmount:      d.PaidAmount,
		DueAmount:       d.DueAmount,
	}
}

// ValidateOrder performs structural checks on an order payload
func ValidateOrder(o *Order) error {
	return Validate(o.Data())
}

// Data returns the receipt view of an order
func (o *Order) Data() *Data {
	shop := o.ShopName
	if shop == "" {
		shop = "Receipt"
	}

	return &Data{
		ShopName:        shop,
		ShopDescription: o.ShopDescription,
		Email:           o.Email,
		FooterText:      o.FooterText,
		InvoiceID:       o.OrderID,
		Date:            o.Date,
		CustomerName:    o.CustomerName,
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		PaidAmount:      o.PaidAmount,
		DueAmount:       o.DueAmount,
	}
}
