// Package invoice renders persisted orders into printable PDF documents.
// Rendering reads only the values captured on the order rows; menu price
// changes after purchase never alter an invoice.
package invoice

import (
	"bytes"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"

	"github.com/xenking/dineease-pos/internal/domain/order"
)

// Filename returns the canonical download name for an order's invoice.
func Filename(orderID string) string {
	return fmt.Sprintf("invoice_%s.pdf", orderID)
}

// Config holds the static presentation values printed on every invoice.
type Config struct {
	// Title is the document heading. Defaults to "DineEase POS".
	Title string
	// Currency is the symbol prefixed to every amount. Defaults to "Rs.".
	Currency string
	// FooterNote is printed centered at the bottom of each page.
	FooterNote string
}

func (c *Config) setDefaults() {
	if c.Title == "" {
		c.Title = "DineEase POS"
	}
	if c.Currency == "" {
		c.Currency = "Rs."
	}
	if c.FooterNote == "" {
		c.FooterNote = "Thank you for your business!"
	}
}

// Renderer produces invoice PDFs. It is stateless and safe for concurrent
// use; every Render call builds a fresh document.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a Renderer with the given presentation config.
func NewRenderer(cfg Config) *Renderer {
	cfg.setDefaults()
	return &Renderer{cfg: cfg}
}

// Column widths of the item table in millimetres; they sum to the printable
// width of an A4 page with 10mm margins.
const (
	colItem  = 95
	colQty   = 30
	colPrice = 30
	colTotal = 35
)

// Render produces the PDF for a fully populated order. Two renders of the
// same order are byte-identical; a later payment changes only the payment
// section, never the itemized totals. An order with zero items renders an
// empty table body with zero totals.
//
// A missing customer snapshot means the order was persisted in an invalid
// state; that is reported as an error rather than rendered blank.
func (r *Renderer) Render(o *order.Order) ([]byte, error) {
	if o == nil {
		return nil, errors.New("nil order")
	}
	if o.Customer.Name == "" && o.Customer.Phone == "" {
		return nil, errors.Errorf("order %s has no customer snapshot", o.ID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.cfg.Title, false)
	// The document creation date comes from the order, not the clock, so
	// repeated renders stay byte-identical.
	pdf.SetCreationDate(o.CreatedAt.UTC())

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s | Page %d", r.cfg.FooterNote, pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	r.header(pdf, o)
	r.itemTable(pdf, o)
	r.totals(pdf, o)
	r.paymentSection(pdf, o)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrapf(err, "render invoice for order %s", o.ID)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, o *order.Order) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, r.cfg.Title, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Invoice: #%s", o.ID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Date: %s", o.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
		"", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Billed To: %s", o.Customer.Name), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Phone: %s", o.Customer.Phone), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Order Type: %s", o.Type), "", 1, "", false, 0, "")
	pdf.Ln(6)
}

func (r *Renderer) itemTable(pdf *fpdf.Fpdf, o *order.Order) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(colItem, 10, "Item", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colQty, 10, "Quantity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colPrice, 10, "Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colTotal, 10, "Total", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	for _, item := range o.Items {
		pdf.CellFormat(colItem, 10, item.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(colQty, 10, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colPrice, 10, r.amount(item.PriceAtPurchase.StringFixed(2)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, 10, r.amount(item.LineTotal().StringFixed(2)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, o *order.Order) {
	pdf.SetFont("Arial", "", 12)
	r.totalLine(pdf, "Subtotal:", r.amount(o.Subtotal.StringFixed(2)))
	r.totalLine(pdf, "Discount:", "-"+r.amount(o.Discount.StringFixed(2)))
	r.totalLine(pdf, "GST (5%):", r.amount(o.Tax.StringFixed(2)))

	pdf.SetFont("Arial", "B", 14)
	r.totalLine(pdf, "Grand Total:", r.amount(o.Total.StringFixed(2)))
}

func (r *Renderer) paymentSection(pdf *fpdf.Fpdf, o *order.Order) {
	if o.Payment == nil {
		return
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Payment Method: %s", o.Payment.Method), "", 1, "", false, 0, "")
	if o.Payment.Details != "" {
		pdf.CellFormat(0, 8, o.Payment.Details, "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 8, fmt.Sprintf("Paid At: %s", o.Payment.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
		"", 1, "", false, 0, "")
}

// totalLine draws one right-aligned row of the totals block. A spacer cell
// keeps the labels aligned with the table's rightmost columns.
func (r *Renderer) totalLine(pdf *fpdf.Fpdf, label, value string) {
	const (
		spacerWidth = 125
		labelWidth  = 30
		valueWidth  = 35
	)
	pdf.CellFormat(spacerWidth, 8, "", "", 0, "", false, 0, "")
	pdf.CellFormat(labelWidth, 8, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(valueWidth, 8, value, "", 1, "R", false, 0, "")
}

func (r *Renderer) amount(fixed string) string {
	return r.cfg.Currency + fixed
}
