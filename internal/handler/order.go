package handler

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/invoice"
)

// maxBodySize bounds request bodies; carts and payment confirmations are
// small.
const maxBodySize = 1 << 20

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 4096)

	var req order.CreateOrderRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customerName":
			v, err := d.Str()
			req.CustomerName = v
			return err
		case "customerPhone":
			v, err := d.Str()
			req.CustomerPhone = v
			return err
		case "orderType":
			v, err := d.Str()
			req.Type = order.Type(v)
			return err
		case "discount":
			v, err := decodeDecimal(d)
			req.Discount = v
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.CartLine
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "menuItemId":
						v, err := d.Str()
						line.MenuItemID = v
						return err
					case "quantity":
						v, err := d.Int()
						line.Quantity = v
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 4096)

	var (
		method     string
		cardNumber string
		upiID      string
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "method":
			method, err = d.Str()
		case "cardNumber":
			cardNumber, err = d.Str()
		case "upiId":
			upiID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID := r.PathValue("id")
	p, err := h.orders.RecordPayment(r.Context(), orderID,
		order.PaymentMethod(method), paymentDetails(order.PaymentMethod(method), cardNumber, upiID))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	// The receipt is rendered off the request path; the download endpoint
	// falls back to an on-demand render until the spool catches up.
	h.spool.Enqueue(orderID)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("paymentId", func(e *jx.Encoder) { e.Str(p.ID) })
			e.Field("status", func(e *jx.Encoder) { e.Str(string(order.StatusPaid)) })
			e.Field("invoiceUrl", func(e *jx.Encoder) {
				e.Str(fmt.Sprintf("/api/order/%s/invoice", orderID))
			})
		})
	})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	o, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	// Prefer the spooled file; render on demand when the background worker
	// has not produced it yet.
	data, err := os.ReadFile(h.spool.Path(orderID))
	if err != nil {
		data, err = h.renderer.Render(o)
		if err != nil {
			zctx.From(r.Context()).Error("render invoice",
				zap.String("order_id", orderID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render invoice")
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", invoice.Filename(orderID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// paymentDetails builds the stored payment description, keeping card and
// UPI identifiers out of the database except for their display suffix.
func paymentDetails(method order.PaymentMethod, cardNumber, upiID string) string {
	switch method {
	case order.PaymentCard:
		if n := len(cardNumber); n >= 4 {
			return "Card ending in " + cardNumber[n-4:]
		}
		return ""
	case order.PaymentUPI:
		if upiID != "" {
			return "UPI ID: " + upiID
		}
		return ""
	default:
		return ""
	}
}

// decodeDecimal accepts an amount as a JSON number or string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(num.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, errors.New("expected number or string")
	}
}

// encodeOrder writes the full order representation.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("orderType", func(e *jx.Encoder) { e.Str(string(o.Type)) })
		e.Field("customer", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Customer.Name) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.Customer.Phone) })
			})
		})
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("menuItemId", func(e *jx.Encoder) { e.Str(it.MenuItemID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { e.Str(it.PriceAtPurchase.StringFixed(2)) })
						e.Field("lineTotal", func(e *jx.Encoder) { e.Str(it.LineTotal().StringFixed(2)) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(o.Subtotal.StringFixed(2)) })
		e.Field("discount", func(e *jx.Encoder) { e.Str(o.Discount.StringFixed(2)) })
		e.Field("tax", func(e *jx.Encoder) { e.Str(o.Tax.StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total.StringFixed(2)) })
		if o.Payment != nil {
			e.Field("payment", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("method", func(e *jx.Encoder) { e.Str(string(o.Payment.Method)) })
					e.Field("details", func(e *jx.Encoder) { e.Str(o.Payment.Details) })
					e.Field("paidAt", func(e *jx.Encoder) { e.Str(o.Payment.CreatedAt.UTC().Format(time.RFC3339)) })
				})
			})
		}
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}
