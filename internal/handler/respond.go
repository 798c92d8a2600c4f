package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/order"
	"github.com/xenking/dineease-pos/internal/report"
)

// writeJSON encodes one JSON value built by fn and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the canonical error envelope {"code":N,"message":...}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// respondDomainError maps domain errors onto HTTP statuses. Unknown errors
// become 500 with a generic message; the cause is logged, not leaked.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty  *order.InvalidQuantityError
		notFound    *order.MenuItemNotFoundError
		unavailable *order.ItemUnavailableError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingCustomer),
		errors.Is(err, order.ErrInvalidOrderType),
		errors.Is(err, order.ErrInvalidMethod),
		errors.Is(err, report.ErrInvalidGranularity),
		errors.Is(err, report.ErrInvalidDimension):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidQty),
		errors.As(err, &notFound),
		errors.As(err, &unavailable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
