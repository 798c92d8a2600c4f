package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dineease-pos/internal/domain/menu"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAvailable(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMenuItems(e, items)
	})
}

func (h *Handler) listMenuAdmin(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAll(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMenuItems(e, items)
	})
}

func (h *Handler) upsertMenuItem(w http.ResponseWriter, r *http.Request) {
	d := jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 4096)

	var item menu.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			item.Name, err = d.Str()
		case "category":
			item.Category, err = d.Str()
		case "price":
			item.Price, err = decodeDecimal(d)
		case "isAvailable":
			item.Available, err = d.Bool()
		case "imagePath":
			item.ImagePath, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil || item.Name == "" || item.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "invalid menu item")
		return
	}

	if err := h.menu.Upsert(r.Context(), item); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
		})
	})
}

// importMenu bulk-loads catalogue rows from an uploaded CSV body. The whole
// file is validated before any row is written; a bad line rejects the
// upload, and the batch itself is one transaction so a mid-batch failure
// leaves the catalogue untouched.
func (h *Handler) importMenu(w http.ResponseWriter, r *http.Request) {
	items, err := menu.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.menu.ImportAll(r.Context(), items); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("menu imported", zap.Int("items", len(items)))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("imported", func(e *jx.Encoder) { e.Int(len(items)) })
		})
	})
}

func (h *Handler) exportMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAll(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=menu_export.csv")
	if err := menu.WriteCSV(w, items); err != nil {
		zctx.From(r.Context()).Error("export menu", zap.Error(err))
	}
}

func encodeMenuItems(e *jx.Encoder, items []menu.Item) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
				e.Field("category", func(e *jx.Encoder) { e.Str(it.Category) })
				e.Field("price", func(e *jx.Encoder) { e.Str(it.Price.StringFixed(2)) })
				e.Field("isAvailable", func(e *jx.Encoder) { e.Bool(it.Available) })
				if it.ImagePath != "" {
					e.Field("imagePath", func(e *jx.Encoder) { e.Str(it.ImagePath) })
				}
			})
		}
	})
}
