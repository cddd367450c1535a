package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/tableside/internal/model"
)

// Cart возвращает корзину посетителя.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Cart(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SaveCart сохраняет корзину посетителя под идентификатором из пути.
func (h *Handler) SaveCart(w http.ResponseWriter, r *http.Request) {
	var c model.Cart
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}
	c.ID = urlParam(r, "id")

	saved, err := h.service.SaveCart(r.Context(), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteCart удаляет корзину посетителя.
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCart(r.Context(), urlParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout оформляет корзину в заказ.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Checkout(r.Context(), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
