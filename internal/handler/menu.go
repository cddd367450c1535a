package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mmeshcher/tableside/internal/model"
)

// Menu возвращает меню для персонала.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.Menu(r.Context(), session(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// PublicMenu возвращает меню для посетителей.
func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.service.Menu(r.Context(), nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// SaveMenuItem создаёт позицию меню или изменяет позицию из пути.
func (h *Handler) SaveMenuItem(w http.ResponseWriter, r *http.Request) {
	var item model.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	status := http.StatusCreated
	if id := urlParam(r, "id"); id != "" {
		item.ID = id
		status = http.StatusOK
	}

	saved, err := h.service.SaveMenuItem(r.Context(), session(r), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

// DeleteMenuItem удаляет позицию меню.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenuItem(r.Context(), session(r), urlParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveCategory создаёт категорию или изменяет категорию из пути.
func (h *Handler) SaveCategory(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	status := http.StatusCreated
	if id := urlParam(r, "id"); id != "" {
		c.ID = id
		status = http.StatusOK
	}

	saved, err := h.service.SaveCategory(r.Context(), session(r), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

// DeleteCategory удаляет категорию.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), session(r), urlParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
