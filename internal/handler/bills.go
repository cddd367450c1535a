package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/tableside/internal/model"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func itemIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(urlParam(r, "idx"))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func (h *Handler) writeBill(w http.ResponseWriter, r *http.Request, b model.Bill, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Bill возвращает канонический счёт заказа.
func (h *Handler) Bill(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Bill(r.Context(), session(r), urlParam(r, "id"))
	h.writeBill(w, r, b, err)
}

// UpdateBill применяет изменения к черновику счёта.
func (h *Handler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	var patch model.BillPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}
	b, err := h.service.UpdateBill(r.Context(), session(r), urlParam(r, "id"), patch)
	h.writeBill(w, r, b, err)
}

// FinalizeBill закрывает счёт для изменений.
func (h *Handler) FinalizeBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.FinalizeBill(r.Context(), session(r), urlParam(r, "id"))
	h.writeBill(w, r, b, err)
}

type markPaidRequest struct {
	Method string `json:"method"`
}

// MarkBillPaid отмечает счёт оплаченным. Тело запроса необязательно.
func (h *Handler) MarkBillPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
			return
		}
	}
	b, err := h.service.MarkBillPaid(r.Context(), session(r), urlParam(r, "id"), req.Method)
	h.writeBill(w, r, b, err)
}

// AddBillItem добавляет позицию в счёт.
func (h *Handler) AddBillItem(w http.ResponseWriter, r *http.Request) {
	var item model.BillItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}
	b, err := h.service.AddBillItem(r.Context(), session(r), urlParam(r, "id"), item)
	h.writeBill(w, r, b, err)
}

// RemoveBillItem удаляет позицию счёта.
func (h *Handler) RemoveBillItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := itemIndex(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid item index")
		return
	}
	b, err := h.service.RemoveBillItem(r.Context(), session(r), urlParam(r, "id"), idx)
	h.writeBill(w, r, b, err)
}

// IncrementBillItem увеличивает количество позиции.
func (h *Handler) IncrementBillItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := itemIndex(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid item index")
		return
	}
	b, err := h.service.IncrementBillItem(r.Context(), session(r), urlParam(r, "id"), idx)
	h.writeBill(w, r, b, err)
}

// DecrementBillItem уменьшает количество позиции.
func (h *Handler) DecrementBillItem(w http.ResponseWriter, r *http.Request) {
	idx, ok := itemIndex(r)
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid item index")
		return
	}
	b, err := h.service.DecrementBillItem(r.Context(), session(r), urlParam(r, "id"), idx)
	h.writeBill(w, r, b, err)
}

// UpdateBillStatus запрашивает смену статуса счёта.
func (h *Handler) UpdateBillStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}
	b, err := h.service.UpdateBillStatus(r.Context(), session(r), urlParam(r, "id"), model.BillStatus(req.Status))
	h.writeBill(w, r, b, err)
}

// BillPreview возвращает суммы счёта, пересчитанные по его составляющим.
func (h *Handler) BillPreview(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.BillPreview(r.Context(), session(r), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// BillUPI возвращает ссылку UPI для оплаты счёта.
func (h *Handler) BillUPI(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.BillUPI(r.Context(), session(r), urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
