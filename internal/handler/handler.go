// Package handler содержит HTTP-обработчики API сервиса tableside.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/backend"
	"github.com/mmeshcher/tableside/internal/billing"
	"github.com/mmeshcher/tableside/internal/board"
	"github.com/mmeshcher/tableside/internal/hub"
	"github.com/mmeshcher/tableside/internal/middleware"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/payment"
	"github.com/mmeshcher/tableside/internal/pending"
	"github.com/mmeshcher/tableside/internal/repository"
	"github.com/mmeshcher/tableside/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, creds backend.Credentials) (string, *apiclient.Session, error)
	Logout(ctx context.Context, sessionID string) error
	Status() board.Status
	Tables() []model.TableView
	OrderLink(tableID string) (string, error)
	ActiveOrders() []model.Order
	OrderHistory(ctx context.Context, sess *apiclient.Session) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, id string, status model.OrderStatus) (model.Order, error)

	Bill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error)
	UpdateBill(ctx context.Context, sess *apiclient.Session, orderID string, patch model.BillPatch) (model.Bill, error)
	FinalizeBill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error)
	MarkBillPaid(ctx context.Context, sess *apiclient.Session, orderID, method string) (model.Bill, error)
	AddBillItem(ctx context.Context, sess *apiclient.Session, orderID string, item model.BillItem) (model.Bill, error)
	RemoveBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error)
	IncrementBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error)
	DecrementBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error)
	UpdateBillStatus(ctx context.Context, sess *apiclient.Session, orderID string, status model.BillStatus) (model.Bill, error)
	BillPreview(ctx context.Context, sess *apiclient.Session, orderID string) (model.BillTotals, error)
	BillUPI(ctx context.Context, sess *apiclient.Session, orderID string) (service.UPIPayment, error)

	Menu(ctx context.Context, sess *apiclient.Session) (*model.Menu, error)
	SaveMenuItem(ctx context.Context, sess *apiclient.Session, item model.MenuItem) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, sess *apiclient.Session, id string) error
	SaveCategory(ctx context.Context, sess *apiclient.Session, c model.Category) (*model.Category, error)
	DeleteCategory(ctx context.Context, sess *apiclient.Session, id string) error
	Staff(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error)

	Cart(ctx context.Context, id string) (*model.Cart, error)
	SaveCart(ctx context.Context, c model.Cart) (*model.Cart, error)
	DeleteCart(ctx context.Context, id string) error
	Checkout(ctx context.Context, cartID string) (model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса tableside.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	loginLimiter   *middleware.RateLimiter
	hub            *hub.Hub
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter, h *hub.Hub) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		loginLimiter:   limiter,
		hub:            h,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError переводит ошибку сервиса в HTTP-статус.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *service.ValidationError
		apiErr *apiclient.APIError
	)

	switch {
	case errors.Is(err, pending.ErrAlreadyPending):
		writeErrorMessage(w, http.StatusConflict, "operation in progress")
	case errors.As(err, &verr), errors.Is(err, billing.ErrItemIndex):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrNotEditable):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, board.ErrOrderNotFound),
		errors.Is(err, billing.ErrNoBill),
		errors.Is(err, service.ErrTableNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		writeErrorMessage(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, payment.ErrInvalidAmount):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &apiErr):
		writeErrorMessage(w, apiStatus(apiErr.Kind), apiErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorMessage(w, http.StatusGatewayTimeout, "backend timeout")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func apiStatus(k apiclient.Kind) int {
	switch k {
	case apiclient.KindConflict:
		return http.StatusConflict
	case apiclient.KindUnauthorized:
		return http.StatusUnauthorized
	case apiclient.KindNotFound:
		return http.StatusNotFound
	case apiclient.KindValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func session(r *http.Request) *apiclient.Session {
	sess, _ := middleware.SessionFromContext(r.Context())
	return sess
}

// Login выполняет вход на бэкенде и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds backend.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	id, sess, err := h.service.Login(r.Context(), creds)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && (apiErr.Kind == apiclient.KindUnauthorized || apiErr.Kind == apiclient.KindValidation) {
			writeErrorMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, id)
	writeJSON(w, http.StatusOK, map[string]any{"role": sess.Role, "expiresAt": sess.ExpiresAt})
}

// Logout удаляет сессию и cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := middleware.SessionIDFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), id); err != nil {
			h.logger.Warn("logout", zap.Error(err))
		}
	}
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Status возвращает баннерную ошибку, выполняющиеся операции и время последнего опроса.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// Tables возвращает столы с занятостью.
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Tables())
}

// OrderLink возвращает ссылку на страницу заказа для стола.
func (h *Handler) OrderLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.OrderLink(urlParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

type orderView struct {
	model.Order
	Next []model.OrderStatus `json:"next"`
}

func orderViews(orders []model.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{Order: o, Next: o.Status.Transitions()})
	}
	return out
}

// ActiveOrders возвращает заказы в работе с доступными переходами.
func (h *Handler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, orderViews(h.service.ActiveOrders()))
}

// OrderHistory возвращает завершённые заказы.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OrderHistory(r.Context(), session(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderViews(orders))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus запрашивает перевод заказа в новый статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeErrorMessage(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), session(r), urlParam(r, "id"), model.OrderStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, Next: o.Status.Transitions()})
}

// Staff возвращает персонал для назначения на заказ.
func (h *Handler) Staff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.Staff(r.Context(), session(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// WS подключает экран персонала к рассылке изменений доски.
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	role := ""
	if sess := session(r); sess != nil {
		role = sess.Role
	}
	h.hub.ServeWS(w, r, role)
}
