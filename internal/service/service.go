// Package service связывает доску, счета, корзины и сессии персонала в операции,
// которые вызывают HTTP-обработчики.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/backend"
	"github.com/mmeshcher/tableside/internal/billing"
	"github.com/mmeshcher/tableside/internal/board"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/payment"
	"github.com/mmeshcher/tableside/internal/validation"
)

var (
	// ErrInvalidRole возвращается для роли, отличной от admin и staff.
	ErrInvalidRole = errors.New("role must be admin or staff")
	// ErrInvalidCredentials возвращается, если данные входа заведомо неполны.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidStatus возвращается для неизвестного статуса заказа.
	ErrInvalidStatus = errors.New("unknown order status")
	// ErrTableNotFound возвращается, если стола нет на доске.
	ErrTableNotFound = errors.New("table not found")
)

// ValidationError оборачивает ошибку входных данных.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetCart(ctx context.Context, id string) (*model.Cart, error)
	SaveCart(ctx context.Context, c model.Cart) (*model.Cart, error)
	DeleteCart(ctx context.Context, id string) error
	SaveSession(ctx context.Context, id string, s *apiclient.Session) error
	GetSession(ctx context.Context, id string) (*apiclient.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Backend описывает ресурсы бэкенда, которые сервис проксирует без сведения.
type Backend interface {
	Login(ctx context.Context, creds backend.Credentials) (*apiclient.Session, error)
	Menu(ctx context.Context, sess *apiclient.Session) (*model.Menu, error)
	SaveMenuItem(ctx context.Context, sess *apiclient.Session, item model.MenuItem) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, sess *apiclient.Session, id string) error
	SaveCategory(ctx context.Context, sess *apiclient.Session, c model.Category) (*model.Category, error)
	DeleteCategory(ctx context.Context, sess *apiclient.Session, id string) error
	Staff(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error)
	Waiters(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error)
	PlaceOrder(ctx context.Context, sess *apiclient.Session, o backend.NewOrder) (model.Order, error)
}

// Options содержит параметры ссылок оплаты и заказа.
type Options struct {
	UPI            payment.UPI
	PlaceOrderLink string
}

// Service содержит операции сервиса tableside.
type Service struct {
	repo    Repository
	api     Backend
	board   *board.Board
	billing *billing.Service
	opts    Options
	logger  *zap.Logger
}

// NewService создаёт новый сервис.
func NewService(repo Repository, api Backend, b *board.Board, bills *billing.Service, opts Options, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		api:     api,
		board:   b,
		billing: bills,
		opts:    opts,
		logger:  logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Login выполняет вход на бэкенде и сохраняет сессию. Возвращает идентификатор сессии для cookie.
func (s *Service) Login(ctx context.Context, creds backend.Credentials) (string, *apiclient.Session, error) {
	switch creds.Role {
	case apiclient.RoleStaff:
		if !validation.IsValidPIN(creds.PIN) {
			return "", nil, invalid(ErrInvalidCredentials)
		}
	case apiclient.RoleAdmin:
		if creds.Username == "" || creds.Password == "" {
			return "", nil, invalid(ErrInvalidCredentials)
		}
	default:
		return "", nil, invalid(ErrInvalidRole)
	}

	sess, err := s.api.Login(ctx, creds)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()
	if err := s.repo.SaveSession(ctx, id, sess); err != nil {
		return "", nil, err
	}
	if s.board.AdoptSession(sess) {
		s.logger.Info("board polling uses new session", zap.String("role", sess.Role))
	}
	return id, sess, nil
}

// Logout удаляет сессию.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}

// Status возвращает состояние доски.
func (s *Service) Status() board.Status {
	return s.board.Status()
}

// Tables возвращает столы с занятостью.
func (s *Service) Tables() []model.TableView {
	return s.board.Tables()
}

// OrderLink возвращает ссылку на страницу заказа для стола.
func (s *Service) OrderLink(tableID string) (string, error) {
	for _, v := range s.board.Tables() {
		if v.ID == tableID || v.Number == tableID {
			return payment.PlaceOrderLink(s.opts.PlaceOrderLink, v.Number)
		}
	}
	return "", ErrTableNotFound
}

// ActiveOrders возвращает заказы в работе.
func (s *Service) ActiveOrders() []model.Order {
	return s.board.Orders()
}

// OrderHistory возвращает завершённые заказы.
func (s *Service) OrderHistory(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	return s.board.History(ctx, sess)
}

// UpdateOrderStatus запрашивает перевод заказа в статус status.
func (s *Service) UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, id string, status model.OrderStatus) (model.Order, error) {
	if !status.Known() {
		return model.Order{}, invalid(fmt.Errorf("%w: %q", ErrInvalidStatus, status))
	}
	return s.board.UpdateOrderStatus(ctx, sess, id, status)
}

// Bill возвращает канонический счёт заказа.
func (s *Service) Bill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error) {
	return s.billing.Fetch(ctx, sess, orderID)
}

// UpdateBill применяет изменения к черновику счёта.
func (s *Service) UpdateBill(ctx context.Context, sess *apiclient.Session, orderID string, patch model.BillPatch) (model.Bill, error) {
	if patch.DiscountPercent != nil && (*patch.DiscountPercent < 0 || *patch.DiscountPercent > 100) {
		return model.Bill{}, invalid(errors.New("discount percent must be between 0 and 100"))
	}
	if patch.ServiceChargePercent != nil && (*patch.ServiceChargePercent < 0 || *patch.ServiceChargePercent > 100) {
		return model.Bill{}, invalid(errors.New("service charge percent must be between 0 and 100"))
	}
	if patch.Extras != nil {
		for _, e := range *patch.Extras {
			if e.Amount < 0 {
				return model.Bill{}, invalid(errors.New("extras must not be negative"))
			}
		}
	}
	return s.billing.UpdateDraft(ctx, sess, orderID, patch)
}

// FinalizeBill закрывает счёт для изменений.
func (s *Service) FinalizeBill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error) {
	return s.billing.Finalize(ctx, sess, orderID)
}

// MarkBillPaid отмечает счёт оплаченным.
func (s *Service) MarkBillPaid(ctx context.Context, sess *apiclient.Session, orderID, method string) (model.Bill, error) {
	if method == "" {
		method = "cash"
	}
	return s.billing.MarkPaid(ctx, sess, orderID, method)
}

// AddBillItem добавляет позицию в счёт.
func (s *Service) AddBillItem(ctx context.Context, sess *apiclient.Session, orderID string, item model.BillItem) (model.Bill, error) {
	if item.Name == "" || item.Price < 0 || item.Qty < 0 {
		return model.Bill{}, invalid(errors.New("item needs a name and non-negative price and quantity"))
	}
	return s.billing.AddItem(ctx, sess, orderID, item)
}

// RemoveBillItem удаляет позицию счёта.
func (s *Service) RemoveBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.billing.RemoveItem(ctx, sess, orderID, idx)
}

// IncrementBillItem увеличивает количество позиции.
func (s *Service) IncrementBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.billing.IncrementItem(ctx, sess, orderID, idx)
}

// DecrementBillItem уменьшает количество позиции.
func (s *Service) DecrementBillItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.billing.DecrementItem(ctx, sess, orderID, idx)
}

// UpdateBillStatus запрашивает смену статуса счёта.
func (s *Service) UpdateBillStatus(ctx context.Context, sess *apiclient.Session, orderID string, status model.BillStatus) (model.Bill, error) {
	switch status {
	case model.BillStatusDraft, model.BillStatusFinalized, model.BillStatusPaid:
	default:
		return model.Bill{}, invalid(fmt.Errorf("unknown bill status %q", status))
	}
	return s.billing.UpdateStatus(ctx, sess, orderID, status)
}

// BillPreview пересчитывает суммы счёта.
func (s *Service) BillPreview(ctx context.Context, sess *apiclient.Session, orderID string) (model.BillTotals, error) {
	return s.billing.Preview(ctx, sess, orderID)
}

// UPIPayment описывает ссылку на оплату счёта.
type UPIPayment struct {
	Link   string          `json:"link"`
	Amount decimal.Decimal `json:"amount"`
	BillID string          `json:"billId"`
}

// BillUPI перечитывает счёт и строит ссылку UPI на его сумму. Используется итог
// бэкенда, а если его нет, предварительный расчёт.
func (s *Service) BillUPI(ctx context.Context, sess *apiclient.Session, orderID string) (UPIPayment, error) {
	b, err := s.billing.Fetch(ctx, sess, orderID)
	if err != nil {
		return UPIPayment{}, err
	}

	amount := decimal.NewFromFloat(b.Total).Round(2)
	if !amount.IsPositive() {
		amount = b.Preview().Total
	}

	note := "Bill " + b.ID
	if o, ok := s.board.Order(orderID); ok && o.TableNumber != "" {
		note = "Table " + o.TableNumber
	}

	link, err := s.opts.UPI.Link(amount, note)
	if err != nil {
		return UPIPayment{}, err
	}
	return UPIPayment{Link: link, Amount: amount, BillID: b.ID}, nil
}

// Menu возвращает меню. Без сессии возвращается публичное меню.
func (s *Service) Menu(ctx context.Context, sess *apiclient.Session) (*model.Menu, error) {
	return s.api.Menu(ctx, sess)
}

// SaveMenuItem создаёт или изменяет позицию меню.
func (s *Service) SaveMenuItem(ctx context.Context, sess *apiclient.Session, item model.MenuItem) (*model.MenuItem, error) {
	if item.Name == "" || item.Price < 0 {
		return nil, invalid(errors.New("menu item needs a name and non-negative price"))
	}
	return s.api.SaveMenuItem(ctx, sess, item)
}

// DeleteMenuItem удаляет позицию меню.
func (s *Service) DeleteMenuItem(ctx context.Context, sess *apiclient.Session, id string) error {
	return s.api.DeleteMenuItem(ctx, sess, id)
}

// SaveCategory создаёт или изменяет категорию меню.
func (s *Service) SaveCategory(ctx context.Context, sess *apiclient.Session, c model.Category) (*model.Category, error) {
	if c.Name == "" {
		return nil, invalid(errors.New("category needs a name"))
	}
	return s.api.SaveCategory(ctx, sess, c)
}

// DeleteCategory удаляет категорию меню.
func (s *Service) DeleteCategory(ctx context.Context, sess *apiclient.Session, id string) error {
	return s.api.DeleteCategory(ctx, sess, id)
}

// Staff возвращает персонал: администратору полный список, официанту список официантов.
func (s *Service) Staff(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error) {
	if sess != nil && sess.Role == apiclient.RoleAdmin {
		return s.api.Staff(ctx, sess)
	}
	return s.api.Waiters(ctx, sess)
}

// Cart возвращает корзину посетителя.
func (s *Service) Cart(ctx context.Context, id string) (*model.Cart, error) {
	return s.repo.GetCart(ctx, id)
}

// SaveCart сохраняет корзину посетителя.
func (s *Service) SaveCart(ctx context.Context, c model.Cart) (*model.Cart, error) {
	if err := validation.ValidateCart(c); err != nil {
		return nil, invalid(err)
	}
	return s.repo.SaveCart(ctx, c)
}

// DeleteCart удаляет корзину посетителя.
func (s *Service) DeleteCart(ctx context.Context, id string) error {
	return s.repo.DeleteCart(ctx, id)
}

// Checkout оформляет корзину в заказ и очищает её. Заказ сразу появляется на доске.
func (s *Service) Checkout(ctx context.Context, cartID string) (model.Order, error) {
	c, err := s.repo.GetCart(ctx, cartID)
	if err != nil {
		return model.Order{}, err
	}
	if err := validation.ValidateCheckout(*c); err != nil {
		return model.Order{}, invalid(err)
	}

	o, err := s.api.PlaceOrder(ctx, nil, backend.NewOrder{
		TableNumber: c.TableNumber,
		Items:       c.OrderItems(),
	})
	if err != nil {
		return model.Order{}, err
	}

	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		s.logger.Warn("cart not cleared after checkout", zap.String("cart", cartID), zap.Error(err))
	}
	if o.ID != "" {
		s.board.ApplyOrder(ctx, o)
	}
	return o, nil
}
