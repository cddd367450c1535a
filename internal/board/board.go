// Package board держит сведённое состояние зала: столы, активные заказы и счета,
// периодически обновляя его с бэкенда.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/pending"
	"github.com/mmeshcher/tableside/internal/reconcile"
)

// ErrOrderNotFound возвращается, если заказа нет среди активных.
var ErrOrderNotFound = errors.New("order not found")

// События, которые рассылает доска.
const (
	EventTables = "tables_update"
	EventOrder  = "order_update"
	EventBill   = "bill_update"
)

// Backend описывает ресурсы бэкенда, которые использует доска.
type Backend interface {
	Tables(ctx context.Context, sess *apiclient.Session) ([]model.Table, error)
	ActiveOrders(ctx context.Context, sess *apiclient.Session) ([]model.Order, error)
	OrderHistory(ctx context.Context, sess *apiclient.Session) ([]model.Order, error)
	ActiveBills(ctx context.Context, sess *apiclient.Session) ([]model.Bill, error)
	UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, prev model.Order, status model.OrderStatus) (model.Order, error)
}

// Notifier получает изменения доски для рассылки подписчикам.
type Notifier interface {
	Notify(ctx context.Context, event string, data any)
}

// Intervals задаёт периоды опроса ресурсов.
type Intervals struct {
	Tables time.Duration
	Orders time.Duration
	Bills  time.Duration
}

// Status описывает состояние доски для баннера.
type Status struct {
	GlobalError string    `json:"globalError,omitempty"`
	PollError   string    `json:"pollError,omitempty"`
	Pending     []string  `json:"pending"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// Board хранит столы, активные заказы и счета и пересчитывает занятость после
// каждого опроса и каждого локального изменения.
type Board struct {
	api       Backend
	tracker   *pending.Tracker
	notifiers []Notifier
	logger    *zap.Logger
	intervals Intervals
	retries   int

	mu          sync.RWMutex
	sess        *apiclient.Session
	tables      []model.Table
	orders      []model.Order
	bills       map[string]model.Bill
	retired     map[string]int64
	views       []model.TableView
	pollErr     string
	refreshedAt time.Time
}

// New создаёт доску. retries задаёт число повторов при конфликте версий.
func New(api Backend, tracker *pending.Tracker, logger *zap.Logger, intervals Intervals, retries int, notifiers ...Notifier) *Board {
	if intervals.Tables <= 0 {
		intervals.Tables = 30 * time.Second
	}
	if intervals.Orders <= 0 {
		intervals.Orders = 15 * time.Second
	}
	if intervals.Bills <= 0 {
		intervals.Bills = 20 * time.Second
	}
	return &Board{
		api:       api,
		tracker:   tracker,
		notifiers: notifiers,
		logger:    logger,
		intervals: intervals,
		retries:   retries,
		bills:     make(map[string]model.Bill),
		retired:   make(map[string]int64),
		views:     []model.TableView{},
	}
}

// SetSession задаёт сессию, от имени которой выполняется опрос.
func (b *Board) SetSession(sess *apiclient.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sess = sess
}

// AdoptSession задаёт сессию опроса, только если текущей нет или она истекла.
func (b *Board) AdoptSession(sess *apiclient.Session) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sess.Expired(time.Now()) {
		return false
	}
	b.sess = sess
	return true
}

func (b *Board) session() *apiclient.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sess.Expired(time.Now()) {
		return nil
	}
	return b.sess
}

// Run опрашивает бэкенд до отмены ctx.
func (b *Board) Run(ctx context.Context) {
	b.poll(ctx, "all", b.Refresh)

	tables := time.NewTicker(b.intervals.Tables)
	defer tables.Stop()
	orders := time.NewTicker(b.intervals.Orders)
	defer orders.Stop()
	bills := time.NewTicker(b.intervals.Bills)
	defer bills.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tables.C:
			b.poll(ctx, "tables", b.RefreshTables)
		case <-orders.C:
			b.poll(ctx, "orders", b.RefreshOrders)
		case <-bills.C:
			b.poll(ctx, "bills", b.RefreshBills)
		}
	}
}

func (b *Board) poll(ctx context.Context, what string, fn func(context.Context) error) {
	if b.session() == nil {
		b.logger.Debug("skip poll without session", zap.String("resource", what))
		return
	}

	err := fn(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}

	b.mu.Lock()
	if err != nil {
		b.pollErr = err.Error()
	} else {
		b.pollErr = ""
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Warn("poll failed", zap.String("resource", what), zap.Error(err))
	}
}

// Refresh обновляет столы, заказы и счета.
func (b *Board) Refresh(ctx context.Context) error {
	if err := b.RefreshTables(ctx); err != nil {
		return err
	}
	if err := b.RefreshOrders(ctx); err != nil {
		return err
	}
	return b.RefreshBills(ctx)
}

// RefreshTables перечитывает столы.
func (b *Board) RefreshTables(ctx context.Context) error {
	tables, err := b.api.Tables(ctx, b.session())
	if err != nil {
		return fmt.Errorf("refresh tables: %w", err)
	}

	b.mu.Lock()
	b.tables = tables
	b.remergeLocked()
	b.mu.Unlock()

	b.notify(ctx, EventTables, b.Tables())
	return nil
}

// RefreshOrders перечитывает активные заказы.
func (b *Board) RefreshOrders(ctx context.Context) error {
	orders, err := b.api.ActiveOrders(ctx, b.session())
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}

	b.mu.Lock()
	b.orders = b.reconcileOrdersLocked(orders)
	b.remergeLocked()
	b.refreshedAt = time.Now()
	b.mu.Unlock()

	b.notify(ctx, EventTables, b.Tables())
	return nil
}

// reconcileOrdersLocked сводит опрошенные заказы с хранимыми. Опрос мог начаться до
// локального изменения и вернуться после него, поэтому хранимый заказ более новой
// версии остаётся, а заказ, уже выведенный из работы более новым ответом, не возвращается.
func (b *Board) reconcileOrdersLocked(polled []model.Order) []model.Order {
	held := make(map[string]model.Order, len(b.orders))
	for _, o := range b.orders {
		held[o.ID] = o
	}
	seen := make(map[string]struct{}, len(polled))

	out := make([]model.Order, 0, len(polled))
	for _, o := range polled {
		seen[o.ID] = struct{}{}
		if v, ok := b.retired[o.ID]; ok && o.Version < v {
			continue
		}
		delete(b.retired, o.ID)
		if h, ok := held[o.ID]; ok && h.Version > o.Version {
			o = h
		}
		if bill, ok := b.bills[o.ID]; ok && o.BillID == "" {
			o.BillID = bill.ID
		}
		out = append(out, o)
	}
	for id := range b.retired {
		if _, ok := seen[id]; !ok {
			delete(b.retired, id)
		}
	}
	return out
}

// RefreshBills перечитывает неоплаченные счета.
func (b *Board) RefreshBills(ctx context.Context) error {
	bills, err := b.api.ActiveBills(ctx, b.session())
	if err != nil {
		return fmt.Errorf("refresh bills: %w", err)
	}

	b.mu.Lock()
	next := make(map[string]model.Bill, len(bills))
	for _, bill := range bills {
		if bill.OrderID == "" {
			continue
		}
		if h, ok := b.bills[bill.OrderID]; ok && h.ID == bill.ID && h.Version > bill.Version {
			bill = h
		}
		next[bill.OrderID] = bill
	}
	b.bills = next
	for i := range b.orders {
		if bill, ok := b.bills[b.orders[i].ID]; ok && b.orders[i].BillID == "" {
			b.orders[i].BillID = bill.ID
		}
	}
	b.remergeLocked()
	b.mu.Unlock()
	return nil
}

func (b *Board) remergeLocked() {
	b.views = reconcile.MergeOrdersIntoTables(b.tables, b.orders)
}

// Tables возвращает столы с вычисленной занятостью.
func (b *Board) Tables() []model.TableView {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.TableView, len(b.views))
	copy(out, b.views)
	return out
}

// Orders возвращает активные заказы.
func (b *Board) Orders() []model.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Order возвращает активный заказ по идентификатору.
func (b *Board) Order(id string) (model.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

// Bill возвращает закэшированный активный счёт заказа.
func (b *Board) Bill(orderID string) (model.Bill, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bill, ok := b.bills[orderID]
	return bill, ok
}

// History возвращает завершённые заказы.
func (b *Board) History(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	return b.api.OrderHistory(ctx, sess)
}

// ApplyOrder заменяет заказ ответом бэкенда. Ответ с версией ниже известной
// отбрасывается: медленный ответ на старый запрос не должен затирать новое состояние.
// Заказ, вышедший из работы, убирается из активных.
func (b *Board) ApplyOrder(ctx context.Context, o model.Order) bool {
	b.mu.Lock()
	idx := -1
	for i := range b.orders {
		if b.orders[i].ID == o.ID {
			idx = i
			break
		}
	}
	if idx >= 0 && o.Version < b.orders[idx].Version {
		b.mu.Unlock()
		b.logger.Debug("drop stale order response", zap.String("order", o.ID), zap.Int64("version", o.Version))
		return false
	}

	switch {
	case !o.Status.Active() && idx >= 0:
		b.orders = append(b.orders[:idx:idx], b.orders[idx+1:]...)
		b.retired[o.ID] = o.Version
	case !o.Status.Active():
		b.retired[o.ID] = o.Version
	case idx >= 0:
		b.orders[idx] = o
	default:
		b.orders = append(b.orders, o)
	}
	b.remergeLocked()
	b.mu.Unlock()

	b.notify(ctx, EventOrder, o)
	b.notify(ctx, EventTables, b.Tables())
	return true
}

// ApplyBill сохраняет счёт и переносит в заказ его идентификатор, сумму и статус оплаты.
// Счёт старше хранимого отбрасывается.
func (b *Board) ApplyBill(ctx context.Context, bill model.Bill) {
	b.mu.Lock()
	if h, ok := b.bills[bill.OrderID]; ok && h.ID == bill.ID && bill.Version < h.Version {
		b.mu.Unlock()
		b.logger.Debug("drop stale bill response", zap.String("bill", bill.ID), zap.Int64("version", bill.Version))
		return
	}
	if bill.OrderID != "" {
		b.bills[bill.OrderID] = bill
		for i := range b.orders {
			if b.orders[i].ID != bill.OrderID {
				continue
			}
			b.orders[i].BillID = bill.ID
			if bill.Total > 0 {
				b.orders[i].Amount = bill.Total
			}
			if bill.PaymentStatus != "" {
				b.orders[i].PaymentStatus = bill.PaymentStatus
			}
			if bill.StaffAlias != "" {
				b.orders[i].StaffAlias = bill.StaffAlias
			}
		}
		b.remergeLocked()
	}
	b.mu.Unlock()

	b.notify(ctx, EventBill, bill)
}

// UpdateOrderStatus запрашивает у бэкенда перевод заказа в статус status.
// Повторный запрос по тому же заказу, пока первый не завершился, отклоняется.
// При конфликте версий заказы перечитываются и запрос повторяется.
func (b *Board) UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, id string, status model.OrderStatus) (model.Order, error) {
	var result model.Order
	err := b.tracker.Run(ctx, "order:"+id, b.retries, func(ctx context.Context) error {
		prev, ok := b.Order(id)
		if !ok {
			return ErrOrderNotFound
		}
		next, err := b.api.UpdateOrderStatus(ctx, sess, prev, status)
		if err != nil {
			if apiclient.IsConflict(err) {
				if rerr := b.RefreshOrders(ctx); rerr != nil {
					b.logger.Warn("refresh after conflict failed", zap.Error(rerr))
				}
			}
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	b.ApplyOrder(ctx, result)
	return result, nil
}

// Status возвращает состояние доски для баннера.
func (b *Board) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		GlobalError: b.tracker.GlobalError(),
		PollError:   b.pollErr,
		Pending:     b.tracker.Pending(),
		RefreshedAt: b.refreshedAt,
	}
}

func (b *Board) notify(ctx context.Context, event string, data any) {
	for _, n := range b.notifiers {
		n.Notify(ctx, event, data)
	}
}
