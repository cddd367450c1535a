package board

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/pending"
)

type stubBackend struct {
	mu       sync.Mutex
	tables   []model.Table
	orders   []model.Order
	bills    []model.Bill
	history  []model.Order
	fetchErr error

	updateCalls atomic.Int32
	update      func(prev model.Order, status model.OrderStatus) (model.Order, error)
}

func (s *stubBackend) Tables(ctx context.Context, sess *apiclient.Session) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables, s.fetchErr
}

func (s *stubBackend) ActiveOrders(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, len(s.orders))
	copy(out, s.orders)
	return out, s.fetchErr
}

func (s *stubBackend) OrderHistory(ctx context.Context, sess *apiclient.Session) ([]model.Order, error) {
	return s.history, nil
}

func (s *stubBackend) ActiveBills(ctx context.Context, sess *apiclient.Session) ([]model.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bills, s.fetchErr
}

func (s *stubBackend) UpdateOrderStatus(ctx context.Context, sess *apiclient.Session, prev model.Order, status model.OrderStatus) (model.Order, error) {
	s.updateCalls.Add(1)
	return s.update(prev, status)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Notify(ctx context.Context, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func newTestBoard(api *stubBackend, notifiers ...Notifier) *Board {
	b := New(api, pending.NewTracker(time.Millisecond, zap.NewNop()), zap.NewNop(), Intervals{}, 2, notifiers...)
	b.SetSession(apiclient.NewSession(apiclient.RoleStaff, "tok"))
	return b
}

func TestRefresh_MergesOccupancy(t *testing.T) {
	api := &stubBackend{
		tables: []model.Table{
			{ID: "T1", Number: "1", Active: true},
			{ID: "T2", Number: "2", Active: true},
		},
		orders: []model.Order{{ID: "O1", TableNumber: "2", Status: model.OrderStatusPreparing}},
		bills:  []model.Bill{{ID: "B1", OrderID: "O1", Total: 250}},
	}
	rec := &recorder{}
	b := newTestBoard(api, rec)

	require.NoError(t, b.Refresh(context.Background()))

	views := b.Tables()
	require.Len(t, views, 2)
	assert.False(t, views[0].Occupied)
	assert.True(t, views[1].Occupied)
	require.Len(t, views[1].Orders, 1)
	assert.Equal(t, "B1", views[1].Orders[0].BillID)

	bill, ok := b.Bill("O1")
	require.True(t, ok)
	assert.Equal(t, "B1", bill.ID)
	assert.True(t, rec.has(EventTables))
}

func TestApplyOrder_DropsStaleVersion(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusReady, Version: 5}},
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	applied := b.ApplyOrder(context.Background(), model.Order{ID: "O1", Status: model.OrderStatusPreparing, Version: 4})
	assert.False(t, applied)

	o, ok := b.Order("O1")
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusReady, o.Status)

	applied = b.ApplyOrder(context.Background(), model.Order{ID: "O1", Status: model.OrderStatusServed, Version: 6})
	assert.True(t, applied)
	o, _ = b.Order("O1")
	assert.Equal(t, model.OrderStatusServed, o.Status)
}

func TestApplyOrder_RemovesInactive(t *testing.T) {
	api := &stubBackend{
		tables: []model.Table{{ID: "T1", Number: "1", Active: true}},
		orders: []model.Order{{ID: "O1", TableID: "T1", Status: model.OrderStatusServed, Version: 1}},
	}
	b := newTestBoard(api)
	require.NoError(t, b.Refresh(context.Background()))
	require.True(t, b.Tables()[0].Occupied)

	b.ApplyOrder(context.Background(), model.Order{ID: "O1", TableID: "T1", Status: model.OrderStatusDone, Version: 2})

	_, ok := b.Order("O1")
	assert.False(t, ok)
	assert.False(t, b.Tables()[0].Occupied)
}

func TestApplyBill_UpdatesOrder(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusServed, Amount: 100}},
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	b.ApplyBill(context.Background(), model.Bill{ID: "B9", OrderID: "O1", Total: 118, PaymentStatus: model.PaymentStatusPaid})

	o, ok := b.Order("O1")
	require.True(t, ok)
	assert.Equal(t, "B9", o.BillID)
	assert.Equal(t, 118.0, o.Amount)
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
}

func TestRefreshOrders_LatePollKeepsNewerOrder(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusPlaced, Version: 1}},
	}
	api.update = func(prev model.Order, status model.OrderStatus) (model.Order, error) {
		prev.Status = status
		prev.Version++
		return prev, nil
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	_, err := b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusAccepted)
	require.NoError(t, err)

	// стаб по-прежнему отдаёт версию 1, как опрос, начатый до изменения
	require.NoError(t, b.RefreshOrders(context.Background()))

	o, ok := b.Order("O1")
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusAccepted, o.Status)
	assert.EqualValues(t, 2, o.Version)

	api.mu.Lock()
	api.orders[0] = model.Order{ID: "O1", Status: model.OrderStatusPreparing, Version: 3}
	api.mu.Unlock()
	require.NoError(t, b.RefreshOrders(context.Background()))
	o, _ = b.Order("O1")
	assert.Equal(t, model.OrderStatusPreparing, o.Status)
}

func TestRefreshOrders_LatePollDoesNotRestoreRetiredOrder(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusServed, Version: 4}},
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	b.ApplyOrder(context.Background(), model.Order{ID: "O1", Status: model.OrderStatusDone, Version: 5})
	require.NoError(t, b.RefreshOrders(context.Background()))

	_, ok := b.Order("O1")
	assert.False(t, ok)
}

func TestRefreshBills_KeepsNewerBill(t *testing.T) {
	api := &stubBackend{
		bills: []model.Bill{{ID: "B1", OrderID: "O1", Total: 100, Version: 1}},
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshBills(context.Background()))

	b.ApplyBill(context.Background(), model.Bill{ID: "B1", OrderID: "O1", Total: 150, Version: 2})
	require.NoError(t, b.RefreshBills(context.Background()))

	bill, ok := b.Bill("O1")
	require.True(t, ok)
	assert.Equal(t, 150.0, bill.Total)

	b.ApplyBill(context.Background(), model.Bill{ID: "B1", OrderID: "O1", Total: 90, Version: 1})
	bill, _ = b.Bill("O1")
	assert.Equal(t, 150.0, bill.Total)
}

func TestUpdateOrderStatus_SuccessClearsGlobalError(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusPlaced, Version: 1}},
	}
	fail := true
	api.update = func(prev model.Order, status model.OrderStatus) (model.Order, error) {
		if fail {
			return model.Order{}, &apiclient.APIError{Status: 500, Kind: apiclient.KindServer, Message: "boom"}
		}
		prev.Status = status
		prev.Version++
		return prev, nil
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	_, err := b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusAccepted)
	require.Error(t, err)
	assert.NotEmpty(t, b.Status().GlobalError)

	fail = false
	_, err = b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusAccepted)
	require.NoError(t, err)
	assert.Empty(t, b.Status().GlobalError)
}

func TestUpdateOrderStatus_RetriesOnConflict(t *testing.T) {
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusAccepted, Version: 1}},
	}
	api.update = func(prev model.Order, status model.OrderStatus) (model.Order, error) {
		if prev.Version < 2 {
			api.mu.Lock()
			api.orders[0].Version = 2
			api.mu.Unlock()
			return model.Order{}, &apiclient.APIError{Status: 409, Kind: apiclient.KindConflict, Message: "version mismatch"}
		}
		next := prev
		next.Status = status
		next.Version = prev.Version + 1
		return next, nil
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	o, err := b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, o.Status)
	assert.EqualValues(t, 3, o.Version)
	assert.EqualValues(t, 2, api.updateCalls.Load())
	assert.Empty(t, b.Status().Pending)
}

func TestUpdateOrderStatus_RejectsWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	api := &stubBackend{
		orders: []model.Order{{ID: "O1", Status: model.OrderStatusAccepted, Version: 1}},
	}
	api.update = func(prev model.Order, status model.OrderStatus) (model.Order, error) {
		close(started)
		<-release
		prev.Status = status
		prev.Version++
		return prev, nil
	}
	b := newTestBoard(api)
	require.NoError(t, b.RefreshOrders(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusPreparing)
		done <- err
	}()
	<-started

	_, err := b.UpdateOrderStatus(context.Background(), nil, "O1", model.OrderStatusPreparing)
	assert.ErrorIs(t, err, pending.ErrAlreadyPending)
	assert.Equal(t, []string{"order:O1"}, b.Status().Pending)

	close(release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, api.updateCalls.Load())
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	b := newTestBoard(&stubBackend{})
	_, err := b.UpdateOrderStatus(context.Background(), nil, "nope", model.OrderStatusAccepted)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NotEmpty(t, b.Status().GlobalError)
}

func TestPoll_RecordsAndClearsError(t *testing.T) {
	api := &stubBackend{fetchErr: assert.AnError}
	b := newTestBoard(api)

	b.poll(context.Background(), "tables", b.RefreshTables)
	assert.Contains(t, b.Status().PollError, "refresh tables")

	api.mu.Lock()
	api.fetchErr = nil
	api.mu.Unlock()
	b.poll(context.Background(), "tables", b.RefreshTables)
	assert.Empty(t, b.Status().PollError)
}

func TestPoll_SkipsWithoutSession(t *testing.T) {
	api := &stubBackend{fetchErr: assert.AnError}
	b := New(api, pending.NewTracker(time.Millisecond, zap.NewNop()), zap.NewNop(), Intervals{}, 0)

	b.poll(context.Background(), "tables", b.RefreshTables)
	assert.Empty(t, b.Status().PollError)
}

func TestRun_StopsOnCancel(t *testing.T) {
	api := &stubBackend{tables: []model.Table{{ID: "T1", Number: "1", Active: true}}}
	b := New(api, pending.NewTracker(time.Millisecond, zap.NewNop()), zap.NewNop(),
		Intervals{Tables: 5 * time.Millisecond, Orders: 5 * time.Millisecond, Bills: 5 * time.Millisecond}, 0)
	b.SetSession(apiclient.NewSession(apiclient.RoleStaff, "tok"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(b.Tables()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestAdoptSession(t *testing.T) {
	b := New(&stubBackend{}, pending.NewTracker(time.Millisecond, zap.NewNop()), zap.NewNop(), Intervals{}, 0)

	assert.True(t, b.AdoptSession(apiclient.NewSession(apiclient.RoleStaff, "first")))
	assert.False(t, b.AdoptSession(apiclient.NewSession(apiclient.RoleStaff, "second")))
	assert.Equal(t, "first", b.session().Token)
}
