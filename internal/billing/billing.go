// Package billing изменяет счёт выбранного заказа через бэкенд. Показываемая версия
// счёта хранится на доске вместе с заказами и обновляется как её опросом, так и
// каждым ответом бэкенда на изменение.
package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/pending"
)

var (
	// ErrNoBill возвращается, если у заказа нет счёта.
	ErrNoBill = errors.New("order has no bill")
	// ErrItemIndex возвращается при обращении к несуществующей строке счёта.
	ErrItemIndex = errors.New("bill item index out of range")
	// ErrNotEditable возвращается при попытке изменить позиции закрытого счёта.
	ErrNotEditable = errors.New("bill is not editable")
)

// Backend описывает эндпоинты счетов.
type Backend interface {
	OrderBill(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error)
	Bill(ctx context.Context, sess *apiclient.Session, id string, prev *model.Bill) (model.Bill, error)
	PatchBill(ctx context.Context, sess *apiclient.Session, id string, patch model.BillPatch, prev *model.Bill) (model.Bill, error)
	FinalizeBill(ctx context.Context, sess *apiclient.Session, prev model.Bill) (model.Bill, error)
	MarkBillPaid(ctx context.Context, sess *apiclient.Session, prev model.Bill, method string) (model.Bill, error)
}

// Orders даёт доступ к заказам и счетам доски. ApplyBill не должен заменять
// хранимый счёт более старой версией.
type Orders interface {
	Order(id string) (model.Order, bool)
	Bill(orderID string) (model.Bill, bool)
	ApplyBill(ctx context.Context, bill model.Bill)
}

// Service выполняет операции над счетами заказов.
type Service struct {
	api     Backend
	orders  Orders
	tracker *pending.Tracker
	logger  *zap.Logger
	retries int
}

// New создаёт сервис счетов.
func New(api Backend, orders Orders, tracker *pending.Tracker, logger *zap.Logger, retries int) *Service {
	return &Service{
		api:     api,
		orders:  orders,
		tracker: tracker,
		logger:  logger,
		retries: retries,
	}
}

// Current возвращает показываемый счёт заказа без обращения к бэкенду.
func (s *Service) Current(orderID string) (model.Bill, bool) {
	return s.orders.Bill(orderID)
}

func (s *Service) store(ctx context.Context, orderID string, b model.Bill) {
	if b.OrderID == "" {
		b.OrderID = orderID
	}
	s.orders.ApplyBill(ctx, b)
}

// billID находит идентификатор счёта заказа: из показываемого счёта, затем из заказа.
func (s *Service) billID(orderID string) (string, *model.Bill) {
	if b, ok := s.Current(orderID); ok && b.ID != "" {
		return b.ID, &b
	}
	if o, ok := s.orders.Order(orderID); ok && o.BillID != "" {
		return o.BillID, nil
	}
	return "", nil
}

// Fetch получает канонический счёт заказа. Если идентификатор счёта неизвестен,
// бэкенд возвращает или создаёт его по заказу.
func (s *Service) Fetch(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error) {
	var (
		b   model.Bill
		err error
	)
	if id, prev := s.billID(orderID); id != "" {
		b, err = s.api.Bill(ctx, sess, id, prev)
	} else {
		b, err = s.api.OrderBill(ctx, sess, orderID)
	}
	if err != nil {
		return model.Bill{}, err
	}
	if b.ID == "" {
		return model.Bill{}, ErrNoBill
	}

	s.store(ctx, orderID, b)
	return b, nil
}

type mutation func(ctx context.Context, cur model.Bill) (model.Bill, error)

// mutate перечитывает счёт и выполняет изменение под пометкой его идентификатора.
// При конфликте версий счёт перечитывается, и изменение строится заново от свежей версии.
func (s *Service) mutate(ctx context.Context, sess *apiclient.Session, orderID string, fn mutation) (model.Bill, error) {
	cur, err := s.Fetch(ctx, sess, orderID)
	if err != nil {
		return model.Bill{}, err
	}

	var next model.Bill
	err = s.tracker.Run(ctx, "bill:"+cur.ID, s.retries, func(ctx context.Context) error {
		b, err := fn(ctx, cur)
		if err != nil {
			if apiclient.IsConflict(err) {
				if fresh, ferr := s.api.Bill(ctx, sess, cur.ID, &cur); ferr == nil {
					cur = fresh
				} else {
					s.logger.Warn("refetch bill after conflict", zap.String("bill", cur.ID), zap.Error(ferr))
				}
			}
			return err
		}
		next = b
		return nil
	})
	if err != nil {
		return model.Bill{}, fmt.Errorf("bill %s: %w", cur.ID, err)
	}

	s.store(ctx, orderID, next)
	return next, nil
}

func (s *Service) patch(ctx context.Context, sess *apiclient.Session, cur model.Bill, patch model.BillPatch) (model.Bill, error) {
	patch.Version = cur.Version
	patched, err := s.api.PatchBill(ctx, sess, cur.ID, patch, &cur)
	if err != nil {
		return model.Bill{}, err
	}
	canonical, err := s.api.Bill(ctx, sess, cur.ID, &patched)
	if err != nil {
		s.logger.Warn("refetch bill after patch", zap.String("bill", cur.ID), zap.Error(err))
		return patched, nil
	}
	return canonical, nil
}

// UpdateDraft применяет изменения к черновику счёта.
func (s *Service) UpdateDraft(ctx context.Context, sess *apiclient.Session, orderID string, patch model.BillPatch) (model.Bill, error) {
	return s.mutate(ctx, sess, orderID, func(ctx context.Context, cur model.Bill) (model.Bill, error) {
		return s.patch(ctx, sess, cur, patch)
	})
}

// UpdateStatus запрашивает смену статуса счёта.
func (s *Service) UpdateStatus(ctx context.Context, sess *apiclient.Session, orderID string, status model.BillStatus) (model.Bill, error) {
	return s.mutate(ctx, sess, orderID, func(ctx context.Context, cur model.Bill) (model.Bill, error) {
		return s.patch(ctx, sess, cur, model.BillPatch{Status: &status})
	})
}

// Finalize закрывает счёт для изменений.
func (s *Service) Finalize(ctx context.Context, sess *apiclient.Session, orderID string) (model.Bill, error) {
	return s.mutate(ctx, sess, orderID, func(ctx context.Context, cur model.Bill) (model.Bill, error) {
		return s.api.FinalizeBill(ctx, sess, cur)
	})
}

// MarkPaid отмечает счёт оплаченным способом method.
func (s *Service) MarkPaid(ctx context.Context, sess *apiclient.Session, orderID, method string) (model.Bill, error) {
	return s.mutate(ctx, sess, orderID, func(ctx context.Context, cur model.Bill) (model.Bill, error) {
		return s.api.MarkBillPaid(ctx, sess, cur, method)
	})
}

// editItems строит новый список позиций от текущего счёта и отправляет его.
func (s *Service) editItems(ctx context.Context, sess *apiclient.Session, orderID string, edit func([]model.BillItem) ([]model.BillItem, error)) (model.Bill, error) {
	return s.mutate(ctx, sess, orderID, func(ctx context.Context, cur model.Bill) (model.Bill, error) {
		if !cur.Status.Editable() {
			return model.Bill{}, ErrNotEditable
		}
		items := make([]model.BillItem, len(cur.Items))
		copy(items, cur.Items)

		items, err := edit(items)
		if err != nil {
			return model.Bill{}, err
		}
		return s.patch(ctx, sess, cur, model.BillPatch{Items: &items})
	})
}

// IncrementItem увеличивает количество позиции idx на единицу.
func (s *Service) IncrementItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.editItems(ctx, sess, orderID, func(items []model.BillItem) ([]model.BillItem, error) {
		if idx < 0 || idx >= len(items) {
			return nil, ErrItemIndex
		}
		items[idx].Qty++
		return items, nil
	})
}

// DecrementItem уменьшает количество позиции idx. Позиция с единственной порцией удаляется.
func (s *Service) DecrementItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.editItems(ctx, sess, orderID, func(items []model.BillItem) ([]model.BillItem, error) {
		if idx < 0 || idx >= len(items) {
			return nil, ErrItemIndex
		}
		if items[idx].Qty <= 1 {
			return append(items[:idx], items[idx+1:]...), nil
		}
		items[idx].Qty--
		return items, nil
	})
}

// AddItem добавляет позицию в счёт.
func (s *Service) AddItem(ctx context.Context, sess *apiclient.Session, orderID string, item model.BillItem) (model.Bill, error) {
	if item.Qty <= 0 {
		item.Qty = 1
	}
	return s.editItems(ctx, sess, orderID, func(items []model.BillItem) ([]model.BillItem, error) {
		return append(items, item), nil
	})
}

// RemoveItem удаляет позицию idx.
func (s *Service) RemoveItem(ctx context.Context, sess *apiclient.Session, orderID string, idx int) (model.Bill, error) {
	return s.editItems(ctx, sess, orderID, func(items []model.BillItem) ([]model.BillItem, error) {
		if idx < 0 || idx >= len(items) {
			return nil, ErrItemIndex
		}
		return append(items[:idx], items[idx+1:]...), nil
	})
}

// Preview перечитывает счёт и пересчитывает его суммы.
func (s *Service) Preview(ctx context.Context, sess *apiclient.Session, orderID string) (model.BillTotals, error) {
	b, err := s.Fetch(ctx, sess, orderID)
	if err != nil {
		return model.BillTotals{}, err
	}
	return b.Preview(), nil
}
