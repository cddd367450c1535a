// Package pending отслеживает выполняющиеся изменения, чтобы не отправлять повторные
// запросы по тому же заказу или счёту, пока первый не завершился.
package pending

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
)

// ErrAlreadyPending возвращается, если по идентификатору уже выполняется операция.
var ErrAlreadyPending = errors.New("operation already in progress")

// Tracker хранит множество идентификаторов, по которым выполняются запросы,
// и последнюю ошибку для показа в баннере.
type Tracker struct {
	mu        sync.Mutex
	ids       map[string]struct{}
	globalErr string
	backoff   time.Duration
	logger    *zap.Logger
}

// NewTracker создаёт трекер с шагом линейной задержки между повторами.
func NewTracker(backoff time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		ids:     make(map[string]struct{}),
		backoff: backoff,
		logger:  logger,
	}
}

// Mark помечает идентификатор как выполняющийся. Возвращает false, если он уже помечен.
func (t *Tracker) Mark(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[id]; ok {
		return false
	}
	t.ids[id] = struct{}{}
	return true
}

// Unmark снимает пометку с идентификатора.
func (t *Tracker) Unmark(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ids, id)
}

// IsPending сообщает, выполняется ли операция по идентификатору.
func (t *Tracker) IsPending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Pending возвращает отсортированный список выполняющихся идентификаторов.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GlobalError возвращает последнюю ошибку для баннера.
func (t *Tracker) GlobalError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalErr
}

// SetGlobalError сохраняет ошибку для баннера.
func (t *Tracker) SetGlobalError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.globalErr = msg
}

// ClearGlobalError очищает ошибку баннера.
func (t *Tracker) ClearGlobalError() {
	t.SetGlobalError("")
}

// Run выполняет fn под пометкой id. Если id уже выполняется, возвращает ErrAlreadyPending
// не вызывая fn. При конфликте версий fn повторяется до retries раз с линейно растущей
// задержкой. Пометка снимается при любом исходе. Ошибка сохраняется для баннера,
// успешное выполнение баннер очищает.
func (t *Tracker) Run(ctx context.Context, id string, retries int, fn func(ctx context.Context) error) error {
	if !t.Mark(id) {
		return ErrAlreadyPending
	}
	defer t.Unmark(id)

	if retries < 0 {
		retries = 0
	}

	attempt := 0
	b := retry.WithMaxRetries(uint64(retries), linear(t.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && apiclient.IsConflict(err) {
			t.logger.Debug("version conflict", zap.String("id", id), zap.Int("attempt", attempt))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		t.SetGlobalError(err.Error())
		return err
	}
	t.ClearGlobalError()
	return nil
}

func linear(step time.Duration) retry.Backoff {
	var n int64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * step, false
	})
}
