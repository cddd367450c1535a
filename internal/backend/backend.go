// Package backend содержит тонкие функции ресурсов удалённого бэкенда ресторана:
// авторизация, меню, заказы, счета, столы и персонал.
package backend

import (
	"context"
	"encoding/json"

	"github.com/mmeshcher/tableside/internal/apiclient"
)

// Doer выполняет запрос к бэкенду. Реализуется *apiclient.Client.
type Doer interface {
	Do(ctx context.Context, sess *apiclient.Session, r apiclient.Request) (json.RawMessage, error)
}

// API предоставляет функции ресурсов бэкенда.
type API struct {
	c Doer
}

// New создаёт API поверх клиента c.
func New(c Doer) *API {
	return &API{c: c}
}
