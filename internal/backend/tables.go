package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/reconcile"
)

// Tables возвращает столы ресторана.
func (a *API) Tables(ctx context.Context, sess *apiclient.Session) ([]model.Table, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/tables"})
	if err != nil {
		return nil, fmt.Errorf("get tables: %w", err)
	}
	return reconcile.DecodeTables(raw)
}

// Table возвращает один стол.
func (a *API) Table(ctx context.Context, sess *apiclient.Session, id string) (model.Table, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/tables/" + url.PathEscape(id)})
	if err != nil {
		return model.Table{}, fmt.Errorf("get table: %w", err)
	}
	a2, err := apiclient.DecodeObject[reconcile.ApiTable](raw)
	if err != nil {
		return model.Table{}, fmt.Errorf("get table: %w", err)
	}
	if a2 == nil {
		return model.Table{ID: id, Active: true}, nil
	}
	return reconcile.NormalizeTable(*a2), nil
}

type tablePatch struct {
	Active *bool `json:"isActive,omitempty"`
}

// SetTableActive включает или выключает стол.
func (a *API) SetTableActive(ctx context.Context, sess *apiclient.Session, id string, active bool) error {
	_, err := a.c.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/tables/" + url.PathEscape(id),
		Body:   tablePatch{Active: &active},
	})
	if err != nil {
		return fmt.Errorf("update table: %w", err)
	}
	return nil
}
