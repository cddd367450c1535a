package backend

import (
	"context"
	"fmt"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

type rawStaff struct {
	model.Staff
	OID      string `json:"_id"`
	FullName string `json:"fullName"`
}

// Waiters возвращает официантов для выпадающего списка назначения.
func (a *API) Waiters(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error) {
	return a.staffList(ctx, sess, "/admin/waiters")
}

// Staff возвращает весь персонал.
func (a *API) Staff(ctx context.Context, sess *apiclient.Session) ([]model.Staff, error) {
	return a.staffList(ctx, sess, "/admin/staff")
}

func (a *API) staffList(ctx context.Context, sess *apiclient.Session, path string) ([]model.Staff, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: path})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	list, err := apiclient.DecodeList[rawStaff](raw)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	out := make([]model.Staff, 0, len(list))
	for _, s := range list {
		if s.ID == "" {
			s.ID = s.OID
		}
		if s.Name == "" {
			s.Name = s.FullName
		}
		out = append(out, s.Staff)
	}
	return out, nil
}
