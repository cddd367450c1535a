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

func billPath(id string, suffix string) string {
	return "/bills/" + url.PathEscape(id) + suffix
}

// Bill возвращает канонический счёт.
func (a *API) Bill(ctx context.Context, sess *apiclient.Session, id string, prev *model.Bill) (model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: billPath(id, "")})
	if err != nil {
		return model.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	return reconcile.DecodeBill(raw, prev)
}

// PatchBill изменяет черновик счёта.
func (a *API) PatchBill(ctx context.Context, sess *apiclient.Session, id string, patch model.BillPatch, prev *model.Bill) (model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Method: http.MethodPatch, Path: billPath(id, ""), Body: patch})
	if err != nil {
		return model.Bill{}, fmt.Errorf("patch bill: %w", err)
	}
	return reconcile.DecodeBill(raw, prev)
}

type versionRequest struct {
	Version       int64  `json:"version"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// FinalizeBill закрывает черновик для изменений.
func (a *API) FinalizeBill(ctx context.Context, sess *apiclient.Session, prev model.Bill) (model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   billPath(prev.ID, "/finalize"),
		Body:   versionRequest{Version: prev.Version},
	})
	if err != nil {
		return model.Bill{}, fmt.Errorf("finalize bill: %w", err)
	}
	next := prev
	next.Status = model.BillStatusFinalized
	return reconcile.DecodeBill(raw, &next)
}

// MarkBillPaid отмечает счёт оплаченным.
func (a *API) MarkBillPaid(ctx context.Context, sess *apiclient.Session, prev model.Bill, method string) (model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   billPath(prev.ID, "/mark-paid"),
		Body:   versionRequest{Version: prev.Version, PaymentMethod: method},
	})
	if err != nil {
		return model.Bill{}, fmt.Errorf("mark bill paid: %w", err)
	}
	next := prev
	next.Status = model.BillStatusPaid
	next.PaymentStatus = model.PaymentStatusPaid
	return reconcile.DecodeBill(raw, &next)
}

// ActiveBills возвращает неоплаченные счета.
func (a *API) ActiveBills(ctx context.Context, sess *apiclient.Session) ([]model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/bills/active"})
	if err != nil {
		return nil, fmt.Errorf("get active bills: %w", err)
	}
	return reconcile.DecodeBills(raw)
}

// BillHistory возвращает закрытые счета.
func (a *API) BillHistory(ctx context.Context, sess *apiclient.Session) ([]model.Bill, error) {
	raw, err := a.c.Do(ctx, sess, apiclient.Request{Path: "/bills/history"})
	if err != nil {
		return nil, fmt.Errorf("get bill history: %w", err)
	}
	return reconcile.DecodeBills(raw)
}
