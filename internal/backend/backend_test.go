package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/model"
)

func newTestAPI(t *testing.T, routes map[string]http.HandlerFunc) *API {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)

	return New(apiclient.NewClient(ts.URL, "r1", apiclient.Options{Timeout: time.Second}))
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"POST /api/r1/admin/login": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(apiclient.IdempotencyHeader) == "" {
				t.Fatalf("login must carry an idempotency key")
			}
			var c Credentials
			_ = json.NewDecoder(r.Body).Decode(&c)
			if c.PIN != "1234" || c.Role != apiclient.RoleStaff {
				t.Fatalf("unexpected credentials %+v", c)
			}
			writeJSON(w, `{"data":{"accessToken":"tok"}}`)
		},
	})

	sess, err := api.Login(context.Background(), Credentials{PIN: "1234", Role: apiclient.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, apiclient.RoleStaff, sess.Role)
}

func TestLogin_NoToken(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"POST /api/r1/admin/login": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success":true}`)
		},
	})

	_, err := api.Login(context.Background(), Credentials{Username: "a", Password: "b", Role: apiclient.RoleAdmin})
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestActiveOrders(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"GET /api/r1/orders/active": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"orders":[{"_id":"O1","tableId":{"_id":"T1"},"status":"placed"}]}`)
		},
	})

	orders, err := api.ActiveOrders(context.Background(), &apiclient.Session{Token: "t"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "T1", orders[0].TableID)
	assert.Equal(t, model.OrderStatusPlaced, orders[0].Status)
}

func TestUpdateOrderStatus_SendsVersion(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"PATCH /api/r1/orders/O1/status": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"status":"accepted","version":4}`, string(body))
			writeJSON(w, `{"success":true,"data":{"_id":"O1","version":5}}`)
		},
	})

	prev := model.Order{ID: "O1", TableID: "T1", Status: model.OrderStatusPlaced, Version: 4}
	got, err := api.UpdateOrderStatus(context.Background(), nil, prev, model.OrderStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusAccepted, got.Status)
	assert.Equal(t, int64(5), got.Version)
	assert.Equal(t, "T1", got.TableID)
}

func TestPlaceOrder_FallsBackToRequest(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"POST /api/r1/orders": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(apiclient.IdempotencyHeader) == "" {
				t.Fatalf("order creation must carry an idempotency key")
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, `{"order":{"_id":"O9"}}`)
		},
	})

	got, err := api.PlaceOrder(context.Background(), nil, NewOrder{TableNumber: "4", Items: []model.OrderItem{{Name: "Idli", Qty: 2, Price: 30}}})
	require.NoError(t, err)
	assert.Equal(t, "O9", got.ID)
	assert.Equal(t, "4", got.TableNumber)
	assert.Equal(t, model.OrderStatusPlaced, got.Status)
	assert.Len(t, got.Items, 1)
}

func TestMenu(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"GET /api/r1/admin/menu": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"data":{
				"categories":[{"_id":"C1","name":"Starters","sortOrder":1}],
				"items":[{"_id":"M1","name":"Samosa","price":25,"category":{"_id":"C1"},"isAvailable":true},
				         {"id":"M2","name":"Chai","price":15,"category":"C2"}]
			}}`)
		},
		"GET /api/r1/menu": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `[{"_id":"M1","name":"Samosa","price":25}]`)
		},
	})

	menu, err := api.Menu(context.Background(), &apiclient.Session{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: "C1", Name: "Starters", Sort: 1}}, menu.Categories)
	require.Len(t, menu.Items, 2)
	assert.Equal(t, model.MenuItem{ID: "M1", CategoryID: "C1", Name: "Samosa", Price: 25, Available: true}, menu.Items[0])
	assert.Equal(t, "C2", menu.Items[1].CategoryID)

	public, err := api.Menu(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, public.Categories)
	assert.Len(t, public.Items, 1)
}

func TestSaveMenuItem(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"POST /api/r1/admin/menu/items": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"item":{"_id":"M7","name":"Vada","price":20}}`)
		},
		"PATCH /api/r1/admin/menu/items/M7": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
		"PATCH /api/r1/admin/menu/items/M8": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"success":true,"message":"updated"}`)
		},
	})

	created, err := api.SaveMenuItem(context.Background(), &apiclient.Session{Token: "t"}, model.MenuItem{Name: "Vada", Price: 20})
	require.NoError(t, err)
	assert.Equal(t, "M7", created.ID)

	created.Price = 22
	updated, err := api.SaveMenuItem(context.Background(), &apiclient.Session{Token: "t"}, *created)
	require.NoError(t, err)
	assert.Equal(t, 22.0, updated.Price)

	acked, err := api.SaveMenuItem(context.Background(), &apiclient.Session{Token: "t"}, model.MenuItem{ID: "M8", Name: "Idli", Price: 30})
	require.NoError(t, err)
	assert.Equal(t, "Idli", acked.Name)
	assert.Equal(t, 30.0, acked.Price)
}

func TestWaiters(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"GET /api/r1/admin/waiters": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"waiters":[{"_id":"W1","fullName":"Asha","shift":"evening"}]}`)
		},
	})

	got, err := api.Waiters(context.Background(), &apiclient.Session{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, []model.Staff{{ID: "W1", Name: "Asha", Shift: "evening"}}, got)
}

func TestBillLifecycle(t *testing.T) {
	api := newTestAPI(t, map[string]http.HandlerFunc{
		"POST /api/r1/bills/B1/finalize": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"version":1}`, string(body))
			writeJSON(w, `{"success":true}`)
		},
		"POST /api/r1/bills/B1/mark-paid": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"version":2,"paymentMethod":"upi"}`, string(body))
			writeJSON(w, `{"bill":{"_id":"B1","status":"paid","paymentStatus":"paid","version":3}}`)
		},
	})

	prev := model.Bill{ID: "B1", OrderID: "O1", Status: model.BillStatusDraft, Version: 1, Total: 100}
	fin, err := api.FinalizeBill(context.Background(), nil, prev)
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusFinalized, fin.Status)
	assert.Equal(t, 100.0, fin.Total)

	fin.Version = 2
	paid, err := api.MarkBillPaid(context.Background(), nil, fin, "upi")
	require.NoError(t, err)
	assert.Equal(t, model.BillStatusPaid, paid.Status)
	assert.Equal(t, model.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, int64(3), paid.Version)
}
