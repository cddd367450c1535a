package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	routes := map[string]string{
		"GET /api/r1/tables":             `{"tables":[{"_id":"T1","tableNumber":1},{"_id":"T2","tableNumber":2}]}`,
		"GET /api/r1/orders/active":      `{"data":[{"_id":"O1","tableId":{"_id":"T2"},"status":"ready","totalAmount":250,"version":3}]}`,
		"PATCH /api/r1/orders/O1/status": `{"order":{"_id":"O1","status":"served","version":4}}`,
		"GET /api/r1/orders/O1/bill":     `{"bill":{"_id":"B1","orderId":"O1","items":[{"name":"Thali","qty":1,"price":250}],"taxes":[{"name":"GST","rate":5}],"total":262.5,"status":"draft","version":1}}`,
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, ts *httptest.Server, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"-b", ts.URL, "-r", "r1", "-t", "tok"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTablesCommand(t *testing.T) {
	out, err := run(t, fakeBackend(t), "tables")
	require.NoError(t, err)

	assert.Regexp(t, `1\s+T1\s+free\s+0`, out)
	assert.Regexp(t, `2\s+T2\s+occupied\s+1`, out)
}

func TestAdvanceCommand(t *testing.T) {
	out, err := run(t, fakeBackend(t), "advance", "O1", "served")
	require.NoError(t, err)
	assert.Regexp(t, `O1\s+\S*\s*served`, out)
}

func TestAdvanceCommand_UnknownStatus(t *testing.T) {
	_, err := run(t, fakeBackend(t), "advance", "O1", "flying")
	assert.ErrorContains(t, err, "unknown status")
}

func TestBillCommand(t *testing.T) {
	out, err := run(t, fakeBackend(t), "bill", "O1")
	require.NoError(t, err)

	assert.Contains(t, out, "Bill B1 (order O1) draft/unpaid v1")
	assert.Regexp(t, `subtotal\s+250\.00`, out)
	assert.Regexp(t, `total\s+262\.50`, out)
}
