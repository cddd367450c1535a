package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureConn struct {
	subject string
	data    []byte
	err     error
}

func (c *captureConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func TestPublish(t *testing.T) {
	cc := &captureConn{}
	p := &NATSPublisher{conn: cc, restaurantID: "r1", logger: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), "order_update", map[string]string{"id": "O1"}))
	assert.Equal(t, "tableside.r1.order_update", cc.subject)

	var env struct {
		Event        string            `json:"event"`
		RestaurantID string            `json:"restaurantId"`
		Data         map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(cc.data, &env))
	assert.Equal(t, "order_update", env.Event)
	assert.Equal(t, "r1", env.RestaurantID)
	assert.Equal(t, "O1", env.Data["id"])
}

func TestPublish_Error(t *testing.T) {
	cc := &captureConn{err: errors.New("connection closed")}
	p := &NATSPublisher{conn: cc, restaurantID: "r1", logger: zap.NewNop()}

	err := p.Publish(context.Background(), "bill_update", nil)
	assert.ErrorContains(t, err, "publish bill_update")

	p.Notify(context.Background(), "bill_update", nil)
}

func TestNewNATSPublisher_Unreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "r1", zap.NewNop())
	assert.Error(t, err)
}
