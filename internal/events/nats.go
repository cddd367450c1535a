// Package events публикует изменения доски в NATS для внешних потребителей
// (кухонные экраны, аналитика).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type conn interface {
	Publish(subject string, data []byte) error
}

// Envelope описывает тело публикуемого сообщения.
type Envelope struct {
	Event        string    `json:"event"`
	RestaurantID string    `json:"restaurantId"`
	At           time.Time `json:"at"`
	Data         any       `json:"data"`
}

// NATSPublisher публикует события в тему tableside.<restaurant>.<event>.
type NATSPublisher struct {
	conn         conn
	nc           *nats.Conn
	restaurantID string
	logger       *zap.Logger
}

// NewNATSPublisher подключается к NATS по url.
func NewNATSPublisher(url, restaurantID string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tableside"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: nc, nc: nc, restaurantID: restaurantID, logger: logger}, nil
}

// Subject возвращает тему для события.
func (p *NATSPublisher) Subject(event string) string {
	return "tableside." + p.restaurantID + "." + event
}

// Publish отправляет событие.
func (p *NATSPublisher) Publish(_ context.Context, event string, data any) error {
	payload, err := json.Marshal(Envelope{
		Event:        event,
		RestaurantID: p.restaurantID,
		At:           time.Now().UTC(),
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event), payload); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Notify публикует событие, записывая ошибку в лог.
func (p *NATSPublisher) Notify(ctx context.Context, event string, data any) {
	if err := p.Publish(ctx, event, data); err != nil {
		p.logger.Warn("event not published", zap.String("event", event), zap.Error(err))
	}
}

// Close сбрасывает буфер и закрывает соединение.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
