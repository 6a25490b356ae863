package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends reservation events to a durable queue.  The connection
// is opened lazily and reopened after a failed publish.
type Publisher struct {
	queue string
	log   *zap.Logger
	open  func() (channel, func(), error)

	mu       sync.Mutex
	ch       channel
	closeFn  func()
	declared bool
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		queue: queue,
		log:   log,
		open: func() (channel, func(), error) {
			conn, err := amqp.Dial(url)
			if err != nil {
				return nil, nil, fmt.Errorf("dial: %w", err)
			}
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, nil, fmt.Errorf("channel open: %w", err)
			}
			return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
		},
	}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller may ignore them.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensure(); err != nil {
		p.log.Warn("rabbitmq unavailable", zap.String("queue", p.queue), zap.Error(err))
		return err
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("rabbitmq publish failed",
			zap.String("queue", p.queue),
			zap.String("type", ev.Type),
			zap.Uint64("reservation_id", ev.ReservationID),
			zap.Error(err))
		p.reset()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Publisher) ensure() error {
	if p.ch == nil {
		ch, closeFn, err := p.open()
		if err != nil {
			return err
		}
		p.ch, p.closeFn, p.declared = ch, closeFn, false
	}
	if !p.declared {
		if _, err := p.ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("queue declare: %w", err)
		}
		p.declared = true
	}
	return nil
}

func (p *Publisher) reset() {
	if p.closeFn != nil {
		p.closeFn()
	}
	p.ch, p.closeFn, p.declared = nil, nil, false
}
