// Package service holds the certificate business rules between the HTTP
// handlers and the repositories, plus the RabbitMQ publisher for certificate
// events.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/ekklesia-certificates/internal/queue"
)

// EventPublisher delivers certificate events.  Implementations must be safe
// for concurrent use.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.CertificateEvent) error
}

// DefaultDialTimeout bounds the broker connect and handshake of a publish.
const DefaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes to the certificate.events queue.  It opens a
// connection per event; volumes are a handful per request at most.
type AMQPPublisher struct {
    URL         string
    DialTimeout time.Duration // defaults to DefaultDialTimeout
}

// dialTimeout is the configured timeout, shortened to ctx's deadline.
func (p AMQPPublisher) dialTimeout(ctx context.Context) time.Duration {
    d := p.DialTimeout
    if d <= 0 {
        d = DefaultDialTimeout
    }
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < d {
            d = left
        }
    }
    return d
}

// Publish declares the durable queue and sends ev as a persistent JSON
// message on the default exchange.
func (p AMQPPublisher) Publish(ctx context.Context, ev queue.CertificateEvent) error {
    if err := ctx.Err(); err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    timeout := p.dialTimeout(ctx)
    if timeout <= 0 {
        return fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
    }
    conn, err := amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so events survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.CertificateEventsQueue, // name
        true,                         // durable
        false,                        // autoDelete
        false,                        // exclusive
        false,                        // noWait
        nil,                          // args
    ); err != nil {
        return fmt.Errorf("rabbitmq queue declare: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Kind,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.CertificateEventsQueue, false, false, pub); err != nil {
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    return nil
}

// NopPublisher drops every event.  Used when CERT_EVENTS_ENABLED is off.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, queue.CertificateEvent) error { return nil }
