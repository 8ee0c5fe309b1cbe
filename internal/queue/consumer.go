package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogPath is where StartAuditConsumer appends events.
var AuditLogPath = filepath.Join("logs", "certificates.log")

// StartAuditConsumer connects to RabbitMQ, declares the certificate.events
// queue (durable), and appends each message to logs/certificates.log in a
// single-line format.  It reconnects with exponential backoff and returns
// only when ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url string, logger *log.Logger) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            logger.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, logger)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logger *log.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.Warnf("audit-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(CertificateEventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, CertificateEventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := appendEvent(d.Body); err != nil {
            logger.Errorf("audit-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func appendEvent(body []byte) error {
    var ev CertificateEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(AuditLogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(AuditLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    return WriteEventLine(f, ev)
}

// WriteEventLine renders ev as one audit log line.
func WriteEventLine(w io.Writer, ev CertificateEvent) error {
    line := fmt.Sprintf("[%s] %s | number=%q | certificate_id=%s | church_id=%s | member_id=%s | ip=%s | reason=%q\n",
        ev.OccurredAt, ev.Kind, ev.CertificateNumber, dash(ev.CertificateID), dash(ev.ChurchID),
        dash(ev.MemberID), dash(ev.IPAddress), ev.Reason)
    if _, err := io.WriteString(w, line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func dash(s string) string {
    if s == "" {
        return "-"
    }
    return s
}
