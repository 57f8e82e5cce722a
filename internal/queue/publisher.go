package queue

import (
    "context"
    "encoding/json"
    "errors"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sony/gobreaker"
    "go.uber.org/zap"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("queue: publisher closed")

// Publisher sends reservation events to RabbitMQ.  The connection is
// opened lazily and reopened after failures; a circuit breaker stops
// dialing a broker that keeps failing so reservations never wait on it.
type Publisher struct {
    url    string
    cb     *gobreaker.CircuitBreaker
    logger *logging.Logger

    mu     sync.Mutex
    conn   *amqp.Connection
    closed bool
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *logging.Logger) *Publisher {
    if logger == nil {
        logger = logging.NewNoOpLogger()
    }
    logger = logger.Named("publisher")
    p := &Publisher{url: url, logger: logger}
    p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
        Name:        "rabbitmq",
        MaxRequests: 1,
        Interval:    time.Minute,
        Timeout:     30 * time.Second,
        ReadyToTrip: func(counts gobreaker.Counts) bool {
            return counts.ConsecutiveFailures >= 5
        },
        OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
            logger.Warn("circuit breaker state changed",
                zap.String("breaker", name),
                zap.String("from", from.String()),
                zap.String("to", to.String()),
            )
        },
    })
    return p
}

// PublishReservationConfirmed publishes ev to the reservation queue as a
// persistent message.
func (p *Publisher) PublishReservationConfirmed(ctx context.Context, ev ReservationConfirmedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    _, err = p.cb.Execute(func() (interface{}, error) {
        return nil, p.publish(ctx, body)
    })
    return err
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
    conn, err := p.connection()
    if err != nil {
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        p.reset(conn)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(ReservationQueueName, true, false, false, false, nil); err != nil {
        return err
    }
    return ch.PublishWithContext(ctx,
        "",                   // default exchange
        ReservationQueueName, // routing key = queue name
        false,                // mandatory
        false,                // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        },
    )
}

func (p *Publisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.closed {
        return nil, ErrPublisherClosed
    }
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    p.conn = conn
    return conn, nil
}

func (p *Publisher) reset(conn *amqp.Connection) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == conn {
        _ = conn.Close()
        p.conn = nil
    }
}

// Close shuts the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closed = true
    if p.conn == nil {
        return nil
    }
    err := p.conn.Close()
    p.conn = nil
    return err
}
