package queue

import (
    "context"
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"
)

func TestHandleMessageAppendsLine(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    c := NewConsumer("", dir, nil)

    ev := ReservationConfirmedEvent{
        ReservationID: "r-1",
        AccountID:     "alice",
        SlotID:        "s-1",
        SlotName:      "North Lot",
        BayIndex:      3,
        BookingCode:   "LX0ABCDE",
        Fee:           "50",
        ConfirmedAt:   "2024-05-01T10:00:00Z",
        ExpiresAt:     "2024-05-01T10:30:00Z",
    }
    body, _ := json.Marshal(ev)
    for i := 0; i < 2; i++ {
        if err := c.handleMessage(body); err != nil {
            t.Fatalf("handleMessage: %v", err)
        }
    }

    data, err := os.ReadFile(filepath.Join(dir, "reservation.log"))
    if err != nil {
        t.Fatalf("read log: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    if len(lines) != 2 {
        t.Fatalf("got %d lines, want 2", len(lines))
    }
    for _, want := range []string{"reservation_id=r-1", `slot="North Lot"`, "bay=3", "code=LX0ABCDE", "fee=50"} {
        if !strings.Contains(lines[0], want) {
            t.Errorf("line %q missing %q", lines[0], want)
        }
    }
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
    c := NewConsumer("", t.TempDir(), nil)
    for _, body := range []string{"not json", `{"account_id":"alice"}`} {
        if err := c.handleMessage([]byte(body)); err == nil {
            t.Errorf("handleMessage(%q) = nil, want error", body)
        }
    }
}

func TestSleepHonoursContext(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    start := time.Now()
    if sleep(ctx, time.Minute) {
        t.Fatal("sleep returned true on cancelled context")
    }
    if time.Since(start) > time.Second {
        t.Fatal("sleep did not return promptly")
    }
}

func TestPublisherClosed(t *testing.T) {
    p := NewPublisher("amqp://127.0.0.1:1/", nil)
    if err := p.Close(); err != nil {
        t.Fatalf("Close: %v", err)
    }
    err := p.PublishReservationConfirmed(context.Background(), ReservationConfirmedEvent{ReservationID: "r"})
    if err == nil {
        t.Fatal("publish after close succeeded")
    }
}
