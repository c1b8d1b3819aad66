package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestHandleMessageAppendsLines(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    at := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

    confirmed, err := json.Marshal(BookingEvent{
        Type: EventBookingConfirmed, BookingID: 7, Reference: "ref-7", UserID: 3,
        ResourceCode: "AI101", Kind: "FLIGHT", Assignment: "A149", Status: "CONFIRMED",
        PriceCents: 19999, OccurredAt: at,
    })
    require.NoError(t, err)
    cancelled, err := json.Marshal(BookingEvent{
        Type: EventBookingCancelled, BookingID: 7, Reference: "ref-7", UserID: 3,
        ResourceCode: "AI101", Kind: "FLIGHT", Assignment: "A149", Status: "CANCELLED",
        OccurredAt: at.Add(time.Hour),
    })
    require.NoError(t, err)

    require.NoError(t, handleMessage(dir, confirmed))
    require.NoError(t, handleMessage(dir, cancelled))

    data, err := os.ReadFile(filepath.Join(dir, LogFileName))
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    assert.Equal(t, "[2024-02-01T09:30:00Z] Booking confirmed | booking_id=7 | reference=ref-7 | user_id=3 | resource=AI101 (flight) | assignment=A149 | price=19999 cents", lines[0])
    assert.Contains(t, lines[1], "Booking cancelled")
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
    dir := t.TempDir()
    assert.Error(t, handleMessage(dir, []byte("not json")))
    assert.Error(t, handleMessage(dir, []byte(`{"booking_id":1}`)))

    _, err := os.Stat(filepath.Join(dir, LogFileName))
    assert.True(t, os.IsNotExist(err), "nothing is written for rejected messages")
}
