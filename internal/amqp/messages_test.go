package amqp

import (
	"testing"
	"time"
)

func TestReportSyncMessageRoundTrip(t *testing.T) {
	msg := NewReportSyncMessage(7, "2024-03")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := ReportSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.UserID != 7 || decoded.YearMonth != "2024-03" {
		t.Fatalf("unexpected message: %+v", decoded)
	}
	if !decoded.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp drifted: %v vs %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestReportSyncMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ReportSyncMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
