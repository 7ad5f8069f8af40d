package amqp

import (
	"encoding/json"
	"time"
)

// ReportSyncMessage asks the worker to refresh one user's report row for a
// month. It carries only the keys; the worker re-reads totals from storage so
// stale messages cannot overwrite fresher data.
type ReportSyncMessage struct {
	UserID    int64     `json:"user_id"`
	YearMonth string    `json:"year_month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportSyncMessage(userID int64, yearMonth string) *ReportSyncMessage {
	return &ReportSyncMessage{
		UserID:    userID,
		YearMonth: yearMonth,
		Timestamp: time.Now(),
	}
}

func (m *ReportSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportSyncMessageFromJSON(data []byte) (*ReportSyncMessage, error) {
	var msg ReportSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
