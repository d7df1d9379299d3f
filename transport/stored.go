package transport

import "time"

// StoredMessage is an audit record as persisted by the file and database
// transports.
type StoredMessage struct {
	UUID      string            `json:"uuid"`
	Topic     string            `json:"topic"`
	Metadata  map[string]string `json:"metadata"`
	Payload   []byte            `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}
