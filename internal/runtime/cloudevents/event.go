// Package cloudevents provides the CloudEvents v1.0 envelope used when audit
// records leave the process through a Watermill publisher.
package cloudevents

import (
	"fmt"
	"time"

	idspkg "github.com/drblury/fedstore/internal/runtime/ids"
	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
)

// SpecVersion is the CloudEvents specification version implemented.
const SpecVersion = "1.0"

// ContentTypeJSON is the data content type of every envelope produced here.
const ContentTypeJSON = "application/json"

// Event types emitted for audit records.
const (
	TypeAuditEvent     = "fedstore.audit.event"
	TypeAuditException = "fedstore.audit.exception"
)

// Event represents a CloudEvents v1.0 event. Extensions are flattened into
// the top-level JSON object on the wire.
type Event struct {
	SpecVersion     string
	Type            string
	Source          string
	ID              string
	Time            time.Time
	DataContentType string

	// Subject carries the audit event name or the failing module.
	Subject string

	Data       any
	Extensions map[string]any
}

var knownAttrs = map[string]bool{
	"specversion":     true,
	"type":            true,
	"source":          true,
	"id":              true,
	"time":            true,
	"datacontenttype": true,
	"subject":         true,
	"data":            true,
}

// New creates a new CloudEvent with required fields populated.
// ID is auto-generated using ULID, Time is set to current time.
func New(eventType, source string, data any) Event {
	return Event{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          source,
		ID:              idspkg.New(),
		Time:            time.Now().UTC(),
		DataContentType: ContentTypeJSON,
		Data:            data,
		Extensions:      make(map[string]any),
	}
}

// WithSubject sets the subject field and returns the event.
func (e Event) WithSubject(subject string) Event {
	e.Subject = subject
	return e
}

// WithExtension sets an extension attribute and returns the event. The map is
// copied so the receiver is left untouched.
func (e Event) WithExtension(key string, value any) Event {
	ext := make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext[key] = value
	e.Extensions = ext
	return e
}

// GetExtensionString retrieves an extension value as a string.
func (e Event) GetExtensionString(key string) string {
	v, ok := e.Extensions[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Validate checks that the event has all required CloudEvents attributes.
func (e Event) Validate() error {
	if e.SpecVersion == "" {
		return fmt.Errorf("specversion is required")
	}
	if e.SpecVersion != SpecVersion {
		return fmt.Errorf("specversion must be %q, got %q", SpecVersion, e.SpecVersion)
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.Source == "" {
		return fmt.Errorf("source is required")
	}
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	for k := range e.Extensions {
		if knownAttrs[k] {
			return fmt.Errorf("extension %q shadows a context attribute", k)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler for the structured CloudEvents format.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Extensions)+8)
	for k, v := range e.Extensions {
		m[k] = v
	}

	m["specversion"] = e.SpecVersion
	m["type"] = e.Type
	m["source"] = e.Source
	m["id"] = e.ID
	if !e.Time.IsZero() {
		m["time"] = e.Time.Format(time.RFC3339Nano)
	}
	if e.DataContentType != "" {
		m["datacontenttype"] = e.DataContentType
	}
	if e.Subject != "" {
		m["subject"] = e.Subject
	}
	if e.Data != nil {
		m["data"] = e.Data
	}
	return jsoncodec.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler for the structured CloudEvents format.
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := jsoncodec.Unmarshal(data, &m); err != nil {
		return err
	}

	str := func(key string) (string, error) {
		raw, ok := m[key]
		if !ok || raw == nil {
			return "", nil
		}
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("invalid %s: expected string, got %T", key, raw)
		}
		return s, nil
	}

	var err error
	if e.SpecVersion, err = str("specversion"); err != nil {
		return err
	}
	if e.Type, err = str("type"); err != nil {
		return err
	}
	if e.Source, err = str("source"); err != nil {
		return err
	}
	if e.ID, err = str("id"); err != nil {
		return err
	}
	if e.DataContentType, err = str("datacontenttype"); err != nil {
		return err
	}
	if e.Subject, err = str("subject"); err != nil {
		return err
	}

	ts, err := str("time")
	if err != nil {
		return err
	}
	e.Time = time.Time{}
	if ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("invalid time format: %w", err)
		}
		e.Time = t
	}

	e.Data = m["data"]
	e.Extensions = make(map[string]any)
	for k, v := range m {
		if !knownAttrs[k] {
			e.Extensions[k] = v
		}
	}
	return nil
}
