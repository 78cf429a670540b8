package apierror

import (
	"net/http"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for the payload timestamp.
// Times are rendered in UTC without a zone suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Payload is the JSON body written for every failed request.
type Payload struct {
	Endpoint   string `json:"endpoint"`
	Timestamp  string `json:"timestamp"`
	Status     int    `json:"status"`
	StatusCode string `json:"statusCode"`
	Message    string `json:"message"`
}

// NewPayload builds the error body for the given request path and status.
func NewPayload(endpoint string, status int, message string, now time.Time) Payload {
	return Payload{
		Endpoint:   endpoint,
		Timestamp:  now.UTC().Format(TimestampLayout),
		Status:     status,
		StatusCode: StatusName(status),
		Message:    message,
	}
}

// StatusName converts an HTTP status to its upper snake case name, e.g.
// 400 becomes BAD_REQUEST and 413 becomes REQUEST_ENTITY_TOO_LARGE.
func StatusName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "UNKNOWN"
	}
	text = strings.NewReplacer("-", " ", "'", "").Replace(text)
	return strings.ToUpper(strings.Join(strings.Fields(text), "_"))
}
