package models

// Request bodies accepted by the API.

type ScanRequest struct {
	MessageText string `json:"message_text"`
	Direction   string `json:"direction"`
}

type CheckoutRequest struct {
	Plan Plan `json:"plan"`
}

type EventRequest struct {
	EventName string         `json:"event_name"`
	Meta      map[string]any `json:"meta"`
}
