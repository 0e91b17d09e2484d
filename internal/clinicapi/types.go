package clinicapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier that may arrive as a JSON number or string.
// Numeric ids are written back as numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("clinicapi: id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// InteractionID identifies one chat exchange for feedback.
type InteractionID = ID

// PageContext describes the page the user is on.
type PageContext struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Page  string `json:"page"`
}

// ChatRequest carries both the normalized and the typed text.
type ChatRequest struct {
	Message         string      `json:"message"`
	OriginalMessage string      `json:"original_message"`
	Context         PageContext `json:"context"`
}

// Action is a page-level command returned by the chat backend.
type Action struct {
	Type     string `json:"type"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
}

// ChatResponse is the backend reply to a chat message.
type ChatResponse struct {
	Success        bool          `json:"success"`
	Response       string        `json:"response"`
	InteractionID  InteractionID `json:"interaction_id,omitempty"`
	DetectedIntent string        `json:"detected_intent,omitempty"`
	Confidence     *float64      `json:"confidence,omitempty"`
	Action         *Action       `json:"action,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Feedback values.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// FeedbackRequest rates one interaction.
type FeedbackRequest struct {
	InteractionID InteractionID `json:"interaction_id"`
	Feedback      string        `json:"feedback"`
}

// FeedbackResponse acknowledges a rating.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// FooterContent is the site-wide footer configuration. Empty fields mean "use default".
type FooterContent struct {
	BgColor   string      `json:"bgColor"`
	TextColor string      `json:"textColor"`
	Padding   json.Number `json:"padding"`
	TextAlign string      `json:"textAlign"`
	Text      string      `json:"text"`
}

// LabSettings holds the custom lab status labels. Defaults are never part of it.
type LabSettings struct {
	StatusOptions     []string `json:"status_options"`
	ClearStatusOnSync bool     `json:"clear_status_on_sync"`
}

// AppointmentRequest is the server-side booking form.
type AppointmentRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Service         string `json:"service,omitempty"`
	AppointmentDate string `json:"appointment_date,omitempty"`
	AppointmentTime string `json:"appointment_time"`
}

// AppointmentResponse confirms a booking.
type AppointmentResponse struct {
	AppointmentID ID     `json:"appointment_id"`
	Message       string `json:"message,omitempty"`
}

// Service is a bookable clinic service priced in VND.
type Service struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// PaymentRequest settles an appointment bill.
type PaymentRequest struct {
	AppointmentID ID    `json:"appointment_id"`
	Amount        int64 `json:"amount"`
}

// Document is a generated file returned by the backend.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
