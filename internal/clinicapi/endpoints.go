package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Chat sends a message to the assistant backend. A JSON body with success=false is
// returned as a response, not an error, whatever the status code.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.invoke(ctx, "chat", http.MethodPost, "/api/ai-assistant/chat", req)
	return decodeEnvelope[ChatResponse]("chat", resp, err)
}

// Feedback rates a previous interaction.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	if req.InteractionID == "" {
		return nil, errors.New("clinicapi: interaction id required")
	}
	resp, err := c.invoke(ctx, "feedback", http.MethodPost, "/api/ai-assistant/feedback", req)
	return decodeEnvelope[FeedbackResponse]("feedback", resp, err)
}

// decodeEnvelope accepts error statuses whose body still carries the JSON envelope.
func decodeEnvelope[T any](op string, resp *response, err error) (*T, error) {
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !json.Valid(apiErr.Body) {
			return nil, err
		}
		out, decodeErr := decodeJSON[T](op, apiErr.Body)
		if decodeErr != nil {
			return nil, err
		}
		return out, nil
	}
	return decodeJSON[T](op, resp.body)
}

// FooterContent fetches the footer configuration.
func (c *Client) FooterContent(ctx context.Context) (*FooterContent, error) {
	resp, err := c.invoke(ctx, "footer_content", http.MethodGet, "/api/footer-content", nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[FooterContent]("footer_content", resp.body)
}

// LabSettings fetches the custom lab status labels.
func (c *Client) LabSettings(ctx context.Context) (*LabSettings, error) {
	resp, err := c.invoke(ctx, "lab_settings", http.MethodGet, "/api/lab-settings", nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[LabSettings]("lab_settings", resp.body)
}

// UpdateLabSettings replaces the custom lab status labels and returns the stored copy.
func (c *Client) UpdateLabSettings(ctx context.Context, settings LabSettings) (*LabSettings, error) {
	if settings.StatusOptions == nil {
		settings.StatusOptions = []string{}
	}
	resp, err := c.invoke(ctx, "update_lab_settings", http.MethodPut, "/api/lab-settings", settings)
	if err != nil {
		return nil, err
	}
	return decodeJSON[LabSettings]("update_lab_settings", resp.body)
}

// CreateAppointment books through the backend.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	resp, err := c.invoke(ctx, "create_appointment", http.MethodPost, "/api/appointments", req)
	if err != nil {
		return nil, err
	}
	return decodeJSON[AppointmentResponse]("create_appointment", resp.body)
}

// Services lists bookable services.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	resp, err := c.invoke(ctx, "services", http.MethodGet, "/api/services", nil)
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[[]Service]("services", resp.body)
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// PrintPrescription downloads the prescription PDF for an appointment.
func (c *Client) PrintPrescription(ctx context.Context, appointmentID ID) (*Document, error) {
	return c.download(ctx, "print_prescription", "/api/print_prescription/", "prescription", appointmentID)
}

// PrintUltrasound downloads the ultrasound result PDF for an appointment.
func (c *Client) PrintUltrasound(ctx context.Context, appointmentID ID) (*Document, error) {
	return c.download(ctx, "print_ultrasound", "/api/print_ultrasound/", "ultrasound", appointmentID)
}

func (c *Client) download(ctx context.Context, op, prefix, name string, appointmentID ID) (*Document, error) {
	id := strings.TrimSpace(string(appointmentID))
	if id == "" {
		return nil, errors.New("clinicapi: appointment id required")
	}
	resp, err := c.invoke(ctx, op, http.MethodGet, prefix+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	contentType := resp.contentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return &Document{
		Filename:    fmt.Sprintf("%s_%s.pdf", name, id),
		ContentType: contentType,
		Data:        resp.body,
	}, nil
}

// ProcessPayment charges amount VND against an appointment.
func (c *Client) ProcessPayment(ctx context.Context, req PaymentRequest) error {
	if req.AppointmentID == "" {
		return errors.New("clinicapi: appointment id required")
	}
	if req.Amount <= 0 {
		return errors.New("clinicapi: payment amount must be positive")
	}
	_, err := c.invoke(ctx, "payment", http.MethodPost, "/api/payment", req)
	return err
}
