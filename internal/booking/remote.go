package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// API is the part of the clinic backend used by the server-side booking flow.
type API interface {
	CreateAppointment(ctx context.Context, req clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error)
	Services(ctx context.Context) ([]clinicapi.Service, error)
	PrintPrescription(ctx context.Context, appointmentID clinicapi.ID) (*clinicapi.Document, error)
	PrintUltrasound(ctx context.Context, appointmentID clinicapi.ID) (*clinicapi.Document, error)
	ProcessPayment(ctx context.Context, req clinicapi.PaymentRequest) error
}

var (
	ErrPrescriptionUnavailable = errors.New("booking: prescription unavailable")
	ErrUltrasoundUnavailable   = errors.New("booking: ultrasound result unavailable")
	ErrPaymentFailed           = errors.New("booking: payment failed")
)

// ServiceOption is a bookable service with its display label.
type ServiceOption struct {
	clinicapi.Service
	Label string `json:"label"`
}

// Remote books through the clinic backend.
type Remote struct {
	api    API
	logger *logging.Logger
}

func NewRemote(api API, logger *logging.Logger) *Remote {
	if logger == nil {
		logger = logging.Default()
	}
	return &Remote{api: api, logger: logger.Component("booking")}
}

// Book creates an appointment. Backend rejections carry the backend message.
func (r *Remote) Book(ctx context.Context, req clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = msgRequired
	}
	if !phonePattern.MatchString(req.Phone) {
		fields["phone"] = msgPhone
	}
	if strings.TrimSpace(req.AppointmentTime) == "" {
		fields["appointment_time"] = msgRequired
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	resp, err := r.api.CreateAppointment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("booking: create appointment: %w", err)
	}
	r.logger.Info("booking: appointment created", "appointment_id", string(resp.AppointmentID))
	return resp, nil
}

// DetailsPath is where the page goes after a successful booking.
func DetailsPath(id clinicapi.ID) string {
	return "/appointment-details.html?id=" + string(id)
}

// Services lists backend services with VND labels.
func (r *Remote) Services(ctx context.Context) ([]ServiceOption, error) {
	services, err := r.api.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: load services: %w", err)
	}
	out := make([]ServiceOption, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceOption{Service: s, Label: ServiceLabel(s)})
	}
	return out, nil
}

func (r *Remote) Prescription(ctx context.Context, id clinicapi.ID) (*clinicapi.Document, error) {
	doc, err := r.api.PrintPrescription(ctx, id)
	if err != nil {
		r.logger.Warn("booking: prescription download failed", "appointment_id", string(id), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPrescriptionUnavailable, err)
	}
	return doc, nil
}

func (r *Remote) Ultrasound(ctx context.Context, id clinicapi.ID) (*clinicapi.Document, error) {
	doc, err := r.api.PrintUltrasound(ctx, id)
	if err != nil {
		r.logger.Warn("booking: ultrasound download failed", "appointment_id", string(id), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUltrasoundUnavailable, err)
	}
	return doc, nil
}

// Pay charges the bill for services against an appointment and returns the total.
func (r *Remote) Pay(ctx context.Context, id clinicapi.ID, services []clinicapi.Service) (int64, error) {
	total := BillTotal(services)
	if err := r.api.ProcessPayment(ctx, clinicapi.PaymentRequest{AppointmentID: id, Amount: total}); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	r.logger.Info("booking: payment processed", "appointment_id", string(id), "amount", total)
	return total, nil
}

// UserMessage is the Vietnamese text shown to the patient for a booking error.
func UserMessage(err error) string {
	var verr *ValidationError
	var apiErr *clinicapi.APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.First()
	case errors.Is(err, ErrSlotFull):
		return msgSlotFull
	case errors.Is(err, ErrPrescriptionUnavailable):
		return "Không thể in đơn thuốc"
	case errors.Is(err, ErrUltrasoundUnavailable):
		return "Không thể in kết quả siêu âm"
	case errors.Is(err, ErrPaymentFailed):
		return "Thanh toán thất bại"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return msgBookFailed
	}
}
