package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-assistant/internal/booking"
	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// DraftBook is the local booking flow.
type DraftBook interface {
	Submit(ctx context.Context, form booking.Form) (*booking.Appointment, error)
	Appointments(ctx context.Context) ([]booking.Appointment, error)
}

// AppointmentsHandler serves both booking flows.
type AppointmentsHandler struct {
	book   DraftBook
	remote *booking.Remote
	logger *logging.Logger
}

// NewAppointmentsHandler wires the booking endpoints. remote may be nil.
func NewAppointmentsHandler(book DraftBook, remote *booking.Remote, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{book: book, remote: remote, logger: logger}
}

type paymentRequest struct {
	Services []clinicapi.Service `json:"services"`
}

// Create stores a booking draft.
// POST /appointments
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form booking.Form
	if err := decodeBody(r, &form); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.book.Submit(r.Context(), form)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment": appt,
		"message":     booking.BookedMessage,
		"service":     booking.ServiceName(appt.Service),
	})
}

// List returns stored drafts.
// GET /appointments
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.book.Appointments(r.Context())
	if err != nil {
		h.logger.Error("booking: list drafts failed", "error", err)
		jsonError(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []booking.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Book creates an appointment on the clinic backend.
// POST /bookings
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !h.remoteAvailable(w) {
		return
	}
	var req clinicapi.AppointmentRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.remote.Book(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment_id": resp.AppointmentID,
		"message":        booking.BookedMessage,
		"redirect":       booking.DetailsPath(resp.AppointmentID),
	})
}

// Services lists bookable services with price labels.
// GET /services
func (h *AppointmentsHandler) Services(w http.ResponseWriter, r *http.Request) {
	if !h.remoteAvailable(w) {
		return
	}
	services, err := h.remote.Services(r.Context())
	if err != nil {
		h.logger.Error("booking: load services failed", "error", err)
		jsonError(w, "failed to load services", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// Prescription downloads the prescription PDF.
// GET /bookings/{id}/prescription
func (h *AppointmentsHandler) Prescription(w http.ResponseWriter, r *http.Request) {
	if h.remoteAvailable(w) {
		h.download(w, r, h.remote.Prescription)
	}
}

// Ultrasound downloads the ultrasound result PDF.
// GET /bookings/{id}/ultrasound
func (h *AppointmentsHandler) Ultrasound(w http.ResponseWriter, r *http.Request) {
	if h.remoteAvailable(w) {
		h.download(w, r, h.remote.Ultrasound)
	}
}

func (h *AppointmentsHandler) download(w http.ResponseWriter, r *http.Request, fetch func(context.Context, clinicapi.ID) (*clinicapi.Document, error)) {
	doc, err := fetch(r.Context(), clinicapi.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// Pay charges the bill for the listed services.
// POST /bookings/{id}/payment
func (h *AppointmentsHandler) Pay(w http.ResponseWriter, r *http.Request) {
	if !h.remoteAvailable(w) {
		return
	}
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	total, err := h.remote.Pay(r.Context(), clinicapi.ID(chi.URLParam(r, "id")), req.Services)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"amount":  total,
		"label":   booking.FormatVND(total),
		"message": booking.PaidMessage,
	})
}

func (h *AppointmentsHandler) remoteAvailable(w http.ResponseWriter) bool {
	if h.remote == nil {
		jsonError(w, "clinic backend unavailable", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *AppointmentsHandler) fail(w http.ResponseWriter, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.First(), "fields": verr.Fields})
	case errors.Is(err, booking.ErrSlotFull):
		jsonError(w, booking.UserMessage(err), http.StatusConflict)
	default:
		h.logger.Warn("booking: request failed", "error", err)
		jsonError(w, booking.UserMessage(err), http.StatusBadGateway)
	}
}
