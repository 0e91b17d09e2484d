package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/clinic-assistant/internal/booking"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// BookingMailer emails the clinic inbox about each new booking draft.
type BookingMailer struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

func NewBookingMailer(sender EmailSender, to string, logger *logging.Logger) (*BookingMailer, error) {
	if sender == nil {
		return nil, errors.New("notify: email sender is required")
	}
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("notify: recipient is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingMailer{sender: sender, to: strings.TrimSpace(to), logger: logger.Component("notify")}, nil
}

// NotifyBooking implements booking.Notifier.
func (m *BookingMailer) NotifyBooking(ctx context.Context, appt booking.Appointment) error {
	msg := EmailMessage{
		To:       m.to,
		Subject:  "Lịch hẹn mới - " + appt.FullName,
		Text:     bookingText(appt),
		HTML:     bookingHTML(appt),
		ReplyTo:  strings.TrimSpace(appt.Email),
		Category: "booking",
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking %s: %w", appt.ID, err)
	}
	return nil
}

type detail struct {
	label string
	value string
}

func bookingDetails(appt booking.Appointment) []detail {
	details := []detail{
		{"Họ tên", appt.FullName},
		{"Số điện thoại", appt.PhoneNumber},
		{"Email", appt.Email},
		{"Ngày hẹn", appt.AppointmentDate},
		{"Giờ hẹn", appt.AppointmentTime},
		{"Dịch vụ", booking.ServiceName(appt.Service)},
		{"Triệu chứng", appt.Symptoms},
	}
	out := details[:0]
	for _, d := range details {
		if strings.TrimSpace(d.value) != "" {
			out = append(out, d)
		}
	}
	return out
}

func bookingText(appt booking.Appointment) string {
	var b strings.Builder
	b.WriteString(booking.FormatSummary(appt))
	b.WriteString("\n\n")
	for _, d := range bookingDetails(appt) {
		fmt.Fprintf(&b, "%s: %s\n", d.label, d.value)
	}
	return b.String()
}

func bookingHTML(appt booking.Appointment) string {
	var b strings.Builder
	b.WriteString("<h2>Lịch hẹn mới</h2><table>")
	for _, d := range bookingDetails(appt) {
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", d.label, html.EscapeString(d.value))
	}
	b.WriteString("</table>")
	return b.String()
}
