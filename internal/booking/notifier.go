package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Notifier tells the clinic about a new booking.
type Notifier interface {
	NotifyBooking(ctx context.Context, appt Appointment) error
}

// Notifiers fans one booking out to several channels. Every channel is tried.
type Notifiers []Notifier

func (ns Notifiers) NotifyBooking(ctx context.Context, appt Appointment) error {
	var errs []error
	for _, n := range ns {
		if err := n.NotifyBooking(ctx, appt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatSummary is the one-line clinic notification for appt.
func FormatSummary(appt Appointment) string {
	return fmt.Sprintf("Lịch hẹn mới: %s, %s, %s, %s",
		appt.FullName, displayDate(appt.AppointmentDate), appt.AppointmentTime, ServiceName(appt.Service))
}

// LogNotifier writes the Zalo message to the log instead of sending it.
type LogNotifier struct {
	Phone  string
	logger *logging.Logger
}

func NewLogNotifier(phone string, logger *logging.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogNotifier{Phone: phone, logger: logger}
}

func (n *LogNotifier) NotifyBooking(_ context.Context, appt Appointment) error {
	n.logger.Info("booking: zalo notification",
		"to", n.Phone,
		"appointment_id", appt.ID,
		"message", FormatSummary(appt),
	)
	return nil
}
