package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-assistant/internal/kvstore"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// AppointmentsKey holds the JSON list of drafts.
const AppointmentsKey = "appointments"

// DefaultSlotCapacity is how many drafts one date and time accepts.
const DefaultSlotCapacity = 3

// ErrSlotFull is returned when a date and time already has capacity drafts.
var ErrSlotFull = errors.New("booking: slot full")

// Config configures the local booking flow.
type Config struct {
	SlotCapacity int
}

// Book stores appointment drafts in a kvstore.
type Book struct {
	store    kvstore.Store
	notifier Notifier
	capacity int
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	logger   *logging.Logger

	mu sync.Mutex
}

// New creates a draft book. notifier may be nil.
func New(store kvstore.Store, notifier Notifier, cfg Config, logger *logging.Logger) *Book {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SlotCapacity <= 0 {
		cfg.SlotCapacity = DefaultSlotCapacity
	}
	b := &Book{
		store:    store,
		notifier: notifier,
		capacity: cfg.SlotCapacity,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.Component("booking"),
	}
	b.validate = newValidator(func() time.Time { return b.now() })
	return b
}

// Validate checks a form without booking it.
func (b *Book) Validate(form Form) error {
	if err := b.validate.Struct(form.trimmed()); err != nil {
		return translate(err)
	}
	return nil
}

// Submit validates form, checks slot capacity and stores the draft.
func (b *Book) Submit(ctx context.Context, form Form) (*Appointment, error) {
	form = form.trimmed()
	if err := b.validate.Struct(form); err != nil {
		return nil, translate(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	taken := 0
	for _, a := range existing {
		if a.AppointmentDate == form.AppointmentDate && a.AppointmentTime == form.AppointmentTime {
			taken++
		}
	}
	if taken >= b.capacity {
		return nil, ErrSlotFull
	}

	appt := Appointment{
		ID:              b.newID(),
		FullName:        form.FullName,
		PhoneNumber:     form.PhoneNumber,
		Email:           form.Email,
		DOB:             form.DOB,
		Address:         form.Address,
		AppointmentDate: form.AppointmentDate,
		AppointmentTime: form.AppointmentTime,
		Service:         form.Service,
		Symptoms:        form.Symptoms,
		Status:          StatusPending,
		CreatedAt:       b.now().UTC(),
	}
	if err := kvstore.SaveJSON(ctx, b.store, AppointmentsKey, append(existing, appt)); err != nil {
		return nil, err
	}
	b.logger.Info("booking: appointment drafted",
		"appointment_id", appt.ID,
		"date", appt.AppointmentDate,
		"time", appt.AppointmentTime,
		"service", appt.Service,
	)

	if b.notifier != nil {
		if err := b.notifier.NotifyBooking(ctx, appt); err != nil {
			b.logger.Error("booking: notify clinic failed", "appointment_id", appt.ID, "error", err)
		}
	}
	return &appt, nil
}

// Appointments lists stored drafts. Corrupt data reads as empty.
func (b *Book) Appointments(ctx context.Context) ([]Appointment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(ctx)
}

func (b *Book) load(ctx context.Context) ([]Appointment, error) {
	var out []Appointment
	if _, err := kvstore.LoadJSON(ctx, b.store, AppointmentsKey, &out); err != nil {
		if errors.Is(err, kvstore.ErrCorrupt) {
			b.logger.Warn("booking: discarding unreadable drafts", "error", err)
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func displayDate(value string) string {
	day, err := time.Parse(DateLayout, value)
	if err != nil {
		return value
	}
	return day.Format("2/1/2006")
}
