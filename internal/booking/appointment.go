// Package booking implements the appointment widget: the local draft flow with
// slot capacity and the server-side flow through the clinic backend.
package booking

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of appointment and birth dates.
const DateLayout = "2006-01-02"

// StatusPending is the status of every new draft.
const StatusPending = "pending"

// Appointment is a locally stored booking draft.
type Appointment struct {
	ID              string    `json:"id"`
	FullName        string    `json:"fullName"`
	PhoneNumber     string    `json:"phoneNumber"`
	Email           string    `json:"email"`
	DOB             string    `json:"dob"`
	Address         string    `json:"address"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	Service         string    `json:"service"`
	Symptoms        string    `json:"symptoms"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Form is the booking form as submitted.
type Form struct {
	FullName        string `json:"fullName" validate:"required"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,vnphone"`
	Email           string `json:"email" validate:"omitempty,email"`
	DOB             string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Address         string `json:"address"`
	AppointmentDate string `json:"appointmentDate" validate:"required,datetime=2006-01-02,notpast,notsunday"`
	AppointmentTime string `json:"appointmentTime" validate:"required"`
	Service         string `json:"service" validate:"required"`
	Symptoms        string `json:"symptoms"`
}

func (f Form) trimmed() Form {
	f.FullName = strings.TrimSpace(f.FullName)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.AppointmentDate = strings.TrimSpace(f.AppointmentDate)
	f.AppointmentTime = strings.TrimSpace(f.AppointmentTime)
	f.Service = strings.TrimSpace(f.Service)
	f.Symptoms = strings.TrimSpace(f.Symptoms)
	return f
}

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

const (
	msgRequired   = "Vui lòng nhập đầy đủ thông tin bắt buộc."
	msgPhone      = "Vui lòng nhập số điện thoại hợp lệ (10-11 số)"
	msgEmail      = "Vui lòng nhập địa chỉ email hợp lệ"
	msgDate       = "Ngày không hợp lệ."
	msgPastDate   = "Không thể đặt lịch cho ngày đã qua. Vui lòng chọn ngày khác."
	msgSunday     = "Chủ nhật phòng khám không làm việc. Vui lòng chọn ngày khác."
	msgSlotFull   = "Thời gian này đã có lịch hẹn. Vui lòng chọn thời gian khác!"
	msgBookFailed = "Có lỗi xảy ra"
)

// Confirmation texts shown after a successful booking or payment.
const (
	BookedMessage = "Đặt lịch thành công!"
	PaidMessage   = "Thanh toán thành công!"
)

// ValidationError maps form fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "booking: invalid form: " + strings.Join(parts, "; ")
}

// First returns the message of the first field in form order.
func (e *ValidationError) First() string {
	for _, field := range fieldOrder {
		if msg, ok := e.Fields[field]; ok {
			return msg
		}
	}
	for _, msg := range e.Fields {
		return msg
	}
	return msgRequired
}

var fieldOrder = []string{
	"fullName", "name", "phoneNumber", "phone", "email", "dob",
	"appointmentDate", "appointmentTime", "appointment_time", "service",
}

// newValidator registers the clinic rules. now anchors the past-date check in local time.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f.Tag.Get("json"), f.Name)
	})
	_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
		day, err := time.ParseInLocation(DateLayout, fl.Field().String(), time.Local)
		if err != nil {
			return true
		}
		n := now()
		today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.Local)
		return !day.Before(today)
	})
	_ = v.RegisterValidation("notsunday", func(fl validator.FieldLevel) bool {
		day, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			return true
		}
		return day.Weekday() != time.Sunday
	})
	return v
}

func jsonName(tag, fallback string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return fallback
	}
	return name
}

// translate turns validator failures into Vietnamese field messages.
func translate(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(errs))}
	for _, fe := range errs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = message(fe.Tag())
	}
	return out
}

func message(tag string) string {
	switch tag {
	case "vnphone":
		return msgPhone
	case "email":
		return msgEmail
	case "datetime":
		return msgDate
	case "notpast":
		return msgPastDate
	case "notsunday":
		return msgSunday
	default:
		return msgRequired
	}
}
