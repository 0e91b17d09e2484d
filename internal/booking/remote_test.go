package booking

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
)

type fakeAPI struct {
	created  []clinicapi.AppointmentRequest
	payments []clinicapi.PaymentRequest
	createFn func(clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error)
	services []clinicapi.Service
	docErr   error
}

func (f *fakeAPI) CreateAppointment(_ context.Context, req clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error) {
	f.created = append(f.created, req)
	return f.createFn(req)
}

func (f *fakeAPI) Services(context.Context) ([]clinicapi.Service, error) {
	return f.services, nil
}

func (f *fakeAPI) PrintPrescription(_ context.Context, id clinicapi.ID) (*clinicapi.Document, error) {
	if f.docErr != nil {
		return nil, f.docErr
	}
	return &clinicapi.Document{Filename: "prescription_" + string(id) + ".pdf", Data: []byte("%PDF")}, nil
}

func (f *fakeAPI) PrintUltrasound(_ context.Context, id clinicapi.ID) (*clinicapi.Document, error) {
	if f.docErr != nil {
		return nil, f.docErr
	}
	return &clinicapi.Document{Filename: "ultrasound_" + string(id) + ".pdf", Data: []byte("%PDF")}, nil
}

func (f *fakeAPI) ProcessPayment(_ context.Context, req clinicapi.PaymentRequest) error {
	f.payments = append(f.payments, req)
	return nil
}

func TestRemoteBook(t *testing.T) {
	api := &fakeAPI{createFn: func(clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error) {
		return &clinicapi.AppointmentResponse{AppointmentID: "17"}, nil
	}}
	r := NewRemote(api, nil)

	resp, err := r.Book(context.Background(), clinicapi.AppointmentRequest{
		Name: " Lê Văn An ", Phone: "0912345678", Reason: "đau bụng", AppointmentTime: "2026-01-07T09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, clinicapi.ID("17"), resp.AppointmentID)
	assert.Equal(t, "/appointment-details.html?id=17", DetailsPath(resp.AppointmentID))
	assert.Equal(t, "Lê Văn An", api.created[0].Name)
}

func TestRemoteBookRejections(t *testing.T) {
	api := &fakeAPI{createFn: func(clinicapi.AppointmentRequest) (*clinicapi.AppointmentResponse, error) {
		return nil, &clinicapi.APIError{StatusCode: http.StatusConflict, Message: "Khung giờ đã đầy"}
	}}
	r := NewRemote(api, nil)

	_, err := r.Book(context.Background(), clinicapi.AppointmentRequest{Name: "An", Phone: "123"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msgPhone, verr.Fields["phone"])
	assert.Equal(t, msgRequired, verr.Fields["appointment_time"])
	assert.Empty(t, api.created)

	_, err = r.Book(context.Background(), clinicapi.AppointmentRequest{Name: "An", Phone: "0912345678", AppointmentTime: "09:00"})
	require.Error(t, err)
	assert.Equal(t, "Khung giờ đã đầy", UserMessage(err))
	assert.Equal(t, msgBookFailed, UserMessage(errors.New("boom")))
}

func TestRemoteServicesAndBilling(t *testing.T) {
	services := []clinicapi.Service{
		{ID: "1", Name: "Khám thai", Price: 200000},
		{ID: "2", Name: "Siêu âm 5D", Price: 1500000},
	}
	api := &fakeAPI{services: services}
	r := NewRemote(api, nil)

	opts, err := r.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "Khám thai - 200.000đ", opts[0].Label)
	assert.Equal(t, "Siêu âm 5D - 1.500.000đ", opts[1].Label)

	total, err := r.Pay(context.Background(), "17", services)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000), total)
	assert.Equal(t, []clinicapi.PaymentRequest{{AppointmentID: "17", Amount: 1700000}}, api.payments)
}

func TestRemoteDocuments(t *testing.T) {
	r := NewRemote(&fakeAPI{}, nil)
	doc, err := r.Prescription(context.Background(), "17")
	require.NoError(t, err)
	assert.Equal(t, "prescription_17.pdf", doc.Filename)

	failing := NewRemote(&fakeAPI{docErr: &clinicapi.APIError{StatusCode: http.StatusNotFound}}, nil)
	_, err = failing.Ultrasound(context.Background(), "17")
	require.ErrorIs(t, err, ErrUltrasoundUnavailable)
	assert.Equal(t, "Không thể in kết quả siêu âm", UserMessage(err))
}
