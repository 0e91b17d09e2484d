package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/internal/footer"
	"github.com/wolfman30/clinic-assistant/internal/kvstore"
	"github.com/wolfman30/clinic-assistant/internal/labsettings"
	"github.com/wolfman30/clinic-assistant/internal/labtemplate"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

type staticFooter struct{ style footer.Style }

func (s staticFooter) Load(context.Context) footer.Style { return s.style }

func TestFooterGet(t *testing.T) {
	style := footer.Resolve(clinicapi.FooterContent{BgColor: "#111111", Padding: "16", Text: "Phòng khám"})
	h := NewFooterHandler(staticFooter{style: style})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/footer", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, style.CSS(), body["css"])
	assert.Equal(t, style.HTML(), body["html"])
	assert.Contains(t, body["css"], "padding: 16px;")
}

type fakeLabAPI struct {
	remote  clinicapi.LabSettings
	saved   []clinicapi.LabSettings
	saveErr error
	loadErr error
}

func (f *fakeLabAPI) LabSettings(context.Context) (*clinicapi.LabSettings, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	s := f.remote
	return &s, nil
}

func (f *fakeLabAPI) UpdateLabSettings(_ context.Context, s clinicapi.LabSettings) (*clinicapi.LabSettings, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, s)
	f.remote = s
	return &s, nil
}

func labSettingsRouter(api *fakeLabAPI) http.Handler {
	h := NewLabSettingsHandler(labsettings.NewEditor(api, logging.New("error")), logging.New("error"))
	r := chi.NewRouter()
	r.Get("/lab-settings/statuses", h.List)
	r.Post("/lab-settings/statuses", h.Add)
	r.Put("/lab-settings/statuses/{index}", h.Rename)
	r.Delete("/lab-settings/statuses/{index}", h.Delete)
	r.Put("/lab-settings/clear-status-on-sync", h.SetClearStatusOnSync)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	h.ServeHTTP(rec, req)
	return rec
}

func statuses(t *testing.T, rec *httptest.ResponseRecorder) []any {
	t.Helper()
	settings, ok := decode(t, rec)["settings"].(map[string]any)
	require.True(t, ok)
	list, ok := settings["statuses"].([]any)
	require.True(t, ok)
	return list
}

func TestLabSettingsLifecycle(t *testing.T) {
	api := &fakeLabAPI{remote: clinicapi.LabSettings{StatusOptions: []string{"Hẹn tái khám"}}}
	r := labSettingsRouter(api)

	rec := serve(r, http.MethodGet, "/lab-settings/statuses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, statuses(t, rec), len(labsettings.Defaults)+1)

	rec = serve(r, http.MethodPost, "/lab-settings/statuses", `{"label":"Đã gửi kết quả"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, labsettings.SavedMessage, decode(t, rec)["message"])
	require.Len(t, api.saved, 1)
	assert.Equal(t, []string{"Hẹn tái khám", "Đã gửi kết quả"}, api.saved[0].StatusOptions)

	rec = serve(r, http.MethodPut, "/lab-settings/statuses/5", `{"label":"Hẹn khám lại"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hẹn khám lại", statuses(t, rec)[5])

	rec = serve(r, http.MethodDelete, "/lab-settings/statuses/6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, statuses(t, rec), len(labsettings.Defaults)+1)

	rec = serve(r, http.MethodPut, "/lab-settings/clear-status-on-sync", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, api.remote.ClearStatusOnSync)
}

func TestLabSettingsErrors(t *testing.T) {
	api := &fakeLabAPI{}
	r := labSettingsRouter(api)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
		msg    string
	}{
		{name: "empty label", method: http.MethodPost, target: "/lab-settings/statuses", body: `{"label":" "}`, want: http.StatusBadRequest, msg: "Trạng thái không được để trống"},
		{name: "duplicate default", method: http.MethodPost, target: "/lab-settings/statuses", body: `{"label":"Đã nghe"}`, want: http.StatusBadRequest, msg: "Trạng thái này đã tồn tại!"},
		{name: "delete default", method: http.MethodDelete, target: "/lab-settings/statuses/0", want: http.StatusBadRequest, msg: "Không thể xóa trạng thái mặc định"},
		{name: "out of range", method: http.MethodDelete, target: "/lab-settings/statuses/99", want: http.StatusNotFound, msg: "Trạng thái không tồn tại"},
		{name: "bad index", method: http.MethodDelete, target: "/lab-settings/statuses/abc", want: http.StatusBadRequest, msg: "invalid index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
	assert.Empty(t, api.saved)
}

func TestLabSettingsSaveFailureRollsBack(t *testing.T) {
	api := &fakeLabAPI{saveErr: assert.AnError}
	r := labSettingsRouter(api)

	rec := serve(r, http.MethodPost, "/lab-settings/statuses", `{"label":"Mới"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Len(t, statuses(t, rec), len(labsettings.Defaults))
}

func TestLabSettingsListServesStaleOnLoadFailure(t *testing.T) {
	r := labSettingsRouter(&fakeLabAPI{loadErr: assert.AnError})

	rec := serve(r, http.MethodGet, "/lab-settings/statuses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["stale"])
}

func labTemplateRouter(store kvstore.Store) http.Handler {
	h := NewLabTemplateHandler(labtemplate.NewManager(store, logging.New("error")), logging.New("error"))
	r := chi.NewRouter()
	r.Get("/lab-templates", h.List)
	r.Route("/lab-templates/{type}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/fields/{field}", h.SetField)
		r.Delete("/values", h.Clear)
		r.Post("/sample", h.FillSample)
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
	})
	return r
}

func values(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	v, ok := decode(t, rec)["values"].(map[string]any)
	require.True(t, ok)
	return v
}

func TestLabTemplateFlow(t *testing.T) {
	store := kvstore.NewMemory()
	r := labTemplateRouter(store)

	rec := serve(r, http.MethodGet, "/lab-templates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["templates"], len(labtemplate.Types()))

	rec = serve(r, http.MethodPut, "/lab-templates/lab-result/fields/patient_name", `{"value":"Trần Thị B"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trần Thị B", values(t, rec)["patient_name"])

	rec = serve(r, http.MethodGet, "/lab-templates/lab-result/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trần Thị B", values(t, rec)["patient_name"])

	rec = serve(r, http.MethodPost, "/lab-templates/lab-result/sample", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nguyễn Thị Minh Anh", values(t, rec)["patient_name"])

	rec = serve(r, http.MethodGet, "/lab-templates/lab-result/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="lab_template_lab-result_`)
	exported := rec.Body.String()

	rec = serve(r, http.MethodDelete, "/lab-templates/lab-result/values", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, values(t, rec))

	rec = serve(r, http.MethodPost, "/lab-templates/lab-result/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nguyễn Thị Minh Anh", values(t, rec)["patient_name"])
}

func TestLabTemplateErrors(t *testing.T) {
	r := labTemplateRouter(kvstore.NewMemory())

	rec := serve(r, http.MethodGet, "/lab-templates/x-ray/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodPost, "/lab-templates/lab-request/import", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], labtemplate.ImportErrorMessage)

	rec = serve(r, http.MethodPut, "/lab-templates/lab-request/fields/patient_name", `{"value":{"nested":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
