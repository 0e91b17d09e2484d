package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-assistant/internal/footer"
	"github.com/wolfman30/clinic-assistant/internal/labsettings"
	"github.com/wolfman30/clinic-assistant/internal/labtemplate"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// FooterLoader resolves the site footer.
type FooterLoader interface {
	Load(ctx context.Context) footer.Style
}

// FooterHandler serves the resolved footer.
type FooterHandler struct {
	loader FooterLoader
}

func NewFooterHandler(loader FooterLoader) *FooterHandler {
	return &FooterHandler{loader: loader}
}

// Get returns the footer style with rendered CSS and HTML.
// GET /footer
func (h *FooterHandler) Get(w http.ResponseWriter, r *http.Request) {
	style := h.loader.Load(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"style": style,
		"css":   style.CSS(),
		"html":  style.HTML(),
	})
}

// LabSettingsHandler edits lab status labels.
type LabSettingsHandler struct {
	editor *labsettings.Editor
	logger *logging.Logger
}

func NewLabSettingsHandler(editor *labsettings.Editor, logger *logging.Logger) *LabSettingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LabSettingsHandler{editor: editor, logger: logger}
}

type labelRequest struct {
	Label string `json:"label"`
}

type clearOnSyncRequest struct {
	Enabled bool `json:"enabled"`
}

// List reloads the labels from the backend. A failed reload still returns the
// current labels.
// GET /lab-settings/statuses
func (h *LabSettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.editor.Load(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"settings": settings, "stale": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings, "stale": false})
}

// Add appends a custom label.
// POST /lab-settings/statuses
func (h *LabSettingsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	settings, err := h.editor.Add(r.Context(), req.Label)
	h.respond(w, http.StatusCreated, settings, err)
}

// Rename changes a custom label.
// PUT /lab-settings/statuses/{index}
func (h *LabSettingsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "invalid index", http.StatusBadRequest)
		return
	}
	var req labelRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	settings, err := h.editor.Rename(r.Context(), index, req.Label)
	h.respond(w, http.StatusOK, settings, err)
}

// Delete removes a custom label.
// DELETE /lab-settings/statuses/{index}
func (h *LabSettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "invalid index", http.StatusBadRequest)
		return
	}
	settings, err := h.editor.Delete(r.Context(), index)
	h.respond(w, http.StatusOK, settings, err)
}

// SetClearStatusOnSync saves the sync flag.
// PUT /lab-settings/clear-status-on-sync
func (h *LabSettingsHandler) SetClearStatusOnSync(w http.ResponseWriter, r *http.Request) {
	var req clearOnSyncRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	settings, err := h.editor.SetClearStatusOnSync(r.Context(), req.Enabled)
	h.respond(w, http.StatusOK, settings, err)
}

func (h *LabSettingsHandler) respond(w http.ResponseWriter, status int, settings labsettings.Settings, err error) {
	if err == nil {
		writeJSON(w, status, map[string]any{"settings": settings, "message": labsettings.SavedMessage})
		return
	}
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, labsettings.ErrSaveFailed):
		code = http.StatusBadGateway
	case errors.Is(err, labsettings.ErrIndexOutOfRange):
		code = http.StatusNotFound
	}
	writeJSON(w, code, map[string]any{"settings": settings, "error": labsettings.Message(err)})
}

// LabTemplateHandler fills lab templates.
type LabTemplateHandler struct {
	manager *labtemplate.Manager
	logger  *logging.Logger
}

func NewLabTemplateHandler(manager *labtemplate.Manager, logger *logging.Logger) *LabTemplateHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LabTemplateHandler{manager: manager, logger: logger}
}

type fieldRequest struct {
	Value any `json:"value"`
}

// List returns the registered templates.
// GET /lab-templates
func (h *LabTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates := make([]labtemplate.Template, 0)
	for _, typ := range labtemplate.Types() {
		t, _ := labtemplate.Lookup(typ)
		templates = append(templates, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// open initializes the filler named by the {type} URL parameter.
func (h *LabTemplateHandler) open(w http.ResponseWriter, r *http.Request) (*labtemplate.Filler, bool) {
	f, err := h.manager.Init(r.Context(), chi.URLParam(r, "type"))
	if errors.Is(err, labtemplate.ErrUnknownTemplate) {
		jsonError(w, "template not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		h.logger.Error("labtemplate: open failed", "error", err)
		jsonError(w, "failed to load template", http.StatusInternalServerError)
		return nil, false
	}
	return f, true
}

func (h *LabTemplateHandler) writeValues(w http.ResponseWriter, f *labtemplate.Filler) {
	writeJSON(w, http.StatusOK, map[string]any{"template": f.Template(), "values": f.Values()})
}

// Get returns a template with its saved values.
// GET /lab-templates/{type}
func (h *LabTemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	if f, ok := h.open(w, r); ok {
		h.writeValues(w, f)
	}
}

// SetField saves one field.
// PUT /lab-templates/{type}/fields/{field}
func (h *LabTemplateHandler) SetField(w http.ResponseWriter, r *http.Request) {
	f, ok := h.open(w, r)
	if !ok {
		return
	}
	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := f.SetField(r.Context(), chi.URLParam(r, "field"), req.Value); err != nil {
		h.fail(w, err)
		return
	}
	h.writeValues(w, f)
}

// Clear drops all values.
// DELETE /lab-templates/{type}/values
func (h *LabTemplateHandler) Clear(w http.ResponseWriter, r *http.Request) {
	f, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := f.Clear(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.writeValues(w, f)
}

// FillSample loads the demo values.
// POST /lab-templates/{type}/sample
func (h *LabTemplateHandler) FillSample(w http.ResponseWriter, r *http.Request) {
	f, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := f.FillSample(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	h.writeValues(w, f)
}

// Export downloads the values as a JSON file.
// GET /lab-templates/{type}/export
func (h *LabTemplateHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, ok := h.open(w, r)
	if !ok {
		return
	}
	name, data, err := f.Export()
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import replaces the values with an uploaded export.
// POST /lab-templates/{type}/import
func (h *LabTemplateHandler) Import(w http.ResponseWriter, r *http.Request) {
	f, ok := h.open(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		jsonError(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	if err := f.Import(r.Context(), data); err != nil {
		h.fail(w, err)
		return
	}
	h.writeValues(w, f)
}

func (h *LabTemplateHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, labtemplate.ErrInvalidJSON):
		jsonError(w, labtemplate.ImportErrorMessage+err.Error(), http.StatusBadRequest)
	case errors.Is(err, labtemplate.ErrInvalidValue), errors.Is(err, labtemplate.ErrEmptyField):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("labtemplate: request failed", "error", err)
		jsonError(w, "failed to save template", http.StatusInternalServerError)
	}
}
