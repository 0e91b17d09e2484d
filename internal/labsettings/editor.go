// Package labsettings edits the lab result status labels. The five default labels
// always come first and never leave this process; only custom labels are saved.
package labsettings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Defaults are the built-in status labels.
var Defaults = []string{
	"Chờ kết quả",
	"Đã nghe, thiếu kết quả",
	"Đã nghe",
	"Không liên lạc được",
	"Nhắn tin",
}

var (
	ErrEmptyLabel      = errors.New("labsettings: label is empty")
	ErrDuplicateLabel  = errors.New("labsettings: label already exists")
	ErrDefaultLabel    = errors.New("labsettings: default labels cannot change")
	ErrIndexOutOfRange = errors.New("labsettings: index out of range")
	ErrSaveFailed      = errors.New("labsettings: save failed")
)

// SavedMessage confirms a successful save.
const SavedMessage = "Đã lưu cài đặt!"

// Message is the Vietnamese text shown for an editor error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyLabel):
		return "Trạng thái không được để trống"
	case errors.Is(err, ErrDuplicateLabel):
		return "Trạng thái này đã tồn tại!"
	case errors.Is(err, ErrDefaultLabel):
		return "Không thể xóa trạng thái mặc định"
	case errors.Is(err, ErrIndexOutOfRange):
		return "Trạng thái không tồn tại"
	default:
		return "Lưu thất bại - vui lòng thử lại"
	}
}

// API is the lab settings backend.
type API interface {
	LabSettings(ctx context.Context) (*clinicapi.LabSettings, error)
	UpdateLabSettings(ctx context.Context, settings clinicapi.LabSettings) (*clinicapi.LabSettings, error)
}

// Settings is the editor's view: Statuses holds defaults followed by custom labels.
type Settings struct {
	Statuses          []string `json:"statuses"`
	ClearStatusOnSync bool     `json:"clear_status_on_sync"`
}

// Editor holds the current labels. Every mutation is saved immediately and
// rolled back if the save fails.
type Editor struct {
	api    API
	logger *logging.Logger

	mu          sync.Mutex
	statuses    []string
	clearOnSync bool
}

func NewEditor(api API, logger *logging.Logger) *Editor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Editor{
		api:      api,
		logger:   logger.Component("labsettings"),
		statuses: slices.Clone(Defaults),
	}
}

// Settings returns a copy of the current state.
func (e *Editor) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Settings{Statuses: slices.Clone(e.statuses), ClearStatusOnSync: e.clearOnSync}
}

// Load replaces the custom labels with the backend's. On failure the current
// labels stay as they are.
func (e *Editor) Load(ctx context.Context) (Settings, error) {
	remote, err := e.api.LabSettings(ctx)
	if err != nil {
		e.logger.Error("labsettings: load failed", "error", err)
		return e.Settings(), fmt.Errorf("labsettings: load: %w", err)
	}
	e.mu.Lock()
	if len(remote.StatusOptions) > 0 {
		e.statuses = merge(remote.StatusOptions)
	}
	e.clearOnSync = remote.ClearStatusOnSync
	e.mu.Unlock()
	return e.Settings(), nil
}

// Add appends a custom label.
func (e *Editor) Add(ctx context.Context, label string) (Settings, error) {
	label = strings.TrimSpace(label)
	e.mu.Lock()
	defer e.mu.Unlock()
	if label == "" {
		return e.snapshotLocked(), ErrEmptyLabel
	}
	if slices.Contains(e.statuses, label) {
		return e.snapshotLocked(), ErrDuplicateLabel
	}
	next := append(slices.Clone(e.statuses), label)
	return e.saveLocked(ctx, next, e.clearOnSync)
}

// Rename changes the custom label at index.
func (e *Editor) Rename(ctx context.Context, index int, label string) (Settings, error) {
	label = strings.TrimSpace(label)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCustomIndexLocked(index); err != nil {
		return e.snapshotLocked(), err
	}
	if label == "" {
		return e.snapshotLocked(), ErrEmptyLabel
	}
	if at := slices.Index(e.statuses, label); at >= 0 && at != index {
		return e.snapshotLocked(), ErrDuplicateLabel
	}
	if e.statuses[index] == label {
		return e.snapshotLocked(), nil
	}
	next := slices.Clone(e.statuses)
	next[index] = label
	return e.saveLocked(ctx, next, e.clearOnSync)
}

// Delete removes the custom label at index.
func (e *Editor) Delete(ctx context.Context, index int) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkCustomIndexLocked(index); err != nil {
		return e.snapshotLocked(), err
	}
	next := slices.Delete(slices.Clone(e.statuses), index, index+1)
	return e.saveLocked(ctx, next, e.clearOnSync)
}

// SetClearStatusOnSync saves the sync flag with the current labels.
func (e *Editor) SetClearStatusOnSync(ctx context.Context, clearOnSync bool) (Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(ctx, slices.Clone(e.statuses), clearOnSync)
}

func (e *Editor) checkCustomIndexLocked(index int) error {
	if index < 0 || index >= len(e.statuses) {
		return ErrIndexOutOfRange
	}
	if index < len(Defaults) {
		return ErrDefaultLabel
	}
	return nil
}

func (e *Editor) saveLocked(ctx context.Context, next []string, clearOnSync bool) (Settings, error) {
	saved, err := e.api.UpdateLabSettings(ctx, clinicapi.LabSettings{
		StatusOptions:     customOnly(next),
		ClearStatusOnSync: clearOnSync,
	})
	if err != nil {
		e.logger.Error("labsettings: save failed", "error", err)
		return e.snapshotLocked(), fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	e.statuses = next
	if saved != nil && saved.StatusOptions != nil {
		e.statuses = merge(saved.StatusOptions)
	}
	e.clearOnSync = clearOnSync
	e.logger.Info("labsettings: saved", "custom", len(e.statuses)-len(Defaults), "clear_status_on_sync", clearOnSync)
	return e.snapshotLocked(), nil
}

func (e *Editor) snapshotLocked() Settings {
	return Settings{Statuses: slices.Clone(e.statuses), ClearStatusOnSync: e.clearOnSync}
}

// merge puts defaults first and drops defaults or repeats from custom.
func merge(custom []string) []string {
	out := slices.Clone(Defaults)
	for _, label := range custom {
		label = strings.TrimSpace(label)
		if label == "" || slices.Contains(out, label) {
			continue
		}
		out = append(out, label)
	}
	return out
}

func customOnly(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if !slices.Contains(Defaults, label) {
			out = append(out, label)
		}
	}
	return out
}
