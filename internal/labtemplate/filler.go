package labtemplate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/kvstore"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

var (
	ErrEmptyField   = errors.New("labtemplate: field name is empty")
	ErrInvalidValue = errors.New("labtemplate: value must be text or a checkbox")
	ErrInvalidJSON  = errors.New("labtemplate: invalid JSON")
)

// ImportErrorMessage prefixes import failures shown to the user.
const ImportErrorMessage = "Lỗi đọc file JSON: "

// Values maps form field names to text (string) or checkbox (bool) values.
type Values map[string]any

// StorageKey is where a template's values are kept.
func StorageKey(typ string) string {
	return "lab_template_" + typ
}

// Manager opens fillers over a shared store.
type Manager struct {
	store  kvstore.Store
	now    func() time.Time
	logger *logging.Logger
}

func NewManager(store kvstore.Store, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{store: store, now: time.Now, logger: logger.Component("labtemplate")}
}

// Init opens the filler for typ with its saved values loaded.
func (m *Manager) Init(ctx context.Context, typ string) (*Filler, error) {
	tmpl, err := Lookup(typ)
	if err != nil {
		return nil, err
	}
	f := &Filler{manager: m, template: tmpl, values: Values{}}
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Filler edits one template's values. Every change is persisted.
type Filler struct {
	manager  *Manager
	template Template

	mu     sync.Mutex
	values Values
}

func (f *Filler) Template() Template { return f.template }

// Values returns a copy of the current values.
func (f *Filler) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.values)
}

// Load replaces the values with the saved ones. Nothing saved leaves them untouched.
func (f *Filler) Load(ctx context.Context) error {
	var saved Values
	found, err := kvstore.LoadJSON(ctx, f.manager.store, StorageKey(f.template.Type), &saved)
	if err != nil {
		if errors.Is(err, kvstore.ErrCorrupt) {
			f.manager.logger.Warn("labtemplate: ignoring unreadable values", "template", f.template.Type, "error", err)
			return nil
		}
		return err
	}
	if !found {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = saved
	if f.values == nil {
		f.values = Values{}
	}
	return nil
}

// SetField stores one value.
func (f *Filler) SetField(ctx context.Context, field string, value any) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return ErrEmptyField
	}
	v, err := checkValue(value)
	if err != nil {
		return fmt.Errorf("%w: field %q", err, field)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[field] = v
	return f.saveLocked(ctx)
}

// Clear drops every value.
func (f *Filler) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = Values{}
	return f.saveLocked(ctx)
}

// FillSample overlays the template's demo values.
func (f *Filler) FillSample(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	maps.Copy(f.values, f.template.Sample())
	return f.saveLocked(ctx)
}

// Export returns the values as indented JSON and a dated download name.
func (f *Filler) Export() (string, []byte, error) {
	values := f.Values()
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("labtemplate: encode export: %w", err)
	}
	name := fmt.Sprintf("lab_template_%s_%s.json", f.template.Type, f.manager.now().UTC().Format("2006-01-02"))
	return name, data, nil
}

// Import replaces the values with a previously exported document.
func (f *Filler) Import(ctx context.Context, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	values := make(Values, len(raw))
	for field, value := range raw {
		v, err := checkValue(value)
		if err != nil {
			return fmt.Errorf("%w: field %q", err, field)
		}
		values[field] = v
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values
	return f.saveLocked(ctx)
}

func (f *Filler) saveLocked(ctx context.Context) error {
	if err := kvstore.SaveJSON(ctx, f.manager.store, StorageKey(f.template.Type), f.values); err != nil {
		f.manager.logger.Error("labtemplate: save failed", "template", f.template.Type, "error", err)
		return err
	}
	return nil
}

func checkValue(value any) (any, error) {
	switch v := value.(type) {
	case string, bool:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return fmt.Sprint(v), nil
	default:
		return nil, ErrInvalidValue
	}
}
