package assistant

import (
	"context"
	"errors"
	"strconv"

	"github.com/wolfman30/clinic-assistant/internal/kvstore"
)

// WakeWordKey stores the wake-word toggle as "true" or "false".
const WakeWordKey = "aiAssistantWakeWord"

// Preferences keeps voice settings in a kvstore.
type Preferences struct {
	store kvstore.Store
}

func NewPreferences(store kvstore.Store) *Preferences {
	return &Preferences{store: store}
}

// WakeWordEnabled defaults to true when nothing or garbage is stored.
func (p *Preferences) WakeWordEnabled(ctx context.Context) (bool, error) {
	raw, err := p.store.Get(ctx, WakeWordKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return true, nil
	}
	return enabled, nil
}

func (p *Preferences) SetWakeWordEnabled(ctx context.Context, enabled bool) error {
	return p.store.Set(ctx, WakeWordKey, strconv.FormatBool(enabled))
}
