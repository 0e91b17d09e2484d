package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Action types the chat backend may return.
const (
	ActionNavigate = "navigate"
	ActionSearch   = "search"
	ActionClick    = "click"
	ActionRefresh  = "refresh"
)

var (
	// ErrUnknownAction is returned for action types the page cannot perform.
	ErrUnknownAction = errors.New("assistant: unknown action")
	// ErrNoRefreshHook tells Dispatch the page has no data refresh and must reload.
	ErrNoRefreshHook = errors.New("assistant: page has no refresh hook")
)

// Page is the host page the assistant can drive.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Search fills the element at selector with value and focuses it.
	Search(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	// Refresh reloads page data in place, or returns ErrNoRefreshHook.
	Refresh(ctx context.Context) error
	Reload(ctx context.Context) error
}

// Dispatch performs a backend action on page. Actions missing their target are ignored.
func Dispatch(ctx context.Context, page Page, action clinicapi.Action) error {
	if page == nil {
		return nil
	}
	switch action.Type {
	case ActionNavigate:
		if action.URL == "" {
			return nil
		}
		return page.Navigate(ctx, action.URL)
	case ActionSearch:
		if action.Selector == "" {
			return nil
		}
		return page.Search(ctx, action.Selector, action.Value)
	case ActionClick:
		if action.Selector == "" {
			return nil
		}
		return page.Click(ctx, action.Selector)
	case ActionRefresh:
		err := page.Refresh(ctx)
		if errors.Is(err, ErrNoRefreshHook) {
			return page.Reload(ctx)
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

// RecordingPage performs nothing itself: it logs and records every action so a
// connected browser can replay it.
type RecordingPage struct {
	// RefreshHook reports whether the page exposes an in-place data refresh.
	RefreshHook bool
	// OnAction, when set, receives each recorded action.
	OnAction func(clinicapi.Action)

	logger  *logging.Logger
	mu      sync.Mutex
	actions []clinicapi.Action
}

// NewRecordingPage returns an empty recorder.
func NewRecordingPage(logger *logging.Logger) *RecordingPage {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordingPage{logger: logger}
}

func (p *RecordingPage) record(a clinicapi.Action) error {
	p.mu.Lock()
	p.actions = append(p.actions, a)
	hook := p.OnAction
	p.mu.Unlock()
	p.logger.Info("assistant: page action", "type", a.Type, "url", a.URL, "selector", a.Selector)
	if hook != nil {
		hook(a)
	}
	return nil
}

func (p *RecordingPage) Navigate(_ context.Context, url string) error {
	return p.record(clinicapi.Action{Type: ActionNavigate, URL: url})
}

func (p *RecordingPage) Search(_ context.Context, selector, value string) error {
	return p.record(clinicapi.Action{Type: ActionSearch, Selector: selector, Value: value})
}

func (p *RecordingPage) Click(_ context.Context, selector string) error {
	return p.record(clinicapi.Action{Type: ActionClick, Selector: selector})
}

func (p *RecordingPage) Refresh(_ context.Context) error {
	if !p.RefreshHook {
		return ErrNoRefreshHook
	}
	return p.record(clinicapi.Action{Type: ActionRefresh})
}

func (p *RecordingPage) Reload(_ context.Context) error {
	return p.record(clinicapi.Action{Type: "reload"})
}

// Actions returns what has been recorded so far.
func (p *RecordingPage) Actions() []clinicapi.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]clinicapi.Action(nil), p.actions...)
}
