package voice

import "context"

// Message roles emitted by the coordinator.
const (
	RoleAssistant = "assistant"
	RoleError     = "error"
)

// Submission sources recorded in metrics.
const (
	SourceAuto   = "auto"
	SourceManual = "manual"
)

// Snapshot is the user-visible state of the assistant widget.
type Snapshot struct {
	Supported             bool          `json:"supported"`
	PanelOpen             bool          `json:"panel_open"`
	Listening             bool          `json:"listening"`
	WakeWordEnabled       bool          `json:"wake_word_enabled"`
	WakeState             ListenerState `json:"-"`
	CommandState          ListenerState `json:"-"`
	Status                string        `json:"status"`
	StatusListening       bool          `json:"status_listening"`
	WakeToggleActive      bool          `json:"wake_toggle_active"`
	LauncherWakeListening bool          `json:"launcher_wake_listening"`
	LauncherListening     bool          `json:"launcher_listening"`
	MicButtonListening    bool          `json:"mic_button_listening"`
	Transcript            string        `json:"transcript"`
	TranscriptTentative   bool          `json:"transcript_tentative"`
}

// View renders snapshots. Render is called on the coordinator goroutine and must not block.
type View interface {
	Render(Snapshot)
}

// Notifier appends a chat bubble to the conversation.
type Notifier interface {
	Notify(ctx context.Context, role, text string)
}

// Submitter hands recognized text to the message pipeline. Submit must not block.
type Submitter interface {
	Submit(text string)
}

// Preferences persists the wake-word mode.
type Preferences interface {
	WakeWordEnabled(ctx context.Context) (bool, error)
	SetWakeWordEnabled(ctx context.Context, enabled bool) error
}

// ViewFunc adapts a function to View.
type ViewFunc func(Snapshot)

func (f ViewFunc) Render(s Snapshot) { f(s) }
