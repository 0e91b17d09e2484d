package voice

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/internal/speech/speechtest"
)

func TestStartBeginsWakeWordListening(t *testing.T) {
	h := newHarness(t, true)
	h.start()

	wake := h.wake()
	require.NotNil(t, wake)
	assert.True(t, wake.Running())
	assert.Equal(t, speech.Options{Language: "vi-VN", Continuous: true, InterimResults: false, MaxAlternatives: 1}, wake.Options)

	snap := h.snapshot()
	assert.True(t, snap.Supported)
	assert.Equal(t, StateActive, snap.WakeState)
	assert.Equal(t, StateIdle, snap.CommandState)
	assert.Equal(t, statusReady, snap.Status)
	assert.True(t, snap.LauncherWakeListening)
	assert.True(t, snap.WakeToggleActive)
	assert.False(t, snap.PanelOpen)
}

func TestStartHonoursDisabledPreference(t *testing.T) {
	h := newHarness(t, true)
	disabled := false
	h.prefs.enabled = &disabled
	h.start()

	assert.Empty(t, h.engine.Sessions())
	snap := h.snapshot()
	assert.Equal(t, StateIdle, snap.WakeState)
	assert.False(t, snap.LauncherWakeListening)
	assert.False(t, snap.WakeToggleActive)
}

func TestWakeWordOpensPanelAndStartsCommandListener(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	require.NoError(t, wake.Final("xin chào Trợ Lý ơi"))
	h.settle()

	snap := h.snapshot()
	assert.True(t, snap.PanelOpen)
	assert.True(t, snap.StatusListening)
	assert.Equal(t, statusListening, snap.Status)
	assert.Equal(t, StateSuspended, snap.WakeState)
	assert.Equal(t, StateSuspended, snap.CommandState)
	assert.False(t, wake.Running())
	assert.True(t, h.rec.hasNote(RoleAssistant, msgAwake))
	assert.Nil(t, h.command(), "command listener must wait for the panel to render")

	h.advance(499 * time.Millisecond)
	assert.Nil(t, h.command())

	h.advance(time.Millisecond)
	cmd := h.command()
	require.NotNil(t, cmd)
	assert.True(t, cmd.Running())
	assert.Equal(t, speech.Options{Language: "vi-VN", Continuous: true, InterimResults: true, MaxAlternatives: 3}, cmd.Options)

	snap = h.snapshot()
	assert.Equal(t, StateActive, snap.CommandState)
	assert.True(t, snap.LauncherListening)
	assert.False(t, snap.MicButtonListening)

	cmd.Begin()
	h.settle()
	snap = h.snapshot()
	assert.True(t, snap.Listening)
	assert.True(t, snap.MicButtonListening)
	assert.True(t, h.rec.hasNote(RoleAssistant, msgListening))
}

func TestWakeListenerIgnoresOtherSpeech(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	require.NoError(t, wake.Final("đặt lịch khám thai"))
	require.NoError(t, wake.Interim("trợ lý"))
	h.settle()

	assert.False(t, h.snapshot().PanelOpen)
	assert.True(t, wake.Running())
	assert.Nil(t, h.command())
}

func TestAutoSendAfterQuietPeriod(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()
	cmd.Begin()

	require.NoError(t, cmd.Final("đặt lịch"))
	h.settle()
	assert.Equal(t, "đặt lịch", h.snapshot().Transcript)

	h.advance(900 * time.Millisecond)
	assert.Empty(t, h.rec.submitted)

	require.NoError(t, cmd.Final("khám thai"))
	h.settle()
	h.advance(999 * time.Millisecond)
	assert.Empty(t, h.rec.submitted, "a new final segment restarts the quiet period")

	h.advance(time.Millisecond)
	assert.Equal(t, []string{"đặt lịch khám thai"}, h.rec.submitted)
	assert.False(t, cmd.Running())

	snap := h.snapshot()
	assert.Equal(t, StateIdle, snap.CommandState)
	assert.Equal(t, statusReady, snap.Status)
	assert.Empty(t, snap.Transcript)
	assert.Equal(t, StateSuspended, snap.WakeState, "panel is still open")
}

func TestInterimTextNeverAutoSends(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()

	require.NoError(t, cmd.Interim("đặt"))
	h.settle()
	snap := h.snapshot()
	assert.Equal(t, "đặt", snap.Transcript)
	assert.True(t, snap.TranscriptTentative)

	h.advance(5 * time.Second)
	assert.Empty(t, h.rec.submitted)
	assert.True(t, cmd.Running())
}

func TestManualStopSubmitsDisplayedText(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()

	require.NoError(t, cmd.Final("xin chào"))
	require.NoError(t, cmd.Interim("bác sĩ"))
	h.settle()

	h.c.ToggleMicrophone()
	h.settle()
	assert.Equal(t, []string{"xin chào bác sĩ"}, h.rec.submitted)
	assert.False(t, cmd.Running())
	assert.Equal(t, StateIdle, h.snapshot().CommandState)

	h.advance(2 * time.Second)
	assert.Len(t, h.rec.submitted, 1, "cancelled auto-send must not fire")
}

func TestManualStopWithoutTextSubmitsNothing(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()

	h.c.ToggleMicrophone()
	h.settle()
	assert.Empty(t, h.rec.submitted)
	assert.False(t, cmd.Running())
}

func TestMicrophoneButtonOpensPanelAndSuspendsWake(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	h.c.ToggleMicrophone()
	h.settle()

	cmd := h.command()
	require.NotNil(t, cmd)
	assert.True(t, cmd.Running())
	assert.False(t, wake.Running())
	snap := h.snapshot()
	assert.True(t, snap.PanelOpen)
	assert.Equal(t, StateSuspended, snap.WakeState)
}

func TestClosePanelResumesWakeAfterDelay(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	h.c.OpenPanel()
	h.settle()
	assert.False(t, wake.Running())
	assert.False(t, h.snapshot().LauncherWakeListening)

	h.c.ClosePanel()
	h.settle()
	snap := h.snapshot()
	assert.Equal(t, statusReady, snap.Status)
	assert.True(t, snap.LauncherWakeListening)
	assert.Equal(t, StateSuspended, snap.WakeState)

	h.advance(499 * time.Millisecond)
	assert.Equal(t, 1, wake.Starts())

	h.advance(time.Millisecond)
	assert.Equal(t, 2, wake.Starts())
	assert.True(t, wake.Running())
	assert.Equal(t, StateActive, h.snapshot().WakeState)
}

func TestReopeningPanelCancelsPendingResume(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	h.c.OpenPanel()
	h.settle()
	h.c.ClosePanel()
	h.settle()
	h.advance(200 * time.Millisecond)
	h.c.OpenPanel()
	h.settle()

	h.advance(time.Second)
	assert.Equal(t, 1, wake.Starts())
	assert.False(t, wake.Running())
}

func TestClosePanelStopsCommandAndSubmits(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()
	cmd := h.activate()

	require.NoError(t, cmd.Final("hủy lịch hẹn"))
	h.settle()

	h.c.TogglePanel()
	h.settle()
	assert.Equal(t, []string{"hủy lịch hẹn"}, h.rec.submitted)
	assert.False(t, cmd.Running())
	assert.False(t, h.snapshot().PanelOpen)

	h.advance(500 * time.Millisecond)
	assert.True(t, wake.Running())
}

func TestWakeRestartsWhenSessionEnds(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	wake.End()
	h.settle()

	assert.True(t, wake.Running())
	assert.Equal(t, 2, wake.Starts())
	assert.Len(t, h.engine.Sessions(), 1)
	assert.Equal(t, StateActive, h.snapshot().WakeState)
}

func TestWakeRebuildsSessionWhenRestartFails(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	first := h.wake()

	first.FailNextStart(errors.New("recognizer busy"))
	first.End()
	h.settle()

	assert.Equal(t, 1, first.Aborts())
	assert.Len(t, h.engine.Sessions(), 1)
	assert.Equal(t, StateSuspended, h.snapshot().WakeState)

	h.advance(999 * time.Millisecond)
	assert.Len(t, h.engine.Sessions(), 1)

	h.advance(time.Millisecond)
	require.Len(t, h.engine.Sessions(), 2)
	second := h.wake()
	assert.NotSame(t, first, second)
	assert.True(t, second.Running())
	assert.Equal(t, StateActive, h.snapshot().WakeState)
}

func TestWakeBacksOffAfterNetworkFailure(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	first := h.wake()

	first.Fail(speech.ErrNetwork)
	first.End()
	h.settle()

	assert.Equal(t, 1, first.Starts(), "no immediate reconnect")
	assert.Equal(t, 1, first.Aborts())
	assert.Equal(t, StateSuspended, h.snapshot().WakeState)

	h.advance(999 * time.Millisecond)
	assert.Len(t, h.engine.Sessions(), 1)

	h.advance(time.Millisecond)
	require.Len(t, h.engine.Sessions(), 2)
	assert.True(t, h.wake().Running())
	assert.Equal(t, StateActive, h.snapshot().WakeState)
}

func TestWakeStartRetriesAfterFailure(t *testing.T) {
	h := newHarness(t, true)
	h.engine.FailNextSession(errors.New("no microphone"))
	h.start()

	assert.Empty(t, h.engine.Sessions())
	assert.Equal(t, StateSuspended, h.snapshot().WakeState)

	h.advance(2 * time.Second)
	wake := h.wake()
	require.NotNil(t, wake)
	assert.True(t, wake.Running())
}

func TestWakeRetryExhaustionResetsOnToggle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WakeStartRetry = RetryPolicy{MaxAttempts: 1, Delays: []time.Duration{2 * time.Second}}
	h := newHarnessWithConfig(t, cfg, true)
	h.engine.FailNextSession(errors.New("no microphone"))
	h.engine.FailNextSession(errors.New("no microphone"))
	h.start()

	h.advance(2 * time.Second)
	h.advance(10 * time.Second)
	assert.Empty(t, h.engine.Sessions())

	h.c.ToggleWakeWord()
	h.settle()
	h.c.ToggleWakeWord()
	h.settle()

	wake := h.wake()
	require.NotNil(t, wake)
	assert.True(t, wake.Running())
}

func TestToggleWakeWordPersistsAndStops(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	h.c.ToggleWakeWord()
	h.settle()
	assert.Equal(t, []bool{false}, h.prefs.writes)
	assert.False(t, wake.Running())
	assert.True(t, h.rec.hasNote(RoleAssistant, msgWakeOff))
	snap := h.snapshot()
	assert.Equal(t, StateIdle, snap.WakeState)
	assert.False(t, snap.WakeToggleActive)
	assert.False(t, snap.LauncherWakeListening)

	h.c.ToggleWakeWord()
	h.settle()
	assert.Equal(t, []bool{false, true}, h.prefs.writes)
	assert.True(t, h.rec.hasNote(RoleAssistant, msgWakeOn))
	assert.True(t, wake.Running())
	assert.Equal(t, 2, wake.Starts())
}

func TestEnablingWakeWordWithPanelOpenWaitsForClose(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()

	h.c.OpenPanel()
	h.settle()
	h.c.ToggleWakeWord()
	h.settle()
	h.c.ToggleWakeWord()
	h.settle()

	assert.False(t, wake.Running())
	assert.Equal(t, StateSuspended, h.snapshot().WakeState)

	h.c.ClosePanel()
	h.settle()
	h.advance(500 * time.Millisecond)
	assert.True(t, wake.Running())
}

func TestDisablingWakeWordKeepsCommandSession(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()

	h.c.ToggleWakeWord()
	h.settle()
	assert.True(t, cmd.Running())
	assert.Equal(t, StateActive, h.snapshot().CommandState)
}

func TestCommandRecognitionErrors(t *testing.T) {
	tests := []struct {
		name       string
		code       speech.ErrorCode
		wantNote   *note
		wantActive bool
	}{
		{name: "no speech keeps listening", code: speech.ErrNoSpeech, wantNote: &note{RoleAssistant, msgNoSpeech}, wantActive: true},
		{name: "not allowed", code: speech.ErrNotAllowed, wantNote: &note{RoleError, msgNotAllowed}},
		{name: "audio capture", code: speech.ErrAudioCapture, wantNote: &note{RoleError, msgAudioCapture}},
		{name: "network", code: speech.ErrNetwork, wantNote: &note{RoleError, msgNetwork}},
		{name: "aborted is silent", code: speech.ErrAborted},
		{name: "other codes are silent", code: speech.ErrBadGrammar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			h.start()
			cmd := h.activate()
			cmd.Begin()
			h.settle()

			cmd.Fail(tt.code)
			h.settle()

			for _, n := range h.rec.notes {
				if n.role == RoleError {
					require.NotNil(t, tt.wantNote, "unexpected error note %q", n.text)
				}
			}
			if tt.wantNote != nil {
				assert.True(t, h.rec.hasNote(tt.wantNote.role, tt.wantNote.text))
			}
			snap := h.snapshot()
			assert.Equal(t, tt.wantActive, cmd.Running())
			if tt.wantActive {
				assert.Equal(t, StateActive, snap.CommandState)
				return
			}
			assert.Equal(t, StateIdle, snap.CommandState)
			assert.False(t, snap.MicButtonListening)
			assert.Equal(t, statusReady, snap.Status)
		})
	}
}

func TestCommandSessionEndReturnsToIdle(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	wake := h.wake()
	cmd := h.activate()
	cmd.Begin()

	cmd.End()
	h.settle()
	snap := h.snapshot()
	assert.Equal(t, StateIdle, snap.CommandState)
	assert.False(t, snap.Listening)
	assert.False(t, wake.Running(), "panel is still open")
}

func TestPendingTextIsSubmittedWhenListeningRestarts(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	cmd := h.activate()

	require.NoError(t, cmd.Final("khám phụ khoa"))
	cmd.End()
	h.settle()

	h.c.ToggleMicrophone()
	h.settle()
	assert.Equal(t, []string{"khám phụ khoa"}, h.rec.submitted)
	assert.True(t, cmd.Running())
	assert.Empty(t, h.snapshot().Transcript)

	h.advance(2 * time.Second)
	assert.Len(t, h.rec.submitted, 1)
}

func TestCommandStartRetriesOnceWhenAlreadyStarted(t *testing.T) {
	h := newHarness(t, true)
	failed := false
	h.engine.Configure = func(s *speechtest.Session) {
		if s.Options.InterimResults && !failed {
			failed = true
			s.FailNextStart(speech.ErrAlreadyStarted)
		}
	}
	h.start()
	h.c.OpenPanel()
	h.settle()

	h.c.ToggleMicrophone()
	h.settle()
	stale := h.command()
	require.NotNil(t, stale)
	assert.Equal(t, 1, stale.Stops())
	assert.False(t, stale.Running())
	assert.Equal(t, StateSuspended, h.snapshot().CommandState)

	h.advance(100 * time.Millisecond)
	cmd := h.command()
	assert.NotSame(t, stale, cmd)
	assert.True(t, cmd.Running())
	assert.Equal(t, StateActive, h.snapshot().CommandState)
	assert.False(t, h.rec.hasNote(RoleError, msgStartFailed))
}

func TestCommandRetryIgnoresLateEndOfStoppedRun(t *testing.T) {
	h := newHarness(t, true)
	primed := false
	h.engine.Configure = func(s *speechtest.Session) {
		// The first command session is still busy with an earlier run.
		if s.Options.InterimResults && !primed {
			primed = true
			require.NoError(t, s.Start())
		}
	}
	h.start()
	h.c.OpenPanel()
	h.settle()

	h.c.ToggleMicrophone()
	h.settle()
	stale := h.command()
	require.NotNil(t, stale)
	assert.Equal(t, StateSuspended, h.snapshot().CommandState)

	h.advance(100 * time.Millisecond)
	cmd := h.command()
	require.NotSame(t, stale, cmd)
	require.True(t, cmd.Running())

	// The stopped run reports its end only after the retry is live.
	require.NoError(t, stale.Start())
	stale.End()
	h.settle()

	assert.True(t, cmd.Running())
	assert.Equal(t, StateActive, h.snapshot().CommandState)
	require.NoError(t, cmd.Final("đặt lịch"))
	h.settle()
	assert.Equal(t, "đặt lịch", h.snapshot().Transcript)
}

func TestCommandStartFailureNotifies(t *testing.T) {
	tests := []struct {
		name string
		errs []error
	}{
		{name: "already started twice", errs: []error{speech.ErrAlreadyStarted, speech.ErrAlreadyStarted}},
		{name: "other error", errs: []error{errors.New("device busy")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			h.engine.Configure = func(s *speechtest.Session) {
				if s.Options.InterimResults {
					for _, err := range tt.errs {
						s.FailNextStart(err)
					}
				}
			}
			h.start()
			h.c.ToggleMicrophone()
			h.settle()
			h.advance(time.Second)

			assert.True(t, h.rec.hasNote(RoleError, msgStartFailed))
			assert.Equal(t, StateIdle, h.snapshot().CommandState)
			assert.False(t, h.command().Running())
		})
	}
}

func TestUnsupportedEngine(t *testing.T) {
	h := newHarness(t, false)
	h.start()

	snap := h.snapshot()
	assert.False(t, snap.Supported)
	assert.Equal(t, StateIdle, snap.WakeState)

	h.c.ToggleMicrophone()
	h.settle()
	assert.True(t, h.rec.hasNote(RoleError, msgUnsupported))
	assert.Equal(t, StateIdle, h.snapshot().CommandState)
}

func TestRenderOnlyOnChange(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	h.c.OpenPanel()
	h.settle()
	renders := len(h.rec.renders)
	require.NotZero(t, renders)

	h.c.OpenPanel()
	h.settle()
	assert.Len(t, h.rec.renders, renders)
	assert.True(t, h.rec.renders[renders-1].PanelOpen)
}

func TestRandomInteractionsNeverShareMicrophone(t *testing.T) {
	h := newHarness(t, true)
	h.start()
	rng := rand.New(rand.NewSource(7))
	codes := []speech.ErrorCode{speech.ErrNoSpeech, speech.ErrAborted, speech.ErrNotAllowed, speech.ErrNetwork}

	for i := 0; i < 600; i++ {
		switch rng.Intn(9) {
		case 0:
			h.c.TogglePanel()
		case 1:
			h.c.ToggleMicrophone()
		case 2:
			h.c.ToggleWakeWord()
		case 3:
			if w := h.wake(); w != nil && w.Running() {
				_ = w.Final("trợ lý")
			}
		case 4:
			if c := h.command(); c != nil && c.Running() {
				_ = c.Final("đặt lịch")
			}
		case 5:
			if c := h.command(); c != nil && c.Running() {
				_ = c.Interim("khám")
			}
		case 6:
			for _, s := range h.engine.Sessions() {
				if s.Running() && rng.Intn(2) == 0 {
					s.End()
				}
			}
		case 7:
			if c := h.command(); c != nil && c.Running() {
				c.Fail(codes[rng.Intn(len(codes))])
			}
		case 8:
			h.advance(time.Duration(rng.Intn(1500)) * time.Millisecond)
		}
		h.settle()

		snap := h.snapshot()
		assert.Equal(t, snap.CommandState != StateIdle, snap.StatusListening)
		if snap.WakeState == StateActive {
			assert.Equal(t, StateIdle, snap.CommandState, "step %d", i)
			assert.False(t, snap.PanelOpen, "step %d", i)
			assert.True(t, snap.WakeWordEnabled, "step %d", i)
		}
	}
}
