package bootstrap

import (
	"strings"

	appconfig "github.com/wolfman30/clinic-assistant/internal/config"
	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/internal/speech/wsasr"
	"github.com/wolfman30/clinic-assistant/internal/voice"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// BuildSpeechEngine returns the gateway engine, or nil when no gateway is
// configured. A nil engine leaves the widget in text-only mode.
func BuildSpeechEngine(cfg *appconfig.Config, logger *logging.Logger) (speech.Engine, error) {
	if cfg == nil || strings.TrimSpace(cfg.SpeechGatewayURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	engine, err := wsasr.New(wsasr.Config{
		URL:   cfg.SpeechGatewayURL,
		Token: cfg.SpeechGatewayToken,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("speech gateway configured", "url", cfg.SpeechGatewayURL)
	return engine, nil
}

// VoiceConfig maps application config onto coordinator timings. Zero values
// fall back to the coordinator defaults.
func VoiceConfig(cfg *appconfig.Config) voice.Config {
	if cfg == nil {
		return voice.DefaultConfig()
	}
	out := voice.Config{
		Language:          cfg.SpeechLanguage,
		AutoSendDelay:     cfg.AutoSendDelay,
		CommandStartDelay: cfg.CommandStartDelay,
		ResumeDelay:       cfg.ResumeDelay,
		StartRetryDelay:   cfg.StartRetryDelay,
	}
	if len(cfg.WakeWords) > 0 {
		out.WakeWords = voice.NewWakeWordSet(cfg.WakeWords...)
	}
	if cfg.WakeStartRetry > 0 {
		out.WakeStartRetry = voice.FixedRetry(cfg.WakeStartRetry)
	}
	if cfg.WakeRebuildBackoff > 0 {
		out.WakeRebuild = voice.FixedRetry(cfg.WakeRebuildBackoff)
	}
	return out
}
