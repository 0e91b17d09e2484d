// Package footer resolves the site-wide footer from the clinic backend.
package footer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

const (
	DefaultBgColor   = "#333333"
	DefaultTextColor = "#ffffff"
	DefaultPadding   = "32"
	DefaultTextAlign = "center"
	DefaultText      = "&copy; 2026 Phòng khám chuyên khoa Phụ Sản Đại Anh. All rights reserved."

	marginTop       = "3rem"
	fallbackPadding = "2rem"
)

// Source fetches footer content.
type Source interface {
	FooterContent(ctx context.Context) (*clinicapi.FooterContent, error)
}

// Style is the resolved footer. Fallback is set when the backend could not be reached;
// a fallback footer keeps whatever markup the page already has.
type Style struct {
	BgColor   string `json:"bgColor"`
	TextColor string `json:"textColor"`
	Padding   string `json:"padding"`
	TextAlign string `json:"textAlign"`
	MarginTop string `json:"marginTop"`
	Text      string `json:"text,omitempty"`
	Fallback  bool   `json:"fallback"`
}

// CSS renders the inline style for the footer element.
func (s Style) CSS() string {
	return fmt.Sprintf("background-color: %s; color: %s; padding: %s; text-align: %s; margin-top: %s;",
		s.BgColor, s.TextColor, s.Padding, s.TextAlign, s.MarginTop)
}

// HTML renders the footer body. Text is admin-authored markup and is not escaped.
func (s Style) HTML() string {
	if s.Fallback {
		return ""
	}
	return `<div class="container"><p style="margin: 0;">` + s.Text + `</p></div>`
}

// FallbackStyle is applied when the footer content cannot be loaded.
func FallbackStyle() Style {
	return Style{
		BgColor:   DefaultBgColor,
		TextColor: DefaultTextColor,
		Padding:   fallbackPadding,
		TextAlign: DefaultTextAlign,
		MarginTop: marginTop,
		Fallback:  true,
	}
}

// Resolve fills empty fields of content with defaults.
func Resolve(content clinicapi.FooterContent) Style {
	padding := strings.TrimSpace(content.Padding.String())
	if padding == "" || padding == "0" {
		padding = DefaultPadding
	}
	return Style{
		BgColor:   orDefault(content.BgColor, DefaultBgColor),
		TextColor: orDefault(content.TextColor, DefaultTextColor),
		Padding:   padding + "px",
		TextAlign: orDefault(content.TextAlign, DefaultTextAlign),
		MarginTop: marginTop,
		Text:      orDefault(content.Text, DefaultText),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Loader fetches and resolves the footer.
type Loader struct {
	source Source
	logger *logging.Logger
}

func NewLoader(source Source, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{source: source, logger: logger}
}

// Load never fails: backend errors produce FallbackStyle.
func (l *Loader) Load(ctx context.Context) Style {
	content, err := l.source.FooterContent(ctx)
	if err != nil {
		l.logger.Error("footer: load content failed", "error", err)
		return FallbackStyle()
	}
	if content == nil {
		content = &clinicapi.FooterContent{}
	}
	return Resolve(*content)
}
