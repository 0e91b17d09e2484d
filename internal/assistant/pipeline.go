package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

const (
	msgConnectFailed     = "Không thể kết nối đến server. Vui lòng kiểm tra kết nối mạng."
	msgGenericFailure    = "Có lỗi xảy ra. Vui lòng thử lại."
	msgFeedbackThanks    = "✅ Cảm ơn bạn đã phản hồi! Tôi sẽ học từ phản hồi này để cải thiện."
	msgFeedbackRejected  = "Không thể gửi phản hồi. Vui lòng thử lại."
	msgFeedbackNoNetwork = "Không thể gửi phản hồi. Vui lòng kiểm tra kết nối."
)

// DefaultConfidence is assumed when the backend omits one.
const DefaultConfidence = 0.8

// QuickCommands are the canned prompts offered under the input box.
var QuickCommands = []string{
	"tìm kiếm bệnh nhân",
	"xem danh sách khám",
	"xem lịch làm việc",
	"trang chủ",
}

var (
	ErrEmptyMessage    = errors.New("assistant: message is empty")
	ErrInvalidFeedback = errors.New("assistant: feedback must be positive or negative")
	ErrMissingID       = errors.New("assistant: interaction id is required")
	ErrQueueFull       = errors.New("assistant: submission queue full")
)

// ChatClient is the slice of the clinic backend the pipeline talks to.
type ChatClient interface {
	Chat(ctx context.Context, req clinicapi.ChatRequest) (*clinicapi.ChatResponse, error)
	Feedback(ctx context.Context, req clinicapi.FeedbackRequest) (*clinicapi.FeedbackResponse, error)
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Page       clinicapi.PageContext
	Normalizer *Normalizer
	QueueSize  int
}

// Pipeline turns user text into chat requests and records the conversation.
type Pipeline struct {
	client     ChatClient
	history    *History
	page       Page
	pageCtx    clinicapi.PageContext
	normalizer *Normalizer
	metrics    *metrics.AssistantMetrics
	logger     *logging.Logger
	now        func() time.Time

	queue chan string
}

// NewPipeline wires a pipeline. page may be nil when no host page is attached.
func NewPipeline(client ChatClient, history *History, page Page, cfg PipelineConfig, m *metrics.AssistantMetrics, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = defaultNormalizer
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &Pipeline{
		client:     client,
		history:    history,
		page:       page,
		pageCtx:    cfg.Page,
		normalizer: cfg.Normalizer,
		metrics:    m,
		logger:     logger.Component("assistant"),
		now:        time.Now,
		queue:      make(chan string, cfg.QueueSize),
	}
}

// History exposes the conversation.
func (p *Pipeline) History() *History { return p.history }

// Send records text as a user message, asks the backend and records the reply.
// Backend failures become error entries; only empty input is returned as an error.
func (p *Pipeline) Send(ctx context.Context, text string) (ConversationEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ConversationEntry{}, ErrEmptyMessage
	}
	p.history.Append(ctx, ConversationEntry{Role: RoleUser, Text: text})

	started := p.now()
	resp, err := p.client.Chat(ctx, clinicapi.ChatRequest{
		Message:         p.normalizer.Normalize(text),
		OriginalMessage: text,
		Context:         p.pageCtx,
	})
	elapsed := p.now().Sub(started).Seconds()
	if err != nil {
		p.metrics.ObserveChat("error", elapsed)
		p.logger.Error("assistant: chat request failed", "error", err)
		return p.history.Append(ctx, ConversationEntry{Role: RoleError, Text: msgConnectFailed}), nil
	}
	if !resp.Success {
		p.metrics.ObserveChat("rejected", elapsed)
		msg := resp.Error
		if msg == "" {
			msg = msgGenericFailure
		}
		return p.history.Append(ctx, ConversationEntry{Role: RoleError, Text: msg}), nil
	}
	p.metrics.ObserveChat("ok", elapsed)

	reply := ConversationEntry{Role: RoleAssistant, Text: resp.Response}
	if resp.InteractionID != "" {
		confidence := DefaultConfidence
		if resp.Confidence != nil {
			confidence = *resp.Confidence
		}
		reply.InteractionID = resp.InteractionID
		reply.DetectedIntent = resp.DetectedIntent
		reply.Confidence = &confidence
	}
	reply = p.history.Append(ctx, reply)

	if resp.Action != nil {
		if err := Dispatch(ctx, p.page, *resp.Action); err != nil {
			p.logger.Warn("assistant: action failed", "type", resp.Action.Type, "error", err)
		}
	}
	return reply, nil
}

// SendQuickCommand sends one of the canned prompts.
func (p *Pipeline) SendQuickCommand(ctx context.Context, cmd string) (ConversationEntry, error) {
	p.metrics.ObserveSubmission("quick")
	return p.Send(ctx, cmd)
}

// SendFeedback rates an interaction and records the outcome as a bubble.
func (p *Pipeline) SendFeedback(ctx context.Context, id clinicapi.InteractionID, feedback string) (ConversationEntry, error) {
	if id == "" {
		return ConversationEntry{}, ErrMissingID
	}
	if feedback != clinicapi.FeedbackPositive && feedback != clinicapi.FeedbackNegative {
		return ConversationEntry{}, ErrInvalidFeedback
	}
	resp, err := p.client.Feedback(ctx, clinicapi.FeedbackRequest{InteractionID: id, Feedback: feedback})
	if err != nil {
		p.logger.Error("assistant: feedback request failed", "interaction_id", string(id), "error", err)
		return p.history.Append(ctx, ConversationEntry{Role: RoleError, Text: msgFeedbackNoNetwork}), nil
	}
	if !resp.Success {
		return p.history.Append(ctx, ConversationEntry{Role: RoleError, Text: msgFeedbackRejected}), nil
	}
	return p.history.Append(ctx, ConversationEntry{Role: RoleAssistant, Text: msgFeedbackThanks}), nil
}

// Notify appends a bubble without contacting the backend.
func (p *Pipeline) Notify(ctx context.Context, role, text string) {
	p.history.Append(ctx, ConversationEntry{Role: role, Text: text})
}

// Submit queues recognized text for Run. It never blocks; a full queue drops the text.
func (p *Pipeline) Submit(text string) {
	if err := p.TrySubmit(text); err != nil {
		p.logger.Warn("assistant: dropping voice submission", "error", err)
	}
}

// TrySubmit is Submit with the drop reported.
func (p *Pipeline) TrySubmit(text string) error {
	select {
	case p.queue <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run sends queued submissions in order until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-p.queue:
			if _, err := p.Send(ctx, text); err != nil && !errors.Is(err, ErrEmptyMessage) {
				p.logger.Error("assistant: queued send failed", "error", err)
			}
		}
	}
}
