package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/infrastructure/metrics"
)

// HTTPService implements webhook notifications via HTTP POST.
type HTTPService struct {
	client *resty.Client
	url    string
	log    zerolog.Logger
}

// NewHTTPService creates a webhook service posting to url. An empty url disables delivery.
func NewHTTPService(url string, log zerolog.Logger) *HTTPService {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "jan-claims-api/1.0").
		SetRetryCount(2).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(8*time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	return &HTTPService{
		client: client,
		url:    url,
		log:    log.With().Str("component", "webhook").Logger(),
	}
}

// NotifyDecision posts a decision.recorded event.
func (s *HTTPService) NotifyDecision(ctx context.Context, record decision.Record) error {
	if s.url == "" {
		s.log.Debug().Str("call_id", record.CallID).Msg("no webhook URL configured, skipping notification")
		return nil
	}

	payload := WebhookPayload{
		ID:             record.CallID,
		Event:          EventDecisionRecorded,
		ToolName:       string(record.ToolName),
		State:          string(record.State),
		ClaimID:        record.ClaimID,
		ConversationID: record.ConversationID,
		Input:          record.Input,
		Output:         record.Output,
		DecidedAt:      formatTime(record.DecidedAt),
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Jan-Event", payload.Event).
		SetHeader("X-Jan-Call-ID", record.CallID).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		metrics.RecordWebhookDelivery("error")
		s.log.Warn().Err(err).Str("url", s.url).Str("call_id", record.CallID).Msg("webhook delivery failed")
		return fmt.Errorf("send webhook: %w", err)
	}
	if resp.IsError() {
		metrics.RecordWebhookDelivery("rejected")
		s.log.Warn().Int("status", resp.StatusCode()).Str("url", s.url).Str("call_id", record.CallID).Msg("webhook delivery failed")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	metrics.RecordWebhookDelivery("delivered")
	s.log.Info().Str("url", s.url).Int("status", resp.StatusCode()).Str("call_id", record.CallID).Msg("webhook delivered successfully")
	return nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}

var _ Service = (*HTTPService)(nil)
