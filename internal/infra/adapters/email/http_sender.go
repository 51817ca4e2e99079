package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"blessbox/internal/domain/ports/adapter"
	"blessbox/internal/infra/metrics"
)

var _ adapter.EmailSender = (*HTTPSender)(nil)

// HTTPSender delivers transactional email through a JSON-over-HTTP provider
// API. Template rendering happens provider-side; we pass the template name
// and its variables.
type HTTPSender struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

func NewHTTPSender(baseURL, apiKey, from string) (*HTTPSender, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("email sender: base_url and api_key are required")
	}
	return &HTTPSender{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type sendRequest struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"variables"`
	Tag      string            `json:"tag,omitempty"` // organization id for provider-side analytics
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *HTTPSender) Send(ctx context.Context, orgID, to string, template adapter.TemplateType, vars map[string]string) error {
	body, err := json.Marshal(sendRequest{
		From:     s.from,
		To:       to,
		Template: string(template),
		Vars:     vars,
		Tag:      orgID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.IncEmail(string(template), "error")
		return fmt.Errorf("email send: %w", err)
	}
	defer resp.Body.Close()

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.IncEmail(string(template), "error")
		return fmt.Errorf("email send: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		metrics.IncEmail(string(template), "rejected")
		return fmt.Errorf("email send: provider rejected (status=%d, error=%q)", resp.StatusCode, out.Error)
	}
	metrics.IncEmail(string(template), "sent")
	return nil
}
