package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"trackmed/internal/domain/delivery"
)

const whapiBaseURL = "https://gate.whapi.cloud/messages"

// WhatsAppSender delivers reminder notifications through the whapi.cloud
// gateway API.
type WhatsAppSender struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewWhatsAppSender(token string) *WhatsAppSender {
	return &WhatsAppSender{
		client:  &http.Client{},
		baseURL: whapiBaseURL,
		token:   token,
	}
}

type whapiTextRequest struct {
	TypingTime int    `json:"typing_time"`
	To         string `json:"to"`
	Body       string `json:"body"`
}

func (s *WhatsAppSender) Send(ctx context.Context, to delivery.Recipient, msg delivery.Message) error {
	if to.PhoneNumber == "" {
		return fmt.Errorf("recipient has no phone number")
	}

	body := fmt.Sprintf(
		"*‼️REMINDER FOR %s💊 ‼️*\n\n%s\n\nIf you have taken them, open the link below:\n\n%s\n\nNeed a few more minutes? Snooze here:\n\n%s",
		strings.ToUpper(msg.MedicationName), msg.Body, msg.CompleteLink, msg.SnoozeLink,
	)

	payload, err := json.Marshal(whapiTextRequest{
		TypingTime: 10,
		To:         strings.TrimPrefix(to.PhoneNumber, "+") + "@s.whatsapp.net",
		Body:       body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/text?token=%s", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
