package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider delivers a message and returns the provider's id for it.
type Provider interface {
	Send(ctx context.Context, m Message) (string, error)
}

const (
	DefaultResendURL = "https://api.resend.com/emails"
	DefaultSMSURL    = "https://api.twilio.com/2010-04-01"
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// ResendProvider sends email through the Resend HTTP API.
type ResendProvider struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{APIKey: apiKey, From: from, Endpoint: DefaultResendURL, Client: defaultHTTPClient()}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func (p *ResendProvider) Send(ctx context.Context, m Message) (string, error) {
	payload, err := json.Marshal(resendRequest{From: p.From, To: m.Recipients, Subject: m.Subject, Text: m.Body})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	var out struct {
		ID string `json:"id"`
	}
	if err := do(p.Client, req, &out); err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return out.ID, nil
}

// SMSProvider sends SMS through a Twilio-compatible Messages endpoint, one
// request per recipient.
type SMSProvider struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Client     *http.Client
}

func NewSMSProvider(baseURL, accountSID, authToken, from string) *SMSProvider {
	if baseURL == "" {
		baseURL = DefaultSMSURL
	}
	return &SMSProvider{BaseURL: strings.TrimRight(baseURL, "/"), AccountSID: accountSID, AuthToken: authToken, From: from, Client: defaultHTTPClient()}
}

// Send returns the message SIDs joined by commas. It stops at the first
// failing recipient.
func (p *SMSProvider) Send(ctx context.Context, m Message) (string, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", p.BaseURL, url.PathEscape(p.AccountSID))
	sids := make([]string, 0, len(m.Recipients))
	for _, to := range m.Recipients {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", p.From)
		form.Set("Body", m.Body)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(p.AccountSID, p.AuthToken)

		var out struct {
			SID string `json:"sid"`
		}
		if err := do(p.Client, req, &out); err != nil {
			return strings.Join(sids, ","), fmt.Errorf("sms to %s: %w", to, err)
		}
		sids = append(sids, out.SID)
	}
	return strings.Join(sids, ","), nil
}

func do(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = defaultHTTPClient()
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

// LogProvider writes messages to the log instead of sending them. It is
// used for channels without credentials.
type LogProvider struct {
	Logger *slog.Logger
}

func (p LogProvider) Send(_ context.Context, m Message) (string, error) {
	id := "log_" + uuid.NewString()
	if p.Logger != nil {
		p.Logger.Info("message not sent, no provider configured",
			"channel", m.Channel, "recipients", len(m.Recipients), "provider_id", id)
	}
	return id, nil
}
