package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/eventsphere/internal/model"
)

const postmarkURL = "https://api.postmarkapp.com/email"

const dateLayout = "Monday, January 2, 2006 at 3:04 PM"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	loc         *time.Location
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLocation sets the time zone event dates are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(cl *Client) {
		cl.loc = loc
	}
}

// NewClient creates a Postmark client. baseURL is the frontend origin used for links.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		loc:         time.UTC,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a server token is set. Unconfigured clients
// refuse to send.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// postmarkError is the body Postmark returns with a 4xx status.
type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// SendRSVPConfirmation tells an attendee their RSVP was recorded.
func (c *Client) SendRSVPConfirmation(toEmail, toName string, ev model.Event) error {
	when := ev.Date.In(c.loc).Format(dateLayout)
	subject := fmt.Sprintf("RSVP Confirmed: %s", ev.Title)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour RSVP for %s is confirmed.\n\nDate: %s\nLocation: %s\n\nBring the QR code from your dashboard for check-in.",
		toName, ev.Title, when, ev.Location,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your RSVP for <strong>%s</strong> is confirmed.</p><p>Date: %s<br>Location: %s</p><p>Bring the QR code from your dashboard for check-in.</p>`,
		html.EscapeString(toName), html.EscapeString(ev.Title), when, html.EscapeString(ev.Location),
	)
	return c.send("rsvp-confirmation", toEmail, subject, htmlBody, textBody)
}

// SendEventReminder reminds an attendee of an upcoming event.
func (c *Client) SendEventReminder(toEmail, toName string, ev model.EventSummary) error {
	when := ev.Date.In(c.loc).Format(dateLayout)
	subject := fmt.Sprintf("Reminder: %s is coming up", ev.Title)
	textBody := fmt.Sprintf(
		"Hi %s,\n\n%s starts %s at %s.\n\nSee you there!",
		toName, ev.Title, when, ev.Location,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p><strong>%s</strong> starts %s at %s.</p><p>See you there!</p>`,
		html.EscapeString(toName), html.EscapeString(ev.Title), when, html.EscapeString(ev.Location),
	)
	return c.send("event-reminder", toEmail, subject, htmlBody, textBody)
}

// SendPasswordReset sends a reset link that expires in one hour.
func (c *Client) SendPasswordReset(toEmail, toName, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", c.baseURL, token)

	subject := "Reset your EventSphere password"
	textBody := fmt.Sprintf(
		"Hi %s,\n\nUse the link below to reset your password:\n\n%s\n\nThis link expires in 1 hour. If you did not ask for a reset, ignore this email.",
		toName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p><a href="%s">Reset your password</a></p><p>This link expires in 1 hour. If you did not ask for a reset, ignore this email.</p>`,
		html.EscapeString(toName), link,
	)
	return c.send("password-reset", toEmail, subject, htmlBody, textBody)
}

func (c *Client) send(tag, toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
		Tag:      tag,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s email: %w", tag, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var pe postmarkError
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&pe); err == nil && pe.Message != "" {
			return fmt.Errorf("postmark %s: status %d, code %d: %s", tag, resp.StatusCode, pe.ErrorCode, pe.Message)
		}
		return fmt.Errorf("postmark %s: status %d", tag, resp.StatusCode)
	}
	return nil
}
