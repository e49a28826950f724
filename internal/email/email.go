package email

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/inbucket/html2text"
	qrcode "github.com/skip2/go-qrcode"
	gomail "github.com/wneessen/go-mail"
)

// Size in pixels of the QR code attached to invitation mails.
const qrImageSize = 256

// SMTPConfig holds the SMTP delivery settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Client sends calendar invitation emails.
type Client struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// Message represents an invitation email. RSVPURL, when set, is rendered as a
// QR code attachment so the invitee can respond from a phone.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string // optional, will be auto-generated from HTML if empty
	RSVPURL string
}

func NewClient(cfg SMTPConfig) *Client {
	return &Client{
		cfg:    cfg,
		logger: slog.With("component", "email"),
	}
}

// Send sends an invitation message.
func (c *Client) Send(msg *Message) error {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := gomail.NewMsg()
	if err := m.From(c.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)

	if msg.RSVPURL != "" {
		png, err := qrcode.Encode(msg.RSVPURL, qrcode.Medium, qrImageSize)
		if err != nil {
			// QR code is a convenience, the link is still in the body
			c.logger.Warn("Failed to generate RSVP QR code", "error", err)
		} else if err := m.AttachReader("rsvp_qr.png", bytes.NewReader(png)); err != nil {
			c.logger.Warn("Failed to attach RSVP QR code", "error", err)
		}
	}

	opts := []gomail.Option{gomail.WithPort(c.cfg.Port)}
	if c.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(c.cfg.Username),
			gomail.WithPassword(c.cfg.Password),
		)
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.Debug("Invitation email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func htmlToText(html string) (string, error) {
	return html2text.FromString(html, html2text.Options{PrettyTables: false})
}
