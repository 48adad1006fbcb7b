package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// ErrNotConfigured is returned by senders that have no transport credentials.
var ErrNotConfigured = errors.New("mail sender not configured")

// Address is a display name and e-mail pair.
type Address struct {
	Name  string
	Email string
}

// Message is a plain e-mail with optional HTML body.
type Message struct {
	To       []Address
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Configured() bool
}

// SendgridSender posts messages to the SendGrid v3 API.
type SendgridSender struct {
	apiKey string
	from   Address
	api    func(ctx context.Context, req rest.Request) (*rest.Response, error)
}

// NewSendgridSender builds a sender. An empty apiKey yields an unconfigured sender.
func NewSendgridSender(apiKey string, from Address) *SendgridSender {
	return &SendgridSender{
		apiKey: apiKey,
		from:   from,
		api: func(ctx context.Context, req rest.Request) (*rest.Response, error) {
			return sendgrid.MakeRequestWithContext(ctx, req)
		},
	}
}

// Configured reports whether an API key is present.
func (s *SendgridSender) Configured() bool {
	return s != nil && s.apiKey != ""
}

// Send delivers msg. Responses with a 4xx or 5xx status are returned as errors.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mail has no recipients")
	}
	req := sendgrid.GetRequest(s.apiKey, sendgridEndpoint, sendgridHost)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(s.build(msg))

	res, err := s.api(ctx, req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send mail: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (s *SendgridSender) build(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Email))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.from.Name, s.from.Email))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}
