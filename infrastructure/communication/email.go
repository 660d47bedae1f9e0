package communication

import (
	"bytes"
	"context"
	"fmt"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type EmailInfo struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Email sends failure reports through SES. Run summaries stay in Slack.
type Email struct {
	client  SESAPI
	from    string
	to      []string
	timeout time.Duration
}

func ConnectEmail(ctx context.Context, from string, to []string) (*Email, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewEmail(ses.NewFromConfig(cfg), from, to), nil
}

func NewEmail(client SESAPI, from string, to []string) *Email {
	return &Email{client: client, from: from, to: to, timeout: 30 * time.Second}
}

func (e *Email) Info(string) error {
	return nil
}

func (e *Email) Error(message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	return e.Send(ctx, &EmailInfo{
		From:    e.from,
		To:      e.to,
		Subject: "Punch export failed",
		Text:    message,
	})
}

func (e *Email) Send(ctx context.Context, info *EmailInfo) error {
	raw, err := BuildEmailBuffer(info)
	if err != nil {
		return err
	}
	if _, err := e.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage: &types.RawMessage{Data: raw.Bytes()},
	}); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func BuildEmailBuffer(info *EmailInfo) (*bytes.Buffer, error) {
	if info.From == "" || len(info.To) == 0 {
		return nil, fmt.Errorf("email needs a sender and at least one recipient")
	}

	var emailRaw bytes.Buffer
	headers := fmt.Sprintf("From: %s\r\n", info.From)
	headers += fmt.Sprintf("To: %s\r\n", strings.Join(info.To, ", "))
	headers += fmt.Sprintf("Subject: %s\r\n", info.Subject)
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/plain; charset=UTF-8\r\n"
	headers += "Content-Transfer-Encoding: quoted-printable\r\n"
	headers += "\r\n"
	emailRaw.WriteString(headers)

	qp := quotedprintable.NewWriter(&emailRaw)
	if _, err := qp.Write([]byte(info.Text)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}
	return &emailRaw, nil
}
