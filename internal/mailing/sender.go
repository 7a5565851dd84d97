package mailing

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/pmonetwork/pmo-network/internal/config"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

// Message is a rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender builds the sender selected by cfg.Provider.
func NewSender(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogSender(), nil
	case "ses":
		return NewSESSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

// NewLogSender creates a development sender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send logs the message; the text body carries any links.
func (LogSender) Send(_ context.Context, msg *Message) error {
	logger.Info("email not sent (log provider)", "to", msg.To, "subject", msg.Subject)
	logger.Debug("email body", "subject", msg.Subject, "text", msg.Text)
	return nil
}

// SESAPI is the subset of the SES v2 client used by SESSender.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, opts ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends through Amazon SES v2.
type SESSender struct {
	client   SESAPI
	from     string
	fromName string
}

// NewSESSender uses static credentials when configured, the default AWS
// credential chain otherwise.
func NewSESSender(ctx context.Context, cfg config.MailConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SESRegion)}
	if cfg.SESAccessKey != "" && cfg.SESSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SESAccessKey, cfg.SESSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewSESSenderWithClient(sesv2.NewFromConfig(awsCfg), cfg.From, cfg.FromName), nil
}

// NewSESSenderWithClient wraps an existing client.
func NewSESSenderWithClient(client SESAPI, from, fromName string) *SESSender {
	return &SESSender{client: client, from: from, fromName: fromName}
}

// Send delivers msg as a simple HTML + text email.
func (s *SESSender) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return errors.New("mailing: empty recipient")
	}
	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.from)
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Text != "" {
		in.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	for k, v := range msg.Tags {
		in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String(k), Value: aws.String(v)})
	}

	out, err := s.client.SendEmail(ctx, in)
	if err != nil {
		logger.Warn("ses send failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return fmt.Errorf("ses send: %w", err)
	}
	logger.Info("ses sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}
