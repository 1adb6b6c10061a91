// Package ses sends withdrawal notification emails via AWS SES.
package ses

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	appConfig "ndt-connect/internal/config"
	"ndt-connect/internal/models"
	"ndt-connect/internal/utils"
)

// Service handles SES email operations
type Service struct {
	client       *ses.Client
	fromEmail    string
	dashboardURL string
}

// EmailParams represents parameters for sending an email
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// SendEmailResult contains the result of sending an email
type SendEmailResult struct {
	MessageID string
	SentAt    time.Time
}

// NewService creates a new SES service
func NewService(ctx context.Context, cfg *appConfig.Config) (*Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		client:       ses.NewFromConfig(awsCfg),
		fromEmail:    cfg.SESSenderEmail,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

// SendEmail sends a basic email
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		utils.GetLogger().Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	utils.GetLogger().Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("subject", params.Subject),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}

// WithdrawalRequested confirms a new withdrawal request to the provider.
func (s *Service) WithdrawalRequested(ctx context.Context, to string, w *models.WithdrawalRequest) error {
	return s.sendWithdrawal(ctx, to, NewWithdrawalEmail(w, s.dashboardURL))
}

// WithdrawalStatusChanged tells the provider about an administrative status change.
func (s *Service) WithdrawalStatusChanged(ctx context.Context, to string, w *models.WithdrawalRequest) error {
	return s.sendWithdrawal(ctx, to, NewWithdrawalEmail(w, s.dashboardURL))
}

func (s *Service) sendWithdrawal(ctx context.Context, to string, email WithdrawalEmail) error {
	if to == "" {
		return ErrNoRecipient
	}

	htmlBody, err := email.HTML()
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	_, err = s.SendEmail(ctx, EmailParams{
		To:       to,
		Subject:  email.Subject(),
		HTMLBody: htmlBody,
		TextBody: email.Text(),
	})
	return err
}
