package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"visara/internal/domain"
	"visara/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	toAddress   string
}

// NewSESSender creates a new SES-backed AlertSender.
func NewSESSender(region, fromAddress, toAddress string) (port.AlertSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return &sesSender{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
	}, nil
}

func (s *sesSender) SendRiskAlert(ctx context.Context, insp *domain.Inspection) error {
	subject := fmt.Sprintf("VISARA alert: inspection %s flagged %s risk", insp.ID, insp.RiskLevel)
	textBody := fmt.Sprintf(
		"Inspection %s (%s, %s mode) was flagged %s risk.\n\nFile: %s\nConfidence: %.2f\nWarnings: %d\nBackend: %s\nCreated by: %s at %s\n\nReview it in the VISARA console.",
		insp.ID, insp.Kind, insp.Mode, insp.RiskLevel,
		insp.FileName, insp.Confidence, insp.WarningsN, insp.Backend,
		insp.CreatedBy, insp.CreatedAt.Format("2006-01-02 15:04:05 UTC"))

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &s.fromAddress,
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
