package delivery

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Publisher is the part of *sns.Client the sender uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender delivers SMS codes through AWS SNS as transactional messages.
type SNSSender struct {
	client    Publisher
	senderID  string
	templates *Templates
}

// NewSNSSender loads the default AWS configuration for region.
func NewSNSSender(ctx context.Context, region, senderID string, templates *Templates) (*SNSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSNSSenderWithClient(sns.NewFromConfig(awsCfg), senderID, templates), nil
}

func NewSNSSenderWithClient(client Publisher, senderID string, templates *Templates) *SNSSender {
	if templates == nil {
		templates = NewTemplates("", "")
	}
	return &SNSSender{client: client, senderID: senderID, templates: templates}
}

func (s *SNSSender) Deliver(ctx context.Context, d codes.Delivery) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(d.Identifier),
		Message:           aws.String(s.templates.SMSText(d)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns: %w", err)
	}
	return nil
}
