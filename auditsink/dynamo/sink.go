package dynamo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus"
)

// PutItemAPI is the part of *dynamodb.Client the sink uses.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Record is the stored item shape. ExpiresAt feeds a DynamoDB TTL attribute.
type Record struct {
	EventID    string            `dynamodbav:"event_id"`
	EventType  string            `dynamodbav:"event_type"`
	Timestamp  string            `dynamodbav:"timestamp"`
	UserID     string            `dynamodbav:"user_id,omitempty"`
	Identifier string            `dynamodbav:"identifier,omitempty"`
	IP         string            `dynamodbav:"ip,omitempty"`
	Success    bool              `dynamodbav:"success"`
	Error      string            `dynamodbav:"error,omitempty"`
	Metadata   map[string]string `dynamodbav:"metadata,omitempty"`
	ExpiresAt  int64             `dynamodbav:"expires_at,omitempty"`
}

// Config names the table and bounds each write.
type Config struct {
	Table string
	// Retention sets ExpiresAt; zero keeps items forever.
	Retention    time.Duration
	WriteTimeout time.Duration
}

// Sink writes audit events to DynamoDB.
type Sink struct {
	client PutItemAPI
	cfg    Config
	log    logrus.FieldLogger
	failed atomic.Uint64
}

func New(client PutItemAPI, cfg Config, log logrus.FieldLogger) *Sink {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{client: client, cfg: cfg, log: log}
}

// NewClient creates a DynamoDB client for region. endpoint, when set,
// points it at a local DynamoDB or LocalStack.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return dynamodb.NewFromConfig(awsCfg, opts...), nil
}

func (s *Sink) Emit(ctx context.Context, event goVerify.AuditEvent) {
	item, err := attributevalue.MarshalMap(s.record(event))
	if err != nil {
		s.fail(event, fmt.Errorf("marshal audit event: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.Table),
		Item:      item,
	})
	if err != nil {
		s.fail(event, err)
	}
}

// Failed returns how many events could not be written.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

func (s *Sink) record(event goVerify.AuditEvent) Record {
	r := Record{
		EventID:    event.ID,
		EventType:  event.EventType,
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:     event.UserID,
		Identifier: event.Identifier,
		IP:         event.IP,
		Success:    event.Success,
		Error:      event.Error,
		Metadata:   event.Metadata,
	}
	if s.cfg.Retention > 0 {
		r.ExpiresAt = event.Timestamp.Add(s.cfg.Retention).Unix()
	}
	return r
}

func (s *Sink) fail(event goVerify.AuditEvent, err error) {
	s.failed.Add(1)
	s.log.WithError(err).WithFields(logrus.Fields{
		"audit_id":   event.ID,
		"event_type": event.EventType,
	}).Warn("audit event not written to dynamodb")
}
