package main

import (
	"context"
	"errors"
	"fmt"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/auditsink/dynamo"
	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/delivery"
	"github.com/MrEthical07/goVerify/envconfig"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// openRedis connects to the configured Redis, or starts an in-process
// miniredis when DevRedis is set and no address is given.
func openRedis(cfg envconfig.ServerConfig, log logrus.FieldLogger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return client, func() { _ = client.Close() }, nil
	}
	if !cfg.DevRedis {
		return nil, nil, errors.New("GOVERIFY_REDIS_ADDR is required (or set GOVERIFY_DEV_REDIS=true)")
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	log.WithField("addr", mr.Addr()).Warn("using in-process miniredis; state is lost on restart")
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// buildSender picks SendGrid for email and Twilio, then SNS, for SMS. A
// channel without a provider falls back to the log sender.
func buildSender(ctx context.Context, cfg envconfig.ServerConfig, revealCodes bool, log logrus.FieldLogger) (codes.Sender, error) {
	tpl := delivery.NewTemplates(cfg.ServiceName, cfg.SiteURL)
	fallback := delivery.LogSender{Logger: log, RevealCode: revealCodes}
	router := delivery.Router{Email: fallback, SMS: fallback}

	if cfg.SendGrid.APIKey != "" {
		router.Email = delivery.NewSendGridSender(delivery.SendGridConfig{
			APIKey:      cfg.SendGrid.APIKey,
			FromName:    cfg.SendGrid.FromName,
			FromEmail:   cfg.SendGrid.FromEmail,
			SandboxMode: cfg.SendGrid.Sandbox,
		}, tpl)
		log.Info("email codes delivered through SendGrid")
	}

	switch {
	case cfg.Twilio.AccountSID != "":
		router.SMS = delivery.NewTwilioSender(delivery.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromPhone:  cfg.Twilio.FromPhone,
		}, tpl)
		log.Info("sms codes delivered through Twilio")
	case cfg.SNS.Region != "":
		sns, err := delivery.NewSNSSender(ctx, cfg.SNS.Region, cfg.SNS.SenderID, tpl)
		if err != nil {
			return nil, fmt.Errorf("sns sender: %w", err)
		}
		router.SMS = sns
		log.Info("sms codes delivered through SNS")
	}
	return router, nil
}

// buildAuditSink returns the DynamoDB sink when a table is configured and
// a logrus sink otherwise. nil means auditing stays off.
func buildAuditSink(ctx context.Context, cfg envconfig.ServerConfig, enabled bool, log logrus.FieldLogger) (goVerify.AuditSink, error) {
	if cfg.Dynamo.Table != "" {
		client, err := dynamo.NewClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.Endpoint)
		if err != nil {
			return nil, err
		}
		return dynamo.New(client, dynamo.Config{
			Table:     cfg.Dynamo.Table,
			Retention: cfg.Dynamo.Retention,
		}, log), nil
	}
	if enabled {
		return goVerify.NewLogrusSink(log), nil
	}
	return nil, nil
}
