// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package audit

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/goccy/go-json"

	"github.com/griddeck/griddeck/core/logger"
)

// SQSConfiguration contains the configuration for the SQS notifier.
// Credentials come from configuration, which in turn reads them from the
// environment.
type SQSConfiguration struct {
	QueueURL  string
	AWSRegion string
	AccessID  string
	AccessKey string
}

// SQSNotifier sends events to an SQS queue.
type SQSNotifier struct {
	client   *sqs.Client
	queueURL string
}

var _ Notifier = &SQSNotifier{}

// NewSQSNotifier returns a notifier sending to the configured queue.
func NewSQSNotifier(sqsConfig SQSConfiguration) (*SQSNotifier, error) {
	if sqsConfig.QueueURL == "" {
		return nil, fmt.Errorf("QueueURL must not be empty")
	}

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(sqsConfig.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(sqsConfig.AccessID, sqsConfig.AccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	logger.Default().Infoln("audit notifications to sqs queue:", sqsConfig.QueueURL)
	return &SQSNotifier{
		client:   sqs.NewFromConfig(cfg),
		queueURL: sqsConfig.QueueURL,
	}, nil
}

// Notify sends one event.
func (n *SQSNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("cannot send audit event", event.EventID)
	}
	return err
}

// Close does nothing; the SQS client is stateless.
func (n *SQSNotifier) Close() error { return nil }
