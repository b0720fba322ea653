package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/pkg/errors"
)

// maxSubjectLength is the SNS limit on subject lines. Longer
// subjects cause the whole publish call to fail, so we truncate.
const maxSubjectLength = 100

// SNSPublishAPI is the part of the SNS client the notifier uses.
type SNSPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes messages to an SNS topic. Subscribers that
// have not confirmed their subscription silently do not receive
// messages until confirmed out-of-band.
type SNSNotifier struct {
	client   SNSPublishAPI
	topicARN string
}

// NewSNSNotifier returns a notifier publishing to the given topic
// with the provided client.
func NewSNSNotifier(client SNSPublishAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewSNSNotifierFromConfig initialises an SNS client from the
// default AWS config chain and returns a notifier for the topic.
func NewSNSNotifierFromConfig(ctx context.Context, topicARN string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewSNSNotifier(sns.NewFromConfig(cfg), topicARN), nil
}

func (n *SNSNotifier) Publish(ctx context.Context, subject, body string) error {
	subject = truncateSubject(subject)
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &n.topicARN,
		Subject:  &subject,
		Message:  &body,
	})
	return errors.Wrap(err, "publishing to SNS")
}

func truncateSubject(s string) string {
	if len(s) <= maxSubjectLength {
		return s
	}
	return s[:maxSubjectLength-3] + "..."
}
