package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/pkg/errors"
)

// Emitter publishes a counter increment for each matched event so
// that the change rate can be graphed and alarmed on externally.
type Emitter interface {
	EmitMatch(ctx context.Context, webACL string) error
}

// CloudWatchAPI is the part of the CloudWatch client the emitter uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchEmitter mirrors matched-event counts into a CloudWatch
// custom metric, one sample of value 1 per matched event,
// dimensioned by the Web ACL name.
type CloudWatchEmitter struct {
	client     CloudWatchAPI
	namespace  string
	metricName string
}

func NewCloudWatchEmitter(client CloudWatchAPI, namespace, metricName string) *CloudWatchEmitter {
	return &CloudWatchEmitter{
		client:     client,
		namespace:  namespace,
		metricName: metricName,
	}
}

// NewCloudWatchEmitterFromConfig initialises a CloudWatch client
// from the default AWS config chain.
func NewCloudWatchEmitterFromConfig(ctx context.Context, namespace, metricName string) (*CloudWatchEmitter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewCloudWatchEmitter(cloudwatch.NewFromConfig(cfg), namespace, metricName), nil
}

func (e *CloudWatchEmitter) EmitMatch(ctx context.Context, webACL string) error {
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &e.namespace,
		MetricData: []types.MetricDatum{
			{
				MetricName: &e.metricName,
				Timestamp:  aws.Time(time.Now().UTC()),
				Value:      aws.Float64(1),
				Unit:       types.StandardUnitCount,
				Dimensions: []types.Dimension{
					{
						Name:  aws.String("WebACL"),
						Value: &webACL,
					},
				},
			},
		},
	})
	return errors.Wrap(err, "putting metric data")
}

// NoopEmitter discards metric samples. Used when the CloudWatch
// mirror is disabled.
type NoopEmitter struct{}

func (NoopEmitter) EmitMatch(ctx context.Context, webACL string) error {
	return nil
}
