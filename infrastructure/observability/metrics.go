// Package observability records operational metrics to CloudWatch.
// Everything here is best-effort: a metrics failure never fails the
// request that produced it.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const namespace = "Muse/Gateway"

// CloudWatchMetrics implements ports.MetricsRecorder
type CloudWatchMetrics struct {
	client *awscloudwatch.Client
	logger *zap.Logger
}

// NewCloudWatchMetrics creates the recorder
func NewCloudWatchMetrics(client *awscloudwatch.Client, logger *zap.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client, logger: logger}
}

// CountCommand counts one command invocation
func (m *CloudWatchMetrics) CountCommand(ctx context.Context, command string) {
	m.put(ctx, "CommandInvocations", 1, types.StandardUnitCount, command)
}

// CountRateLimited counts one rate-limit denial
func (m *CloudWatchMetrics) CountRateLimited(ctx context.Context, command string) {
	m.put(ctx, "RateLimitDenials", 1, types.StandardUnitCount, command)
}

// CountFollowupFailure counts one exhausted follow-up delivery
func (m *CloudWatchMetrics) CountFollowupFailure(ctx context.Context) {
	m.put(ctx, "FollowupFailures", 1, types.StandardUnitCount, "")
}

// ObserveLatency records a command's synchronous handling time
func (m *CloudWatchMetrics) ObserveLatency(ctx context.Context, command string, d time.Duration) {
	m.put(ctx, "CommandLatency", float64(d.Milliseconds()), types.StandardUnitMilliseconds, command)
}

func (m *CloudWatchMetrics) put(ctx context.Context, name string, value float64, unit types.StandardUnit, command string) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	}
	if command != "" {
		datum.Dimensions = []types.Dimension{
			{Name: aws.String("Command"), Value: aws.String(command)},
		}
	}

	_, err := m.client.PutMetricData(ctx, &awscloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil {
		m.logger.Debug("metric put failed", zap.String("metric", name), zap.Error(err))
	}
}

// NopMetrics is a no-op recorder for local development and tests
type NopMetrics struct{}

func (NopMetrics) CountCommand(context.Context, string)                 {}
func (NopMetrics) CountRateLimited(context.Context, string)            {}
func (NopMetrics) CountFollowupFailure(context.Context)                {}
func (NopMetrics) ObserveLatency(context.Context, string, time.Duration) {}
