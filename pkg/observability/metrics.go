package observability

import (
	"context"
	"fmt"

	"taskgraph/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const metricNamespace = "TaskGraph"

// CloudWatchMetrics publishes graph health metrics to CloudWatch.
type CloudWatchMetrics struct {
	client      *cloudwatch.Client
	environment string
	logger      *zap.Logger
}

// NewCloudWatchMetrics creates a CloudWatch metrics publisher.
func NewCloudWatchMetrics(client *cloudwatch.Client, environment string, logger *zap.Logger) ports.MetricsPublisher {
	return &CloudWatchMetrics{
		client:      client,
		environment: environment,
		logger:      logger,
	}
}

// PublishHealthScore reports one junction integrity check outcome.
func (m *CloudWatchMetrics) PublishHealthScore(ctx context.Context, score, totalJunctions, errors, warnings int) error {
	dimensions := []types.Dimension{
		{Name: aws.String("Environment"), Value: aws.String(m.environment)},
	}

	datum := func(name string, value int) types.MetricDatum {
		return types.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(float64(value)),
			Unit:       types.StandardUnitCount,
			Dimensions: dimensions,
		}
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []types.MetricDatum{
			datum("JunctionHealthScore", score),
			datum("TotalJunctions", totalJunctions),
			datum("ValidationErrors", errors),
			datum("ValidationWarnings", warnings),
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("failed to publish health metrics: %w", err)
	}

	m.logger.Debug("Health metrics published",
		zap.Int("healthScore", score),
		zap.Int("totalJunctions", totalJunctions),
	)
	return nil
}

// NoopMetrics discards metrics. Used when metrics publishing is disabled.
type NoopMetrics struct{}

// NewNoopMetrics creates a metrics publisher that drops every datum.
func NewNoopMetrics() ports.MetricsPublisher {
	return &NoopMetrics{}
}

func (m *NoopMetrics) PublishHealthScore(ctx context.Context, score, totalJunctions, errors, warnings int) error {
	return nil
}
