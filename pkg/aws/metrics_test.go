package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetricsClient_RecordLatency(t *testing.T) {
	api := &fakeCloudWatch{}
	mc := newMetricsClient(api, "", true)

	err := mc.RecordLatency(context.Background(), MetricHTTPLatency, 1500*time.Millisecond,
		map[string]string{"Status": "2xx", "Method": "POST"})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Equal(t, DefaultMetricsNamespace, *in.Namespace)
	datum := in.MetricData[0]
	assert.Equal(t, MetricHTTPLatency, *datum.MetricName)
	assert.Equal(t, 1500.0, *datum.Value)
	assert.Equal(t, types.StandardUnitMilliseconds, datum.Unit)
	require.Len(t, datum.Dimensions, 2)
	assert.Equal(t, "Method", *datum.Dimensions[0].Name)
	assert.Equal(t, "Status", *datum.Dimensions[1].Name)
}

func TestMetricsClient_DisabledAndNil(t *testing.T) {
	api := &fakeCloudWatch{}
	assert.NoError(t, newMetricsClient(api, "ns", false).RecordCount(context.Background(), MetricLabelsCreated, nil))
	assert.Empty(t, api.inputs)

	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricQuotesCalculated, nil))
}

func TestMetricsClient_WrapsError(t *testing.T) {
	api := &fakeCloudWatch{err: errors.New("throttled")}
	err := newMetricsClient(api, "ns", true).RecordCount(context.Background(), MetricQuotesCalculated, nil)
	assert.ErrorContains(t, err, MetricQuotesCalculated)
	assert.ErrorContains(t, err, "throttled")
}
