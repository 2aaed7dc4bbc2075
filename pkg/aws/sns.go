package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// EventMessage is one shipment event bound for SNS.
type EventMessage struct {
	// EventType becomes the event_type message attribute so subscribers
	// can filter without decoding the body.
	EventType string
	// GroupKey orders events of one order on FIFO topics; ignored otherwise.
	GroupKey string
	Body     []byte
}

// SNSPublisher publishes shipment events.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, msg EventMessage) error
}

// SNSClient publishes shipment events.
type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// Publish sends msg to the topic. FIFO topics (".fifo" suffix) get a
// message group so events for one order stay ordered.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, msg EventMessage) error {
	if err := msg.validate(topicArn); err != nil {
		return err
	}
	_, err := s.client.Publish(ctx, buildPublishInput(topicArn, msg))
	if err != nil {
		return fmt.Errorf("sns publish %s to %s: %w", msg.EventType, topicArn, err)
	}
	return nil
}

func (m EventMessage) validate(topicArn string) error {
	if topicArn == "" {
		return errors.New("empty topicArn")
	}
	if len(m.Body) == 0 {
		return errors.New("empty message body")
	}
	if isFIFOTopic(topicArn) && m.GroupKey == "" {
		return errors.New("fifo topic requires a group key")
	}
	return nil
}

func buildPublishInput(topicArn string, msg EventMessage) *sns.PublishInput {
	in := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(msg.Body)),
	}
	if msg.EventType != "" {
		in.MessageAttributes = map[string]types.MessageAttributeValue{
			"event_type": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(msg.EventType)},
		}
	}
	if isFIFOTopic(topicArn) {
		in.MessageGroupId = sdkaws.String(msg.GroupKey)
	}
	return in
}

func isFIFOTopic(topicArn string) bool {
	return strings.HasSuffix(topicArn, ".fifo")
}
