/*
Copyright 2024 Csveer Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client used by Consumer and Producer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

const defaultMessageGroup = "csveer-dispatch"

// Message is a received notification.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	ReceiveCount  int
}

// Consumer long-polls one queue.
type Consumer struct {
	client      SQSAPI
	queueURL    string
	waitTime    int32
	maxMessages int32
}

type ConsumerOption func(*Consumer)

// WithWaitTime sets the long-poll wait in seconds.
func WithWaitTime(seconds int32) ConsumerOption {
	return func(c *Consumer) { c.waitTime = seconds }
}

func WithMaxMessages(n int32) ConsumerOption {
	return func(c *Consumer) { c.maxMessages = n }
}

func NewConsumer(client SQSAPI, queueURL string, opts ...ConsumerOption) (*Consumer, error) {
	if client == nil {
		return nil, errors.New("sqs client required")
	}
	if queueURL == "" {
		return nil, errors.New("queue URL required")
	}
	c := &Consumer{client: client, queueURL: queueURL, waitTime: 10, maxMessages: 1}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Receive blocks for at most the configured wait time. An empty slice means the
// wait elapsed with nothing to read.
func (c *Consumer) Receive(ctx context.Context) ([]Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.maxMessages,
		WaitTimeSeconds:     c.waitTime,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("receiving from %s: %w", c.queueURL, err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		}
		if count, ok := m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
			msg.ReceiveCount, _ = strconv.Atoi(count)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Ack deletes the message so it is not redelivered.
func (c *Consumer) Ack(ctx context.Context, m Message) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(m.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", m.ID, err)
	}
	return nil
}

// OutboundMessage is a message to send. DeduplicationID and GroupID only apply to
// FIFO queues.
type OutboundMessage struct {
	Body            string
	Attributes      map[string]string
	DeduplicationID string
	GroupID         string
}

// Producer sends to one queue.
type Producer struct {
	client   SQSAPI
	queueURL string
	fifo     bool
}

func NewProducer(client SQSAPI, queueURL string) (*Producer, error) {
	if client == nil {
		return nil, errors.New("sqs client required")
	}
	if queueURL == "" {
		return nil, errors.New("queue URL required")
	}
	return &Producer{client: client, queueURL: queueURL, fifo: IsFIFO(queueURL)}, nil
}

// IsFIFO reports whether queueURL names a FIFO queue.
func IsFIFO(queueURL string) bool {
	return strings.HasSuffix(queueURL, ".fifo")
}

// Send returns the id SQS assigned to the message.
func (p *Producer) Send(ctx context.Context, m OutboundMessage) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(m.Body),
	}
	if len(m.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(m.Attributes))
		for k, v := range m.Attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	if p.fifo {
		group := m.GroupID
		if group == "" {
			group = defaultMessageGroup
		}
		input.MessageGroupId = aws.String(group)
		if m.DeduplicationID != "" {
			input.MessageDeduplicationId = aws.String(m.DeduplicationID)
		}
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sending to %s: %w", p.queueURL, err)
	}
	return aws.ToString(out.MessageId), nil
}
