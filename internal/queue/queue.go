// Package queue sends remediation messages to SQS and polls guidance
// replies back off it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the slice of the SQS client the queue package uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Client wraps an SQS client with JSON message bodies.
type Client struct {
	sqs SQSAPI
}

// NewClient creates a queue client over an SQS API.
func NewClient(api SQSAPI) *Client {
	return &Client{sqs: api}
}

// SendMessage marshals message to JSON and sends it to the queue.
func (c *Client) SendMessage(ctx context.Context, queueURL string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	_, err = c.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	return nil
}

// Received is one message pulled off the queue. Delete acknowledges it.
type Received struct {
	Body          string
	ReceiptHandle string
}

// Receive long-polls for up to max messages.
func (c *Client) Receive(ctx context.Context, queueURL string, max int32) ([]Received, error) {
	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, fmt.Errorf("receiving messages: %w", err)
	}

	received := make([]Received, 0, len(out.Messages))
	for _, msg := range out.Messages {
		received = append(received, Received{
			Body:          aws.ToString(msg.Body),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		})
	}

	return received, nil
}

// Delete acknowledges a received message.
func (c *Client) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	return nil
}
