//go:build integration && localstack
// +build integration,localstack

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/a11ykit/remedia/internal/dispatch"
)

// TestClient_LocalStackIntegration exercises the real SQS wire path against
// LocalStack. Requires Docker; tagged with the localstack build constraint.
func TestClient_LocalStackIntegration(t *testing.T) {
	ctx := context.Background()

	localstackContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "localstack/localstack:latest",
			ExposedPorts: []string{"4566/tcp"},
			Env: map[string]string{
				"SERVICES":       "sqs",
				"DEFAULT_REGION": "us-east-1",
			},
			WaitingFor: wait.ForHTTP("/health").WithPort("4566/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer localstackContainer.Terminate(ctx)

	endpoint, err := localstackContainer.Endpoint(ctx, "4566/tcp")
	require.NoError(t, err)
	localstackURL := fmt.Sprintf("http://%s", endpoint)

	customResolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               localstackURL,
			HostnameImmutable: true,
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithEndpointResolver(customResolver),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	require.NoError(t, err)

	sqsClient := sqs.NewFromConfig(cfg)

	created, err := sqsClient.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String("remediation-test"),
	})
	require.NoError(t, err)
	queueURL := aws.ToString(created.QueueUrl)

	client := NewClient(sqsClient)

	msg := dispatch.Message{
		Type:         "guidance:accessibility-remediation",
		SiteID:       "site-1",
		AuditID:      "audit-1",
		DeliveryType: "edge",
		Time:         time.Now().UTC().Format(time.RFC3339),
		Data: dispatch.MessageData{
			URL:           "https://example.com/",
			OpportunityID: "opp-1",
		},
	}
	require.NoError(t, client.SendMessage(ctx, queueURL, msg))

	received, err := client.Receive(ctx, queueURL, 1)
	require.NoError(t, err)
	require.Len(t, received, 1)

	var roundTripped dispatch.Message
	require.NoError(t, json.Unmarshal([]byte(received[0].Body), &roundTripped))
	assert.Equal(t, "site-1", roundTripped.SiteID)
	assert.Equal(t, "opp-1", roundTripped.Data.OpportunityID)

	require.NoError(t, client.Delete(ctx, queueURL, received[0].ReceiptHandle))
}
