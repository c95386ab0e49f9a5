package remote

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of *sqs.Client used by SQSSender
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender relays actions to an SQS queue that fronts the API.
// A successful SendMessage is reported as 202 Accepted.
type SQSSender struct {
	client   SQSAPI
	queueUrl string
}

// NewSQSSender creates a new SQS relay
func NewSQSSender(client SQSAPI, queueUrl string) *SQSSender {
	return &SQSSender{
		client:   client,
		queueUrl: queueUrl,
	}
}

func (s *SQSSender) Send(ctx context.Context, req Request) (*Response, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueUrl),
		MessageBody: aws.String(string(req.Body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action-type": {DataType: aws.String("String"), StringValue: aws.String(req.ActionType)},
			"action-id":   {DataType: aws.String("String"), StringValue: aws.String(req.ActionID)},
			"method":      {DataType: aws.String("String"), StringValue: aws.String(req.Method)},
			"path":        {DataType: aws.String("String"), StringValue: aws.String(req.Path)},
		},
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		return nil, err
	}

	var body []byte
	if out.MessageId != nil {
		body = []byte(*out.MessageId)
	}
	return &Response{Status: http.StatusAccepted, Body: body}, nil
}
