package lambda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// Dispatcher decodes raw invocation events and routes them to a handler.
// API Gateway proxy events carry httpMethod; anything else, including a bare
// {"queryStringParameters": {...}} payload, is treated as a Function URL event.
type Dispatcher struct {
	handler HandlerFunc
	logger  *logrus.Entry
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(handler HandlerFunc, logger *logrus.Entry) *Dispatcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{handler: handler, logger: logger}
}

type eventShape struct {
	HTTPMethod string `json:"httpMethod"`
}

// Invoke is the function entry point passed to the Lambda runtime
func (d *Dispatcher) Invoke(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var shape eventShape
	if err := json.Unmarshal(payload, &shape); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	if shape.HTTPMethod != "" {
		var event events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to decode API Gateway event: %w", err)
		}

		resp, err := d.handle(ctx, FromAPIGateway(event), "api_gateway")
		if err != nil {
			return nil, err
		}
		return resp.APIGatewayResponse(), nil
	}

	var event events.LambdaFunctionURLRequest
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode function URL event: %w", err)
	}

	resp, err := d.handle(ctx, FromFunctionURL(event), "function_url")
	if err != nil {
		return nil, err
	}
	return resp.FunctionURLResponse(), nil
}

func (d *Dispatcher) handle(ctx context.Context, req *Request, source string) (*Response, error) {
	logger := d.logger.WithFields(logrus.Fields{
		"request_id":   req.RequestID,
		"event_source": source,
	})

	resp, err := d.handler(ctx, req)
	if err != nil {
		logger.WithError(err).Error("Invocation failed")
		return nil, err
	}

	logger.WithField("status_code", resp.StatusCode).Info("Invocation completed")
	return resp, nil
}
