package lambda

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/services"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// ErrorBody is the JSON error payload returned by the serverless functions
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// DecodeBody unmarshals an API Gateway request body, decoding base64 first when flagged
func DecodeBody(event events.APIGatewayProxyRequest, v interface{}) error {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return fmt.Errorf("%w: body is not valid base64", services.ErrInvalidInput)
		}
		body = decoded
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
	}
	return nil
}

// JSON builds a JSON response
func JSON(status int, body interface{}) (events.APIGatewayProxyResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(data),
	}, nil
}

// Error maps a service error onto a JSON response. Unknown errors become a generic 500.
func Error(err error) (events.APIGatewayProxyResponse, error) {
	var invalid *pricing.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		return JSON(http.StatusBadRequest, ErrorBody{Error: "Invalid input", Message: invalid.Reason, Field: invalid.Field})
	case errors.Is(err, services.ErrInvalidInput):
		return JSON(http.StatusBadRequest, ErrorBody{Error: "Invalid input", Message: err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return JSON(http.StatusNotFound, ErrorBody{Error: "Not found", Message: err.Error()})
	default:
		return JSON(http.StatusInternalServerError, ErrorBody{Error: "Internal server error"})
	}
}

// NotFound is returned for unrouted paths
func NotFound() (events.APIGatewayProxyResponse, error) {
	return JSON(http.StatusNotFound, ErrorBody{Error: "Not found"})
}
