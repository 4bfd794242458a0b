package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"autoservice-billing-api/internal/services"
	"autoservice-billing-api/pkg/lambda"
)

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := lambda.GetConnectionManager().GetContainer()
	if err != nil {
		return lambda.Error(err)
	}
	pricingService := container.Services.Pricing

	path := strings.TrimSuffix(event.Path, "/")
	switch {
	case event.HTTPMethod == http.MethodPost && strings.HasSuffix(path, "/pricing/quote"):
		var req services.QuoteRequest
		if err := lambda.DecodeBody(event, &req); err != nil {
			return lambda.Error(err)
		}
		result, err := pricingService.Quote(ctx, &req)
		if err != nil {
			return lambda.Error(err)
		}
		return lambda.JSON(http.StatusOK, result)

	case event.HTTPMethod == http.MethodPost && strings.HasSuffix(path, "/pricing/decompose"):
		var req services.DecomposeRequest
		if err := lambda.DecodeBody(event, &req); err != nil {
			return lambda.Error(err)
		}
		result, err := pricingService.Decompose(ctx, &req)
		if err != nil {
			return lambda.Error(err)
		}
		return lambda.JSON(http.StatusOK, result)

	case event.HTTPMethod == http.MethodGet && strings.HasSuffix(path, "/pricing/tax-configuration"):
		result, err := pricingService.TaxConfiguration(ctx)
		if err != nil {
			return lambda.Error(err)
		}
		return lambda.JSON(http.StatusOK, result)
	}

	return lambda.NotFound()
}

func main() {
	awslambda.Start(handler)
}
