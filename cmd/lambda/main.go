// Command lambda serves the relay behind an API Gateway HTTP API.
package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/roomrelay/internal/app"
	"github.com/eldtechnologies/roomrelay/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("invalid configuration")
	}

	logger := app.NewLogger(cfg)

	// Connections are reused across warm invocations.
	relay, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	lambda.Start(newHandler(relay.Handler))
}

func newHandler(h http.Handler) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return func(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		req, err := toHTTPRequest(ctx, request)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "malformed request"), nil
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return toGatewayResponse(rec), nil
	}
}

func toHTTPRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := request.Body
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		body = string(decoded)
	}

	target := request.RawPath
	if target == "" {
		target = "/"
	}
	if request.RawQueryString != "" {
		target += "?" + request.RawQueryString
	}

	req, err := http.NewRequestWithContext(ctx, request.RequestContext.HTTP.Method, target, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range request.Headers {
		req.Header.Set(k, v)
	}
	if len(request.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(request.Cookies, "; "))
	}
	req.RemoteAddr = request.RequestContext.HTTP.SourceIP + ":0"
	req.RequestURI = target
	return req, nil
}

func toGatewayResponse(rec *httptest.ResponseRecorder) events.APIGatewayV2HTTPResponse {
	headers := make(map[string]string, len(rec.Header()))
	for k, v := range rec.Header() {
		headers[k] = strings.Join(v, ",")
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: rec.Code,
		Headers:    headers,
		Body:       rec.Body.String(),
	}
}

func errorResponse(code int, msg string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: code,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: `{"error":"` + msg + `"}`,
	}
}
