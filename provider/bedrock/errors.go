package bedrock

import (
	"context"
	"errors"
	"net/http"

	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/polyprompt/polyprompt/llmerr"
)

// classifyError converts an error returned by RuntimeClient.Converse/
// ConverseStream into an *llmerr.Error, using smithy-go's typed API/HTTP
// error interfaces in place of the HTTP-status-code taxonomy every other
// provider adapter derives from a raw *http.Response, since the AWS SDK
// never hands this package a status code directly.
func classifyError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return llmerr.New("bedrock", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	if isRateLimited(err) {
		return llmerr.New("bedrock", llmerr.KindRateLimit, err).WithMessage("throttled by Bedrock")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		e := llmerr.New("bedrock", kindForAPIError(apiErr.ErrorCode()), err).
			WithCode(apiErr.ErrorCode()).
			WithMessage(apiErr.ErrorMessage())
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			e = e.WithHTTPStatus(respErr.HTTPStatusCode())
		}
		return e
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return llmerr.New("bedrock", llmerr.KindHTTP, err).WithHTTPStatus(respErr.HTTPStatusCode()).WithMessage("request failed")
	}
	return llmerr.New("bedrock", llmerr.KindProvider, err).WithMessage("converse call failed")
}

func kindForAPIError(code string) llmerr.Kind {
	switch code {
	case "ValidationException":
		return llmerr.KindInvalidRequest
	case "AccessDeniedException", "UnrecognizedClientException":
		return llmerr.KindAuth
	case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
		return llmerr.KindRateLimit
	case "ModelTimeoutException":
		return llmerr.KindTimeout
	case "InternalServerException", "ModelErrorException", "ServiceUnavailableException":
		return llmerr.KindProvider
	default:
		return llmerr.KindProvider
	}
}

// isRateLimited reports whether err represents a provider rate-limiting
// condition, treating both smithy API error codes and a raw HTTP 429 as
// rate-limited signals.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}
	return false
}
