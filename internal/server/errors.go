package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/partnerdesk/internal/auth/token"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	organizationdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	partneruserdomain "github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	"github.com/smallbiznis/partnerdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	msgPartnerScreen   = "That screen is not available. Please try again as a partner."
	msgRequestInvalid  = "Oops! Something went wrong with your Request"
	partnerRedirect    = "/dashboard"
	errorTypeForbidden = "forbidden"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Help     []string          `json:"help,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	// ErrPartnerOnly rejects callers who cannot act for the requested partner.
	ErrPartnerOnly        = errors.New("partner_only")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if seconds := retryAfterSeconds(lastErr.Err); seconds > 0 {
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// retryAfterSeconds rounds a throttling hint up to whole seconds.
func retryAfterSeconds(err error) int {
	var throttled *partneruserdomain.ThrottledError
	if !errors.As(err, &throttled) || throttled.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(throttled.RetryAfter.Seconds()))
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if reqErr, ok := requestdomain.AsValidationErrors(err); ok {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: msgRequestInvalid,
			Errors:  fromRequestErrors(reqErr),
		}
	}

	if isValidationError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    err.Error(),
					Message: validationErrorMessage(err),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, requestdomain.ErrInvalidPartnerUser):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrPartnerOnly):
		return http.StatusForbidden, errorPayload{
			Type:     errorTypeForbidden,
			Message:  msgPartnerScreen,
			Redirect: partnerRedirect,
		}
	case errors.Is(err, partneruserdomain.ErrAccessDenied):
		return http.StatusForbidden, errorPayload{
			Type:    errorTypeForbidden,
			Message: partneruserdomain.ErrAccessDenied.Error(),
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    errorTypeForbidden,
			Message: "forbidden",
		}
	case errors.Is(err, userdomain.ErrAlreadyAccepted):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: userdomain.ErrAlreadyAccepted.Error(),
		}
	case errors.Is(err, partneruserdomain.ErrTooManyEmails):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many emails sent to this address, try again later",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func fromRequestErrors(verrs *requestdomain.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(verrs.Errors))
	for _, e := range verrs.Errors {
		out = append(out, ValidationError{Field: e.Field, Message: e.Message})
	}
	return out
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, requestdomain.ErrInvalidPartner),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, userdomain.ErrInvalidPassword),
		errors.Is(err, userdomain.ErrInvalidToken),
		errors.Is(err, userdomain.ErrUserExists),
		errors.Is(err, catalogdomain.ErrInvalidUnit):
		return true
	default:
		return false
	}
}

func validationErrorField(err error) string {
	switch {
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "page_token"
	case errors.Is(err, requestdomain.ErrInvalidPartner):
		return "partner_id"
	case errors.Is(err, userdomain.ErrInvalidEmail), errors.Is(err, userdomain.ErrUserExists):
		return "email"
	case errors.Is(err, userdomain.ErrInvalidRole):
		return "role"
	case errors.Is(err, userdomain.ErrInvalidPassword):
		return "password"
	case errors.Is(err, userdomain.ErrInvalidToken):
		return "token"
	case errors.Is(err, catalogdomain.ErrInvalidUnit):
		return "request_unit"
	default:
		return "request"
	}
}

func validationErrorMessage(err error) string {
	switch {
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "invalid page token"
	case errors.Is(err, userdomain.ErrInvalidEmail):
		return "is invalid"
	case errors.Is(err, userdomain.ErrUserExists):
		return "has already been taken"
	case errors.Is(err, userdomain.ErrInvalidPassword):
		return "is too short"
	case errors.Is(err, userdomain.ErrInvalidToken):
		return "is invalid or has expired"
	default:
		return "is invalid"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, requestdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, partneruserdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
