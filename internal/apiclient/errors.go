package apiclient

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/netwatch-oss/triggerkit/internal/errors"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// statusError categorizes a failed response: 404 is not-found, 409 is a
// conflict, 400 and 422 are server-side validation, the rest is transport.
func statusError(method, url string, code int, body []byte) error {
	se := &StatusError{Method: method, URL: url, StatusCode: code, Message: responseMessage(body)}

	category := errors.CategoryTransport
	switch code {
	case http.StatusNotFound:
		category = errors.CategoryNotFound
	case http.StatusConflict:
		category = errors.CategoryConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		category = errors.CategoryValidation
	}
	return errors.New(se).
		Component(component).
		Category(category).
		Context("status", code).
		Build()
}

// responseMessage pulls "message" out of an error envelope, falling back to
// the trimmed body.
func responseMessage(body []byte) string {
	if obj, err := jason.NewObjectFromBytes(body); err == nil {
		if msg, err := obj.GetString("message"); err == nil {
			return msg
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return msg
}

func transportError(method, url string, err error) error {
	return errors.New(fmt.Errorf("%s %s: %w", method, url, err)).
		Component(component).
		Category(errors.CategoryTransport).
		Build()
}

func decodeError(what string, err error) error {
	return errors.New(fmt.Errorf("failed to decode %s: %w", what, err)).
		Component(component).
		Category(errors.CategoryTransport).
		Build()
}
