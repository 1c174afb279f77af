package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Sentinel errors matched by the typed errors below with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNetwork         = errors.New("network error")
	ErrRemote          = errors.New("remote error")
	ErrDecode          = errors.New("decode error")
)

// InvalidArgumentError reports caller misuse detected before any request is sent.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func invalidArgument(field, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// NetworkError wraps a transport failure with the attempted request.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// RemoteError is returned for any non-2xx response.
type RemoteError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// DecodeError reports a 2xx response whose body is not the expected JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// StatusCode returns the HTTP status carried by a RemoteError in err's chain, or 0.
func StatusCode(err error) int {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// newRemoteError extracts a message from a Kubernetes Status body or the
// console's own {"msg": ...} envelope.
func newRemoteError(resp *http.Response, body []byte) *RemoteError {
	msg := ""
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "msg", "error"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String {
				msg = strings.TrimSpace(v.String())
				if msg != "" {
					break
				}
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg, Body: body}
}
