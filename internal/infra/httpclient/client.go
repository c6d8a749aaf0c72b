package httpclient

import (
	"net/http"
	"time"
)

// New builds the client shared by the payment gateways and the number
// provider. The timeout caps the whole request, including body read.
func New(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
