package http

import (
	"net/http"
	"net/http/httptest"
)

// InProcessTransport is an http.RoundTripper that serves requests directly
// from a handler. It stands in for the network between the admin panel and
// its mock backend.
type InProcessTransport struct {
	handler http.Handler
}

// NewInProcessTransport wraps handler as a RoundTripper.
func NewInProcessTransport(handler http.Handler) *InProcessTransport {
	return &InProcessTransport{handler: handler}
}

// RoundTrip implements http.RoundTripper.
func (t *InProcessTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	inbound := req.Clone(req.Context())
	inbound.RequestURI = req.URL.RequestURI()
	if inbound.Body == nil {
		inbound.Body = http.NoBody
	}

	recorder := httptest.NewRecorder()
	t.handler.ServeHTTP(recorder, inbound)

	res := recorder.Result()
	res.Request = req
	return res, nil
}
