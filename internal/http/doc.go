// Package http is the in-process mock REST backend of the gym admin panel.
//
// The router exposes the following endpoints, all behind RequireSession:
//   - GET /members?q=&status=&plan=, POST /members: list (optionally filtered)
//     and create members. Bodies use the memberRequest payload defined in
//     member_handler.go; amount may be a JSON number or string.
//   - GET /members/{id}, PUT /members/{id}, DELETE /members/{id}.
//   - POST /members/reset: wipe stored members back to the seed dataset.
//   - GET /plans, POST /plans, GET/PUT/DELETE /plans/{id}, POST /plans/reset:
//     the same contract for plans; plan responses carry the computed total.
//   - GET /dashboard: aggregated member and plan statistics.
//
// Every success body is the envelope {"success":true,"data":...,"message":...}.
// Failures are {"success":false,"message":...} with 401 for missing, expired
// or invalid tokens, 404 for unknown ids, 422 for validation failures and 503
// for the injected network fault.
//
// NewInProcessTransport serves the router through an http.RoundTripper so
// clients exercise the real HTTP stack without opening a socket.
package http
