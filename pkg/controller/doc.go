// Package controller contains HTTP middlewares and helper handlers used by the API server.
//
// Provided middlewares:
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//   - WithSecurityHeaders: Sets browser hardening headers.
//   - WithRateLimit: Enforces a per-client-IP token bucket and answers 429 when exhausted.
//   - WithBotGate: Classifies the User-Agent and blocks crawlers unless trusted.
//   - WithCORS: Enforces the origin allow-list and handles OPTIONS preflight.
//
// Provided helpers:
//   - Decide: The pure access gate decision used by WithBotGate.
//   - PprofMux: Returns a ServeMux exposing net/http/pprof handlers.
package controller
