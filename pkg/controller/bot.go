package controller

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/x-way/crawlerdetect"
	"go.uber.org/zap"

	"multiapi/pkg/logger"
	"multiapi/pkg/metrics"
)

// TrustHeader carries the shared secret that lets a known bot reach the root path.
const TrustHeader = "X-Authorized-Bot"

// Verdict is the outcome of the access gate.
type Verdict int

const (
	// Allow lets the request through.
	Allow Verdict = iota
	// AllowRootOnly lets a trusted bot through; it is only ever issued for the root path.
	AllowRootOnly
	// Block terminates the request with 403.
	Block
)

// Block codes reported to the client.
const (
	CodeBotDetected             = "BOT_DETECTED"
	CodeAuthorizedBotRestricted = "AUTHORIZED_BOT_RESTRICTED"
)

// Decision is the gate's answer for one request.
type Decision struct {
	Verdict Verdict
	// Code and Message are set for Block.
	Code    string
	Message string
	// Reason names the rule that produced the decision, for logs and metrics.
	Reason string
}

// Allowed reports whether the request may continue.
func (d Decision) Allowed() bool { return d.Verdict != Block }

// BotSignals are the request attributes the gate looks at.
type BotSignals struct {
	UserAgent   string
	Origin      string
	TrustHeader string
	Path        string
}

// SignalsFromRequest extracts BotSignals from r.
func SignalsFromRequest(r *http.Request) BotSignals {
	return BotSignals{
		UserAgent:   r.UserAgent(),
		Origin:      r.Header.Get("Origin"),
		TrustHeader: r.Header.Get(TrustHeader),
		Path:        r.URL.Path,
	}
}

// BotGateOptions configures the access gate.
type BotGateOptions struct {
	// AllowedOrigins bypass classification entirely.
	AllowedOrigins []string
	// Token is the expected TrustHeader value. Empty disables bot escalation.
	Token string
	// IsCrawler classifies a User-Agent. Defaults to crawlerdetect.IsCrawler.
	IsCrawler func(userAgent string) bool
}

// Decide classifies a request. Rules are evaluated in order:
//  1. API clients identifying as Postman are allowed.
//  2. Requests from an allow-listed Origin are allowed.
//  3. User agents not classified as crawlers are allowed.
//  4. Crawlers presenting the trust token may reach "/" only; everything else is blocked.
func Decide(s BotSignals, opts BotGateOptions) Decision {
	if strings.Contains(strings.ToLower(s.UserAgent), "postman") {
		return Decision{Verdict: Allow, Reason: "postman"}
	}

	if OriginAllowed(opts.AllowedOrigins, s.Origin) {
		return Decision{Verdict: Allow, Reason: "origin"}
	}

	isCrawler := opts.IsCrawler
	if isCrawler == nil {
		isCrawler = crawlerdetect.IsCrawler
	}
	if !isCrawler(s.UserAgent) {
		return Decision{Verdict: Allow, Reason: "human"}
	}

	if opts.Token != "" && subtle.ConstantTimeCompare([]byte(s.TrustHeader), []byte(opts.Token)) == 1 {
		if s.Path == "/" {
			return Decision{Verdict: AllowRootOnly, Reason: "trusted_bot"}
		}

		return Decision{
			Verdict: Block,
			Code:    CodeAuthorizedBotRestricted,
			Message: "Authorized bots may only access the root endpoint",
			Reason:  "trusted_bot_restricted",
		}
	}

	return Decision{
		Verdict: Block,
		Code:    CodeBotDetected,
		Message: "Bot traffic is not allowed",
		Reason:  "bot",
	}
}

// safeDecide runs Decide and fails open when it panics.
func safeDecide(r *http.Request, opts BotGateOptions) (d Decision) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(r.Context(), "bot classification failed, allowing request",
				zap.Any("panic", p),
				zap.String("user_agent", r.UserAgent()))
			d = Decision{Verdict: Allow, Reason: "classifier_error"}
		}
	}()

	return Decide(SignalsFromRequest(r), opts)
}

// WithBotGate returns a middleware that blocks crawler traffic according to Decide.
func WithBotGate(opts BotGateOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := safeDecide(r, opts)
			metrics.BotDecisions.WithLabelValues(d.Reason).Inc()

			fields := []zap.Field{
				zap.String("reason", d.Reason),
				zap.String("user_agent", r.UserAgent()),
				zap.String("client_ip", GetClientIP(r)),
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Bool("has_trust_header", r.Header.Get(TrustHeader) != ""),
			}

			switch d.Verdict {
			case Allow:
				if d.Reason == "postman" {
					logger.Info(r.Context(), "Postman detected, access allowed", fields...)
				}
			case AllowRootOnly:
				logger.Info(r.Context(), "Authorized bot access granted", fields...)
			case Block:
				logger.Warn(r.Context(), "Bot traffic blocked", append(fields, zap.String("code", d.Code))...)
				writeDenied(w, d.Message, d.Code)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
