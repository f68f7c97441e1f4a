// Package sender bounds and instruments outbound Bot API calls.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
)

var (
	// ErrClosed is returned when a call is attempted after Close.
	ErrClosed = errors.New("telegram sender: closed")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound limiter.
type Options struct {
	// Concurrency bounds in-flight calls across all updates.
	Concurrency int
	// Timeout bounds a single call including the wait for a slot.
	Timeout time.Duration
	Metrics *metrics.Metrics
}

type job struct {
	action   string
	endpoint string
}

// Limiter runs outbound Telegram calls synchronously under a weighted
// semaphore. Calls are never retried; the caller decides how to degrade.
type Limiter struct {
	opts   Options
	sem    *semaphore.Weighted
	closed atomic.Bool
	errs   atomic.Uint64
}

// New returns a limiter with defaults applied to zeroed options.
func New(opts Options) *Limiter {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Limiter{opts: opts, sem: semaphore.NewWeighted(int64(opts.Concurrency))}
}

// Do acquires a slot and runs fn. The error from fn is returned unchanged so
// callers can match telebot sentinel errors.
func (l *Limiter) Do(ctx context.Context, action, endpoint string, fn func() error) error {
	if fn == nil {
		return errors.New("telegram sender: nil run function")
	}
	if l.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{action: action, endpoint: endpoint}

	deadlineCtx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	start := time.Now()
	if err := l.sem.Acquire(deadlineCtx, 1); err != nil {
		l.fail(ctx, j, err, time.Since(start))
		return err
	}
	defer l.sem.Release(1)

	logger.Debug(ctx, "tg.sender", "send.start", sendLogAttrs(ctx, j)...)
	if err := fn(); err != nil {
		l.fail(ctx, j, err, time.Since(start))
		return err
	}
	l.opts.Metrics.Send(action, "ok")
	logSendSuccess(ctx, j, time.Since(start))
	return nil
}

func (l *Limiter) fail(ctx context.Context, j job, err error, took time.Duration) {
	l.errs.Add(1)
	l.opts.Metrics.Send(j.action, classifyError(err))
	logSendFailure(ctx, j, err, took)
}

// ErrorCount returns the number of failed calls.
func (l *Limiter) ErrorCount() uint64 {
	return l.errs.Load()
}

// Close rejects further calls. In-flight calls finish normally.
func (l *Limiter) Close() {
	l.closed.Store(true)
}

func sendLogAttrs(ctx context.Context, j job) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", j.action),
	}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if updateID := logger.UpdateIDFrom(ctx); updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", updateID))
	}
	if chatID := logger.ChatIDFrom(ctx); chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chatID))
	}
	if userID := logger.UserIDFrom(ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	return attrs
}

func logSendSuccess(ctx context.Context, j job, elapsed time.Duration) {
	attrs := sendLogAttrs(ctx, j)
	attrs = append(attrs, slog.Int("elapsed_ms", durationToMS(elapsed)))
	logger.Debug(ctx, "tg.sender", "send.success", attrs...)
}

func logSendFailure(ctx context.Context, j job, err error, elapsed time.Duration) {
	kind := classifyError(err)
	attrs := sendLogAttrs(ctx, j)
	attrs = append(attrs,
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", kind),
		slog.Int("elapsed_ms", durationToMS(elapsed)),
	)
	// Bot API rejections (blocked bot, message already gone) are routine.
	level := slog.LevelError
	if kind == "http_4xx" {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.Component("tg.sender"), level, "send.fail", attrs...)
}

func durationToMS(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(logger.RoundMS(d) / time.Millisecond)
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "timeout"
		}
		if opErr.Op == "dial" {
			return "dial"
		}
		if opErr.Op == "read" || opErr.Op == "write" {
			if kind := classifyError(opErr.Err); kind != "" && kind != "unknown" {
				return kind
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout"
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			if kind := classifyError(urlErr.Err); kind != "" && kind != "unknown" {
				return kind
			}
		}
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	status := httpStatusFromError(err)
	switch {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}

	return "unknown"
}

// sanitizeErrorMessage prevents accidental leakage of Telegram bot tokens in logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return ""
	}
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}

func httpStatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := err.Error()
	if msg == "" {
		return 0
	}

	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		codeStr := strings.TrimSpace(msg[lastOpen+1 : lastClose])
		if code, convErr := strconv.Atoi(codeStr); convErr == nil {
			return code
		}
	}

	return 0
}
