package business

import (
	"errors"
	"fmt"
	"strings"

	"gomarketplace_parser/internal/parsing/models"
)

var (
	ErrInvocation         = errors.New("scraper invocation failed")
	ErrNonZeroExit        = fmt.Errorf("%w: non-zero exit status", ErrInvocation)
	ErrNoJSON             = fmt.Errorf("%w: no json object in output", ErrInvocation)
	ErrInvalidJSON        = fmt.Errorf("%w: invalid json in output", ErrInvocation)
	ErrTimeout            = fmt.Errorf("%w: timed out", ErrInvocation)
	ErrOutputTooLarge     = fmt.Errorf("%w: output too large", ErrInvocation)
	ErrUnknownMarketplace = fmt.Errorf("%w: no script bound to marketplace", ErrInvocation)

	ErrMalformedResult = errors.New("malformed scrape result")
	ErrPersistence     = errors.New("catalog persistence failed")
	ErrBatchInProgress = errors.New("batch run already in progress")
)

// InvocationError описывает неудачный запуск скрипта для одного товара.
type InvocationError struct {
	Request  models.ScrapeRequest
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Request.Key(), e.Err)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}
	return b.String()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ItemError - ошибка сохранения одного товара в каталог.
type ItemError struct {
	Request models.ScrapeRequest `json:"request"`
	Reason  string               `json:"reason"`
	Err     error                `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Request.Key(), e.Reason)
}

func (e ItemError) Unwrap() error { return e.Err }
