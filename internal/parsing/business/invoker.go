package business

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"gomarketplace_parser/config"
	"gomarketplace_parser/config/values"
	"gomarketplace_parser/internal/parsing/models"
	"gomarketplace_parser/metrics"
	"gomarketplace_parser/pkg/logger"
)

// waitDelay - сколько ждем закрытия stdout/stderr после убийства процесса.
const waitDelay = 5 * time.Second

// stderrLimit - сколько stderr сохраняем для диагностики, остальное отбрасывается.
const stderrLimit = 64 << 10

// Invoker запускает парсер для одного товара.
type Invoker interface {
	Invoke(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error)
}

// ScriptInvoker запускает внешний скрипт маркетплейса: `<interpreter> <script> <article>`.
type ScriptInvoker struct {
	cfg       config.ParsingConfig
	encoding  encoding.Encoding
	env       []string
	maxOutput int
	log       logger.Logger
}

func NewScriptInvoker(cfg config.ParsingConfig, writer io.Writer) (*ScriptInvoker, error) {
	enc, err := htmlindex.Get(cfg.OutputEncoding)
	if err != nil {
		return nil, fmt.Errorf("unsupported output encoding %q: %w", cfg.OutputEncoding, err)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invocation timeout must be positive")
	}
	maxOutput := cfg.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = values.DefaultMaxOutputBytes
	}

	return &ScriptInvoker{
		cfg:       cfg,
		encoding:  enc,
		env:       append(os.Environ(), "PYTHONIOENCODING=utf-8"),
		maxOutput: maxOutput,
		log:       logger.NewLogger(writer, "[ScriptInvoker]"),
	}, nil
}

func (si *ScriptInvoker) command(ctx context.Context, req models.ScrapeRequest) (*exec.Cmd, error) {
	script, ok := si.cfg.ScriptPath(string(req.Marketplace))
	if !ok {
		return nil, ErrUnknownMarketplace
	}

	name, args := si.cfg.Interpreter, []string{script, req.Article}
	if name == "" {
		name, args = script, []string{req.Article}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = si.env
	cmd.WaitDelay = waitDelay
	return cmd, nil
}

func (si *ScriptInvoker) Invoke(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, si.cfg.Timeout)
	defer cancel()

	cmd, err := si.command(runCtx, req)
	if err != nil {
		return nil, si.fail(req, &InvocationError{Request: req, Err: err}, 0)
	}

	stdout := &cappedBuffer{limit: si.maxOutput}
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	stdoutText := si.decode(stdout.Bytes())
	stderrText := si.decode(stderr.Bytes())

	if runErr != nil {
		invErr := &InvocationError{Request: req, Stderr: stderrText}
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			invErr.Err = fmt.Errorf("%w: %w", ErrInvocation, ctx.Err())
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			invErr.Err = fmt.Errorf("%w after %s", ErrTimeout, si.cfg.Timeout)
		case errors.As(runErr, &exitErr):
			invErr.Err = ErrNonZeroExit
			invErr.ExitCode = exitErr.ExitCode()
		default:
			invErr.Err = fmt.Errorf("%w: %w", ErrInvocation, runErr)
		}
		return nil, si.fail(req, invErr, elapsed)
	}

	if stdout.truncated {
		err := fmt.Errorf("%w: more than %d bytes", ErrOutputTooLarge, si.maxOutput)
		return nil, si.fail(req, &InvocationError{Request: req, Stderr: stderrText, Err: err}, elapsed)
	}

	payload, err := ExtractJSON(stdoutText)
	if err != nil {
		return nil, si.fail(req, &InvocationError{Request: req, Stderr: stderrText, Err: err}, elapsed)
	}

	result, err := DecodeResult(payload)
	if err != nil {
		return nil, si.fail(req, &InvocationError{Request: req, Err: err}, elapsed)
	}

	metrics.RecordInvocation(req.Marketplace.String(), "ok", elapsed)
	return result, nil
}

func (si *ScriptInvoker) fail(req models.ScrapeRequest, err *InvocationError, elapsed time.Duration) error {
	metrics.RecordInvocation(req.Marketplace.String(), outcomeOf(err), elapsed)
	if err.ExitCode != 0 {
		si.log.Log("%s exited with code %d, stderr: %s", req.Key(), err.ExitCode, strings.TrimSpace(err.Stderr))
	}
	return err
}

// decode приводит вывод процесса к UTF-8, битые последовательности заменяются на U+FFFD.
func (si *ScriptInvoker) decode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	decoded, _, err := transform.Bytes(si.encoding.NewDecoder(), raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(decoded)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrMalformedResult):
		return "malformed"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNonZeroExit):
		return "exit_code"
	case errors.Is(err, ErrNoJSON):
		return "no_json"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	case errors.Is(err, ErrOutputTooLarge):
		return "output_too_large"
	case errors.Is(err, ErrUnknownMarketplace):
		return "unknown_marketplace"
	default:
		return "error"
	}
}

// cappedBuffer хранит не больше limit байт; лишнее отбрасывается без ошибки, чтобы процесс не получил EPIPE.
// bytes.Buffer не встраивается: его ReadFrom позволил бы io.Copy обойти лимит.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }
