package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
	"gomarketplace_parser/config"
	"gomarketplace_parser/internal/parsing/models"
)

const shoeJSON = `{"name":"Shoe","price":1000,"sale_price":900,"total_quantity":5,"sizes":[{"size":"42","stock":5}]}`

// TestHelperProcess не является тестом: это тело "скрипта", который запускает ScriptInvoker.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	if os.Getenv("PYTHONIOENCODING") != "utf-8" {
		fmt.Fprint(os.Stderr, "output encoding is not forced")
		os.Exit(3)
	}

	switch article := os.Args[len(os.Args)-1]; article {
	case "ok":
		fmt.Println("opening product page...")
		fmt.Println(shoeJSON)
		fmt.Println("done")
	case "exit":
		fmt.Fprint(os.Stderr, "captcha page returned")
		os.Exit(2)
	case "nojson":
		fmt.Println("product card not found")
	case "badjson":
		fmt.Println("{name: Shoe, price: 1000}")
	case "malformed":
		fmt.Println(`{"name":"Shoe","price":1000}`)
	case "sleep":
		time.Sleep(time.Minute)
	case "flood":
		fmt.Println(shoeJSON)
		fmt.Println(strings.Repeat("x", 8<<10))
	case "cp1251":
		payload := `{"name":"Кроссовки","price":1,"sale_price":1,"total_quantity":0,"sizes":[]}`
		encoded, _ := charmap.Windows1251.NewEncoder().String(payload)
		os.Stdout.WriteString(encoded)
	default:
		fmt.Fprintf(os.Stderr, "unexpected article %q", article)
		os.Exit(4)
	}
}

func helperInvoker(t *testing.T, timeout time.Duration, encoding string) *ScriptInvoker {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	inv, err := NewScriptInvoker(config.ParsingConfig{
		Interpreter:    os.Args[0],
		Scripts:        map[string]string{"OZON": "-test.run=^TestHelperProcess$"},
		Timeout:        timeout,
		OutputEncoding: encoding,
	}, io.Discard)
	if err != nil {
		t.Fatalf("new invoker: %v", err)
	}
	return inv
}

func ozon(article string) models.ScrapeRequest {
	return models.ScrapeRequest{Article: article, Marketplace: models.Ozon}
}

func TestScriptInvokerSuccess(t *testing.T) {
	inv := helperInvoker(t, 30*time.Second, "utf-8")
	res, err := inv.Invoke(context.Background(), ozon("ok"))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.Name != "Shoe" || res.Price != 1000 || res.SalePrice != 900 || res.TotalQuantity != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Sizes) != 1 || res.Sizes[0] != (models.SizeStock{Size: "42", Stock: 5}) {
		t.Fatalf("unexpected sizes %+v", res.Sizes)
	}
}

func TestScriptInvokerFailures(t *testing.T) {
	inv := helperInvoker(t, 30*time.Second, "utf-8")
	cases := []struct {
		article string
		want    error
	}{
		{"exit", ErrNonZeroExit},
		{"nojson", ErrNoJSON},
		{"badjson", ErrInvalidJSON},
		{"malformed", ErrMalformedResult},
	}
	for _, tc := range cases {
		t.Run(tc.article, func(t *testing.T) {
			res, err := inv.Invoke(context.Background(), ozon(tc.article))
			if res != nil {
				t.Fatalf("expected nil result, got %+v", res)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var invErr *InvocationError
			if !errors.As(err, &invErr) || invErr.Request.Article != tc.article {
				t.Fatalf("expected InvocationError for %s, got %T", tc.article, err)
			}
		})
	}
}

func TestScriptInvokerExitCarriesStderr(t *testing.T) {
	inv := helperInvoker(t, 30*time.Second, "utf-8")
	_, err := inv.Invoke(context.Background(), ozon("exit"))
	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected InvocationError, got %v", err)
	}
	if invErr.ExitCode != 2 || invErr.Stderr != "captcha page returned" {
		t.Fatalf("unexpected diagnostics: code=%d stderr=%q", invErr.ExitCode, invErr.Stderr)
	}
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("exit failure must be an invocation failure")
	}
}

func TestScriptInvokerTimeoutKillsProcess(t *testing.T) {
	inv := helperInvoker(t, 300*time.Millisecond, "utf-8")
	start := time.Now()
	_, err := inv.Invoke(context.Background(), ozon("sleep"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 20*time.Second {
		t.Fatalf("process was not killed in time")
	}
}

func TestScriptInvokerRejectsOversizedOutput(t *testing.T) {
	inv := helperInvoker(t, 30*time.Second, "utf-8")
	inv.maxOutput = 1 << 10

	_, err := inv.Invoke(context.Background(), ozon("flood"))
	if !errors.Is(err, ErrOutputTooLarge) || !errors.Is(err, ErrInvocation) {
		t.Fatalf("expected output too large, got %v", err)
	}

	if _, err := inv.Invoke(context.Background(), ozon("ok")); err != nil {
		t.Fatalf("output under the cap must pass: %v", err)
	}
}

func TestCappedBufferKeepsPrefix(t *testing.T) {
	b := &cappedBuffer{limit: 5}
	for _, chunk := range []string{"abc", "defg", "hij"} {
		if n, err := b.Write([]byte(chunk)); err != nil || n != len(chunk) {
			t.Fatalf("write %q: n=%d err=%v", chunk, n, err)
		}
	}
	if string(b.Bytes()) != "abcde" || !b.truncated {
		t.Fatalf("got %q truncated=%t", b.Bytes(), b.truncated)
	}

	if _, ok := interface{}(b).(io.ReaderFrom); ok {
		t.Fatalf("io.Copy would bypass the limit through ReadFrom")
	}

	exact := &cappedBuffer{limit: 3}
	_, _ = exact.Write([]byte("abc"))
	if exact.truncated {
		t.Fatalf("write up to the limit must not truncate")
	}
}

func TestScriptInvokerDecodesLegacyEncoding(t *testing.T) {
	inv := helperInvoker(t, 30*time.Second, "windows-1251")
	res, err := inv.Invoke(context.Background(), ozon("cp1251"))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.Name != "Кроссовки" {
		t.Fatalf("unexpected name %q", res.Name)
	}
	if len(res.Sizes) != 0 {
		t.Fatalf("expected empty sizes")
	}
}

func TestScriptInvokerUnknownMarketplace(t *testing.T) {
	inv := helperInvoker(t, time.Second, "utf-8")
	_, err := inv.Invoke(context.Background(), models.ScrapeRequest{Article: "1", Marketplace: models.Wildberries})
	if !errors.Is(err, ErrUnknownMarketplace) {
		t.Fatalf("expected unknown marketplace, got %v", err)
	}
}

func TestNewScriptInvokerRejectsBadConfig(t *testing.T) {
	if _, err := NewScriptInvoker(config.ParsingConfig{Timeout: time.Second, OutputEncoding: "klingon"}, io.Discard); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
	if _, err := NewScriptInvoker(config.ParsingConfig{OutputEncoding: "utf-8"}, io.Discard); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}
