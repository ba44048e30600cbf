package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: format,
	})
	return slog.New(h), func() string {
		if err := aw.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, output := newTestHandler(t, formatKV)
	ctx := WithUpdateMeta(WithRID(context.Background(), "rid-123"), 42, 7, 9)

	LogEvent(ctx, log.With("component", "service.chat"), slog.LevelInfo, "chat.step",
		slog.String("next_state", "browsing"),
		slog.String("state", "main"),
		slog.String("status", "ok"),
	)

	tokens := strings.Split(output(), " ")
	expected := []string{
		"ts=", "level=INFO", "component=service.chat", "event=chat.step", "status=ok", "rid=rid-123",
		"update_id=42", "user_id=7", "chat_id=9", "state=main", "next_state=browsing",
	}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%v)", len(tokens), tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, output := newTestHandler(t, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "service.orders"), slog.LevelError, "order.notify",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.Int64("product_id", 4),
	)

	line := output()
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.orders"`, `"event":"order.notify"`, `"status":"fail"`, `"rid":"rid-json"`, `"product_id":4`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)

	log, output := newTestHandler(t, formatKV)
	LogEvent(WithRID(context.Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line := output()
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}

	log, output = newTestHandler(t, formatJSON)
	LogEvent(WithRID(context.Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line = output()
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationsAndEnums(t *testing.T) {
	log, output := newTestHandler(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelWarn, "send.retry",
		slog.Duration("backoff", 1500*time.Microsecond),
		slog.Duration("duration", 12*time.Millisecond),
		slog.String("outcome", "bogus"),
		slog.String("status", "RETRY"),
		slog.String("empty", ""),
	)
	line := output()
	for _, want := range []string{"component=app", "backoff_ms=2", "duration_ms=12", "status=retry"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %s", want, line)
		}
	}
	for _, unwanted := range []string{"outcome=", "empty="} {
		if strings.Contains(line, unwanted) {
			t.Fatalf("unexpected %q in %s", unwanted, line)
		}
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	log, output := newTestHandler(t, formatKV)
	log.Debug("hidden")
	if line := output(); line != "" {
		t.Fatalf("debug record should be filtered, got %s", line)
	}
}

func TestCompactRIDPassThrough(t *testing.T) {
	for _, rid := range []string{"", "abc", "1:2", "1:x:3"} {
		if got := CompactRID(rid); got != rid {
			t.Fatalf("CompactRID(%q) = %q", rid, got)
		}
	}
	if got := CompactRID("36:1:0"); got != "10.1.0" {
		t.Fatalf("CompactRID = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var passed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("passed = %d, want 3", passed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"25":   {1, 25},
		"":     {0, 0},
		"x/y":  {0, 0},
		"-3":   {0, 0},
	}
	for in, want := range cases {
		num, den := parseRatioSpec(in)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", in, num, den, want[0], want[1])
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("при\x00вет\u200b!", 6); got != "привет" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
