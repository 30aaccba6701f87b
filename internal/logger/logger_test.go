package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func jsonLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	log, err := NewLogger(LogConfig{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)
	return log, &buf
}

func events(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "chatty"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestDomainHelpers(t *testing.T) {
	log, buf := jsonLogger(t)

	log.LogStartup("1.0.0", "mainnet", "https://rpc.example")
	log.LogScanStarted(3, true)
	log.LogScanCompleted(5, 2, 1)
	log.LogBatchSubmitted("close", 1, 2, 6, "sig111")
	log.LogSettlement(42, 5, 1, 10_196_400, 1_019_640, 9_176_760)
	log.LogFeeCollectionFailed(42, 1_019_640, "insufficient funds in destination wallet", errors.New("custom program error: 0x1"))
	log.LogShutdown("SIGTERM")

	got := events(t, buf)
	want := []string{
		"startup", "scan_started", "scan_completed", "batch_submitted",
		"settlement", "fee_collection_failed", "shutdown",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, entry := range got {
		if entry["event"] != want[i] {
			t.Errorf("entry %d: event = %v, want %s", i, entry["event"], want[i])
		}
	}

	if got[3]["signature"] != "sig111" || got[3]["kind"] != "close" {
		t.Errorf("batch entry missing fields: %v", got[3])
	}
	if got[4]["net_lamports"] != float64(9_176_760) {
		t.Errorf("settlement entry missing net lamports: %v", got[4])
	}
	if got[5]["reason"] != "insufficient funds in destination wallet" {
		t.Errorf("fee failure entry missing reason: %v", got[5])
	}
}

func TestWithComponent(t *testing.T) {
	log, buf := jsonLogger(t)

	log.WithComponent("scanner").Info("checking")

	got := events(t, buf)
	if len(got) != 1 || got[0]["component"] != "scanner" {
		t.Fatalf("unexpected entries %v", got)
	}
}

func TestCustomFormatter(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "info", Format: "custom"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("wallet", "abc").Info("scan done")

	out := buf.String()
	if !strings.Contains(out, "scan done") {
		t.Errorf("message missing from output: %q", out)
	}
	if !strings.Contains(out, "wallet=abc") {
		t.Errorf("field missing from output: %q", out)
	}
	if !strings.Contains(out, strings.ToUpper(logrus.InfoLevel.String())) {
		t.Errorf("level missing from output: %q", out)
	}
}
