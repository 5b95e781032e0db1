package statsd

import (
	"net"
	"strings"
	"testing"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" scan/metric ":  "scan_metric",
		"foo..bar":       "foo.bar",
		"multi  space":   "multi__space",
		"slash/name/id":  "slash_name_id",
		".dotted.name.":  "dotted.name",
		"":               "",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestJoinTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":        "prod",
		" service ":  " scand ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := joinTags(global, local)
	want := "|#env:stage,result:success,service:scand"

	if got != want {
		t.Fatalf("joinTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestJoinTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := joinTags(nil, nil); got != "" {
		t.Fatalf("joinTags(nil, nil) = %q, want empty string", got)
	}
}

func TestMetricNamePrefix(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "scand"}
	if got := c.metricName("scan.started"); got != "scand.scan.started" {
		t.Fatalf("metricName = %q", got)
	}
	if got := c.metricName("  "); got != "scand" {
		t.Fatalf("metricName on blank = %q", got)
	}

	noPrefix := &Client{}
	if got := noPrefix.metricName("scan.started"); got != "scan.started" {
		t.Fatalf("metricName without prefix = %q", got)
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	// Verify Close can be called again without error.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
