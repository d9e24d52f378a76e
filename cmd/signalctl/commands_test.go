package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eldtechnologies/roomrelay/clients/go/roomrelay"
)

func TestReadPayload(t *testing.T) {
	raw, err := readPayload(`{"sdp":"v=0"}`, nil)
	if err != nil || string(raw) != `{"sdp":"v=0"}` {
		t.Fatalf("readPayload = %s, %v", raw, err)
	}

	raw, err = readPayload("-", strings.NewReader(`"candidate:1"`))
	if err != nil || string(raw) != `"candidate:1"` {
		t.Fatalf("readPayload stdin = %s, %v", raw, err)
	}

	if _, err := readPayload("not json", nil); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestRoomNew(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"room", "new", "--words", "2"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	name := strings.TrimSpace(out.String())
	if len(strings.Split(name, "-")) != 2 {
		t.Fatalf("room name %q is not two words", name)
	}
}

func TestSendRequiresArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"send", "lobby"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing type argument")
	}
}

func TestPollRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []string{"0s", "-1s"} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--server", "http://127.0.0.1:1", "poll", "lobby", "--follow", "--interval=" + interval})

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "--interval must be positive") {
			t.Fatalf("interval %s: err = %v", interval, err)
		}
	}
}

func TestPrintMessages(t *testing.T) {
	var out bytes.Buffer
	printMessages(&out, []roomrelay.Message{
		{Type: "offer", ClientID: "abcdefghijkl", Payload: []byte(`"v=0"`), Timestamp: 1},
	})

	line := out.String()
	if !strings.Contains(line, "abcdefgh") || strings.Contains(line, "abcdefghi") {
		t.Fatalf("client id not truncated: %q", line)
	}
	if !strings.Contains(line, `"v=0"`) {
		t.Fatalf("payload missing: %q", line)
	}
}
