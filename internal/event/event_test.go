package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		desc string
		raw  string
		want Inbound
	}{
		{
			"private message",
			`{"event":"message:private","data":{"recipientId":"u2","content":"gg"}}`,
			PrivateMessage{RecipientID: "u2", Content: "gg"},
		},
		{
			"typing start",
			`{"event":"typing:start","data":{"recipientId":"u2"}}`,
			TypingStart{RecipientID: "u2"},
		},
		{
			"typing stop",
			`{"event":"typing:stop","data":{"recipientId":"u2"}}`,
			TypingStop{RecipientID: "u2"},
		},
		{
			"status set",
			`{"event":"status:set","data":{"status":"away"}}`,
			StatusSet{Status: "away"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeInboundUnknownEvent(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"event":"message:group","data":{}}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("err = %v, want ErrUnknownEvent", err)
	}
}

func TestDecodeInboundMalformed(t *testing.T) {
	if _, err := DecodeInbound([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
	if _, err := DecodeInbound([]byte(`{"event":"message:private","data":[1,2]}`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestOutboundFrameShape(t *testing.T) {
	out := Outbound{Event: OutTypingIndicator, Data: TypingIndicator{UserID: "u1", Username: "alice", IsTyping: true}}
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			UserID   string `json:"userId"`
			IsTyping bool   `json:"isTyping"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Event != "typing:indicator" || decoded.Data.UserID != "u1" || !decoded.Data.IsTyping {
		t.Errorf("unexpected frame: %s", raw)
	}
}
