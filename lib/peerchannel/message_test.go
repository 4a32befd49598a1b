package peerchannel

import (
	"encoding/json"
	"testing"

	"github.com/airbridge/airdropd/lib/peer"
)

func TestMessageRoundTripConnect(t *testing.T) {
	msg := Message{ID: "m1", Connect: &ConnectPayload{DisplayName: "My Phone"}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Connect == nil || got.Connect.DisplayName != "My Phone" {
		t.Fatalf("got %+v, want Connect.DisplayName = My Phone", got)
	}
}

func TestMessageRoundTripAskRequest(t *testing.T) {
	msg := Message{
		ID: "m2",
		AskRequest: &peer.AskRequest{
			SenderComputerName: "iPhone",
			Files: []peer.AskFile{
				{Name: "a.jpg", Type: "public.jpeg"},
			},
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !jsonHasKey(t, data, "askRequest") {
		t.Fatalf("expected top-level askRequest key, got %s", data)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.AskRequest == nil || got.AskRequest.SenderComputerName != "iPhone" {
		t.Fatalf("got %+v", got)
	}
	if len(got.AskRequest.Files) != 1 || got.AskRequest.Files[0].Name != "a.jpg" {
		t.Fatalf("file list did not round-trip: %+v", got.AskRequest.Files)
	}
}

func TestMessageReplyToRoundTrips(t *testing.T) {
	msg := Message{ID: "m3", ReplyTo: "m2", AskResponse: &AskResponsePayload{Accepted: true}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ReplyTo != "m2" || got.AskResponse == nil || !got.AskResponse.Accepted {
		t.Fatalf("got %+v", got)
	}
}

func TestMessageWithNoPayloadFailsToMarshal(t *testing.T) {
	if _, err := json.Marshal(Message{ID: "empty"}); err == nil {
		t.Fatalf("expected an error marshalling a message with no payload set")
	}
}

func TestMessageWithUnknownKeyFailsToUnmarshal(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"id":"x","somethingElse":{}}`), &msg)
	if err == nil {
		t.Fatalf("expected an error decoding a message with no recognised variant")
	}
}

func jsonHasKey(t *testing.T, data []byte, key string) bool {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("re-decoding to map: %v", err)
	}
	_, ok := m[key]
	return ok
}
