package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Send(frame []byte) {
	f.sent = append(f.sent, append([]byte(nil), frame...))
}

type echoIncoming struct{}

func (echoIncoming) HandleCall(ctx context.Context, action string, payload json.RawMessage) (interface{}, *Error) {
	if action == "Fail" {
		return nil, &Error{Code: ErrorCodeNotSupported, Description: "nope"}
	}
	return map[string]string{"status": "Accepted"}, nil
}

func TestCall_SendsAndResolvesOnCallResult(t *testing.T) {
	e := New(Config{Timeout: time.Second})
	sender := &fakeSender{}
	e.SetSender(sender)
	e.SetOpen(true)
	e.SetAccepted(true)

	done := make(chan struct{})
	var resp json.RawMessage
	var callErr error
	go func() {
		resp, callErr = e.Call(context.Background(), "Heartbeat", map[string]string{}, false)
		close(done)
	}()

	// wait for the frame to be sent
	var frame []byte
	for i := 0; i < 100 && len(sender.sent) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 frame sent, got %d", len(sender.sent))
	}
	frame = sender.sent[0]

	var arr []json.RawMessage
	if err := json.Unmarshal(frame, &arr); err != nil {
		t.Fatal(err)
	}
	var messageID string
	json.Unmarshal(arr[1], &messageID)

	result, _ := BuildCallResult(messageID, map[string]string{"currentTime": "now"})
	e.HandleFrame(context.Background(), result)

	<-done
	if callErr != nil {
		t.Fatalf("unexpected error: %v", callErr)
	}
	if resp == nil {
		t.Fatal("expected response payload")
	}
}

func TestCall_TimesOutWithoutResponse(t *testing.T) {
	e := New(Config{Timeout: 10 * time.Millisecond})
	e.SetSender(&fakeSender{})
	e.SetOpen(true)
	e.SetAccepted(true)

	_, err := e.Call(context.Background(), "Heartbeat", map[string]string{}, false)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestCall_BuffersWhenClosedThenFlushes(t *testing.T) {
	e := New(Config{Timeout: time.Second})
	sender := &fakeSender{}

	done := make(chan struct{})
	go func() {
		e.Call(context.Background(), "BootNotification", map[string]string{}, false)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if len(sender.sent) != 0 {
		t.Fatalf("expected no frame sent while closed")
	}

	e.SetSender(sender)
	e.SetOpen(true)
	e.SetAccepted(true)

	for i := 0; i < 100 && len(sender.sent) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected buffered frame flushed, got %d sent", len(sender.sent))
	}
}

func TestCall_SkipBufferingRejectsImmediately(t *testing.T) {
	e := New(Config{Timeout: time.Second})
	_, err := e.Call(context.Background(), "Heartbeat", map[string]string{}, true)
	if err == nil {
		t.Fatal("expected immediate rejection")
	}
}

func TestHandleFrame_IncomingCallRespondsWithCallResult(t *testing.T) {
	e := New(Config{Incoming: echoIncoming{}})
	sender := &fakeSender{}
	e.SetSender(sender)

	call, _ := BuildCall("abc-1", "Heartbeat", map[string]string{})
	e.HandleFrame(context.Background(), call)

	if len(sender.sent) != 1 {
		t.Fatalf("expected response sent, got %d", len(sender.sent))
	}
	var arr []json.RawMessage
	json.Unmarshal(sender.sent[0], &arr)
	var msgType int
	json.Unmarshal(arr[0], &msgType)
	if MessageType(msgType) != MessageTypeCallResult {
		t.Fatalf("expected CALLRESULT, got type %d", msgType)
	}
}

func TestHandleFrame_IncomingCallRespondsWithCallError(t *testing.T) {
	e := New(Config{Incoming: echoIncoming{}})
	sender := &fakeSender{}
	e.SetSender(sender)

	call, _ := BuildCall("abc-2", "Fail", map[string]string{})
	e.HandleFrame(context.Background(), call)

	var arr []json.RawMessage
	json.Unmarshal(sender.sent[0], &arr)
	var msgType int
	json.Unmarshal(arr[0], &msgType)
	if MessageType(msgType) != MessageTypeCallError {
		t.Fatalf("expected CALLERROR, got type %d", msgType)
	}
}

func TestParseFrame_MalformedRejected(t *testing.T) {
	if _, err := ParseFrame([]byte(`"not an array"`)); err == nil {
		t.Fatal("expected error for non-array frame")
	}
	if _, err := ParseFrame([]byte(`[2, "id"]`)); err == nil {
		t.Fatal("expected error for short CALL frame")
	}
}
