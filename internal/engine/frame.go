// Package engine implements the OCPP Message Engine component (spec.md
// §4.3/F): frame parsing/building, the pending-request cache, the outgoing
// buffer, and dispatch. Frame shapes follow
// backend/services/ocpp-server/internal/ocpp/parser.go, generalized from
// server-only CALL parsing into the bidirectional CALL/CALLRESULT/CALLERROR
// codec a station needs.
package engine

import (
	"encoding/json"
	"fmt"
)

// MessageType is the first element of every OCPP-J frame.
type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

// Frame is a parsed OCPP-J frame of any of the three shapes.
type Frame struct {
	Type        MessageType
	MessageID   string
	Action      string          // CALL only
	Payload     json.RawMessage // CALL, CALLRESULT
	ErrorCode   string          // CALLERROR only
	ErrorDesc   string          // CALLERROR only
	ErrorDetail json.RawMessage // CALLERROR only
}

// ParseFrame decodes a raw OCPP-J frame.
func ParseFrame(raw []byte) (Frame, error) {
	var array []json.RawMessage
	if err := json.Unmarshal(raw, &array); err != nil {
		return Frame{}, &Error{Code: ErrorCodeProtocolError, Description: "frame is not a JSON array"}
	}
	if len(array) < 3 {
		return Frame{}, &Error{Code: ErrorCodeProtocolError, Description: "frame has fewer than 3 elements"}
	}

	var msgType int
	if err := json.Unmarshal(array[0], &msgType); err != nil {
		return Frame{}, &Error{Code: ErrorCodeProtocolError, Description: "message type is not numeric"}
	}

	frame := Frame{Type: MessageType(msgType)}
	if err := json.Unmarshal(array[1], &frame.MessageID); err != nil {
		return Frame{}, &Error{Code: ErrorCodeProtocolError, Description: "message id is not a string"}
	}

	switch frame.Type {
	case MessageTypeCall:
		if len(array) < 4 {
			return Frame{}, &Error{Code: ErrorCodeFormationViolation, Description: "CALL frame has fewer than 4 elements"}
		}
		if err := json.Unmarshal(array[2], &frame.Action); err != nil {
			return Frame{}, &Error{Code: ErrorCodeFormationViolation, Description: "action is not a string"}
		}
		frame.Payload = array[3]
	case MessageTypeCallResult:
		frame.Payload = array[2]
	case MessageTypeCallError:
		if len(array) < 5 {
			return Frame{}, &Error{Code: ErrorCodeFormationViolation, Description: "CALLERROR frame has fewer than 5 elements"}
		}
		if err := json.Unmarshal(array[2], &frame.ErrorCode); err != nil {
			return Frame{}, &Error{Code: ErrorCodeFormationViolation, Description: "error code is not a string"}
		}
		if err := json.Unmarshal(array[3], &frame.ErrorDesc); err != nil {
			return Frame{}, &Error{Code: ErrorCodeFormationViolation, Description: "error description is not a string"}
		}
		frame.ErrorDetail = array[4]
	default:
		return Frame{}, &Error{Code: ErrorCodeProtocolError, Description: fmt.Sprintf("unsupported message type %d", msgType)}
	}

	return frame, nil
}

// BuildCall serializes a CALL frame.
func BuildCall(messageID, action string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{MessageTypeCall, messageID, action, payload})
}

// BuildCallResult serializes a CALLRESULT frame.
func BuildCallResult(messageID string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{MessageTypeCallResult, messageID, payload})
}

// BuildCallError serializes a CALLERROR frame.
func BuildCallError(messageID string, err *Error) ([]byte, error) {
	details := err.Details
	if details == nil {
		details = map[string]string{}
	}
	return json.Marshal([]interface{}{MessageTypeCallError, messageID, string(err.Code), err.Description, details})
}
