package engine

// ErrorCode is the CALLERROR errorCode taxonomy (spec.md §4.3).
type ErrorCode string

const (
	ErrorCodeNotImplemented              ErrorCode = "NotImplemented"
	ErrorCodeNotSupported                ErrorCode = "NotSupported"
	ErrorCodeInternalError               ErrorCode = "InternalError"
	ErrorCodeProtocolError               ErrorCode = "ProtocolError"
	ErrorCodeSecurityError               ErrorCode = "SecurityError"
	ErrorCodeFormationViolation          ErrorCode = "FormationViolation"
	ErrorCodePropertyConstraintViolation ErrorCode = "PropertyConstraintViolation"
	ErrorCodeOccurenceConstraintViolation ErrorCode = "OccurenceConstraintViolation"
	ErrorCodeTypeConstraintViolation     ErrorCode = "TypeConstraintViolation"
	ErrorCodeGenericError                ErrorCode = "GenericError"
)

// Error is a CALLERROR, either received from the peer or raised locally
// while handling an inbound CALL.
type Error struct {
	Code        ErrorCode
	Description string
	Details     map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Description
}
