package worker

import (
	"errors"
	"fmt"
)

// Kind는 워커 관련 오류 분류입니다.
type Kind string

const (
	KindAlreadyRunning      Kind = "already_running"
	KindNotRunning          Kind = "not_running"
	KindLaunchFailed        Kind = "launch_failed"
	KindTerminationFailed   Kind = "termination_failed"
	KindRemoteError         Kind = "remote_error"
	KindTransportError      Kind = "transport_error"
	KindResponseDecodeError Kind = "response_decode_error"
)

// Error는 Supervisor와 Bridge가 호출자에게 돌려주는 오류 값입니다.
// Detail은 원격 오류 본문이나 하위 오류 메시지를 그대로 담습니다.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// errors.Is 비교용 센티널 값입니다. Detail이 비어 있으므로 Kind만 비교됩니다.
var (
	ErrAlreadyRunning      = &Error{Kind: KindAlreadyRunning}
	ErrNotRunning          = &Error{Kind: KindNotRunning}
	ErrLaunchFailed        = &Error{Kind: KindLaunchFailed}
	ErrTerminationFailed   = &Error{Kind: KindTerminationFailed}
	ErrRemoteError         = &Error{Kind: KindRemoteError}
	ErrTransportError      = &Error{Kind: KindTransportError}
	ErrResponseDecodeError = &Error{Kind: KindResponseDecodeError}
)

// NewError는 하위 오류를 감싼 Error를 생성합니다.
func NewError(kind Kind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// NewErrorf는 메시지로 Error를 생성합니다.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAlreadyRunning:
		return "API server is already running"
	case KindNotRunning:
		return "API server is not running"
	case KindLaunchFailed:
		return "Failed to start API server: " + e.Detail
	case KindTerminationFailed:
		return "Failed to stop API server: " + e.Detail
	case KindRemoteError:
		return "API error: " + e.Detail
	case KindTransportError:
		return "Failed to connect to API server: " + e.Detail
	case KindResponseDecodeError:
		return "Failed to parse response: " + e.Detail
	default:
		return string(e.Kind) + ": " + e.Detail
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is는 Kind가 같으면 일치로 판단합니다.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf는 err에서 Kind를 추출합니다. worker.Error가 아니면 빈 문자열입니다.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
