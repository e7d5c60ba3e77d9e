package ipc

import (
	"encoding/json"

	"github.com/insajin/coworker-shell/internal/worker"
)

// UI 레이어가 호출하는 연산 이름입니다.
const (
	OpStartAPIServer   = "start_api_server"
	OpStopAPIServer    = "stop_api_server"
	OpCheckAPIServer   = "check_api_server"
	OpGetAPIServerPort = "get_api_server_port"
	OpTestTool         = "test_tool"
	OpGetStatus        = "get_status"
)

// 워커 오류 외의 오류 종류입니다.
const (
	KindBadRequest = "bad_request"
	KindInternal   = "internal"
)

// EventStatus는 주기적 헬스 리포트 이벤트 이름입니다.
const EventStatus = "status"

// Request는 클라이언트 요청 프레임입니다.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response는 요청에 대한 응답 프레임입니다.
type Response struct {
	ID     string      `json:"id"`
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody는 실패 응답의 오류 정보입니다.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event는 서버가 먼저 보내는 알림 프레임입니다.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// startParams는 start_api_server 파라미터입니다. port가 없으면 기본 포트를 씁니다.
type startParams struct {
	Port *int `json:"port"`
}

// testToolParams는 test_tool 파라미터입니다.
type testToolParams struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// StatusResult는 get_status 결과입니다.
type StatusResult struct {
	Worker  worker.Snapshot `json:"worker"`
	Metrics interface{}     `json:"metrics"`
}

// errorBody는 오류를 응답용 ErrorBody로 변환합니다.
func errorBody(err error) *ErrorBody {
	kind := string(worker.KindOf(err))
	if kind == "" {
		kind = KindInternal
	}
	return &ErrorBody{Kind: kind, Message: err.Error()}
}
