package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/insajin/coworker-shell/internal/worker"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// fakeOps는 호출을 기록하는 테스트용 Operations입니다.
type fakeOps struct {
	mu        sync.Mutex
	running   bool
	port      uint16
	startedAt time.Time
	lastTool  string
	lastArgs  interface{}
	result    json.RawMessage
	invokeErr error
}

func newFakeOps() *fakeOps {
	return &fakeOps{port: 8000, result: json.RawMessage(`{"result": 42}`)}
}

func (f *fakeOps) Start(_ context.Context, port uint16) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return "", worker.ErrAlreadyRunning
	}
	if port == 0 {
		return "", worker.NewErrorf(worker.KindLaunchFailed, "port must be non-zero")
	}
	f.running = true
	f.port = port
	f.startedAt = time.Now().Add(-3 * time.Second)
	return fmt.Sprintf("API server started on port %d", port), nil
}

func (f *fakeOps) Stop(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return "", worker.ErrNotRunning
	}
	f.running = false
	return "API server stopped", nil
}

func (f *fakeOps) Status() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeOps) Port() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.port
}

func (f *fakeOps) Invoke(_ context.Context, name string, args interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTool = name
	f.lastArgs = args
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.result, nil
}

func (f *fakeOps) Snapshot() worker.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := worker.Snapshot{Running: f.running, Port: f.port}
	if f.running {
		snap.PID = 4242
		snap.Command = "python3 ../examples/api_server.py"
		snap.StartedAt = f.startedAt
	}
	return snap
}

func (f *fakeOps) Stats() metrics.Snapshot { return metrics.Snapshot{Invocations: 7} }

func (f *fakeOps) DefaultPort() uint16 { return 8000 }

// makeCallToolRequest는 테스트용 CallToolRequest를 생성하는 헬퍼입니다.
func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// extractTextFromToolResult는 CallToolResult에서 텍스트 콘텐츠를 추출합니다.
func extractTextFromToolResult(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("CallToolResult가 nil입니다")
	}
	if len(result.Content) == 0 {
		t.Fatal("CallToolResult.Content가 비어 있습니다")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Content[0]이 TextContent가 아닙니다: %T", result.Content[0])
	}
	return tc.Text
}

// TestNewServer는 MCP 서버 초기화를 테스트합니다.
func TestNewServer(t *testing.T) {
	srv := NewServer(newFakeOps(), zerolog.Nop())

	if srv == nil {
		t.Fatal("서버가 nil입니다")
	}
	if srv.mcpServer == nil {
		t.Fatal("mcpServer가 nil입니다")
	}
	if srv.ops == nil {
		t.Fatal("ops가 nil입니다")
	}
}

func TestToolHandler_StartWorker(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		wantText string
	}{
		{"기본 포트", map[string]interface{}{}, "API server started on port 8000"},
		{"포트 지정", map[string]interface{}{"port": float64(9001)}, "API server started on port 9001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(newFakeOps(), zerolog.Nop())

			result, err := srv.handleStartWorker(context.Background(), makeCallToolRequest("start_worker", tt.args))
			if err != nil {
				t.Fatalf("핸들러 오류: %v", err)
			}
			if result.IsError {
				t.Fatalf("성공 응답이어야 합니다: %s", extractTextFromToolResult(t, result))
			}
			if got := extractTextFromToolResult(t, result); got != tt.wantText {
				t.Errorf("text = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestToolHandler_StartWorker_Errors(t *testing.T) {
	ops := newFakeOps()
	srv := NewServer(ops, zerolog.Nop())
	ctx := context.Background()

	// 범위 밖 포트
	for _, port := range []float64{70000, 0, -1} {
		result, err := srv.handleStartWorker(ctx, makeCallToolRequest("start_worker", map[string]interface{}{"port": port}))
		if err != nil {
			t.Fatalf("핸들러 오류: %v", err)
		}
		if !result.IsError {
			t.Errorf("포트 %v는 에러 응답이어야 합니다", port)
			continue
		}
		if got := extractTextFromToolResult(t, result); !strings.HasPrefix(got, "port out of range") {
			t.Errorf("포트 %v: text = %q", port, got)
		}
	}
	if ops.Status() {
		t.Fatal("범위 밖 포트로 워커가 시작되었습니다")
	}

	if _, err := srv.handleStartWorker(ctx, makeCallToolRequest("start_worker", nil)); err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}

	// 이미 실행 중
	result, err := srv.handleStartWorker(ctx, makeCallToolRequest("start_worker", nil))
	if err != nil {
		t.Fatalf("핸들러가 에러를 반환하면 안됩니다: %v", err)
	}
	if !result.IsError {
		t.Fatal("이미 실행 중이면 에러 응답이어야 합니다")
	}
	if got := extractTextFromToolResult(t, result); got != "API server is already running" {
		t.Errorf("text = %q", got)
	}
}

func TestToolHandler_StopWorker(t *testing.T) {
	ops := newFakeOps()
	srv := NewServer(ops, zerolog.Nop())
	ctx := context.Background()

	result, err := srv.handleStopWorker(ctx, makeCallToolRequest("stop_worker", nil))
	if err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}
	if !result.IsError {
		t.Error("실행 중이 아닐 때는 에러 응답이어야 합니다")
	}

	if _, err := ops.Start(ctx, 9001); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	result, err = srv.handleStopWorker(ctx, makeCallToolRequest("stop_worker", nil))
	if err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}
	if result.IsError {
		t.Errorf("성공 응답이어야 합니다: %s", extractTextFromToolResult(t, result))
	}
}

func TestToolHandler_WorkerStatus(t *testing.T) {
	ops := newFakeOps()
	srv := NewServer(ops, zerolog.Nop())
	ctx := context.Background()

	result, err := srv.handleWorkerStatus(ctx, makeCallToolRequest("worker_status", nil))
	if err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}
	var status WorkerStatus
	if err := json.Unmarshal([]byte(extractTextFromToolResult(t, result)), &status); err != nil {
		t.Fatalf("상태 JSON 파싱 실패: %v", err)
	}
	if status.Running || status.PID != 0 || status.Uptime != "" {
		t.Errorf("stopped status = %+v", status)
	}

	if _, err := ops.Start(ctx, 9001); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	result, _ = srv.handleWorkerStatus(ctx, makeCallToolRequest("worker_status", nil))
	if err := json.Unmarshal([]byte(extractTextFromToolResult(t, result)), &status); err != nil {
		t.Fatalf("상태 JSON 파싱 실패: %v", err)
	}
	if !status.Running || status.Port != 9001 || status.PID != 4242 {
		t.Errorf("running status = %+v", status)
	}
	if status.Uptime == "" || status.StartedAt == "" {
		t.Errorf("uptime/started_at 누락: %+v", status)
	}
}

func TestToolHandler_WorkerPort(t *testing.T) {
	srv := NewServer(newFakeOps(), zerolog.Nop())

	result, err := srv.handleWorkerPort(context.Background(), makeCallToolRequest("worker_port", nil))
	if err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}
	if got := extractTextFromToolResult(t, result); got != "8000" {
		t.Errorf("port = %q, want 8000", got)
	}
}

func TestToolHandler_InvokeTool(t *testing.T) {
	ops := newFakeOps()
	srv := NewServer(ops, zerolog.Nop())

	req := makeCallToolRequest("invoke_tool", map[string]interface{}{
		"name": "add",
		"args": map[string]interface{}{"a": float64(1), "b": float64(1)},
	})
	result, err := srv.handleInvokeTool(context.Background(), req)
	if err != nil {
		t.Fatalf("핸들러 오류: %v", err)
	}
	if result.IsError {
		t.Fatalf("성공 응답이어야 합니다: %s", extractTextFromToolResult(t, result))
	}
	if got := extractTextFromToolResult(t, result); got != `{"result": 42}` {
		t.Errorf("text = %q", got)
	}

	ops.mu.Lock()
	defer ops.mu.Unlock()
	if ops.lastTool != "add" {
		t.Errorf("tool = %q, want add", ops.lastTool)
	}
	args, ok := ops.lastArgs.(map[string]interface{})
	if !ok || args["a"] != float64(1) {
		t.Errorf("args = %v", ops.lastArgs)
	}
}

// TestInvokeToolSchema는 args가 객체로 제한되지 않는지 확인합니다.
func TestInvokeToolSchema(t *testing.T) {
	var schema struct {
		Type       string                            `json:"type"`
		Properties map[string]map[string]interface{} `json:"properties"`
		Required   []string                          `json:"required"`
	}
	if err := json.Unmarshal(invokeToolSchema, &schema); err != nil {
		t.Fatalf("스키마 파싱 실패: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q, want object", schema.Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Errorf("required = %v, want [name]", schema.Required)
	}
	if got := schema.Properties["name"]["type"]; got != "string" {
		t.Errorf("name type = %v, want string", got)
	}
	args, ok := schema.Properties["args"]
	if !ok {
		t.Fatal("args 속성이 없습니다")
	}
	if _, typed := args["type"]; typed {
		t.Errorf("args에 type 제약이 있습니다: %v", args["type"])
	}
}

// TestToolHandler_InvokeTool_NonObjectArgs는 배열과 스칼라 args가 그대로 전달되는지 테스트합니다.
func TestToolHandler_InvokeTool_NonObjectArgs(t *testing.T) {
	tests := []struct {
		name string
		args interface{}
	}{
		{"배열", []interface{}{float64(1), float64(2)}},
		{"숫자", float64(7)},
		{"문자열", "hello"},
		{"null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newFakeOps()
			srv := NewServer(ops, zerolog.Nop())

			req := makeCallToolRequest("invoke_tool", map[string]interface{}{
				"name": "echo",
				"args": tt.args,
			})
			result, err := srv.handleInvokeTool(context.Background(), req)
			if err != nil {
				t.Fatalf("핸들러 오류: %v", err)
			}
			if result.IsError {
				t.Fatalf("성공 응답이어야 합니다: %s", extractTextFromToolResult(t, result))
			}

			ops.mu.Lock()
			defer ops.mu.Unlock()
			if !reflect.DeepEqual(ops.lastArgs, tt.args) {
				t.Errorf("args = %#v, want %#v", ops.lastArgs, tt.args)
			}
		})
	}
}

func TestToolHandler_InvokeTool_Errors(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]interface{}
		invokeErr error
		wantText  string
	}{
		{
			name:     "이름 누락",
			args:     map[string]interface{}{"args": map[string]interface{}{}},
			wantText: "required parameter 'name' is missing or invalid",
		},
		{
			name:      "원격 오류",
			args:      map[string]interface{}{"name": "divide"},
			invokeErr: worker.NewErrorf(worker.KindRemoteError, "division by zero"),
			wantText:  "API error: division by zero",
		},
		{
			name:      "실행 중 아님",
			args:      map[string]interface{}{"name": "add"},
			invokeErr: worker.ErrNotRunning,
			wantText:  "API server is not running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := newFakeOps()
			ops.invokeErr = tt.invokeErr
			srv := NewServer(ops, zerolog.Nop())

			result, err := srv.handleInvokeTool(context.Background(), makeCallToolRequest("invoke_tool", tt.args))
			if err != nil {
				t.Fatalf("핸들러가 에러를 반환하면 안됩니다: %v", err)
			}
			if !result.IsError {
				t.Fatal("에러 응답이어야 합니다")
			}
			if got := extractTextFromToolResult(t, result); got != tt.wantText {
				t.Errorf("text = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestStatusResource(t *testing.T) {
	srv := NewServer(newFakeOps(), zerolog.Nop())

	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: StatusResourceURI}}
	contents, err := srv.handleStatusResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleStatusResource 에러: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents 개수 = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] 타입 = %T", contents[0])
	}
	if tc.URI != StatusResourceURI || !strings.Contains(tc.MIMEType, "json") {
		t.Errorf("URI=%q MIME=%q", tc.URI, tc.MIMEType)
	}

	var doc StatusDocument
	if err := json.Unmarshal([]byte(tc.Text), &doc); err != nil {
		t.Fatalf("상태 JSON 파싱 실패: %v", err)
	}
	if doc.ServerName != ServerName || doc.Worker.Port != 8000 || doc.Metrics.Invocations != 7 {
		t.Errorf("doc = %+v", doc)
	}
}
