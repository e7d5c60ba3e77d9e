package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strconv"
	"testing"

	"github.com/insajin/coworker-shell/internal/config"
	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/rs/zerolog"
)

// 실제 Shell과 sleep 워커, httptest 엔드포인트로 도구 흐름 전체를 확인합니다.
func TestIntegration_StartInvokeStop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sleep 바이너리가 필요한 테스트입니다")
	}

	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/tools/add/test" {
			_, _ = w.Write([]byte(`{"result": 2}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer endpoint.Close()

	u, _ := url.Parse(endpoint.URL)
	port, _ := strconv.Atoi(u.Port())

	sh := shell.New(&config.Config{
		Worker: config.WorkerConfig{
			Command:     "sleep",
			Args:        []string{"60"},
			Host:        "127.0.0.1",
			DefaultPort: port,
			StopGrace:   "1s",
		},
	}, zerolog.Nop())
	defer func() { _ = sh.Shutdown(context.Background()) }()

	srv := NewServer(sh, zerolog.Nop())
	ctx := context.Background()

	result, err := srv.handleInvokeTool(ctx, makeCallToolRequest("invoke_tool", map[string]interface{}{"name": "add"}))
	if err != nil || !result.IsError {
		t.Fatalf("시작 전 호출은 에러 응답이어야 합니다 (err=%v)", err)
	}

	result, err = srv.handleStartWorker(ctx, makeCallToolRequest("start_worker", nil))
	if err != nil || result.IsError {
		t.Fatalf("start_worker 실패: err=%v text=%s", err, extractTextFromToolResult(t, result))
	}

	result, err = srv.handleInvokeTool(ctx, makeCallToolRequest("invoke_tool", map[string]interface{}{
		"name": "add",
		"args": map[string]interface{}{"a": float64(1), "b": float64(1)},
	}))
	if err != nil || result.IsError {
		t.Fatalf("invoke_tool 실패: err=%v", err)
	}
	if got := extractTextFromToolResult(t, result); got != `{"result": 2}` {
		t.Errorf("text = %q", got)
	}

	result, err = srv.handleStopWorker(ctx, makeCallToolRequest("stop_worker", nil))
	if err != nil || result.IsError {
		t.Fatalf("stop_worker 실패: err=%v", err)
	}
	if sh.Status() {
		t.Error("Status() = true after stop_worker")
	}
}
