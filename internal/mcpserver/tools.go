package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// WorkerStatus는 worker_status 도구 결과입니다.
type WorkerStatus struct {
	Running   bool   `json:"running"`
	Port      uint16 `json:"port"`
	PID       int    `json:"pid,omitempty"`
	Command   string `json:"command,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// handleStartWorker는 start_worker 도구 핸들러입니다.
func (s *Server) handleStartWorker(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	port := request.GetInt("port", int(s.ops.DefaultPort()))
	if port < 1 || port > 65535 {
		return mcp.NewToolResultError(fmt.Sprintf("port out of range: %d", port)), nil
	}

	s.logger.Info().Int("port", port).Msg("워커 시작 요청")

	msg, err := s.ops.Start(ctx, uint16(port))
	if err != nil {
		s.logger.Error().Err(err).Msg("워커 시작 실패")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// handleStopWorker는 stop_worker 도구 핸들러입니다.
func (s *Server) handleStopWorker(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.Info().Msg("워커 중지 요청")

	msg, err := s.ops.Stop(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("워커 중지 실패")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// handleWorkerStatus는 worker_status 도구 핸들러입니다.
func (s *Server) handleWorkerStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.ops.Snapshot()
	status := WorkerStatus{
		Running: snap.Running,
		Port:    snap.Port,
		PID:     snap.PID,
		Command: snap.Command,
	}
	if snap.Running && !snap.StartedAt.IsZero() {
		status.StartedAt = snap.StartedAt.Format(time.RFC3339)
		status.Uptime = snap.Uptime().Round(time.Second).String()
	}

	result, err := json.Marshal(status)
	if err != nil {
		return mcp.NewToolResultError("Failed to serialize response"), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// handleWorkerPort는 worker_port 도구 핸들러입니다.
func (s *Server) handleWorkerPort(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strconv.Itoa(int(s.ops.Port()))), nil
}

// handleInvokeTool은 invoke_tool 도구 핸들러입니다.
// 워커 응답 JSON을 그대로 텍스트로 반환합니다.
func (s *Server) handleInvokeTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("required parameter 'name' is missing or invalid"), nil
	}
	args := request.GetArguments()["args"]

	s.logger.Info().Str("tool", name).Msg("도구 호출 요청")

	result, err := s.ops.Invoke(ctx, name, args)
	if err != nil {
		s.logger.Error().Err(err).Str("tool", name).Msg("도구 호출 실패")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}
