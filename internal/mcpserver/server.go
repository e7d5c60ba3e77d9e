// Package mcpserver는 워커 제어 연산을 stdio 기반 MCP 도구로 노출합니다.
package mcpserver

import (
	"encoding/json"

	"github.com/insajin/coworker-shell/internal/shell"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const (
	// ServerName은 MCP 서버 이름입니다.
	ServerName = "coworker"
	// ServerVersion은 MCP 서버 버전입니다.
	ServerVersion = "0.1.0"

	// StatusResourceURI는 워커 상태 리소스 URI입니다.
	StatusResourceURI = "coworker://status"
)

// invokeToolSchema는 invoke_tool 입력 스키마입니다.
// args는 객체뿐 아니라 배열, 스칼라, null도 그대로 워커에 전달되므로 type을 지정하지 않습니다.
var invokeToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"description": "Tool name exposed by the worker"
		},
		"args": {
			"description": "Any JSON value, sent to the worker as {\"args\": ...}"
		}
	},
	"required": ["name"]
}`)

// Server는 coworker MCP 서버입니다.
// mark3labs/mcp-go를 사용하여 stdio 기반 MCP 프로토콜을 처리합니다.
type Server struct {
	mcpServer *server.MCPServer
	ops       shell.Operations
	logger    zerolog.Logger
}

// NewServer는 새 MCP 서버를 생성합니다.
func NewServer(ops shell.Operations, logger zerolog.Logger) *Server {
	s := &Server{
		ops:    ops,
		logger: logger.With().Str("component", "mcpserver").Logger(),
	}

	s.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.registerTools()
	s.registerResources()

	s.logger.Info().
		Str("name", ServerName).
		Str("version", ServerVersion).
		Msg("MCP 서버 초기화 완료")

	return s
}

// Start는 stdio 기반 MCP 서버를 시작합니다.
// 이 함수는 서버가 종료될 때까지 블로킹됩니다.
func (s *Server) Start() error {
	s.logger.Info().Msg("MCP 서버 시작 (stdio 트랜스포트)")
	return server.ServeStdio(s.mcpServer)
}

// registerTools는 모든 MCP 도구를 등록합니다.
func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_worker",
		mcp.WithDescription("Start the background worker process. Fails if it is already running."),
		mcp.WithNumber("port",
			mcp.Description("Port the worker is expected to listen on (optional, uses the configured default)"),
		),
	)
	s.mcpServer.AddTool(startTool, s.handleStartWorker)

	stopTool := mcp.NewTool("stop_worker",
		mcp.WithDescription("Stop the running worker process."),
	)
	s.mcpServer.AddTool(stopTool, s.handleStopWorker)

	statusTool := mcp.NewTool("worker_status",
		mcp.WithDescription("Report whether the worker is running, with its port, PID and uptime."),
	)
	s.mcpServer.AddTool(statusTool, s.handleWorkerStatus)

	portTool := mcp.NewTool("worker_port",
		mcp.WithDescription("Return the port recorded for the worker."),
	)
	s.mcpServer.AddTool(portTool, s.handleWorkerPort)

	invokeTool := mcp.NewToolWithRawSchema("invoke_tool",
		"Invoke a named tool on the running worker and return its JSON result unchanged.",
		invokeToolSchema,
	)
	s.mcpServer.AddTool(invokeTool, s.handleInvokeTool)

	s.logger.Debug().Msg("MCP 도구 5개 등록 완료")
}

// registerResources는 MCP 리소스를 등록합니다.
func (s *Server) registerResources() {
	statusResource := mcp.NewResource(
		StatusResourceURI,
		"Worker Status",
		mcp.WithResourceDescription("Worker process state and invocation counters"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statusResource, s.handleStatusResource)

	s.logger.Debug().Msg("MCP 리소스 1개 등록 완료")
}
