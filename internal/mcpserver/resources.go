package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/insajin/coworker-shell/internal/worker"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatusDocument는 coworker://status 리소스 본문입니다.
type StatusDocument struct {
	ServerName string           `json:"server_name"`
	Version    string           `json:"version"`
	Worker     worker.Snapshot  `json:"worker"`
	Metrics    metrics.Snapshot `json:"metrics"`
}

// newTextResource는 텍스트 리소스 콘텐츠를 생성하는 헬퍼입니다.
func newTextResource(uri, text, mimeType string) mcp.TextResourceContents {
	return mcp.TextResourceContents{
		URI:      uri,
		MIMEType: mimeType,
		Text:     text,
	}
}

// handleStatusResource는 coworker://status 리소스 핸들러입니다.
func (s *Server) handleStatusResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc := StatusDocument{
		ServerName: ServerName,
		Version:    ServerVersion,
		Worker:     s.ops.Snapshot(),
		Metrics:    s.ops.Stats(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("상태 직렬화 실패: %w", err)
	}

	return []mcp.ResourceContents{
		newTextResource(request.Params.URI, string(data), "application/json"),
	}, nil
}
