// Package bridge는 실행 중인 워커에 도구 호출을 전달하고 결과를 정규화합니다.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/insajin/coworker-shell/internal/metrics"
	"github.com/insajin/coworker-shell/internal/worker"
	"github.com/rs/zerolog"
)

// RequestIDHeader는 워커 로그와 상관시키기 위한 요청 ID 헤더입니다.
const RequestIDHeader = "X-Request-ID"

// StateReader는 워커 상태를 한 번의 락 구간에서 읽어 주는 접근자입니다.
// *worker.Supervisor가 이를 구현합니다.
type StateReader interface {
	Snapshot() worker.Snapshot
}

// Options는 Bridge 동작 설정입니다.
type Options struct {
	// Host는 워커 호스트입니다. 기본값: localhost
	Host string
	// Timeout이 0보다 크면 시도마다 적용됩니다.
	Timeout time.Duration
	// Retries는 전송 오류에 한해 재시도하는 횟수입니다 (0 또는 1).
	Retries int
	// HTTPClient가 nil이면 타임아웃 없는 기본 클라이언트를 씁니다.
	HTTPClient *http.Client
	// Metrics가 nil이 아니면 호출 결과를 기록합니다.
	Metrics *metrics.Metrics
}

// Bridge는 도구 호출을 워커의 HTTP 엔드포인트로 전달합니다.
type Bridge struct {
	state  StateReader
	opts   Options
	logger zerolog.Logger
}

// New는 새 Bridge를 생성합니다.
func New(state StateReader, opts Options, logger zerolog.Logger) *Bridge {
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Retries > 1 {
		opts.Retries = 1
	}
	return &Bridge{
		state:  state,
		opts:   opts,
		logger: logger.With().Str("component", "bridge").Logger(),
	}
}

// invokeRequest는 워커로 보내는 요청 본문입니다.
type invokeRequest struct {
	Args interface{} `json:"args"`
}

// ToolURL은 host/port/도구 이름으로 호출 엔드포인트를 만듭니다.
func ToolURL(host string, port uint16, toolName string) string {
	return "http://" + host + ":" + strconv.Itoa(int(port)) + "/tools/" + url.PathEscape(toolName) + "/test"
}

// Invoke는 toolName 도구를 args로 호출하고 워커 응답 JSON을 그대로 반환합니다.
// 워커가 실행 중이 아니면 네트워크 요청 없이 NotRunning을 반환합니다.
func (b *Bridge) Invoke(ctx context.Context, toolName string, args interface{}) (json.RawMessage, error) {
	b.count(func(m *metrics.Metrics) { m.RecordInvocation() })

	snap := b.state.Snapshot()
	if !snap.Running {
		b.count(func(m *metrics.Metrics) { m.RejectedNotRunning.Add(1) })
		return nil, worker.ErrNotRunning
	}

	body, err := json.Marshal(invokeRequest{Args: args})
	if err != nil {
		return nil, worker.NewError(worker.KindTransportError, fmt.Errorf("요청 본문 직렬화 실패: %w", err))
	}

	requestID := uuid.New().String()
	target := ToolURL(b.opts.Host, snap.Port, toolName)
	logger := b.logger.With().
		Str("request_id", requestID).
		Str("tool", toolName).
		Uint16("port", snap.Port).
		Logger()

	var result json.RawMessage
	for attempt := 0; attempt <= b.opts.Retries; attempt++ {
		if attempt > 0 {
			b.count(func(m *metrics.Metrics) { m.Retries.Add(1) })
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("[bridge] 전송 오류, 재시도")
		}

		start := time.Now()
		result, err = b.roundTrip(ctx, target, requestID, body)
		b.count(func(m *metrics.Metrics) { m.RecordLatency(time.Since(start)) })

		if err == nil || !errors.Is(err, worker.ErrTransportError) {
			break
		}
	}

	if err != nil {
		b.recordFailure(err)
		logger.Error().Err(err).Msg("[bridge] 도구 호출 실패")
		return nil, err
	}

	b.count(func(m *metrics.Metrics) { m.InvocationSuccesses.Add(1) })
	logger.Debug().Int("bytes", len(result)).Msg("[bridge] 도구 호출 완료")
	return result, nil
}

// roundTrip은 POST 요청 한 번을 보내고 응답을 분류합니다.
func (b *Bridge) roundTrip(ctx context.Context, target, requestID string, body []byte) (json.RawMessage, error) {
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, worker.NewError(worker.KindTransportError, fmt.Errorf("HTTP 요청 생성 실패: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := b.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, worker.NewError(worker.KindTransportError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, worker.NewError(worker.KindTransportError, fmt.Errorf("응답 읽기 실패: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, worker.NewErrorf(worker.KindRemoteError, "%s", string(respBody))
	}

	var value json.RawMessage
	if err := json.Unmarshal(respBody, &value); err != nil {
		return nil, worker.NewError(worker.KindResponseDecodeError, err)
	}
	return value, nil
}

// recordFailure는 오류 종류별 카운터를 증가시킵니다.
func (b *Bridge) recordFailure(err error) {
	b.count(func(m *metrics.Metrics) {
		switch worker.KindOf(err) {
		case worker.KindRemoteError:
			m.RemoteErrors.Add(1)
		case worker.KindTransportError:
			m.TransportErrors.Add(1)
		case worker.KindResponseDecodeError:
			m.DecodeErrors.Add(1)
		}
	})
}

// count는 Metrics가 설정된 경우에만 fn을 호출합니다.
func (b *Bridge) count(fn func(m *metrics.Metrics)) {
	if b.opts.Metrics != nil {
		fn(b.opts.Metrics)
	}
}
