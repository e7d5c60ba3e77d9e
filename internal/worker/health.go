package worker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// readyPollInterval은 준비 상태 확인 간격입니다.
const readyPollInterval = 200 * time.Millisecond

// HealthURL은 host/port/path로 헬스 엔드포인트 URL을 만듭니다.
func HealthURL(host string, port uint16, path string) string {
	return "http://" + host + ":" + strconv.Itoa(int(port)) + path
}

// probe는 헬스 엔드포인트에 GET 요청을 한 번 보내고 2xx이면 nil을 반환합니다.
func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("헬스 요청 생성 실패: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("헬스 응답 HTTP %d", resp.StatusCode)
	}
	return nil
}

// waitReady는 워커가 헬스 엔드포인트에 응답하거나 종료될 때까지 기다립니다.
func (s *Supervisor) waitReady(ctx context.Context, handle *ProcessHandle, port uint16) error {
	url := HealthURL(s.opts.Host, port, s.opts.HealthPath)
	readyCtx, cancel := context.WithTimeout(ctx, s.opts.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if lastErr = probe(readyCtx, s.opts.HTTPClient, url); lastErr == nil {
			log.Debug().Str("url", url).Msg("[worker] 헬스 확인 완료")
			return nil
		}

		select {
		case <-handle.Done():
			return fmt.Errorf("준비 전에 프로세스가 종료됨: %v", handle.ExitErr())
		case <-readyCtx.Done():
			return fmt.Errorf("%s 안에 %s 응답 없음: %v", s.opts.ReadyTimeout, url, lastErr)
		case <-ticker.C:
		}
	}
}

// HealthReport는 워커 상태 스냅샷과 헬스 엔드포인트 도달 여부입니다.
type HealthReport struct {
	Snapshot
	Reachable  bool      `json:"reachable"`
	LastError  string    `json:"last_error,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}

// HealthMonitor는 주기적으로 워커 상태를 수집하여 reportFn에 전달합니다.
type HealthMonitor struct {
	supervisor *Supervisor
	interval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewHealthMonitor는 새로운 HealthMonitor를 생성합니다.
func NewHealthMonitor(supervisor *Supervisor, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HealthMonitor{
		supervisor: supervisor,
		interval:   interval,
	}
}

// Start는 모니터링 루프를 시작합니다. context 취소 또는 Stop()으로 종료됩니다.
func (h *HealthMonitor) Start(ctx context.Context, reportFn func(report HealthReport)) {
	monitorCtx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		log.Debug().Dur("interval", h.interval).Msg("[worker-health] 헬스 모니터링 시작")

		for {
			select {
			case <-monitorCtx.Done():
				log.Debug().Msg("[worker-health] 헬스 모니터링 종료")
				return
			case <-ticker.C:
				report := h.Collect(monitorCtx)
				if reportFn != nil {
					reportFn(report)
				}
			}
		}
	}()
}

// Stop은 모니터링 루프를 종료합니다.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// Collect는 현재 상태를 읽고, 실행 중이면 헬스 엔드포인트를 한 번 확인합니다.
// 상태 락은 스냅샷을 읽는 동안만 잡힙니다.
func (h *HealthMonitor) Collect(ctx context.Context) HealthReport {
	snap := h.supervisor.Snapshot()
	report := HealthReport{
		Snapshot:   snap,
		ReportedAt: time.Now(),
	}
	if !snap.Running {
		return report
	}

	opts := h.supervisor.opts
	if err := probe(ctx, opts.HTTPClient, HealthURL(opts.Host, snap.Port, opts.HealthPath)); err != nil {
		report.LastError = err.Error()
		return report
	}
	report.Reachable = true
	return report
}
