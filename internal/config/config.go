// Package config는 coworker shell의 설정 관리를 담당합니다.
// 설정 우선순위: 환경변수 > 설정파일 > 기본값
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultWorkerScript는 워커 프로세스의 기본 엔트리포인트 스크립트입니다.
	DefaultWorkerScript = "../examples/api_server.py"
	// DefaultWorkerPort는 시작 전 ServerState가 갖는 초기 포트입니다.
	DefaultWorkerPort = 8000
	// DefaultIPCAddr는 UI 레이어용 IPC WebSocket 기본 주소입니다.
	DefaultIPCAddr = "127.0.0.1:17800"
	// MaxBridgeRetries는 bridge.retries에 허용되는 최대값입니다.
	MaxBridgeRetries = 1
)

// Config는 전체 애플리케이션 설정을 나타냅니다.
type Config struct {
	Worker  WorkerConfig  `mapstructure:"worker" yaml:"worker"`
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	IPC     IPCConfig     `mapstructure:"ipc" yaml:"ipc"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// WorkerConfig는 워커 프로세스 실행 설정입니다.
type WorkerConfig struct {
	// Command는 실행 파일 이름입니다. 비어있으면 플랫폼 기본값을 사용합니다.
	Command string `mapstructure:"command" yaml:"command"`
	// Args는 실행 인자입니다. 비어있으면 기본 스크립트 하나를 전달합니다.
	Args []string `mapstructure:"args" yaml:"args"`
	// Dir은 워커 작업 디렉토리입니다.
	Dir string `mapstructure:"dir" yaml:"dir,omitempty"`
	// Host는 브릿지가 워커에 접속할 호스트입니다.
	Host string `mapstructure:"host" yaml:"host"`
	// DefaultPort는 시작 전 보고되는 포트이자 start 요청의 기본 포트입니다.
	DefaultPort int `mapstructure:"default_port" yaml:"default_port"`
	// StopGrace는 SIGTERM 후 SIGKILL까지의 유예 시간입니다 (예: "5s").
	StopGrace string `mapstructure:"stop_grace" yaml:"stop_grace"`
	// ReadyTimeout은 헬스 엔드포인트 대기 시간입니다. "0s"이면 확인하지 않습니다.
	ReadyTimeout string `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	// HealthPath는 준비 상태 확인 경로입니다.
	HealthPath string `mapstructure:"health_path" yaml:"health_path"`
}

// BridgeConfig는 도구 호출 브릿지 설정입니다.
type BridgeConfig struct {
	// Timeout은 단일 호출 타임아웃입니다. "0s"이면 트랜스포트 기본값을 따릅니다.
	Timeout string `mapstructure:"timeout" yaml:"timeout"`
	// Retries는 전송 오류 시 재시도 횟수입니다 (0 또는 1).
	Retries int `mapstructure:"retries" yaml:"retries"`
}

// IPCConfig는 UI 레이어용 WebSocket 설정입니다.
type IPCConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// LoggingConfig는 로깅 설정입니다.
type LoggingConfig struct {
	// Level은 로그 레벨입니다 (debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`
	// Format은 로그 포맷입니다 (json, text).
	Format string `mapstructure:"format" yaml:"format"`
	// File은 로그 파일 경로입니다. 비어있으면 stdout으로 출력합니다.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// SetDefaults는 기본 설정값을 viper에 등록합니다.
func SetDefaults() {
	viper.SetDefault("worker.command", "")
	viper.SetDefault("worker.args", []string{})
	viper.SetDefault("worker.dir", "")
	viper.SetDefault("worker.host", "localhost")
	viper.SetDefault("worker.default_port", DefaultWorkerPort)
	viper.SetDefault("worker.stop_grace", "5s")
	viper.SetDefault("worker.ready_timeout", "0s")
	viper.SetDefault("worker.health_path", "/health")

	viper.SetDefault("bridge.timeout", "0s")
	viper.SetDefault("bridge.retries", 0)

	viper.SetDefault("ipc.listen_addr", DefaultIPCAddr)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.file", "")
}

// Load는 설정을 로드하고 Config 구조체를 반환합니다.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("설정 파싱 실패: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Worker.Dir = expandPath(cfg.Worker.Dir)

	return &cfg, nil
}

// DefaultWorkerCommand는 플랫폼별 기본 워커 실행 파일 이름을 반환합니다.
func DefaultWorkerCommand() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// GetCommand는 워커 실행 파일 이름을 반환합니다.
func (w *WorkerConfig) GetCommand() string {
	if w.Command == "" {
		return DefaultWorkerCommand()
	}
	return w.Command
}

// GetArgs는 워커 실행 인자를 반환합니다.
// 설정되지 않은 경우 기본 스크립트 경로 하나를 반환합니다.
func (w *WorkerConfig) GetArgs() []string {
	if len(w.Args) == 0 {
		return []string{DefaultWorkerScript}
	}
	return w.Args
}

// GetHost는 워커 호스트를 반환합니다.
func (w *WorkerConfig) GetHost() string {
	if w.Host == "" {
		return "localhost"
	}
	return w.Host
}

// GetDefaultPort는 기본 포트를 반환합니다.
func (w *WorkerConfig) GetDefaultPort() uint16 {
	if w.DefaultPort <= 0 || w.DefaultPort > 65535 {
		return DefaultWorkerPort
	}
	return uint16(w.DefaultPort)
}

// GetStopGrace는 종료 유예 시간을 반환합니다. 기본값: 5초
func (w *WorkerConfig) GetStopGrace() time.Duration {
	return parseDuration(w.StopGrace, 5*time.Second)
}

// GetReadyTimeout은 준비 대기 시간을 반환합니다. 0이면 확인하지 않습니다.
func (w *WorkerConfig) GetReadyTimeout() time.Duration {
	return parseDuration(w.ReadyTimeout, 0)
}

// GetHealthPath는 헬스 엔드포인트 경로를 반환합니다.
func (w *WorkerConfig) GetHealthPath() string {
	if w.HealthPath == "" {
		return "/health"
	}
	return w.HealthPath
}

// GetTimeout은 호출 타임아웃을 반환합니다. 0이면 타임아웃이 없습니다.
func (b *BridgeConfig) GetTimeout() time.Duration {
	return parseDuration(b.Timeout, 0)
}

// Validate는 설정의 유효성을 검사합니다.
func (c *Config) Validate() error {
	if c.Worker.DefaultPort < 1 || c.Worker.DefaultPort > 65535 {
		return fmt.Errorf("유효하지 않은 기본 포트: %d (1-65535)", c.Worker.DefaultPort)
	}

	for key, value := range map[string]string{
		"worker.stop_grace":    c.Worker.StopGrace,
		"worker.ready_timeout": c.Worker.ReadyTimeout,
		"bridge.timeout":       c.Bridge.Timeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("유효하지 않은 시간 값 %s=%q: %w", key, value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s는 0 이상이어야 합니다: %s", key, value)
		}
	}

	if c.Bridge.Retries < 0 || c.Bridge.Retries > MaxBridgeRetries {
		return fmt.Errorf("bridge.retries는 0 또는 %d이어야 합니다: %d", MaxBridgeRetries, c.Bridge.Retries)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("유효하지 않은 로그 레벨: %s (debug, info, warn, error 중 하나)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("유효하지 않은 로그 포맷: %s (json, text 중 하나)", c.Logging.Format)
	}

	return nil
}

// parseDuration은 빈 값이나 잘못된 값에 대해 fallback을 반환합니다.
func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// expandPath는 ~를 홈 디렉토리로 확장합니다.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ConfigDir은 설정 디렉토리 경로를 반환합니다.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "coworker")
}

// DefaultConfigPath는 기본 설정 파일 경로를 반환합니다.
func DefaultConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// EnsureConfigDir는 설정 디렉토리가 없으면 생성합니다.
func EnsureConfigDir() error {
	dir := ConfigDir()
	if dir == "" {
		return fmt.Errorf("홈 디렉토리를 찾을 수 없습니다")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("설정 디렉토리 생성 실패: %w", err)
	}
	return nil
}
