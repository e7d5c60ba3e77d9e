// Package logger는 구조화된 로깅을 제공합니다.
// 기본 출력은 JSON이며, 워커 출력에 섞인 민감 정보는 마스킹하여 기록합니다.
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/insajin/coworker-shell/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 민감 정보 패턴
var sensitivePatterns = []*regexp.Regexp{
	// API 키 패턴 (sk-*)
	regexp.MustCompile(`(sk-[a-zA-Z0-9\-_]{20,})`),
	// JWT 토큰 패턴 (eyJ로 시작하는 Base64)
	regexp.MustCompile(`(eyJ[a-zA-Z0-9\-_]+\.eyJ[a-zA-Z0-9\-_]+\.[a-zA-Z0-9\-_]+)`),
	// Bearer 토큰
	regexp.MustCompile(`(Bearer\s+[a-zA-Z0-9\-_\.]+)`),
	// 키-값 패턴 (api_key=, token=, password: 등)
	regexp.MustCompile(`((?:api[_-]?key|apikey|key|token|secret|password)\s*[=:]\s*)([a-zA-Z0-9\-_\.]{10,})`),
}

var kvSeparator = regexp.MustCompile(`[=:]`)

// maskedWriter는 민감 정보를 마스킹하는 io.Writer입니다.
type maskedWriter struct {
	underlying io.Writer
}

// Write는 민감 정보를 마스킹한 후 기록합니다.
// 호출자에게는 원본 길이를 돌려주어 zerolog가 short write로 오인하지 않게 합니다.
func (w *maskedWriter) Write(p []byte) (int, error) {
	masked := MaskSensitive(string(p))
	if _, err := w.underlying.Write([]byte(masked)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Setup은 전역 로거를 초기화합니다. 출력은 stdout입니다.
func Setup(cfg config.LoggingConfig) {
	SetupWithOutput(cfg, os.Stdout)
}

// SetupWithOutput은 기본 출력 대상을 지정하여 로거를 초기화합니다.
// mcp-serve처럼 stdout을 프로토콜에 쓰는 명령은 os.Stderr를 전달합니다.
// cfg.File이 설정되어 있으면 파일이 우선합니다.
func SetupWithOutput(cfg config.LoggingConfig, out io.Writer) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	output := out
	if output == nil {
		output = os.Stdout
	}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			// 파일 열기 실패 시 기본 출력 사용
			log.Warn().Err(err).Str("file", cfg.File).Msg("로그 파일을 열 수 없어 기본 출력을 사용합니다")
		} else {
			output = file
		}
	}

	log.Logger = New(cfg.Format, output)
}

// New는 지정한 포맷으로 마스킹 로거를 생성합니다.
func New(format string, out io.Writer) zerolog.Logger {
	masked := &maskedWriter{underlying: out}

	if format == "text" {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        masked,
			TimeFormat: time.RFC3339,
		}
		return zerolog.New(consoleWriter).With().Timestamp().Logger()
	}
	return zerolog.New(masked).With().Timestamp().Caller().Logger()
}

// parseLevel은 문자열 레벨을 zerolog.Level로 변환합니다.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// MaskSensitive는 문자열에서 민감 정보를 마스킹합니다.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			// 키-값 패턴 처리 (token=xxx 형태)
			if strings.ContainsAny(match, "=:") {
				parts := kvSeparator.Split(match, 2)
				if len(parts) == 2 {
					prefix := parts[0] + string(match[len(parts[0])])
					return prefix + maskValue(strings.TrimSpace(parts[1]))
				}
			}
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer " + maskValue(strings.TrimPrefix(match, "Bearer "))
			}
			return maskValue(match)
		})
	}
	return result
}

// maskValue는 앞 4자와 뒤 4자만 남기고 나머지를 ***로 대체합니다.
func maskValue(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// Component는 component 필드가 붙은 로거를 반환합니다.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// WithRequestID는 요청 ID를 추가한 로거를 반환합니다.
func WithRequestID(l zerolog.Logger, requestID string) zerolog.Logger {
	return l.With().Str("request_id", requestID).Logger()
}
