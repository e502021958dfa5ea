package gatewaylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"prothompay.io/infrastructure/logger"
)

// AuditLogger appends one human-readable line per gateway event to a
// per-gateway log file. Lines are "[timestamp] message {json context}".
type AuditLogger struct {
	Gateway string
	Enabled bool

	mu   sync.Mutex
	file *os.File
}

var (
	auditLogger *AuditLogger
	auditOnce   = sync.Once{}
)

func GatewayAuditLogger() *AuditLogger {
	auditOnce.Do(func() {
		auditLogger = &AuditLogger{
			Gateway: "bkash",
			Enabled: os.Getenv("GATEWAY_AUDIT_LOG") != "off",
		}
	})
	return auditLogger
}

func (al *AuditLogger) Log(message string, context map[string]any) {
	if !al.Enabled {
		return
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file == nil {
		if err := al.open(); err != nil {
			logger.Error("could not open gateway audit log file", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			return
		}
	}
	encoded, err := json.Marshal(context)
	if err != nil {
		encoded = []byte("{}")
	}
	entry := fmt.Sprintf("[%s] %s %s\n", time.Now().Format(time.RFC3339), message, encoded)
	if _, err := al.file.WriteString(entry); err != nil {
		logger.Error("could not append to gateway audit log file", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}

func (al *AuditLogger) Close() {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.file != nil {
		al.file.Close()
		al.file = nil
	}
}

func (al *AuditLogger) open() error {
	dir := os.Getenv("GATEWAY_AUDIT_LOG_DIR")
	if dir == "" {
		dir = "storage/logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(filepath.Join(dir, al.Gateway+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	al.file = file
	return nil
}
