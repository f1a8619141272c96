package logger

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

type BaseLogger struct {
	mu     *sync.Mutex
	prefix string
	writer io.Writer
}

// NewLogger создает логгер с префиксом. Если writer == nil, сообщения уходят в стандартный log.
func NewLogger(writer io.Writer, prefix string) *BaseLogger {
	return &BaseLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		prefix: prefix,
	}
}

func (l *BaseLogger) Log(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(l.prefix+" "+format, v...)
	if l.writer == nil {
		log.Print(message)
		return
	}
	fmt.Fprintf(l.writer, "%s %s\n", time.Now().Format("2006/01/02 15:04:05"), message)
}

// WithPrefix возвращает дочерний логгер, который пишет в тот же writer под тем же мьютексом.
func (l *BaseLogger) WithPrefix(extraPrefix string) *BaseLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &BaseLogger{
		mu:     l.mu,
		writer: l.writer,
		prefix: l.prefix + " " + extraPrefix,
	}
}
