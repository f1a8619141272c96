package values

import "time"

// Значения по умолчанию для секции parsing.
const (
	DefaultInterpreter    = "python3"
	DefaultScriptsDir     = "python_scripts"
	DefaultOutputEncoding = "utf-8"
	DefaultTimeout        = 2 * time.Minute
	DefaultWorkers        = 1
	DefaultHTTPAddr       = ":8082"
	DefaultRunInterval    = 6 * time.Hour
	DefaultMaxOutputBytes = 4 << 20
)

// DefaultScripts привязывает маркетплейс к скрипту парсера, который поставляется вместе с сервисом.
var DefaultScripts = map[string]string{
	"OZON": "parse_ozon.py",
	"WB":   "parse_wb.py",
}
