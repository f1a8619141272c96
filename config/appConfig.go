package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gomarketplace_parser/config/values"
	"gopkg.in/yaml.v3"
)

type ParsingConfig struct {
	// Interpreter запускает скрипт (например путь к python из .venv). Пустое значение - скрипт исполняется напрямую.
	Interpreter    string            `yaml:"interpreter"`
	ScriptsDir     string            `yaml:"scripts_dir"`
	Scripts        map[string]string `yaml:"scripts"`
	Timeout        time.Duration     `yaml:"timeout"`
	Workers        int               `yaml:"workers"`
	RatePerMinute  int               `yaml:"rate_per_minute"`
	OutputEncoding string            `yaml:"output_encoding"`
	// MaxOutputBytes - предел stdout одного запуска; больший вывод считается ошибкой запуска.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// ScriptPath возвращает путь к скрипту маркетплейса и false, если скрипт не настроен.
func (pc ParsingConfig) ScriptPath(marketplace string) (string, bool) {
	script, ok := pc.Scripts[marketplace]
	if !ok || script == "" {
		return "", false
	}
	if filepath.IsAbs(script) || pc.ScriptsDir == "" {
		return script, true
	}
	return filepath.Join(pc.ScriptsDir, script), true
}

type SchedulerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type SourcesConfig struct {
	// ExcelPath - необязательный xlsx со списком артикулов для первичного наполнения каталога.
	ExcelPath string `yaml:"excel_path"`
	// CSVPath - файл или URL csv-выгрузки (разделитель ';'), CSVEncoding по умолчанию windows-1251.
	CSVPath     string `yaml:"csv_path"`
	CSVEncoding string `yaml:"csv_encoding"`
}

type AppConfig struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Parsing   ParsingConfig   `yaml:"parsing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// LoadConfig читает .env (если есть), yaml-файл и переменные окружения. Пустой filename - только окружение и дефолты.
func LoadConfig(filename string) (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{}
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", filename, err)
		}
	}

	config.Postgres.applyEnv()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *AppConfig) applyEnv() error {
	c.HTTP.Addr = getEnv("PARSER_HTTP_ADDR", c.HTTP.Addr)
	c.Parsing.Interpreter = getEnv("PARSER_INTERPRETER", c.Parsing.Interpreter)
	c.Sources.ExcelPath = getEnv("PARSER_EXCEL_PATH", c.Sources.ExcelPath)
	c.Sources.CSVPath = getEnv("PARSER_CSV_PATH", c.Sources.CSVPath)

	if raw := os.Getenv("PARSER_WORKERS"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("PARSER_WORKERS has invalid format: %w", err)
		}
		c.Parsing.Workers = workers
	}
	if raw := os.Getenv("PARSER_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("PARSER_TIMEOUT has invalid format: %w", err)
		}
		c.Parsing.Timeout = timeout
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.Parsing.Interpreter == "" && len(c.Parsing.Scripts) == 0 {
		c.Parsing.Interpreter = values.DefaultInterpreter
	}
	if c.Parsing.ScriptsDir == "" {
		c.Parsing.ScriptsDir = values.DefaultScriptsDir
	}
	if len(c.Parsing.Scripts) == 0 {
		c.Parsing.Scripts = make(map[string]string, len(values.DefaultScripts))
		for marketplace, script := range values.DefaultScripts {
			c.Parsing.Scripts[marketplace] = script
		}
	}
	if c.Parsing.Timeout == 0 {
		c.Parsing.Timeout = values.DefaultTimeout
	}
	if c.Parsing.Workers == 0 {
		c.Parsing.Workers = values.DefaultWorkers
	}
	if c.Parsing.OutputEncoding == "" {
		c.Parsing.OutputEncoding = values.DefaultOutputEncoding
	}
	if c.Parsing.MaxOutputBytes == 0 {
		c.Parsing.MaxOutputBytes = values.DefaultMaxOutputBytes
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = values.DefaultRunInterval
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = values.DefaultHTTPAddr
	}
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Parsing.Workers < 1 {
		errs = append(errs, fmt.Errorf("parsing.workers must be positive, got %d", c.Parsing.Workers))
	}
	if c.Parsing.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("parsing.timeout must be positive, got %s", c.Parsing.Timeout))
	}
	if c.Parsing.RatePerMinute < 0 {
		errs = append(errs, fmt.Errorf("parsing.rate_per_minute must not be negative"))
	}
	if c.Parsing.MaxOutputBytes < 0 {
		errs = append(errs, fmt.Errorf("parsing.max_output_bytes must not be negative"))
	}
	for marketplace, script := range c.Parsing.Scripts {
		if strings.TrimSpace(script) == "" {
			errs = append(errs, fmt.Errorf("parsing.scripts.%s is empty", marketplace))
		}
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
