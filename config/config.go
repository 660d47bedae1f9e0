package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"punchexport.com/punchexport/punch/core"
)

type Header struct {
	Source      string `yaml:"source" validate:"required"`
	MessageType string `yaml:"messageType" validate:"required"`
	CompanyID   string `yaml:"companyId" validate:"required"`
	Locale      string `yaml:"locale" validate:"required"`
	BatchPrefix string `yaml:"batchPrefix"`
}

// Database selects the staging database. SSMEnvironment names an entry of
// the "databases" parameter and is used when DSN is empty.
type Database struct {
	DSN            string `yaml:"dsn"`
	SSMEnvironment string `yaml:"ssmEnvironment"`
	Schema         string `yaml:"schema"`
	LogLevel       string `yaml:"logLevel" validate:"omitempty,oneof=silent error warn info"`
}

type Email struct {
	From string   `yaml:"from" validate:"required,email"`
	To   []string `yaml:"to" validate:"required,min=1,dive,email"`
}

type Notify struct {
	Slack bool   `yaml:"slack"`
	Email *Email `yaml:"email"`
}

type Config struct {
	Client                 string            `yaml:"client" validate:"required"`
	MealBreakRequired      bool              `yaml:"mealBreakRequired"`
	CorrelationWindowDays  int               `yaml:"correlationWindowDays" validate:"gte=0"`
	CorrelationWindowHours int               `yaml:"correlationWindowHours" validate:"gte=0"`
	ShiftMaxGap            time.Duration     `yaml:"shiftMaxGap" validate:"gt=0"`
	BatchSize              int               `yaml:"batchSize" validate:"min=1,max=10000"`
	Padding                time.Duration     `yaml:"padding" validate:"gte=0"`
	Header                 Header            `yaml:"header"`
	OutputFileFormat       string            `yaml:"outputFileFormat" validate:"required,contains={warehouse}"`
	Destinations           map[string]string `yaml:"destinations" validate:"dive,keys,required,endkeys,required,uri"`
	Workers                int               `yaml:"workers" validate:"min=1,max=64"`
	Database               Database          `yaml:"database"`
	Notify                 Notify            `yaml:"notify"`
	LogLevel               string            `yaml:"logLevel" validate:"omitempty,oneof=trace debug info warn warning error"`
}

func Default() Config {
	return Config{
		CorrelationWindowHours: 14,
		ShiftMaxGap:            core.DefaultShiftMaxGap,
		BatchSize:              core.DefaultBatchSize,
		Padding:                core.DefaultPadding,
		Header: Header{
			Source:      "Host",
			MessageType: "TAS",
			CompanyID:   "01",
			Locale:      "English (United States)",
			BatchPrefix: "BT",
		},
		OutputFileFormat: "TAS_{warehouse}_{timestamp}_{batch}.xml",
		Workers:          4,
		Database:         Database{LogLevel: "error"},
		LogLevel:         "info",
	}
}

// Load reads a YAML file over the defaults. A .env file in the working
// directory is loaded first; DSN and PUNCH_LOG_LEVEL override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dsn := os.Getenv("DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if level := os.Getenv("PUNCH_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Database.DSN == "" && c.Database.SSMEnvironment == "" {
		return fmt.Errorf("invalid config: database needs a dsn or an ssmEnvironment")
	}
	return nil
}

// CorrelationWindow is the configured days plus hours.
func (c *Config) CorrelationWindow() time.Duration {
	return time.Duration(c.CorrelationWindowDays)*24*time.Hour + time.Duration(c.CorrelationWindowHours)*time.Hour
}

func (c *Config) PipelineOptions() core.PipelineOptions {
	return core.PipelineOptions{
		BatchSize:         c.BatchSize,
		CorrelationWindow: c.CorrelationWindow(),
		ShiftMaxGap:       c.ShiftMaxGap,
		OutputFileFormat:  c.OutputFileFormat,
		Workers:           c.Workers,
		Build: core.BuildOptions{
			Header: core.HeaderOptions{
				Source:      c.Header.Source,
				MessageType: c.Header.MessageType,
				CompanyID:   c.Header.CompanyID,
				Locale:      c.Header.Locale,
				BatchPrefix: c.Header.BatchPrefix,
			},
			MealBreakRequired: c.MealBreakRequired,
			Padding:           c.Padding,
		},
	}
}
