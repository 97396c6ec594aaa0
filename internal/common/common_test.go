package common

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func validConfig() *Config {
	cfg := LoadConfig()
	cfg.Auth.Secret = strings.Repeat("s", 32)
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(*Config) {}, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"no listeners", func(c *Config) { c.Server.HTTPAddr, c.Server.GRPCAddr = "", "" }, true},
		{"short secret", func(c *Config) { c.Auth.Secret = "short" }, true},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "easyocr" }, true},
		{"zero threshold", func(c *Config) { c.OCR.ConfidenceThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.OCR.ConfidenceThreshold = 1.2 }, true},
		{"tolerant phones", func(c *Config) { c.OCR.PhonePolicy = "tolerant" }, false},
		{"unknown phone policy", func(c *Config) { c.OCR.PhonePolicy = "loose" }, true},
		{"watch dir without user", func(c *Config) { c.Ingest.WatchDir = "/tmp/cards" }, true},
		{"watch dir with user", func(c *Config) {
			c.Ingest.WatchDir = "/tmp/cards"
			c.Ingest.WatchEmail = "me@example.com"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Validate() err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_MAX_CONNS", "7")
	t.Setenv("OCR_CONFIDENCE_THRESHOLD", "0.55")
	t.Setenv("SCAN_TIMEOUT", "45s")
	t.Setenv("INGEST_WORKERS", "not-a-number")

	cfg := LoadConfig()
	if cfg.Database.Driver != "postgres" || cfg.Database.MaxConns != 7 {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.OCR.ConfidenceThreshold != 0.55 {
		t.Fatalf("threshold = %v", cfg.OCR.ConfidenceThreshold)
	}
	if cfg.Server.ScanTimeout.String() != "45s" {
		t.Fatalf("scan timeout = %v", cfg.Server.ScanTimeout)
	}
	if cfg.Ingest.Workers != 2 {
		t.Fatalf("workers = %d, want default 2 for unparsable value", cfg.Ingest.Workers)
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("card: %w", ErrNotFound), codes.NotFound},
		{ErrImageNotFound, codes.NotFound},
		{fmt.Errorf("%w: bad", ErrInvalidInput), codes.InvalidArgument},
		{NewValidator().Field("email", "nope", Email).Error(), codes.InvalidArgument},
		{ErrUnauthorized, codes.Unauthenticated},
		{ErrConflict, codes.AlreadyExists},
		{errors.Join(ErrDatabase, errors.New("disk full")), codes.Internal},
		{status.Error(codes.ResourceExhausted, "busy"), codes.ResourceExhausted},
	}
	for _, tt := range tests {
		if got := status.Code(ToStatus(tt.err)); got != tt.want {
			t.Errorf("ToStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if ToStatus(nil) != nil {
		t.Fatalf("ToStatus(nil) != nil")
	}
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("username", "  ", Required).
		Field("password", "short", MinLength(8)).
		Field("email", "a@b.co", Email).
		Field("id", "not-a-uuid", UUID)

	if len(v.Errors()) != 3 {
		t.Fatalf("errors = %v, want 3", v.Errors())
	}
	err := ValidateAndReturnError(v)
	if !IsValidationError(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "must be at least 8 characters") {
		t.Fatalf("message = %q", err.Error())
	}
	if ValidateAndReturnError(NewValidator().Field("name", "Priya", Required, MaxLength(64))) != nil {
		t.Fatalf("valid input reported an error")
	}
}

func TestSchemaValidation(t *testing.T) {
	schema, err := CompileSchema("t.json", []byte(`{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tests := []struct {
		doc  string
		want error
	}{
		{`{"name":"x"}`, nil},
		{`{"name":1}`, ErrValidation},
		{`{}`, ErrValidation},
		{`{`, ErrInvalidInput},
	}
	for _, tt := range tests {
		err := ValidateJSONAgainstSchema(schema, []byte(tt.doc))
		if tt.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tt.doc, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.doc, err, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
