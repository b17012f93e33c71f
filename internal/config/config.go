package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StockPolicyAllowNegative  = "allow_negative"
	StockPolicyRejectNegative = "reject_negative"
)

type Configuration struct {
	Server      ServerConfig      `validate:"required"`
	Postgres    PostgresConfig    `validate:"required"`
	Auth        AuthConfig        `validate:"required"`
	Logging     LoggingConfig     `validate:"required"`
	Fulfillment FulfillmentConfig `validate:"required"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port" validate:"required"`
	GinMode     string   `mapstructure:"gin_mode" validate:"oneof=debug release test"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// FulfillmentConfig holds the tunables of the order fulfillment core and the
// defaults copied onto newly provisioned tenants.
type FulfillmentConfig struct {
	MaxAttempts           int           `mapstructure:"max_attempts" validate:"min=1,max=20"`
	InitialBackoff        time.Duration `mapstructure:"initial_backoff" validate:"required"`
	MaxBackoff            time.Duration `mapstructure:"max_backoff" validate:"required"`
	DefaultCommissionRate string        `mapstructure:"default_commission_rate" validate:"required,numeric"`
	DefaultStockPolicy    string        `mapstructure:"default_stock_policy" validate:"oneof=allow_negative reject_negative"`
	DefaultLowStockAlert  int           `mapstructure:"default_low_stock_alert" validate:"min=0"`
	DefaultCurrency       string        `mapstructure:"default_currency" validate:"required,len=3"`
	DefaultTaxRate        string        `mapstructure:"default_tax_rate" validate:"required,numeric"`
	DefaultInvoicePrefix  string        `mapstructure:"default_invoice_prefix" validate:"required,max=10"`
	TimeZone              string        `mapstructure:"time_zone" validate:"required"`
}

// NewConfig loads configs/.env when present and then reads the environment.
// Keys map to upper-case env vars with "." replaced by "_", e.g.
// FULFILLMENT_MAX_ATTEMPTS or POSTGRES_HOST.
func NewConfig() (*Configuration, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		fmt.Println("No configs/.env file found or error loading it")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// legacy flat names used by existing deployments
	if port := v.GetString("PORT"); port != "" {
		config.Server.Port = port
	}
	if secret := v.GetString("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.name", "postgres")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")

	v.SetDefault("fulfillment.max_attempts", 5)
	v.SetDefault("fulfillment.initial_backoff", 20*time.Millisecond)
	v.SetDefault("fulfillment.max_backoff", 500*time.Millisecond)
	v.SetDefault("fulfillment.default_commission_rate", "5")
	v.SetDefault("fulfillment.default_stock_policy", StockPolicyAllowNegative)
	v.SetDefault("fulfillment.default_low_stock_alert", 10)
	v.SetDefault("fulfillment.default_currency", "EGP")
	v.SetDefault("fulfillment.default_tax_rate", "14")
	v.SetDefault("fulfillment.default_invoice_prefix", "INV")
	v.SetDefault("fulfillment.time_zone", "UTC")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Server.GinMode == "release" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid configuration: JWT_SECRET is required in release mode")
	}
	if c.Fulfillment.MaxBackoff < c.Fulfillment.InitialBackoff {
		return fmt.Errorf("invalid configuration: max_backoff must be >= initial_backoff")
	}
	if _, err := time.LoadLocation(c.Fulfillment.TimeZone); err != nil {
		return fmt.Errorf("invalid configuration: time_zone: %w", err)
	}
	return nil
}

// GetDefaultConfig returns a configuration for local development and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:   ServerConfig{Port: "8080", GinMode: "debug"},
		Postgres: PostgresConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "postgres", DBName: "postgres", SSLMode: "disable"},
		Auth:     AuthConfig{JWTSecret: devJWTSecret, TokenTTL: 24 * time.Hour},
		Logging:  LoggingConfig{Level: "debug"},
		Fulfillment: FulfillmentConfig{
			MaxAttempts:           5,
			InitialBackoff:        20 * time.Millisecond,
			MaxBackoff:            500 * time.Millisecond,
			DefaultCommissionRate: "5",
			DefaultStockPolicy:    StockPolicyAllowNegative,
			DefaultLowStockAlert:  10,
			DefaultCurrency:       "EGP",
			DefaultTaxRate:        "14",
			DefaultInvoicePrefix:  "INV",
			TimeZone:              "UTC",
		},
	}
}

// devJWTSecret signs tokens outside release mode when no secret is set.
const devJWTSecret = "default_super_secret_key"

// Secret returns the signing key, falling back to the development key.
func (c AuthConfig) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte(devJWTSecret)
	}
	return []byte(c.JWTSecret)
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Location returns the time zone business dates are computed in.
func (c FulfillmentConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CommissionRate parses DefaultCommissionRate; Validate guarantees it is numeric.
func (c FulfillmentConfig) CommissionRate() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultCommissionRate)
}

func (c FulfillmentConfig) TaxRate() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultTaxRate)
}
