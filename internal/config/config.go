package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Odoo      OdooConfig
	Twilio    TwilioConfig
	Email     EmailConfig
	Niubiz    NiubizConfig
	Database  DatabaseConfig
	Webhook   WebhookConfig
	Vouchers  VoucherConfig
}

// OdooConfig holds the ERP connection settings
type OdooConfig struct {
	URL      string // JSON-RPC endpoint, e.g. https://erp.example.com/jsonrpc
	Database string
	UserID   int // numeric uid; 0 means "resolve via authenticate at startup"
	Username string
	Password string
}

// TwilioConfig holds SMS delivery settings. When AccountSID is empty the
// verification service runs in demo mode and only logs the codes.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// EmailConfig holds transactional-mail settings. When ResendAPIKey is
// empty the mailer runs in demo mode and only logs the messages.
type EmailConfig struct {
	ResendAPIKey string
	From         string
}

// NiubizConfig holds the card-payment gateway credentials. Empty
// MerchantID disables the online-payment endpoints.
type NiubizConfig struct {
	MerchantID      string
	AccessKey       string
	BaseURL         string
	JournalID       int // accounting journal for card payments
	PaymentMethodID int
}

// DatabaseConfig holds database configuration. When Host is empty an
// embedded PostgreSQL instance is started instead.
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Disabled bool
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	OdooSecret string
}

// VoucherConfig holds voucher-intake settings
type VoucherConfig struct {
	ProjectID int // project.task project for validation tasks; 0 disables
	UserID    int // assignee for validation tasks
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	odooURL := os.Getenv("ODOO_URL")
	if odooURL == "" {
		return nil, fmt.Errorf("ODOO_URL is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		Odoo: OdooConfig{
			URL:      odooURL,
			Database: os.Getenv("ODOO_DB"),
			UserID:   getEnvInt("ODOO_USER_ID", 0),
			Username: os.Getenv("ODOO_USERNAME"),
			Password: os.Getenv("ODOO_PASSWORD"),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
		Email: EmailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("EMAIL_FROM", "Terra Lima <onboarding@resend.dev>"),
		},
		Niubiz: NiubizConfig{
			MerchantID:      os.Getenv("NIUBIZ_MERCHANT_ID"),
			AccessKey:       os.Getenv("NIUBIZ_ACCESS_KEY"),
			BaseURL:         niubizBaseURL(os.Getenv("NIUBIZ_ENV")),
			JournalID:       getEnvInt("ODOO_NIUBIZ_JOURNAL_ID", 1),
			PaymentMethodID: getEnvInt("ODOO_CARD_PAYMENT_METHOD_ID", 1),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("PG_HOST"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "terralima"),
			Disabled: getEnv("DB_DISABLED", "false") == "true",
		},
		Webhook: WebhookConfig{
			OdooSecret: os.Getenv("ODOO_WEBHOOK_SECRET"),
		},
		Vouchers: VoucherConfig{
			ProjectID: getEnvInt("ODOO_COBRANZAS_PROJECT_ID", 0),
			UserID:    getEnvInt("ODOO_COBRANZAS_USER_ID", 2),
		},
	}, nil
}

// niubizBaseURL selects the gateway host for the configured environment
func niubizBaseURL(env string) string {
	if env == "production" {
		return "https://apiprod.vnforapps.com"
	}
	return "https://apisandbox.vnforapps.com"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
