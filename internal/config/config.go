package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // минуты
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Payments struct {
		BaseURL       string `yaml:"base_url"`       // API платежного шлюза
		KeyID         string `yaml:"key_id"`         // публичный ключ мерчанта
		KeySecret     string `yaml:"key_secret"`     // секретный ключ мерчанта
		WebhookSecret string `yaml:"webhook_secret"` // секрет подписи webhook'ов
		Currency      string `yaml:"currency"`
	} `yaml:"payments"`

	FirstOperatorEmail    string `yaml:"first_operator_email"`
	FirstOperatorPassword string `yaml:"first_operator_password"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml (режим НЕ-тест)")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Payments.BaseURL = os.Getenv("PAYMENT_GATEWAY_URL")
	cfg.Payments.KeyID = os.Getenv("PAYMENT_KEY_ID")
	cfg.Payments.KeySecret = os.Getenv("PAYMENT_KEY_SECRET")
	cfg.Payments.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")
	cfg.Payments.Currency = "INR"

	cfg.FirstOperatorEmail = os.Getenv("FIRST_OPERATOR_EMAIL")
	cfg.FirstOperatorPassword = os.Getenv("FIRST_OPERATOR_PASSWORD")

	AppConfig = &cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
