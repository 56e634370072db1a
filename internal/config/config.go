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
		TTL    int    `yaml:"ttl"`
	} `yaml:"jwt"`

	// Kassa - майловый сервис (заморозка/списание/начисление миль)
	Kassa struct {
		URL         string `yaml:"url"`
		Token       string `yaml:"token"`
		ConfirmCode string `yaml:"confirm_code"`

		// Реквизиты фискального чека
		OrganizationName string `yaml:"organization_name"`
		OrganizationINN  string `yaml:"organization_inn"`
		PointName        string `yaml:"point_name"`
		KktNumber        string `yaml:"kkt_number"`
		FnNumber         string `yaml:"fn_number"`
		Operator         string `yaml:"operator"`
	} `yaml:"kassa"`

	// Pss - партнёрский сервис (каталог, регистрация заказов, привязка карт)
	Pss struct {
		URL      string `yaml:"url"`
		Token    string `yaml:"token"`
		BrandTag string `yaml:"brand_tag"`
	} `yaml:"pss"`

	// AlfaBank - платёжный шлюз
	AlfaBank struct {
		URL      string `yaml:"url"`
		Token    string `yaml:"token"`
		Login    string `yaml:"login"`
		Password string `yaml:"password"`
		Merchant string `yaml:"merchant"`
	} `yaml:"alfa_bank"`

	// Redis - кэш проекций заказов (необязателен, пустой addr отключает кэш)
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	// SMTP - отправка чеков на почту
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`

	App struct {
		IsDev bool `yaml:"is_dev"`
		// RedirectURL - страница статуса оплаты, на которую банк возвращает клиента
		RedirectURL string `yaml:"redirect_url"`
		// ConfirmURL - callback подтверждения веб-оплаты
		ConfirmURL string `yaml:"confirm_url"`
		// BindingConfirmURL - callback подтверждения привязки карты
		BindingConfirmURL   string `yaml:"binding_confirm_url"`
		OrderExpirationDays int    `yaml:"order_expiration_days"`
	} `yaml:"app"`
}

// MilePrice - стоимость одной мили в минорных единицах валюты (копейках).
// Константа контракта с кассовым сервисом, не конфигурируется.
const MilePrice = 100

// OrderNumberPrefix - префикс номера заказа в платёжном шлюзе.
const OrderNumberPrefix = "MOA."

// BindingOrderPrefix - префикс номера предавторизационного заказа привязки карты.
// Id локальной записи карты зашит в номер заказа, отдельная таблица соответствий не нужна.
const BindingOrderPrefix = "TEMP_BINDING_ORDER."

// DevPrefix возвращает префикс идентификаторов для дев-контура.
func (c *Config) DevPrefix() string {
	if c.App.IsDev {
		return "dev."
	}
	return ""
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

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения (режим теста)")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Kassa.URL = os.Getenv("KASSA_URL")
	cfg.Kassa.Token = os.Getenv("KASSA_TOKEN")
	cfg.Pss.URL = os.Getenv("PSS_URL")
	cfg.Pss.Token = os.Getenv("PSS_TOKEN")
	cfg.AlfaBank.URL = os.Getenv("ALFA_URL")
	cfg.AlfaBank.Token = os.Getenv("ALFA_TOKEN")
	cfg.AlfaBank.Login = os.Getenv("ALFA_LOGIN")
	cfg.AlfaBank.Password = os.Getenv("ALFA_PASSWORD")

	cfg.App.IsDev = true

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Kassa.ConfirmCode == "" {
		cfg.Kassa.ConfirmCode = "2222"
	}
	if cfg.Kassa.OrganizationName == "" {
		cfg.Kassa.OrganizationName = "Organization"
	}
	if cfg.Kassa.PointName == "" {
		cfg.Kassa.PointName = "Point"
	}
	if cfg.Kassa.KktNumber == "" {
		cfg.Kassa.KktNumber = "0000000"
	}
	if cfg.Kassa.Operator == "" {
		cfg.Kassa.Operator = cfg.Kassa.OrganizationName
	}
	if cfg.Pss.BrandTag == "" {
		cfg.Pss.BrandTag = "onpass"
	}
	if cfg.App.OrderExpirationDays == 0 {
		cfg.App.OrderExpirationDays = 365
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 60
	}
}
