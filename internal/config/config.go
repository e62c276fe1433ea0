// Package config предоставляет структуры и функции для загрузки конфигурации сервиса.
//
// Значения читаются из переменных окружения (с предварительной загрузкой .env),
// а при заданном CONFIG_PATH еще и из YAML-файла. Переменные окружения
// имеют приоритет над файлом.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	Port        string `yaml:"port" env:"PORT" env-default:"3000"`
	FrontendDir string `yaml:"frontend_dir" env:"FRONTEND_DIR" env-default:"../jukebox-frontend"`
	UploadsDir  string `yaml:"uploads_dir" env:"UPLOADS_DIR" env-default:"uploads"`
	UploadDir   string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"upload"`
	// ControllersDir отдается как есть по /controllers, фронтенд грузит оттуда скрипты.
	ControllersDir string `yaml:"controllers_dir" env:"CONTROLLERS_DIR" env-default:"controllers"`

	Mongo      `yaml:"mongo"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Spotify    `yaml:"spotify"`
	JWTToken   `yaml:"jwttoken"`
	Session    `yaml:"session"`
	RateLimit  `yaml:"rate_limit"`
	HTTPServer `yaml:"http_server"`
}

// Mongo настройки подключения к документной базе
type Mongo struct {
	URL                    string        `yaml:"url" env:"MONGO_URL"`
	Database               string        `yaml:"database" env:"MONGO_DATABASE" env-default:"jukebox"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env:"MONGO_SERVER_SELECTION_TIMEOUT" env-default:"10s"`
}

// Redis настройки хранилища сессий. При пустом адресе сессии хранятся в памяти процесса.
type Redis struct {
	Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user" env:"REDIS_USER"`
	DB          int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries  int           `yaml:"max_retries" env:"REDIS_MAX_RETRIES" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"3s"`
}

// RabbitMQ настройки публикации событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange   string        `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"jukebox"`
	Retries    int           `yaml:"retries" env:"RABBITMQ_RETRIES" env-default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"2s"`
}

// Spotify учетные данные приложения в Spotify Web API
type Spotify struct {
	ClientID     string `yaml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url" env:"SPOTIFY_REDIRECT_URL" env-default:"http://localhost:3000/api/auth/spotify/callback"`
	// TokenPolicy "always" берет новый токен перед каждым запросом, "cached" переиспользует его до истечения.
	TokenPolicy string `yaml:"token_policy" env:"SPOTIFY_TOKEN_POLICY" env-default:"always"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET" env-default:"secret-key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"24h"`
}

// Session настройки cookie-сессий
type Session struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE" env-default:"jukebox.sid"`
	Secret     string        `yaml:"secret" env:"SESSION_SECRET" env-default:"jukebox-session-secret"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
}

// RateLimit ограничение частоты запросов с одного IP
type RateLimit struct {
	Enabled bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"false"`
	Window  time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"10m"`
	Max     int           `yaml:"max" env:"RATE_LIMIT_MAX" env-default:"50"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Host            string        `yaml:"host" env:"HOST" env-default:"0.0.0.0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// Address возвращает адрес, на котором слушает HTTP-сервер.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// Load загружает .env (если есть), затем YAML из CONFIG_PATH (если задан) и переменные окружения.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
		}
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad как Load, но завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}
