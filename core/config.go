package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	ServerConfig struct {
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	StorageConfig struct {
		Driver        string
		Path          string // file driver
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string
		DatabaseURL   string
	}

	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		Build        string
		AppName      string
		WorkDir      string
		RollbarToken string

		API     APIConfig
		Server  ServerConfig
		Storage StorageConfig
	}
)

// NewConfig loads the portal configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the ENV name, eg. DEV_API_BASEURL.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	setDefaults(v, env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(v.GetString("storage.driver")),
			Path:          v.GetString("storage.path"),
			RedisAddr:     v.GetString("storage.redisAddr"),
			RedisPassword: v.GetString("storage.redisPassword"),
			RedisDB:       v.GetInt("storage.redisDB"),
			RedisPrefix:   v.GetString("storage.redisPrefix"),
			DatabaseURL:   v.GetString("storage.databaseURL"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Masomo")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("api.baseURL", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("server.address", "localhost:3000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("storage.redisAddr", "localhost:6379")
	v.SetDefault("storage.redisPassword", "")
	v.SetDefault("storage.redisDB", 0)
	v.SetDefault("storage.redisPrefix", "masomo:portal:")
	v.SetDefault("storage.databaseURL", "postgres://localhost:5432/masomo_portal?sslmode=disable")
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "masomo", "session.json")
}
