// Ininicializing common application configuration
package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Janitor   JanitorConfig   `mapstructure:"janitor"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Index     IndexConfig     `mapstructure:"index"`
}

type ServerConfig struct {
	AppVersion   string        `mapstructure:"app_version"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Env          string        `mapstructure:"environment"`
	Mode         string        `mapstructure:"mode"`
}

// UploadConfig bounds what the pipeline accepts and where it stores results.
type UploadConfig struct {
	MaxUploadBytes    int64    `mapstructure:"max_upload_bytes"`
	MaxDimension      int      `mapstructure:"max_dimension"`
	MaxPixels         int64    `mapstructure:"max_pixels"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	StorageDir        string   `mapstructure:"storage_dir"`
	PublicPrefix      string   `mapstructure:"public_prefix"`
	DefaultImageURL   string   `mapstructure:"default_image_url"`
	DefaultImagePath  string   `mapstructure:"default_image_path"`
}

const defaultPublicPrefix = "/uploads"

// PublicPath returns the URL prefix stored images are served under,
// rooted and without a trailing slash.
func (u UploadConfig) PublicPath() string {
	prefix := path.Join("/", u.PublicPrefix)
	if prefix == "/" {
		return defaultPublicPrefix
	}
	return prefix
}

// PolicyConfig overrides the qualities of the compression policy table.
type PolicyConfig struct {
	JPEGQuality    int `mapstructure:"jpeg_quality"`
	PNGQuality     int `mapstructure:"png_quality"`
	WEBPQuality    int `mapstructure:"webp_quality"`
	DefaultQuality int `mapstructure:"default_quality"`
}

type JanitorConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Interval            time.Duration `mapstructure:"interval"`
	TempRetention       time.Duration `mapstructure:"temp_retention"`
	SupersededRetention time.Duration `mapstructure:"superseded_retention"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// IndexConfig sizes the in-process cache in front of the image index.
type IndexConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// LoadConfig reads config.yaml from path (./config when empty). A missing file is
// not an error: defaults and AVATAR_* environment variables still apply.
func LoadConfig(path string) (*viper.Viper, error) {

	viperInstance := viper.New()
	setDefaults(viperInstance)

	if path == "" {
		path = "./config"
	}
	viperInstance.AddConfigPath(path)
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	viperInstance.SetEnvPrefix("avatar")
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	err := viperInstance.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, err
	}
	for i, ext := range c.Upload.AllowedExtensions {
		c.Upload.AllowedExtensions[i] = strings.TrimPrefix(strings.ToLower(ext), ".")
	}
	return &c, nil
}

// Default is the configuration used when no file is present; tests start from it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	c, _ := ParseConfig(v)
	return c
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.app_version", "1.0.0")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.mode", "debug")

	// Upload defaults
	v.SetDefault("upload.max_upload_bytes", 4*1024*1024)
	v.SetDefault("upload.max_dimension", 600)
	v.SetDefault("upload.max_pixels", 40_000_000)
	v.SetDefault("upload.allowed_extensions", []string{"jpg", "jpeg", "png", "gif", "webp"})
	v.SetDefault("upload.storage_dir", "./storage/uploads")
	v.SetDefault("upload.public_prefix", defaultPublicPrefix)
	v.SetDefault("upload.default_image_url", "/static/images/default-profile.png")
	v.SetDefault("upload.default_image_path", "./static/images/default-profile.png")

	// Policy defaults
	v.SetDefault("policy.jpeg_quality", 85)
	v.SetDefault("policy.png_quality", 90)
	v.SetDefault("policy.webp_quality", 85)
	v.SetDefault("policy.default_quality", 85)

	// Janitor defaults
	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.interval", 10*time.Minute)
	v.SetDefault("janitor.temp_retention", time.Hour)
	v.SetDefault("janitor.superseded_retention", time.Hour)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "profile-images")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)

	// 10 uploads per 5 minutes per owner
	v.SetDefault("rate_limit.max_requests", 10)
	v.SetDefault("rate_limit.window", 5*time.Minute)

	v.SetDefault("index.cache_size", 4096)
	v.SetDefault("index.cache_ttl", time.Minute)
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
