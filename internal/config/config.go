package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"galleryupload/internal/domain"
)

const DefaultEndpoint = "https://test-api.ghd.com/SmartApp/api/upload/"

type Config struct {
	LogLevel string
	Server   ServerConfig
	S3       S3Config
	Upload   UploadConfig
	Compress CompressConfig
	Gallery  GalleryConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Prefix          string
}

type UploadConfig struct {
	Endpoint    string
	BearerToken string
	Platform    domain.Platform
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type CompressConfig struct {
	Enabled   bool
	Threshold int64
	Quality   float64
}

type GalleryConfig struct {
	Source string
	Dir    string
	Limit  int
}

const (
	SourceLocal = "local"
	SourceS3    = "s3"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("UPLOAD_ENDPOINT", DefaultEndpoint)
	v.SetDefault("UPLOAD_BEARER_TOKEN", "")
	v.SetDefault("UPLOAD_PLATFORM", string(domain.PlatformAndroid))
	v.SetDefault("UPLOAD_MAX_ATTEMPTS", 3)
	v.SetDefault("UPLOAD_RETRY_DELAY", 500*time.Millisecond)
	v.SetDefault("UPLOAD_TIMEOUT", 60*time.Second)
	v.SetDefault("COMPRESS_ENABLED", true)
	v.SetDefault("COMPRESS_THRESHOLD", 3000000)
	v.SetDefault("COMPRESS_QUALITY", 0.8)
	v.SetDefault("GALLERY_SOURCE", SourceLocal)
	v.SetDefault("GALLERY_DIR", ".")
	v.SetDefault("GALLERY_LIMIT", 10)
}

// Load reads configuration from the environment. Pass viper.GetViper() to pick
// up values bound from command-line flags.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		S3: S3Config{
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
			Prefix:          v.GetString("S3_PREFIX"),
		},
		Upload: UploadConfig{
			Endpoint:    v.GetString("UPLOAD_ENDPOINT"),
			BearerToken: v.GetString("UPLOAD_BEARER_TOKEN"),
			Platform:    domain.Platform(v.GetString("UPLOAD_PLATFORM")),
			MaxAttempts: v.GetInt("UPLOAD_MAX_ATTEMPTS"),
			RetryDelay:  v.GetDuration("UPLOAD_RETRY_DELAY"),
			Timeout:     v.GetDuration("UPLOAD_TIMEOUT"),
		},
		Compress: CompressConfig{
			Enabled:   v.GetBool("COMPRESS_ENABLED"),
			Threshold: v.GetInt64("COMPRESS_THRESHOLD"),
			Quality:   v.GetFloat64("COMPRESS_QUALITY"),
		},
		Gallery: GalleryConfig{
			Source: v.GetString("GALLERY_SOURCE"),
			Dir:    v.GetString("GALLERY_DIR"),
			Limit:  v.GetInt("GALLERY_LIMIT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Upload.Platform {
	case domain.PlatformWeb, domain.PlatformAndroid, domain.PlatformIOS:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedPlatform, cfg.Upload.Platform)
	}
	if cfg.Upload.MaxAttempts < 1 {
		return fmt.Errorf("UPLOAD_MAX_ATTEMPTS must be at least 1, got %d", cfg.Upload.MaxAttempts)
	}
	if cfg.Upload.RetryDelay < 0 {
		return fmt.Errorf("UPLOAD_RETRY_DELAY must not be negative")
	}
	if cfg.Compress.Quality <= 0 || cfg.Compress.Quality > 1 {
		return fmt.Errorf("COMPRESS_QUALITY must be in (0,1], got %v", cfg.Compress.Quality)
	}
	switch cfg.Gallery.Source {
	case SourceLocal:
	case SourceS3:
		if cfg.S3.BucketName == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required for the s3 gallery")
		}
	default:
		return fmt.Errorf("GALLERY_SOURCE must be %q or %q, got %q", SourceLocal, SourceS3, cfg.Gallery.Source)
	}
	if cfg.Gallery.Limit < 1 {
		return fmt.Errorf("GALLERY_LIMIT must be at least 1, got %d", cfg.Gallery.Limit)
	}
	return nil
}
