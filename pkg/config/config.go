package config

import (
	"log"
	"time"

	"fiverflow/pkg/services/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service settings read from the environment
type Config struct {
	Port        string
	DatabaseURL string
	GinMode     string

	VisionEndpoint string
	VisionKey      string

	StorageProvider string
	Storage         storage.SignerOptions
	SignedURLTTL    time.Duration
}

// Load reads an optional .env file and then the process environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", "8080")
	v.SetDefault("signed_url_ttl", int(storage.DefaultTTL/time.Second))
	v.SetDefault("storage_container", "assets")

	ttl := time.Duration(v.GetInt("signed_url_ttl")) * time.Second
	if ttl <= 0 {
		ttl = storage.DefaultTTL
	}

	return &Config{
		Port:            v.GetString("port"),
		DatabaseURL:     v.GetString("database_url"),
		GinMode:         v.GetString("gin_mode"),
		VisionEndpoint:  v.GetString("azure_vision_endpoint"),
		VisionKey:       v.GetString("azure_vision_key"),
		StorageProvider: v.GetString("storage_provider"),
		Storage: storage.SignerOptions{
			AzureAccount: v.GetString("azure_storage_account"),
			AzureKey:     v.GetString("azure_storage_key"),
			Container:    v.GetString("storage_container"),
			AWSRegion:    v.GetString("aws_region"),
			Bucket:       v.GetString("s3_bucket"),
		},
		SignedURLTTL: ttl,
	}, nil
}

// OCREnabled reports whether Azure computer vision credentials are present
func (c *Config) OCREnabled() bool {
	return c.VisionEndpoint != "" && c.VisionKey != ""
}
