package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("backend.timeout", 10)
	v.SetDefault("backend.send_timeout", 60)
	v.SetDefault("inbox.refresh_delay_ms", 1000)
	v.SetDefault("inbox.poll_spec", "@every 30s")
	v.SetDefault("inbox.max_image_bytes", 10<<20)
	v.SetDefault("inbox.fallback_image_label", "📷 [image attach failed]")
	v.SetDefault("push.mode", "none")
	v.SetDefault("push.redis_channel", "inbox:events:")
	v.SetDefault("push.kafka_group_id", "switchboard-inbox")
	v.SetDefault("minio.temp_bucket", "inbox-drafts")
}

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("SWITCHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Inbox.CompanyID == "" {
		return nil, errors.New("inbox.company_id is required")
	}
	return &cfg, nil
}
