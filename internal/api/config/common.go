package config

// Config 配置主体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logstash LogstashConfig `mapstructure:"logstash"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Inbox    InboxConfig    `mapstructure:"inbox"`
	Push     PushConfig     `mapstructure:"push"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// BackendConfig 会话/消息 REST 后端
type BackendConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Token       string `mapstructure:"token"`
	Timeout     int    `mapstructure:"timeout"`      // 秒
	SendTimeout int    `mapstructure:"send_timeout"` // 秒，图片请求体较大
}

// InboxConfig 收件箱行为参数
type InboxConfig struct {
	CompanyID          string `mapstructure:"company_id"`
	UserID             string `mapstructure:"user_id"`
	RefreshDelayMs     int    `mapstructure:"refresh_delay_ms"` // 发送后二次拉取的延迟
	PollSpec           string `mapstructure:"poll_spec"`        // cron 表达式
	MaxImageBytes      int64  `mapstructure:"max_image_bytes"`
	FallbackImageLabel string `mapstructure:"fallback_image_label"`
}

// PushConfig 推送通道，mode: websocket | redis | kafka | none
type PushConfig struct {
	Mode         string `mapstructure:"mode"`
	WebsocketURL string `mapstructure:"websocket_url"`
	RedisChannel string `mapstructure:"redis_channel"`
	KafkaTopic   string `mapstructure:"kafka_topic"`
	KafkaGroupID string `mapstructure:"kafka_group_id"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MinIOConfig MinIO配置，未配置 endpoint 时草稿图片保存在内存
type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	TempBucket string `mapstructure:"temp_bucket"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
}
