// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
)

// 消息分发模式
const (
	MessageModeChannel = "channel" // 单机，进程内 channel 转发
	MessageModeKafka   = "kafka"   // 多实例，通过 Kafka 广播
	MessageModeNats    = "nats"    // 多实例，通过 NATS 广播
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName     string `toml:"appName"`     // 应用名称，用于日志标识等
	Host        string `toml:"host"`        // 服务器监听地址，如 "0.0.0.0"
	Port        int    `toml:"port"`        // 服务器监听端口，如 8000
	Mode        string `toml:"mode"`        // 运行模式：dev / release
	MessageMode string `toml:"messageMode"` // 消息分发模式："channel"、"kafka" 或 "nats"
	InstanceId  string `toml:"instanceId"`  // 实例标识，为空时使用主机名
	SSLRedirect bool   `toml:"sslRedirect"` // 是否将 HTTP 重定向到 HTTPS
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`         // MySQL 服务器地址
	Port         int    `toml:"port"`         // MySQL 端口，默认 3306
	User         string `toml:"user"`         // 数据库用户名
	Password     string `toml:"password"`     // 数据库密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	MaxOpenConns int    `toml:"maxOpenConns"` // 最大连接数
	MaxIdleConns int    `toml:"maxIdleConns"` // 最大空闲连接数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`  // 关闭时不使用缓存
	Host     string `toml:"host"`     // Redis 服务器地址
	Port     int    `toml:"port"`     // Redis 端口，默认 6379
	Password string `toml:"password"` // Redis 密码，无密码留空
	Db       int    `toml:"db"`       // Redis 数据库编号，默认 0
	Workers  int    `toml:"workers"`  // 异步缓存任务协程数
	Buffer   int    `toml:"buffer"`   // 异步缓存任务缓冲区大小
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	HostPort      string        `toml:"hostPort"`      // Kafka 服务器地址，如 "localhost:9092"
	EventTopic    string        `toml:"eventTopic"`    // 实时事件广播主题
	ReminderTopic string        `toml:"reminderTopic"` // 外部提醒投递主题，为空时不消费
	ReminderGroup string        `toml:"reminderGroup"` // 提醒消费组
	Timeout       time.Duration `toml:"timeout"`       // 超时时间（秒）
}

// NatsConfig NATS 配置
type NatsConfig struct {
	URL     string `toml:"url"`     // 如 "nats://127.0.0.1:4222"
	Subject string `toml:"subject"` // 实时事件广播主题
	Token   string `toml:"token"`   // 认证 Token，可为空
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 雪花算法节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// ReminderJob 定时提醒任务
type ReminderJob struct {
	Id      string `toml:"id"`      // 任务标识，同一天内的提醒 id 相同，客户端据此去重
	Spec    string `toml:"spec"`    // crontab 表达式，如 "0 12 * * *"
	Message string `toml:"message"` // 提醒内容
}

// ReminderConfig 提醒配置
type ReminderConfig struct {
	Jobs []ReminderJob `toml:"jobs"`
}

// TracingConfig OpenTelemetry 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`    // OTLP HTTP 地址，如 "localhost:4318"
	ServiceName string `toml:"serviceName"` // 为空时使用 appName
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`      // 主配置
	MysqlConfig     `toml:"mysqlConfig"`     // MySQL 配置
	RedisConfig     `toml:"redisConfig"`     // Redis 配置
	LogConfig       `toml:"logConfig"`       // 日志配置
	KafkaConfig     `toml:"kafkaConfig"`     // Kafka 配置
	NatsConfig      `toml:"natsConfig"`      // NATS 配置
	JWTConfig       `toml:"jwtConfig"`       // JWT 配置
	SnowflakeConfig `toml:"snowflakeConfig"` // 雪花算法配置
	ReminderConfig  `toml:"reminderConfig"`  // 提醒配置
	TracingConfig   `toml:"tracingConfig"`   // 链路追踪配置
}

// config 全局配置单例，延迟加载
var config *Config

// searchPaths 候选配置文件路径（优先加载本地配置）
var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml", // 从子目录运行时的路径
	"../../configs/config.toml",
}

// LoadFile 从指定路径加载配置并补全默认值
func LoadFile(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

// LoadConfig 加载配置文件
// path 非空时只加载该文件，否则依次尝试候选路径，找到第一个可用的配置文件即停止
func LoadConfig(path string) error {
	if path != "" {
		conf, err := LoadFile(path)
		if err != nil {
			return err
		}
		config = conf
		return nil
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		conf, err := LoadFile(p)
		if err != nil {
			return err
		}
		config = conf
		return nil
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例模式）
// 未加载过配置时会尝试候选路径，失败则使用默认值
func GetConfig() *Config {
	if config == nil {
		if err := LoadConfig(""); err != nil {
			config = new(Config)
			config.applyDefaults()
		}
	}
	return config
}

// Validate 校验配置中无法给出默认值的项
func (c *Config) Validate() error {
	switch c.MessageMode {
	case MessageModeChannel, MessageModeKafka, MessageModeNats:
	default:
		return fmt.Errorf("unknown messageMode %q", c.MessageMode)
	}
	if c.MessageMode == MessageModeKafka && c.KafkaConfig.HostPort == "" {
		return fmt.Errorf("kafkaConfig.hostPort is required in kafka mode")
	}
	if c.MessageMode == MessageModeNats && c.NatsConfig.URL == "" {
		return fmt.Errorf("natsConfig.url is required in nats mode")
	}
	seen := make(map[string]struct{}, len(c.Jobs))
	for _, job := range c.Jobs {
		if job.Id == "" || job.Spec == "" {
			return fmt.Errorf("reminder job requires id and spec")
		}
		if _, ok := seen[job.Id]; ok {
			return fmt.Errorf("duplicate reminder job id %q", job.Id)
		}
		seen[job.Id] = struct{}{}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "nutri_chat_server"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
	if c.MessageMode == "" {
		c.MessageMode = MessageModeChannel
	}
	if c.InstanceId == "" {
		if host, err := os.Hostname(); err == nil {
			c.InstanceId = host
		} else {
			c.InstanceId = "local"
		}
	}
	if c.MysqlConfig.Port == 0 {
		c.MysqlConfig.Port = 3306
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
	if c.Workers == 0 {
		c.Workers = 15
	}
	if c.Buffer == 0 {
		c.Buffer = 3000
	}
	if c.LogPath == "" {
		c.LogPath = "./logs"
	}
	if c.EventTopic == "" {
		c.EventTopic = "nutri_chat_events"
	}
	if c.ReminderGroup == "" {
		c.ReminderGroup = "nutri_chat_reminder"
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.Subject == "" {
		c.Subject = "nutri.chat.events"
	}
	if c.AccessTokenExpiry == 0 {
		c.AccessTokenExpiry = 120
	}
	if c.ServiceName == "" {
		c.ServiceName = c.AppName
	}
}
