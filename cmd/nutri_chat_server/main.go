package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nutri_chat_server/internal/config"
	dao "nutri_chat_server/internal/dao/mysql"
	myredis "nutri_chat_server/internal/dao/redis"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/internal/gateway/websocket"
	"nutri_chat_server/internal/handler"
	"nutri_chat_server/internal/https_server"
	"nutri_chat_server/internal/infrastructure/logger"
	"nutri_chat_server/internal/infrastructure/mq"
	"nutri_chat_server/internal/infrastructure/tracing"
	"nutri_chat_server/internal/service"
	"nutri_chat_server/internal/service/reminder"
	"nutri_chat_server/pkg/util/jwt"
	"nutri_chat_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，为空时按默认路径查找")
	flag.Parse()

	// 1. 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功", zap.String("instance_id", conf.InstanceId))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化 JWT、雪花算法与链路追踪
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	snowflake.SetNode(conf.SnowflakeConfig.MachineID)
	shutdownTracing, err := tracing.Init(ctx, conf.TracingConfig, conf.InstanceId)
	if err != nil {
		zap.L().Warn("链路追踪初始化失败，继续运行", zap.Error(err))
	}

	// 4. 初始化数据库
	repos, err := dao.Init(conf.MysqlConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis（可选）
	var cacheService myredis.AsyncCacheService
	var redisCache *myredis.RedisCache
	if conf.RedisConfig.Enabled {
		redisCache, err = myredis.Init(ctx, conf.RedisConfig)
		if err != nil {
			zap.L().Fatal("Redis 初始化失败", zap.Error(err))
		}
		cacheService = redisCache
		zap.L().Info("Redis 初始化成功")
	}

	// 6. 初始化事件总线与实时通道
	broker, err := mq.NewBroker(conf)
	if err != nil {
		zap.L().Fatal("事件总线初始化失败", zap.Error(err))
	}
	manager := websocket.NewManager(conf.InstanceId, broker)
	if err := broker.Start(ctx, func(env event.Envelope) { manager.Deliver(env) }); err != nil {
		zap.L().Fatal("事件总线启动失败", zap.Error(err))
	}
	zap.L().Info("事件总线初始化成功", zap.String("mode", conf.MessageMode))

	// 7. 初始化 Service 层 (依赖注入)
	svc := service.NewServices(repos, cacheService, manager)
	manager.SetCommandHandlers(svc.Message, svc.Conversation)

	// 8. 外部提醒：Kafka 提醒主题与定时任务
	var consumer *mq.ReminderConsumer
	if conf.MessageMode == config.MessageModeKafka && conf.ReminderTopic != "" {
		consumer = mq.NewReminderConsumer(conf.KafkaConfig, reminder.NewReminderService(manager, reminder.SourceKafka))
		consumer.Start(ctx)
		zap.L().Info("提醒消费者已启动", zap.String("topic", conf.ReminderTopic))
	}
	scheduler := reminder.NewScheduler(conf.Jobs, manager)
	if err := scheduler.Start(); err != nil {
		zap.L().Fatal("定时提醒初始化失败", zap.Error(err))
	}

	// 9. 初始化 HTTP 服务器
	checks := []handler.HealthCheck{{Name: "mysql", Ping: repos.Ping}}
	if redisCache != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: redisCache.Ping})
	}
	handlers := handler.NewHandlers(svc, manager, checks...)
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Warn("参数校验翻译器初始化失败", zap.Error(err))
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler:           https_server.Init(handlers, conf),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("HTTP 服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 等待信号
	<-ctx.Done()
	zap.L().Info("关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}
	scheduler.Stop()
	if consumer != nil {
		_ = consumer.Close()
	}
	manager.Close()
	if err := broker.Close(); err != nil {
		zap.L().Error("事件总线关闭失败", zap.Error(err))
	}
	if redisCache != nil {
		_ = redisCache.Close()
	}
	if err := repos.Close(); err != nil {
		zap.L().Error("数据库关闭失败", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zap.L().Warn("链路追踪关闭失败", zap.Error(err))
	}

	zap.L().Info("服务器已关闭")
}
