package reminder

import (
	"fmt"
	"time"

	"github.com/mileusna/crontab"
	"go.uber.org/zap"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/metrics"
)

// LocalDeliverer 本实例在线用户投递，由 websocket.Manager 实现
type LocalDeliverer interface {
	LocalUserIds(role string) []string
	DeliverLocalToUser(userId string, evt event.Event) int
}

// Scheduler 定时提醒
// 每个实例运行同样的任务，只推送给连接在本实例上的咨询用户，因此每个用户只收到一次
// 提醒 id 为 任务id-日期，同一天内重复推送会在客户端原地替换
type Scheduler struct {
	ctab  *crontab.Crontab
	jobs  []config.ReminderJob
	local LocalDeliverer
	now   func() time.Time
}

// NewScheduler 创建定时提醒调度器
func NewScheduler(jobs []config.ReminderJob, local LocalDeliverer) *Scheduler {
	return &Scheduler{
		ctab:  crontab.New(),
		jobs:  jobs,
		local: local,
		now:   time.Now,
	}
}

// Start 注册全部任务
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if err := s.ctab.AddJob(job.Spec, func() { s.RunJob(job) }); err != nil {
			return fmt.Errorf("add reminder job %s (%s): %w", job.Id, job.Spec, err)
		}
		zap.L().Info("定时提醒已注册", zap.String("job_id", job.Id), zap.String("spec", job.Spec))
	}
	return nil
}

// RunJob 执行一次提醒任务，返回入队的连接数
func (s *Scheduler) RunJob(job config.ReminderJob) int {
	now := s.now()
	evt, err := event.New(event.ReminderReceived, respond.ReminderRespond{
		Id:        ReminderId(job.Id, now),
		Message:   job.Message,
		Timestamp: now,
	})
	if err != nil {
		zap.L().Error("构造定时提醒失败", zap.String("job_id", job.Id), zap.Error(err))
		return 0
	}

	delivered := 0
	users := s.local.LocalUserIds(user_role_enum.Subject)
	for _, userId := range users {
		delivered += s.local.DeliverLocalToUser(userId, evt)
	}
	metrics.RemindersTotal.WithLabelValues(SourceCron).Add(float64(len(users)))
	zap.L().Info("定时提醒已推送",
		zap.String("job_id", job.Id),
		zap.Int("users", len(users)),
		zap.Int("connections", delivered),
	)
	return delivered
}

// ReminderId 定时提醒的当日 id
func ReminderId(jobId string, at time.Time) string {
	return jobId + "-" + at.Format("20060102")
}

// Stop 停止调度
func (s *Scheduler) Stop() {
	s.ctab.Shutdown()
}
