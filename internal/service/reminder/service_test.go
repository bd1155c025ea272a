package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/internal/service/servicetest"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitPublishesToTargetUser(t *testing.T) {
	pub := &servicetest.RecordingPublisher{}
	svc := NewReminderService(pub, SourceAPI)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rsp, err := svc.Emit(context.Background(), request.EmitReminderRequest{
		Id:           "lunch-1",
		TargetUserId: "U-1",
		Message:      "该吃午饭了",
		Timestamp:    at,
	})
	require.NoError(t, err)
	assert.Equal(t, "lunch-1", rsp.Id)

	got := pub.Find(event.ReminderReceived, "U-1")
	require.Len(t, got, 1)
	assert.Equal(t, event.TargetUser, got[0].TargetKind)
	var data respond.ReminderRespond
	require.NoError(t, json.Unmarshal(got[0].Event.Data, &data))
	assert.Equal(t, "该吃午饭了", data.Message)
	assert.True(t, at.Equal(data.Timestamp))
}

func TestEmitValidatesRequest(t *testing.T) {
	svc := NewReminderService(&servicetest.RecordingPublisher{}, SourceAPI)
	for _, req := range []request.EmitReminderRequest{
		{TargetUserId: "U-1", Message: "m"},
		{Id: "r", Message: "m"},
		{Id: "r", TargetUserId: "U-1", Message: " "},
	} {
		_, err := svc.Emit(context.Background(), req)
		assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishToRoom(ctx context.Context, room string, evt event.Event) error {
	return errors.New("bus down")
}

func (failingPublisher) PublishToUser(ctx context.Context, userId string, evt event.Event) error {
	return errors.New("bus down")
}

func TestEmitReportsPublishFailure(t *testing.T) {
	svc := NewReminderService(failingPublisher{}, SourceKafka)
	_, err := svc.Emit(context.Background(), request.EmitReminderRequest{Id: "r", TargetUserId: "U-1", Message: "m"})
	assert.Equal(t, errorx.CodeServerBusy, errorx.GetCode(err))
}

type fakeLocal struct {
	mu        sync.Mutex
	users     map[string]string // userId -> role
	delivered map[string][]event.Event
}

func (f *fakeLocal) LocalUserIds(role string) []string {
	var ids []string
	for id, r := range f.users {
		if r == role {
			ids = append(ids, id)
		}
	}
	return ids
}

func (f *fakeLocal) DeliverLocalToUser(userId string, evt event.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered[userId] = append(f.delivered[userId], evt)
	return 1
}

func TestSchedulerSendsToLocalSubjectsWithDailyId(t *testing.T) {
	local := &fakeLocal{
		users:     map[string]string{"U-1": user_role_enum.Subject, "U-2": user_role_enum.Subject, "A-1": user_role_enum.Agent},
		delivered: map[string][]event.Event{},
	}
	s := NewScheduler(nil, local)
	defer s.Stop()
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local) }

	job := config.ReminderJob{Id: "lunch", Spec: "0 12 * * *", Message: "午餐时间到"}
	assert.Equal(t, 2, s.RunJob(job))
	assert.Empty(t, local.delivered["A-1"])

	require.Len(t, local.delivered["U-1"], 1)
	var data respond.ReminderRespond
	require.NoError(t, json.Unmarshal(local.delivered["U-1"][0].Data, &data))
	assert.Equal(t, "lunch-20261019", data.Id)

	// 同一天再次执行 id 不变，客户端原地替换
	s.RunJob(job)
	require.NoError(t, json.Unmarshal(local.delivered["U-1"][1].Data, &data))
	assert.Equal(t, "lunch-20261019", data.Id)
}

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler([]config.ReminderJob{{Id: "bad", Spec: "every noon"}}, &fakeLocal{})
	defer s.Stop()
	assert.Error(t, s.Start())
}

func TestSchedulerRegistersEachJobSeparately(t *testing.T) {
	local := &fakeLocal{
		users:     map[string]string{"U-1": user_role_enum.Subject},
		delivered: map[string][]event.Event{},
	}
	s := NewScheduler([]config.ReminderJob{
		{Id: "breakfast", Spec: "30 7 * * *", Message: "早餐"},
		{Id: "dinner", Spec: "0 18 * * *", Message: "晚餐"},
	}, local)
	defer s.Stop()
	s.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local) }
	require.NoError(t, s.Start())

	s.ctab.RunAll()
	require.Eventually(t, func() bool {
		local.mu.Lock()
		defer local.mu.Unlock()
		return len(local.delivered["U-1"]) == 2
	}, 3*time.Second, 10*time.Millisecond)

	local.mu.Lock()
	defer local.mu.Unlock()
	ids := make([]string, 0, 2)
	for _, evt := range local.delivered["U-1"] {
		var data respond.ReminderRespond
		require.NoError(t, json.Unmarshal(evt.Data, &data))
		ids = append(ids, data.Id)
	}
	assert.ElementsMatch(t, []string{"breakfast-20261019", "dinner-20261019"}, ids)
}
