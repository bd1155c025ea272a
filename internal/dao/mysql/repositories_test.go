package mysql_test

import (
	"sync"
	"testing"
	"time"

	"nutri_chat_server/internal/dao/mysql"
	"nutri_chat_server/internal/dao/mysql/dbtest"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/pkg/enum/conversation/conversation_state_enum"
	"nutri_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createConversation(t *testing.T, repos *mysql.Repositories, uuid, subject, topic string) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		Uuid:          uuid,
		SubjectUserId: subject,
		Topic:         topic,
		OpenTopic:     &topic,
		State:         conversation_state_enum.Pending,
	}
	require.NoError(t, repos.Conversation.Create(conv))
	return conv
}

func TestConversationCreateRejectsDuplicateOpenTopic(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "减脂")

	topic := "减脂"
	err := repos.Conversation.Create(&model.Conversation{Uuid: "C2", SubjectUserId: "U1", Topic: topic, OpenTopic: &topic})
	require.Error(t, err)
	assert.Equal(t, errorx.CodeDuplicateTopic, errorx.GetCode(err))

	// 其他用户可以使用相同主题
	createConversation(t, repos, "C3", "U2", "减脂")
}

func TestConversationTopicReusableAfterClose(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "控糖")

	ok, err := repos.Conversation.CompareAndClose("C1", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	createConversation(t, repos, "C2", "U1", "控糖")

	open, err := repos.Conversation.FindOpenBySubjectAndTopic("U1", "控糖")
	require.NoError(t, err)
	assert.Equal(t, "C2", open.Uuid)
}

func TestCompareAndAssignHasSingleWinner(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "增肌")

	const agents = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < agents; i++ {
		agentId := "A" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Conversation.CompareAndAssign("C1", agentId, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners = append(winners, agentId)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	conv, err := repos.Conversation.FindByUuid("C1")
	require.NoError(t, err)
	require.NotNil(t, conv.AssignedAgentId)
	assert.Equal(t, winners[0], *conv.AssignedAgentId)
	assert.EqualValues(t, conversation_state_enum.Active, conv.State)
}

func TestMarkCheckedAndAddCheckAreIdempotent(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "孕期饮食")

	for _, agent := range []string{"A1", "A2", "A1"} {
		ok, err := repos.Conversation.MarkChecked("C1")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, repos.Conversation.AddCheck("C1", agent))
	}

	checkers, err := repos.Conversation.FindCheckers([]string{"C1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, checkers["C1"])

	list, err := repos.Conversation.FindCheckedByAgent("A2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "C1", list[0].Uuid)

	ok, err := repos.Conversation.CompareAndAssign("C1", "A2", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repos.Conversation.MarkChecked("C1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListQueries(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "a")
	createConversation(t, repos, "C2", "U1", "b")
	createConversation(t, repos, "C3", "U2", "c")

	mine, err := repos.Conversation.FindBySubject("U1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "C2", mine[0].Uuid)

	ok, err := repos.Conversation.CompareAndAssign("C3", "A1", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	pending, err := repos.Conversation.FindByState(conversation_state_enum.Pending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "C1", pending[0].Uuid)

	active, err := repos.Conversation.FindActiveByAgent("A1")
	require.NoError(t, err)
	require.Len(t, active, 1)

	none, err := repos.Conversation.FindActiveByAgent("A9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTouchLastMessageSkipsClosed(t *testing.T) {
	repos := dbtest.New(t)
	createConversation(t, repos, "C1", "U1", "a")

	ok, err := repos.Conversation.TouchLastMessage("C1", "hello", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repos.Conversation.CompareAndClose("C1", time.Now())
	require.NoError(t, err)

	ok, err = repos.Conversation.TouchLastMessage("C1", "late", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessagesKeepInsertionOrderAndCursor(t *testing.T) {
	repos := dbtest.New(t)
	bodies := []string{"m1", "m2", "m3", "m4"}
	for i, body := range bodies {
		require.NoError(t, repos.Message.Create(&model.Message{
			Uuid:             "M" + string(rune('0'+i)),
			ConversationUuid: "C1",
			SenderId:         "U1",
			Body:             body,
		}))
	}
	require.NoError(t, repos.Message.Create(&model.Message{Uuid: "MX", ConversationUuid: "C2", SenderId: "U2", Body: "other"}))

	all, err := repos.Message.FindByConversation("C1", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, m := range all {
		assert.Equal(t, bodies[i], m.Body)
	}

	page, err := repos.Message.FindByConversation("C1", all[1].ID, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m3", page[0].Body)
}

func TestTransactionRollsBack(t *testing.T) {
	repos := dbtest.New(t)
	err := repos.Transaction(func(tx *mysql.Repositories) error {
		require.NoError(t, tx.Message.Create(&model.Message{Uuid: "M1", ConversationUuid: "C1", SenderId: "U1", Body: "x"}))
		return errorx.ErrConversationClosed
	})
	require.ErrorIs(t, err, errorx.ErrConversationClosed)

	all, err := repos.Message.FindByConversation("C1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// recordWrites 记录每条写语句的类型与表名
func recordWrites(t *testing.T, db *gorm.DB) *[]string {
	t.Helper()
	var (
		mu     sync.Mutex
		writes []string
	)
	record := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			mu.Lock()
			defer mu.Unlock()
			writes = append(writes, op+" "+tx.Statement.Table)
		}
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", record("insert")))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:record_update", record("update")))
	return &writes
}

func TestAppendMessageLocksConversationBeforeInsert(t *testing.T) {
	db := dbtest.NewDB(t)
	repos := mysql.NewRepositories(db)
	createConversation(t, repos, "C1", "U1", "控盐")
	writes := recordWrites(t, db)

	msg := &model.Message{Uuid: "M1", ConversationUuid: "C1", SenderId: "U1", Body: "hi"}
	ok, err := repos.AppendMessage(msg, "hi", time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"update conversation", "insert message"}, *writes)

	conv, err := repos.Conversation.FindByUuid("C1")
	require.NoError(t, err)
	assert.Equal(t, "hi", conv.LastMessageSummary)
}

func TestAppendMessageToClosedConversationWritesNothing(t *testing.T) {
	db := dbtest.NewDB(t)
	repos := mysql.NewRepositories(db)
	createConversation(t, repos, "C1", "U1", "控盐")
	_, err := repos.Conversation.CompareAndClose("C1", time.Now())
	require.NoError(t, err)
	writes := recordWrites(t, db)

	ok, err := repos.AppendMessage(&model.Message{Uuid: "M1", ConversationUuid: "C1", SenderId: "U1", Body: "late"}, "late", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"update conversation"}, *writes)

	all, err := repos.Message.FindByConversation("C1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
