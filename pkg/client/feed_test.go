package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderFeedMergeById(t *testing.T) {
	feed := NewReminderFeed()
	now := time.Now()

	assert.False(t, feed.Merge(Reminder{Id: "r1", Message: "记得喝水", Timestamp: now}))
	assert.False(t, feed.Merge(Reminder{Id: "r2", Message: "午餐时间", Timestamp: now}))
	assert.True(t, feed.Merge(Reminder{Id: "r1", Message: "记得喝水（已更新）", Timestamp: now}))
	assert.False(t, feed.Merge(Reminder{Id: "r3", Message: "晚餐时间", Timestamp: now}))

	list := feed.List()
	assert.Len(t, list, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{list[0].Id, list[1].Id, list[2].Id})
	assert.Equal(t, "记得喝水（已更新）", list[2].Message)

	// 已更新的提醒保持原位置
	feed.Merge(Reminder{Id: "r2", Message: "午餐时间！"})
	list = feed.List()
	assert.Equal(t, "r2", list[1].Id)
	assert.Equal(t, "午餐时间！", list[1].Message)
	assert.Equal(t, 3, feed.Len())
}

func TestReminderFeedListIsCopy(t *testing.T) {
	feed := NewReminderFeed()
	feed.Merge(Reminder{Id: "r1", Message: "a"})
	list := feed.List()
	list[0].Message = "changed"
	assert.Equal(t, "a", feed.List()[0].Message)
}

func TestMessageLogDedupsAndOrders(t *testing.T) {
	ml := NewMessageLog()
	assert.Equal(t, 2, ml.Merge(Message{MessageId: "m3", Seq: 3}, Message{MessageId: "m1", Seq: 1}))
	assert.Equal(t, 1, ml.Merge(Message{MessageId: "m2", Seq: 2}, Message{MessageId: "m3", Seq: 3}))
	assert.Equal(t, 0, ml.Merge(Message{MessageId: "m1", Seq: 1}))

	list := ml.List()
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{list[0].MessageId, list[1].MessageId, list[2].MessageId})
	assert.EqualValues(t, 3, ml.LastSeq())
	assert.EqualValues(t, 0, NewMessageLog().LastSeq())
}
