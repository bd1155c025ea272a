// Package servicetest 提供 Service 层测试用的事件记录器与内存缓存
package servicetest

import (
	"context"
	"sync"
	"time"

	"nutri_chat_server/internal/event"
)

// Published 一次推送记录
type Published struct {
	TargetKind string
	Target     string
	Event      event.Event
}

// RecordingPublisher 记录所有推送的 event.Publisher，供各 Service 的测试使用
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *RecordingPublisher) PublishToRoom(ctx context.Context, room string, evt event.Event) error {
	p.record(event.TargetRoom, room, evt)
	return nil
}

func (p *RecordingPublisher) PublishToUser(ctx context.Context, userId string, evt event.Event) error {
	p.record(event.TargetUser, userId, evt)
	return nil
}

func (p *RecordingPublisher) record(kind, target string, evt event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{TargetKind: kind, Target: target, Event: evt})
}

// Events 返回推送记录的副本
func (p *RecordingPublisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.events...)
}

// Find 按事件类型与目标筛选
func (p *RecordingPublisher) Find(eventType, target string) []Published {
	var out []Published
	for _, e := range p.Events() {
		if e.Event.Type == eventType && e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

// MemoryCache 内存版 AsyncCacheService，异步任务同步执行
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *MemoryCache) SubmitTask(action func()) {
	action()
}

// Has 判断键是否存在
func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// DeferredCache 异步任务先排队，由 RunQueued 统一执行，用于模拟 Worker 延迟
type DeferredCache struct {
	*MemoryCache
	mu    sync.Mutex
	tasks []func()
}

// NewDeferredCache 创建延迟执行异步任务的内存缓存
func NewDeferredCache() *DeferredCache {
	return &DeferredCache{MemoryCache: NewMemoryCache()}
}

func (c *DeferredCache) SubmitTask(action func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, action)
}

// RunQueued 按提交顺序执行排队的任务，返回执行数量
func (c *DeferredCache) RunQueued() int {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()
	for _, task := range tasks {
		task()
	}
	return len(tasks)
}
