// Package service 提供业务逻辑层的实现
package service

import "sync"

// ConversationLocker 对话级互斥锁表
// 消息序号在写入事务中按当前最大值加一分配，
// 同一对话的两条写入路径并发执行会读到同一个最大值，产生重复序号。
// 聊天服务和对话服务必须共用同一个实例，所有消息写入串行化。
type ConversationLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationLocker 创建 ConversationLocker 实例
func NewConversationLocker() *ConversationLocker {
	return &ConversationLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock 获取指定对话的锁，返回解锁函数
func (l *ConversationLocker) Lock(id string) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
