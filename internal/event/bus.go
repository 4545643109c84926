package event

import (
	"sync"

	"go.uber.org/zap"
)

// Topic 信号主题
type Topic string

// 引擎对外广播的信号主题
// 订阅方通常是UI层，回调在引擎线程上同步执行，必须保持轻量。
const (
	// TopicGoldChanged 金币余额变化
	TopicGoldChanged Topic = "gold_changed"
	// TopicDistanceChanged 总里程变化
	TopicDistanceChanged Topic = "distance_changed"
	// TopicSpeedChanged 当前速度变化（含加速生效/结束）
	TopicSpeedChanged Topic = "speed_changed"
	// TopicResourceChanged 资源仓库变化
	TopicResourceChanged Topic = "resource_changed"
	// TopicStorageChanged 仓库容量或占用变化
	TopicStorageChanged Topic = "storage_changed"
	// TopicMissionStateChanged 任务状态批量变化（每tick至多一条）
	TopicMissionStateChanged Topic = "mission_state_changed"
	// TopicCharacterChanged 当前角色或角色解锁变化
	TopicCharacterChanged Topic = "character_changed"
	// TopicBoostChanged 加速阶段变化（激活/结束/冷却结束）
	TopicBoostChanged Topic = "boost_changed"
	// TopicBoostUnlockChanged 加速功能解锁状态变化
	TopicBoostUnlockChanged Topic = "boost_unlock_changed"
)

// Handler 信号处理回调
type Handler func(payload interface{})

type subscription struct {
	id uint64
	fn Handler
}

// Bus 进程内信号总线
// Publish同步分发；PublishCoalesced把同主题的高频信号聚合成
// 每tick一条（保留最后一个载荷），由宿主在tick末尾Flush统一发出。
type Bus struct {
	mu     sync.Mutex
	logger *zap.Logger
	seq    uint64
	subs   map[Topic][]subscription

	pending      map[Topic]interface{}
	pendingOrder []Topic
}

// NewBus 创建信号总线
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:  logger,
		subs:    make(map[Topic][]subscription),
		pending: make(map[Topic]interface{}),
	}
}

// Subscribe 订阅主题，返回用于退订的订阅ID
func (b *Bus) Subscribe(topic Topic, fn Handler) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	b.subs[topic] = append(b.subs[topic], subscription{id: b.seq, fn: fn})
	return b.seq
}

// Unsubscribe 退订，未知ID为空操作
func (b *Bus) Unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish 立即同步分发信号
// 回调按订阅顺序执行，单个回调panic不影响其余订阅方。
func (b *Bus) Publish(topic Topic, payload interface{}) {
	for _, sub := range b.snapshot(topic) {
		b.dispatch(topic, sub, payload)
	}
}

// PublishCoalesced 聚合发布
// 同一主题在一次Flush之前多次发布只保留最后一个载荷，
// 适合金币、资源这类每tick可能变化多次、UI只关心终值的信号。
func (b *Bus) PublishCoalesced(topic Topic, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[topic]; !ok {
		b.pendingOrder = append(b.pendingOrder, topic)
	}
	b.pending[topic] = payload
}

// Flush 发出全部聚合中的信号，按首次聚合的主题顺序
// 宿主在每个tick末尾调用一次，返回发出的信号条数。
func (b *Bus) Flush() int {
	b.mu.Lock()
	if len(b.pendingOrder) == 0 {
		b.mu.Unlock()
		return 0
	}
	order := b.pendingOrder
	pending := b.pending
	b.pendingOrder = nil
	b.pending = make(map[Topic]interface{})
	b.mu.Unlock()

	for _, topic := range order {
		b.Publish(topic, pending[topic])
	}
	return len(order)
}

// SubscriberCount 主题当前订阅数
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// snapshot 拷贝订阅列表，分发期间订阅/退订互不干扰
func (b *Bus) snapshot(topic Topic) []subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	if len(subs) == 0 {
		return nil
	}
	return append([]subscription(nil), subs...)
}

// dispatch 执行单个回调并兜住panic
func (b *Bus) dispatch(topic Topic, sub subscription, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("信号回调执行出错",
				zap.String("topic", string(topic)),
				zap.Uint64("subscription_id", sub.id),
				zap.Any("panic", r))
		}
	}()
	sub.fn(payload)
}
