package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBus_PublishDispatchesInSubscribeOrder(t *testing.T) {
	b := NewBus(zap.NewNop())

	var order []string
	b.Subscribe(TopicGoldChanged, func(interface{}) { order = append(order, "first") })
	b.Subscribe(TopicGoldChanged, func(interface{}) { order = append(order, "second") })

	b.Publish(TopicGoldChanged, int64(100))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_PublishPassesPayload(t *testing.T) {
	b := NewBus(zap.NewNop())

	var got interface{}
	b.Subscribe(TopicResourceChanged, func(p interface{}) { got = p })

	b.Publish(TopicResourceChanged, []int64{1, 2, 3})
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(zap.NewNop())

	calls := 0
	id := b.Subscribe(TopicBoostChanged, func(interface{}) { calls++ })

	b.Publish(TopicBoostChanged, nil)
	b.Unsubscribe(TopicBoostChanged, id)
	b.Publish(TopicBoostChanged, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.SubscriberCount(TopicBoostChanged))
}

func TestBus_UnsubscribeUnknownIDIsSafe(t *testing.T) {
	b := NewBus(zap.NewNop())
	assert.NotPanics(t, func() { b.Unsubscribe(TopicGoldChanged, 999) })
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b := NewBus(zap.NewNop())

	goldCalls, speedCalls := 0, 0
	b.Subscribe(TopicGoldChanged, func(interface{}) { goldCalls++ })
	b.Subscribe(TopicSpeedChanged, func(interface{}) { speedCalls++ })

	b.Publish(TopicGoldChanged, nil)
	assert.Equal(t, 1, goldCalls)
	assert.Equal(t, 0, speedCalls)
}

func TestBus_CoalescedKeepsLastPayloadPerTopic(t *testing.T) {
	b := NewBus(zap.NewNop())

	var got []interface{}
	b.Subscribe(TopicGoldChanged, func(p interface{}) { got = append(got, p) })

	b.PublishCoalesced(TopicGoldChanged, int64(1))
	b.PublishCoalesced(TopicGoldChanged, int64(2))
	b.PublishCoalesced(TopicGoldChanged, int64(3))
	assert.Empty(t, got, "Flush之前不分发")

	assert.Equal(t, 1, b.Flush())
	assert.Equal(t, []interface{}{int64(3)}, got, "只保留最后一个载荷")

	assert.Equal(t, 0, b.Flush(), "无聚合信号时Flush为空操作")
}

func TestBus_FlushEmitsTopicsInFirstSeenOrder(t *testing.T) {
	b := NewBus(zap.NewNop())

	var order []Topic
	record := func(topic Topic) Handler {
		return func(interface{}) { order = append(order, topic) }
	}
	b.Subscribe(TopicResourceChanged, record(TopicResourceChanged))
	b.Subscribe(TopicGoldChanged, record(TopicGoldChanged))
	b.Subscribe(TopicSpeedChanged, record(TopicSpeedChanged))

	b.PublishCoalesced(TopicSpeedChanged, nil)
	b.PublishCoalesced(TopicGoldChanged, nil)
	b.PublishCoalesced(TopicSpeedChanged, nil)
	b.PublishCoalesced(TopicResourceChanged, nil)

	assert.Equal(t, 3, b.Flush())
	assert.Equal(t, []Topic{TopicSpeedChanged, TopicGoldChanged, TopicResourceChanged}, order)
}

func TestBus_PanicInHandlerDoesNotStopOthers(t *testing.T) {
	b := NewBus(zap.NewNop())

	called := false
	b.Subscribe(TopicMissionStateChanged, func(interface{}) { panic("boom") })
	b.Subscribe(TopicMissionStateChanged, func(interface{}) { called = true })

	assert.NotPanics(t, func() { b.Publish(TopicMissionStateChanged, nil) })
	assert.True(t, called)
}

func TestBus_SubscribeDuringDispatchTakesEffectNextPublish(t *testing.T) {
	b := NewBus(zap.NewNop())

	lateCalls := 0
	b.Subscribe(TopicCharacterChanged, func(interface{}) {
		b.Subscribe(TopicCharacterChanged, func(interface{}) { lateCalls++ })
	})

	b.Publish(TopicCharacterChanged, nil)
	assert.Equal(t, 0, lateCalls, "分发中新增的订阅本轮不生效")

	b.Publish(TopicCharacterChanged, nil)
	assert.Equal(t, 1, lateCalls)
}
