package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(classID uuid.UUID, connID string) *Client {
	return &Client{
		ID:      connID,
		ClassID: classID,
		send:    make(chan Envelope, 256),
	}
}

func TestHubBroadcastDeliversToAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	classID := uuid.New()
	c1 := newTestClient(classID, "conn-1")
	c2 := newTestClient(classID, "conn-2")
	hub.Register(c1)
	hub.Register(c2)

	hub.BroadcastToClass(classID, "class_update", map[string]int{"activeStudents": 2})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			assert.Equal(t, EventType("class_update"), msg.Event)
		case <-time.After(time.Second):
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHubBroadcastDuringRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	classID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := newTestClient(classID, uuid.NewString())
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			hub.BroadcastToClass(classID, "class_update", map[string]int{"activeStudents": i})
		}
	}()
	wg.Wait()

	assert.Zero(t, hub.ConnectionCount(classID))
}

func TestHubUnregisterLastClientDropsClass(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	classID := uuid.New()
	c := newTestClient(classID, "conn-1")
	hub.Register(c)
	require.Equal(t, 1, hub.ConnectionCount(classID))

	hub.Unregister(c)
	assert.Zero(t, hub.ConnectionCount(classID))

	// broadcasting into an empty class is a no-op
	hub.BroadcastToClass(classID, "class_update", map[string]int{"activeStudents": 0})
	assert.Empty(t, c.send)
}

func TestDispatchSkipsOwnPublishes(t *testing.T) {
	ps := &RedisPubSub{instanceID: "instance-a", logger: zap.NewNop()}

	body, err := json.Marshal(redisPayload{
		Event:  "receive_message",
		Data:   json.RawMessage(`{"text":"hi"}`),
		Origin: "instance-a",
		At:     time.Now().Unix(),
	})
	require.NoError(t, err)

	called := 0
	ps.dispatch(body, func(event string, payload []byte) { called++ })
	assert.Zero(t, called, "self-published event must not be re-delivered")
}

func TestDispatchDeliversForeignPublishes(t *testing.T) {
	ps := &RedisPubSub{instanceID: "instance-a", logger: zap.NewNop()}

	body, err := json.Marshal(redisPayload{
		Event:  "receive_message",
		Data:   json.RawMessage(`{"text":"hi"}`),
		Origin: "instance-b",
		At:     time.Now().Unix(),
	})
	require.NoError(t, err)

	var gotEvent string
	var gotPayload []byte
	ps.dispatch(body, func(event string, payload []byte) {
		gotEvent = event
		gotPayload = payload
	})
	assert.Equal(t, "receive_message", gotEvent)
	assert.JSONEq(t, `{"text":"hi"}`, string(gotPayload))
}

func TestDispatchIgnoresMalformedPayload(t *testing.T) {
	ps := &RedisPubSub{instanceID: "instance-a", logger: zap.NewNop()}

	called := 0
	ps.dispatch([]byte("not json"), func(event string, payload []byte) { called++ })
	assert.Zero(t, called)
}
