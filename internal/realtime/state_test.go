package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for tests. failGet/failSet force
// errors to exercise the fail-soft paths.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	failSet bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("store down")
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("store down")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestRoomStateRoundTrip(t *testing.T) {
	st := NewRoomState()
	st.TeacherConnID = "conn-t"
	st.ActiveConnections["conn-1"] = struct{}{}
	st.ActiveConnections["conn-2"] = struct{}{}
	st.Participants["stu-1"] = NewParticipant("stu-1", "Asha")
	st.Participants["stu-1"].Points = 40
	st.Participants["stu-1"].HandRaised = true
	st.Waiting["conn-3"] = WaitingEntry{ParticipantID: "stu-2", Name: "Ravi"}
	st.QuizStats["q1"] = &QuizAggregate{TotalResponses: 3, CorrectCount: 2, AnswerDistribution: map[int]int{0: 1, 2: 2}}

	store := newMemStore()
	rooms := NewRoomStore(store, nil)
	classID := uuid.New()
	ctx := context.Background()

	rooms.Save(ctx, classID, st)
	got := rooms.Load(ctx, classID)
	require.NotNil(t, got)

	assert.Equal(t, "conn-t", got.TeacherConnID)
	assert.Equal(t, 2, got.ActiveCount())
	require.Contains(t, got.Participants, "stu-1")
	assert.Equal(t, 40, got.Participants["stu-1"].Points)
	assert.True(t, got.Participants["stu-1"].HandRaised)
	assert.Equal(t, WaitingEntry{ParticipantID: "stu-2", Name: "Ravi"}, got.Waiting["conn-3"])
	require.Contains(t, got.QuizStats, "q1")
	assert.Equal(t, map[int]int{0: 1, 2: 2}, got.QuizStats["q1"].AnswerDistribution)
}

func TestRoomStoreLoadAbsent(t *testing.T) {
	rooms := NewRoomStore(newMemStore(), nil)
	assert.Nil(t, rooms.Load(context.Background(), uuid.New()))
}

func TestRoomStoreLoadFailSoft(t *testing.T) {
	store := newMemStore()
	store.failGet = true
	rooms := NewRoomStore(store, nil)
	assert.Nil(t, rooms.Load(context.Background(), uuid.New()))
}

func TestRoomStoreLoadCorrupt(t *testing.T) {
	store := newMemStore()
	classID := uuid.New()
	store.data[roomKey(classID)] = "{not json"
	rooms := NewRoomStore(store, nil)
	assert.Nil(t, rooms.Load(context.Background(), classID))
}

func TestRoomStoreSaveErrorSwallowed(t *testing.T) {
	store := newMemStore()
	store.failSet = true
	rooms := NewRoomStore(store, nil)
	rooms.Save(context.Background(), uuid.New(), NewRoomState())
}

func TestRoomStoreDeleteIdempotent(t *testing.T) {
	store := newMemStore()
	rooms := NewRoomStore(store, nil)
	classID := uuid.New()
	rooms.Save(context.Background(), classID, NewRoomState())
	rooms.Delete(context.Background(), classID)
	rooms.Delete(context.Background(), classID)
	assert.Nil(t, rooms.Load(context.Background(), classID))
}

func TestRoomStateEmpty(t *testing.T) {
	st := NewRoomState()
	assert.True(t, st.Empty())

	st.TeacherConnID = "conn-t"
	assert.False(t, st.Empty())

	st.TeacherConnID = ""
	st.ActiveConnections["conn-1"] = struct{}{}
	assert.False(t, st.Empty())

	// participants alone do not keep a room alive
	delete(st.ActiveConnections, "conn-1")
	st.Participants["stu-1"] = NewParticipant("stu-1", "Asha")
	assert.True(t, st.Empty())
}

func TestNewParticipantDefaults(t *testing.T) {
	p := NewParticipant("stu-1", "Asha")
	assert.Equal(t, StatusAttentive, p.Status)
	assert.Equal(t, 100, p.Score)
	assert.Equal(t, 100, p.FocusScore)
	assert.Zero(t, p.Points)
}

func TestLeaderboardOrdering(t *testing.T) {
	st := NewRoomState()
	points := map[string]int{"a": 10, "b": 30, "c": 30, "d": 5, "e": 50, "f": 20, "g": 1}
	for id, pts := range points {
		p := NewParticipant(id, "Student "+id)
		p.Points = pts
		st.Participants[id] = p
	}

	rows := st.Leaderboard(5)
	require.Len(t, rows, 5)

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		assert.Equal(t, i+1, r.Rank)
	}
	// ties (b, c at 30) resolve by id ascending
	assert.Equal(t, []string{"e", "b", "c", "f", "a"}, ids)
}

func TestWaitingListStableOrder(t *testing.T) {
	st := NewRoomState()
	st.Waiting["conn-b"] = WaitingEntry{ParticipantID: "stu-2", Name: "B"}
	st.Waiting["conn-a"] = WaitingEntry{ParticipantID: "stu-1", Name: "A"}

	list := st.WaitingList()
	require.Len(t, list, 2)
	assert.Equal(t, "conn-a", list[0].ConnID)
	assert.Equal(t, "conn-b", list[1].ConnID)
}
