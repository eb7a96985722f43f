package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veda-classroom/backend/config"
	"github.com/veda-classroom/backend/internal/models"
)

// sentEvent is one recorded hub delivery.
type sentEvent struct {
	connID  string // empty for broadcasts
	event   string
	payload interface{}
}

// fakeHub records deliveries instead of writing to sockets.
type fakeHub struct {
	mu     sync.Mutex
	events []sentEvent
}

func (h *fakeHub) BroadcastToClass(_ uuid.UUID, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, sentEvent{event: event, payload: payload})
}

func (h *fakeHub) SendToConn(_ uuid.UUID, connID, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, sentEvent{connID: connID, event: event, payload: payload})
}

func (h *fakeHub) find(event string) []sentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sentEvent
	for _, e := range h.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (h *fakeHub) sentTo(connID, event string) bool {
	for _, e := range h.find(event) {
		if e.connID == connID {
			return true
		}
	}
	return false
}

// fakeDirectory is a ClassDirectory with controllable liveness.
type fakeDirectory struct {
	mu       sync.Mutex
	live     bool
	liveErr  error
	endedIDs []uuid.UUID
}

func (d *fakeDirectory) IsLive(_ context.Context, _ uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live, d.liveErr
}

func (d *fakeDirectory) MarkEnded(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endedIDs = append(d.endedIDs, id)
	return nil
}

func (d *fakeDirectory) endedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.endedIDs)
}

// fakeSink records persisted summaries.
type fakeSink struct {
	mu        sync.Mutex
	summaries []summaryCall
}

type summaryCall struct {
	classID  uuid.UUID
	students []models.SessionReportStudent
	avg      float64
}

func (s *fakeSink) PersistSummary(_ context.Context, classID uuid.UUID, students []models.SessionReportStudent, avg float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summaryCall{classID: classID, students: students, avg: avg})
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.summaries)
}

type testEnv struct {
	coord   *Coordinator
	store   *memStore
	rooms   *RoomStore
	hub     *fakeHub
	dir     *fakeDirectory
	sink    *fakeSink
	classID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	rooms := NewRoomStore(store, nil)
	hub := &fakeHub{}
	dir := &fakeDirectory{live: true}
	sink := &fakeSink{}
	coord := NewCoordinator(rooms, dir, sink, hub, config.SessionConfig{}, nil)
	coord.grace = 20 * time.Millisecond
	return &testEnv{coord: coord, store: store, rooms: rooms, hub: hub, dir: dir, sink: sink, classID: uuid.New()}
}

func (e *testEnv) joinTeacher(connID string) {
	e.coord.HandleJoin(context.Background(), connID, JoinPayload{
		ClassID: e.classID, ParticipantID: TeacherMarker, User: UserInfo{Name: "Teacher"},
	})
}

func (e *testEnv) joinStudent(connID, participantID, name string) {
	e.coord.HandleJoin(context.Background(), connID, JoinPayload{
		ClassID: e.classID, ParticipantID: participantID, User: UserInfo{Name: name},
	})
}

func TestJoinTeacherTracksSingleConnection(t *testing.T) {
	e := newTestEnv(t)
	e.joinTeacher("conn-t1")
	e.joinTeacher("conn-t2")

	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Equal(t, "conn-t2", st.TeacherConnID)
	assert.Zero(t, st.ActiveCount())

	// each teacher join gets its waiting list snapshot
	assert.True(t, e.hub.sentTo("conn-t1", "waiting_list_update"))
	assert.True(t, e.hub.sentTo("conn-t2", "waiting_list_update"))
}

func TestJoinStudentRejectedWhenNotLive(t *testing.T) {
	e := newTestEnv(t)
	e.dir.live = false
	e.joinStudent("conn-1", "stu-1", "Asha")

	assert.True(t, e.hub.sentTo("conn-1", "join_error"))
	assert.Nil(t, e.rooms.Load(context.Background(), e.classID))
}

func TestJoinStudentDirectoryErrorRejected(t *testing.T) {
	e := newTestEnv(t)
	e.dir.liveErr = errors.New("db down")
	e.joinStudent("conn-1", "stu-1", "Asha")

	assert.True(t, e.hub.sentTo("conn-1", "join_error"))
}

func TestJoinStudentBroadcastsState(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.ActiveCount())
	require.Contains(t, st.Participants, "stu-1")

	assert.NotEmpty(t, e.hub.find("class_update"))
	assert.True(t, e.hub.sentTo("conn-1", "full_state_sync"))
	assert.NotEmpty(t, e.hub.find("user_joined"))
}

func TestReconnectPreservesParticipantRecord(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	st := e.rooms.Load(context.Background(), e.classID)
	st.Participants["stu-1"].Points = 80
	st.Participants["stu-1"].QuizCorrect = 4
	e.rooms.Save(context.Background(), e.classID, st)

	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")
	e.joinStudent("conn-2", "stu-1", "Asha")

	st = e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Equal(t, 80, st.Participants["stu-1"].Points)
	assert.Equal(t, 4, st.Participants["stu-1"].QuizCorrect)
	assert.Equal(t, 1, st.ActiveCount())
}

func TestRequestToJoinQueuesNewParticipant(t *testing.T) {
	e := newTestEnv(t)
	e.coord.HandleRequestToJoin(context.Background(), "conn-1", JoinPayload{
		ClassID: e.classID, ParticipantID: "stu-1", User: UserInfo{Name: "Asha"},
	})

	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Equal(t, WaitingEntry{ParticipantID: "stu-1", Name: "Asha"}, st.Waiting["conn-1"])
	assert.NotEmpty(t, e.hub.find("waiting_list_update"))
	assert.False(t, e.hub.sentTo("conn-1", "join_approved"))
}

func TestRequestToJoinKnownParticipantAutoApproved(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")
	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")

	e.coord.HandleRequestToJoin(context.Background(), "conn-2", JoinPayload{
		ClassID: e.classID, ParticipantID: "stu-1", User: UserInfo{Name: "Asha"},
	})

	assert.True(t, e.hub.sentTo("conn-2", "join_approved"))
	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.NotContains(t, st.Waiting, "conn-2")
}

func TestApproveAdmitsWaitingConnection(t *testing.T) {
	e := newTestEnv(t)
	e.coord.HandleRequestToJoin(context.Background(), "conn-1", JoinPayload{
		ClassID: e.classID, ParticipantID: "stu-1", User: UserInfo{Name: "Asha"},
	})

	e.coord.HandleApprove(context.Background(), ApprovePayload{ClassID: e.classID, ConnID: "conn-1"})

	assert.True(t, e.hub.sentTo("conn-1", "join_approved"))
	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Empty(t, st.Waiting)
}

func TestJoinClearsWaitingEntry(t *testing.T) {
	e := newTestEnv(t)
	e.coord.HandleRequestToJoin(context.Background(), "conn-1", JoinPayload{
		ClassID: e.classID, ParticipantID: "stu-1", User: UserInfo{Name: "Asha"},
	})
	e.joinStudent("conn-1", "stu-1", "Asha")

	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.NotContains(t, st.Waiting, "conn-1")
	assert.Contains(t, st.ActiveConnections, "conn-1")
}

func TestApproveUnknownConnectionNoOp(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")
	before := len(e.hub.find("join_approved"))

	e.coord.HandleApprove(context.Background(), ApprovePayload{ClassID: e.classID, ConnID: "conn-x"})
	assert.Equal(t, before, len(e.hub.find("join_approved")))
}

func TestAutoEndAfterGrace(t *testing.T) {
	e := newTestEnv(t)
	e.joinTeacher("conn-t")
	e.joinStudent("conn-1", "stu-1", "Asha")

	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")
	e.coord.HandleLeave(context.Background(), e.classID, "conn-t")

	require.Eventually(t, func() bool {
		return e.rooms.Load(context.Background(), e.classID) == nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, e.dir.endedCount())
	require.Equal(t, 1, e.sink.count())
	sum := e.sink.summaries[0]
	assert.Equal(t, e.classID, sum.classID)
	require.Len(t, sum.students, 1)
	assert.Equal(t, "stu-1", sum.students[0].StudentID)
	assert.InDelta(t, 100.0, sum.avg, 0.001)
}

func TestAutoEndCancelledByRejoin(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")
	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")

	// rejoin inside the grace window
	e.joinStudent("conn-2", "stu-1", "Asha")

	time.Sleep(4 * e.coord.grace)
	st := e.rooms.Load(context.Background(), e.classID)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.ActiveCount())
	assert.Zero(t, e.dir.endedCount())
	assert.Zero(t, e.sink.count())
}

func TestAutoEndFinalizesOnce(t *testing.T) {
	e := newTestEnv(t)

	// empty the room twice in quick succession so two grace timers are
	// armed; only the first to fire against an empty room finalizes
	e.joinStudent("conn-1", "stu-1", "Asha")
	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")
	e.joinStudent("conn-2", "stu-1", "Asha")
	e.coord.HandleLeave(context.Background(), e.classID, "conn-2")

	time.Sleep(4 * e.coord.grace)
	assert.Equal(t, 1, e.dir.endedCount())
	assert.Equal(t, 1, e.sink.count())
}

func TestExplicitEndNotifiesWaiting(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")
	e.coord.HandleRequestToJoin(context.Background(), "conn-2", JoinPayload{
		ClassID: e.classID, ParticipantID: "stu-2", User: UserInfo{Name: "Ravi"},
	})

	e.coord.EndClass(context.Background(), e.classID)

	ended := e.hub.find("class_ended")
	require.Len(t, ended, 2) // one broadcast plus one per waiting conn
	assert.True(t, e.hub.sentTo("conn-2", "class_ended"))
	assert.Equal(t, 1, e.sink.count())
	assert.Nil(t, e.rooms.Load(context.Background(), e.classID))
}

func TestAttentionUpdateMutatesAndRelays(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	score, responses, total := 55, 3, 5
	e.coord.HandleAttention(context.Background(), AttentionPayload{
		ClassID: e.classID, ParticipantID: "stu-1", Status: StatusDistracted,
		Score: &score, ResponsesCount: &responses, TotalCount: &total,
	})

	st := e.rooms.Load(context.Background(), e.classID)
	rec := st.Participants["stu-1"]
	assert.Equal(t, StatusDistracted, rec.Status)
	assert.Equal(t, 55, rec.Score)
	assert.Equal(t, 3, rec.ResponsesCount)
	assert.Equal(t, 5, rec.TotalCount)
	assert.NotEmpty(t, e.hub.find("attention_update"))
}

func TestAttentionUpdateUnknownParticipantStillRelays(t *testing.T) {
	e := newTestEnv(t)
	e.coord.HandleAttention(context.Background(), AttentionPayload{
		ClassID: e.classID, ParticipantID: "stu-x", Status: StatusDistracted,
	})
	assert.NotEmpty(t, e.hub.find("attention_update"))
}

func TestTabSwitchAccumulatesIdle(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	e.coord.HandleTabSwitch(context.Background(), TabSwitchPayload{
		ClassID: e.classID, ParticipantID: "stu-1", TabSwitches: 2, FocusScore: 70, IdleMillis: 1500,
	})
	e.coord.HandleTabSwitch(context.Background(), TabSwitchPayload{
		ClassID: e.classID, ParticipantID: "stu-1", TabSwitches: 3, FocusScore: 60, IdleMillis: 500,
	})

	rec := e.rooms.Load(context.Background(), e.classID).Participants["stu-1"]
	assert.Equal(t, 3, rec.TabSwitches)
	assert.Equal(t, 60, rec.FocusScore)
	assert.Equal(t, int64(2000), rec.IdleMillis)
}

func TestStudentAbsentFoldsEngagementRate(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	rate := 35
	e.coord.HandleStudentAbsent(context.Background(), AbsentPayload{
		ClassID: e.classID, ParticipantID: "stu-1", EngagementRate: &rate,
	})

	rec := e.rooms.Load(context.Background(), e.classID).Participants["stu-1"]
	assert.Equal(t, StatusAbsent, rec.Status)
	assert.Equal(t, 35, rec.Score)
}

func TestPointsUpdateBroadcastsLeaderboard(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("stu-%d", i)
		e.joinStudent("conn-"+id, id, "Student "+id)
		e.coord.HandlePointsUpdate(context.Background(), PointsPayload{
			ClassID: e.classID, ParticipantID: id, Points: i * 10,
		})
	}

	boards := e.hub.find("leaderboard_update")
	require.NotEmpty(t, boards)
	rows, ok := boards[len(boards)-1].payload.([]LeaderboardRow)
	require.True(t, ok)
	require.Len(t, rows, 5)
	assert.Equal(t, "stu-6", rows[0].ID)
	assert.Equal(t, 60, rows[0].Points)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 5, rows[4].Rank)
}

func TestQuizResponseAggregation(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	answers := []struct {
		selected int
		correct  bool
	}{
		{0, false}, {0, false}, {0, false},
		{1, true}, {1, true}, {1, true}, {1, true},
		{2, true}, {2, true},
		{3, true},
	}
	for i, a := range answers {
		e.coord.HandleQuizResponse(context.Background(), QuizResponsePayload{
			ClassID: e.classID, QuizID: "quiz-1", ParticipantID: fmt.Sprintf("stu-%d", i),
			SelectedAnswer: a.selected, IsCorrect: a.correct,
		})
	}

	st := e.rooms.Load(context.Background(), e.classID)
	require.Contains(t, st.QuizStats, "quiz-1")
	agg := st.QuizStats["quiz-1"]
	assert.Equal(t, 10, agg.TotalResponses)
	assert.Equal(t, 7, agg.CorrectCount)
	assert.Equal(t, map[int]int{0: 3, 1: 4, 2: 2, 3: 1}, agg.AnswerDistribution)

	assert.Len(t, e.hub.find("quiz_stats_update"), 10)
	assert.Len(t, e.hub.find("quiz_response"), 10)
}

func TestQuizResponseUpdatesParticipantCounters(t *testing.T) {
	e := newTestEnv(t)
	e.joinStudent("conn-1", "stu-1", "Asha")

	e.coord.HandleQuizResponse(context.Background(), QuizResponsePayload{
		ClassID: e.classID, QuizID: "q1", ParticipantID: "stu-1", SelectedAnswer: 1, IsCorrect: true,
	})
	e.coord.HandleAIQuizResponse(context.Background(), QuizResponsePayload{
		ClassID: e.classID, QuizID: "q2", ParticipantID: "stu-1", SelectedAnswer: 0, IsCorrect: false,
	})

	rec := e.rooms.Load(context.Background(), e.classID).Participants["stu-1"]
	assert.Equal(t, 2, rec.QuizTotal)
	assert.Equal(t, 1, rec.QuizCorrect)
	assert.Len(t, e.hub.find("ai_quiz_response"), 1)
}

func TestHandlersSurviveStoreFailure(t *testing.T) {
	e := newTestEnv(t)
	e.store.failGet = true
	e.store.failSet = true

	e.joinStudent("conn-1", "stu-1", "Asha")
	e.coord.HandleAttention(context.Background(), AttentionPayload{ClassID: e.classID, ParticipantID: "stu-1", Status: StatusDistracted})
	e.coord.HandleLeave(context.Background(), e.classID, "conn-1")

	// broadcasts still go out even though nothing persisted
	assert.NotEmpty(t, e.hub.find("attention_update"))
}

func TestChatRelay(t *testing.T) {
	e := newTestEnv(t)
	e.coord.HandleChat(ChatPayload{ClassID: e.classID, Sender: "Asha"})
	assert.NotEmpty(t, e.hub.find("receive_message"))
}
