package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/config"
	"github.com/veda-classroom/backend/internal/models"
)

// leaderboardSize is how many top scorers are broadcast after a points update.
const leaderboardSize = 5

// ClassDirectory is the external class registry the coordinator
// consults: liveness gates student joins, MarkEnded finalizes a class.
type ClassDirectory interface {
	IsLive(ctx context.Context, classID uuid.UUID) (bool, error)
	MarkEnded(ctx context.Context, classID uuid.UUID) error
}

// SummarySink persists the end-of-class engagement summary.
type SummarySink interface {
	PersistSummary(ctx context.Context, classID uuid.UUID, students []models.SessionReportStudent, avgScore float64) error
}

// Broadcaster delivers events to a room or to a single connection.
type Broadcaster interface {
	BroadcastToClass(classID uuid.UUID, event string, payload interface{})
	SendToConn(classID uuid.UUID, connID, event string, payload interface{})
}

// Coordinator is the authoritative state machine for live class rooms.
// Every handler runs one load -> mutate -> save -> broadcast cycle, so
// a concurrent reader never observes a broadcast without the
// corresponding persisted state. Store failures degrade to best-effort
// persistence; they never fail the in-memory operation.
type Coordinator struct {
	rooms   *RoomStore
	classes ClassDirectory
	reports SummarySink
	hub     Broadcaster
	logger  *zap.Logger

	grace         time.Duration
	aiMinInterval time.Duration
	aiMaxInterval time.Duration
	answerTimeout time.Duration
}

// NewCoordinator creates a session coordinator.
func NewCoordinator(rooms *RoomStore, classes ClassDirectory, reports SummarySink, hub Broadcaster, session config.SessionConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		rooms:         rooms,
		classes:       classes,
		reports:       reports,
		hub:           hub,
		logger:        logger,
		grace:         secondsOr(session.AutoEndGraceSeconds, 5),
		aiMinInterval: secondsOr(session.AIQuizMinIntervalSecs, 8),
		aiMaxInterval: secondsOr(session.AIQuizMaxIntervalSecs, 20),
		answerTimeout: secondsOr(session.AIAnswerTimeoutSecs, 15),
	}
}

func secondsOr(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func (c *Coordinator) loadOrNew(ctx context.Context, classID uuid.UUID) *RoomState {
	if st := c.rooms.Load(ctx, classID); st != nil {
		return st
	}
	return NewRoomState()
}

// HandleJoin admits a connection into the room. Teacher joins replace
// any previously tracked teacher connection; student joins require the
// class to be live. A returning participant keeps their record.
func (c *Coordinator) HandleJoin(ctx context.Context, connID string, p JoinPayload) {
	if p.ParticipantID != TeacherMarker {
		live, err := c.classes.IsLive(ctx, p.ClassID)
		if err != nil {
			c.hub.SendToConn(p.ClassID, connID, "join_error", map[string]string{"message": "Invalid class ID"})
			return
		}
		if !live {
			c.hub.SendToConn(p.ClassID, connID, "join_error", map[string]string{"message": "Class has not started or has ended."})
			return
		}
	}

	st := c.loadOrNew(ctx, p.ClassID)

	if p.ParticipantID == TeacherMarker {
		st.TeacherConnID = connID
		c.logger.Info("teacher joined class", zap.String("class_id", p.ClassID.String()), zap.String("conn_id", connID))
	} else {
		// A connection is never both waiting and active.
		delete(st.Waiting, connID)
		st.ActiveConnections[connID] = struct{}{}
		if _, ok := st.Participants[p.ParticipantID]; !ok {
			name := p.User.Name
			if name == "" {
				name = "Student"
			}
			st.Participants[p.ParticipantID] = NewParticipant(p.ParticipantID, name)
		}
	}

	c.rooms.Save(ctx, p.ClassID, st)

	if p.ParticipantID == TeacherMarker {
		c.hub.SendToConn(p.ClassID, connID, "waiting_list_update", st.WaitingList())
	}
	c.hub.BroadcastToClass(p.ClassID, "class_update", map[string]int{"activeStudents": st.ActiveCount()})
	c.hub.SendToConn(p.ClassID, connID, "full_state_sync", map[string]interface{}{"students": st.ParticipantList()})
	c.hub.BroadcastToClass(p.ClassID, "user_joined", p)
}

// HandleRequestToJoin enqueues a connection for teacher admission. A
// participant already known to the room bypasses the queue and is
// approved immediately (refresh/reconnect handling).
func (c *Coordinator) HandleRequestToJoin(ctx context.Context, connID string, p JoinPayload) {
	st := c.loadOrNew(ctx, p.ClassID)

	if _, ok := st.Participants[p.ParticipantID]; ok {
		c.hub.SendToConn(p.ClassID, connID, "join_approved", nil)
		return
	}

	st.Waiting[connID] = WaitingEntry{ParticipantID: p.ParticipantID, Name: p.User.Name}
	c.rooms.Save(ctx, p.ClassID, st)
	c.hub.BroadcastToClass(p.ClassID, "waiting_list_update", st.WaitingList())
}

// HandleApprove admits one waiting connection (teacher action). An
// unknown connection id is treated as already handled, not an error.
func (c *Coordinator) HandleApprove(ctx context.Context, p ApprovePayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st == nil {
		return
	}
	if _, ok := st.Waiting[p.ConnID]; !ok {
		return
	}
	delete(st.Waiting, p.ConnID)
	c.rooms.Save(ctx, p.ClassID, st)
	c.hub.SendToConn(p.ClassID, p.ConnID, "join_approved", nil)
	c.hub.BroadcastToClass(p.ClassID, "waiting_list_update", st.WaitingList())
}

// HandleLeave removes a connection from the room on leave_class or
// disconnect, then evaluates the auto-end predicate.
func (c *Coordinator) HandleLeave(ctx context.Context, classID uuid.UUID, connID string) {
	st := c.rooms.Load(ctx, classID)
	if st == nil {
		return
	}

	if _, ok := st.Waiting[connID]; ok {
		delete(st.Waiting, connID)
		c.rooms.Save(ctx, classID, st)
		c.hub.BroadcastToClass(classID, "waiting_list_update", st.WaitingList())
	}

	if st.TeacherConnID == connID {
		st.TeacherConnID = ""
		c.logger.Info("teacher disconnected", zap.String("class_id", classID.String()))
	} else {
		delete(st.ActiveConnections, connID)
	}

	c.rooms.Save(ctx, classID, st)
	c.hub.BroadcastToClass(classID, "class_update", map[string]int{"activeStudents": st.ActiveCount()})

	if st.Empty() {
		c.scheduleAutoEnd(classID)
	}
}

// scheduleAutoEnd arms the grace timer for an empty room. The timer is
// not cancelable; it re-reads current state at fire time and finalizes
// only if the room is still empty, so any join during the grace window
// voids the effect.
func (c *Coordinator) scheduleAutoEnd(classID uuid.UUID) {
	c.logger.Info("room empty, scheduling auto-end", zap.String("class_id", classID.String()), zap.Duration("grace", c.grace))
	time.AfterFunc(c.grace, func() {
		ctx := context.Background()
		st := c.rooms.Load(ctx, classID)
		if st == nil || !st.Empty() {
			c.logger.Info("auto-end cancelled, room no longer empty", zap.String("class_id", classID.String()))
			return
		}
		c.finalize(ctx, classID, st)
	})
}

// finalize marks the class ended, persists the session summary and
// deletes the room state.
func (c *Coordinator) finalize(ctx context.Context, classID uuid.UUID, st *RoomState) {
	c.logger.Info("finalizing class", zap.String("class_id", classID.String()))
	if err := c.classes.MarkEnded(ctx, classID); err != nil {
		c.logger.Error("mark class ended failed", zap.String("class_id", classID.String()), zap.Error(err))
	}
	c.persistSummary(ctx, classID, st)
	c.rooms.Delete(ctx, classID)
}

func (c *Coordinator) persistSummary(ctx context.Context, classID uuid.UUID, st *RoomState) {
	if len(st.Participants) == 0 {
		return
	}
	students := make([]models.SessionReportStudent, 0, len(st.Participants))
	total := 0
	for _, p := range st.ParticipantList() {
		students = append(students, models.SessionReportStudent{
			StudentID:              p.ID,
			Name:                   p.Name,
			Status:                 string(p.Status),
			AttentionScore:         p.Score,
			ParticipationResponses: p.ResponsesCount,
			TotalEvents:            p.TotalCount,
			QuizCorrect:            p.QuizCorrect,
			QuizTotal:              p.QuizTotal,
			TabSwitches:            p.TabSwitches,
			Points:                 p.Points,
		})
		total += p.Score
	}
	avg := float64(total) / float64(len(students))
	if err := c.reports.PersistSummary(ctx, classID, students, avg); err != nil {
		c.logger.Error("persist session summary failed", zap.String("class_id", classID.String()), zap.Error(err))
	}
}

// EndClass is the explicit end action: notify the room and every
// waiting connection, persist the summary, drop the room state. The
// caller has already marked the class inactive.
func (c *Coordinator) EndClass(ctx context.Context, classID uuid.UUID) {
	st := c.rooms.Load(ctx, classID)
	if st == nil {
		return
	}
	c.hub.BroadcastToClass(classID, "class_ended", nil)
	for connID := range st.Waiting {
		c.hub.SendToConn(classID, connID, "class_ended", nil)
	}
	c.persistSummary(ctx, classID, st)
	c.rooms.Delete(ctx, classID)
}

// HandleAttention updates a participant's engagement metrics and relays
// the event. The broadcast carries the per-participant fields (score,
// counts) that analytics consumers need to derive room averages.
func (c *Coordinator) HandleAttention(ctx context.Context, p AttentionPayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st != nil {
		if rec, ok := st.Participants[p.ParticipantID]; ok {
			rec.Status = p.Status
			if p.Score != nil {
				rec.Score = *p.Score
			}
			if p.ResponsesCount != nil {
				rec.ResponsesCount = *p.ResponsesCount
			}
			if p.TotalCount != nil {
				rec.TotalCount = *p.TotalCount
			}
			c.rooms.Save(ctx, p.ClassID, st)
		}
	}
	c.hub.BroadcastToClass(p.ClassID, "attention_update", p)
}

// HandleTabSwitch updates focus metrics and relays the event.
func (c *Coordinator) HandleTabSwitch(ctx context.Context, p TabSwitchPayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st != nil {
		if rec, ok := st.Participants[p.ParticipantID]; ok {
			rec.TabSwitches = p.TabSwitches
			rec.FocusScore = p.FocusScore
			rec.IdleMillis += p.IdleMillis
			c.rooms.Save(ctx, p.ClassID, st)
		}
	}
	c.hub.BroadcastToClass(p.ClassID, "tab_switch", p)
}

// HandleStudentAbsent marks a participant absent, folding the reported
// engagement rate into the stored score so late state syncs stay truthful.
func (c *Coordinator) HandleStudentAbsent(ctx context.Context, p AbsentPayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st != nil {
		if rec, ok := st.Participants[p.ParticipantID]; ok {
			rec.Status = StatusAbsent
			if p.EngagementRate != nil {
				rec.Score = *p.EngagementRate
			}
			c.rooms.Save(ctx, p.ClassID, st)
		}
	}
	c.hub.BroadcastToClass(p.ClassID, "student_absent", p)
}

// HandlePointsUpdate stores gamification points/badges, relays the
// event and broadcasts the refreshed top-5 leaderboard.
func (c *Coordinator) HandlePointsUpdate(ctx context.Context, p PointsPayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st == nil {
		return
	}
	rec, ok := st.Participants[p.ParticipantID]
	if !ok {
		return
	}
	rec.Points = p.Points
	rec.Badges = p.Badges
	c.rooms.Save(ctx, p.ClassID, st)
	c.hub.BroadcastToClass(p.ClassID, "points_update", p)
	c.hub.BroadcastToClass(p.ClassID, "leaderboard_update", st.Leaderboard(leaderboardSize))
}

// HandleRaiseHand flips the hand-raised flag and relays the event.
func (c *Coordinator) HandleRaiseHand(ctx context.Context, p RaiseHandPayload) {
	st := c.rooms.Load(ctx, p.ClassID)
	if st != nil {
		if rec, ok := st.Participants[p.ParticipantID]; ok {
			rec.HandRaised = p.Raised
			c.rooms.Save(ctx, p.ClassID, st)
		}
	}
	c.hub.BroadcastToClass(p.ClassID, "hand_update", p)
}

// HandleQuizResponse upserts the live quiz aggregate, updates the
// responder's counters, broadcasts the full stats map (teacher view)
// and relays the raw response.
func (c *Coordinator) HandleQuizResponse(ctx context.Context, p QuizResponsePayload) {
	c.recordQuizResponse(ctx, p, "quiz_response")
}

// HandleAIQuizResponse is HandleQuizResponse for AI-delivered questions.
func (c *Coordinator) HandleAIQuizResponse(ctx context.Context, p QuizResponsePayload) {
	c.recordQuizResponse(ctx, p, "ai_quiz_response")
}

func (c *Coordinator) recordQuizResponse(ctx context.Context, p QuizResponsePayload, relayEvent string) {
	st := c.loadOrNew(ctx, p.ClassID)

	agg, ok := st.QuizStats[p.QuizID]
	if !ok {
		agg = &QuizAggregate{AnswerDistribution: make(map[int]int)}
		st.QuizStats[p.QuizID] = agg
	}
	agg.TotalResponses++
	if p.IsCorrect {
		agg.CorrectCount++
	}
	agg.AnswerDistribution[p.SelectedAnswer]++

	if rec, ok := st.Participants[p.ParticipantID]; ok {
		rec.QuizTotal++
		if p.IsCorrect {
			rec.QuizCorrect++
		}
	}

	c.rooms.Save(ctx, p.ClassID, st)
	c.hub.BroadcastToClass(p.ClassID, "quiz_stats_update", st.QuizStats)
	c.hub.BroadcastToClass(p.ClassID, relayEvent, p)
}

// HandleNewQuiz relays a teacher-launched quiz to the room.
func (c *Coordinator) HandleNewQuiz(classID uuid.UUID, quiz interface{}) {
	c.hub.BroadcastToClass(classID, "new_quiz", quiz)
}

// HandleChat relays a chat message to the room. Messages are not persisted.
func (c *Coordinator) HandleChat(p ChatPayload) {
	c.hub.BroadcastToClass(p.ClassID, "receive_message", p)
}
