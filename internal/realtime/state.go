package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const roomKeyPrefix = "room:"

// ErrNotFound is returned by a Store when a key has no value.
var ErrNotFound = errors.New("not found")

// Store is the flat key-value store holding serialized room state.
// Backed by Redis in production; tests substitute an in-memory map.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
}

// RedisStore adapts a go-redis client to the Store interface.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// ParticipantStatus is a participant's current engagement state.
type ParticipantStatus string

const (
	StatusAttentive  ParticipantStatus = "ATTENTIVE"
	StatusDistracted ParticipantStatus = "DISTRACTED"
	StatusAbsent     ParticipantStatus = "ABSENT"
	StatusFocused    ParticipantStatus = "FOCUSED"
)

// ParticipantRecord tracks one student's live engagement within a room,
// keyed by stable participant identity (not connection id) so the
// record survives disconnects and refreshes.
type ParticipantRecord struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Status         ParticipantStatus `json:"status"`
	Score          int               `json:"score"` // engagement 0-100
	ResponsesCount int               `json:"responsesCount"`
	TotalCount     int               `json:"totalCount"`
	QuizCorrect    int               `json:"quizCorrect"`
	QuizTotal      int               `json:"quizTotal"`
	HandRaised     bool              `json:"handRaised"`
	TabSwitches    int               `json:"tabSwitches"`
	IdleMillis     int64             `json:"idleMillis"`
	FocusScore     int               `json:"focusScore"` // 0-100
	Points         int               `json:"points"`
	Badges         []string          `json:"badges,omitempty"`
}

// NewParticipant returns a fresh record: attentive, full scores, zero counts.
func NewParticipant(id, name string) *ParticipantRecord {
	return &ParticipantRecord{
		ID:         id,
		Name:       name,
		Status:     StatusAttentive,
		Score:      100,
		FocusScore: 100,
	}
}

// WaitingEntry is a not-yet-admitted participant, keyed by the
// transient connection id it arrived on.
type WaitingEntry struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

// QuizAggregate is the live answer distribution for one quiz.
type QuizAggregate struct {
	TotalResponses     int         `json:"totalResponses"`
	CorrectCount       int         `json:"correctCount"`
	AnswerDistribution map[int]int `json:"answerDistribution"`
}

// RoomState is the shared mutable state of one live class. All access
// goes through whole-state load/save cycles against the Store; there is
// no field-level concurrent mutation.
type RoomState struct {
	ActiveConnections map[string]struct{}
	Participants      map[string]*ParticipantRecord
	Waiting           map[string]WaitingEntry
	TeacherConnID     string
	QuizStats         map[string]*QuizAggregate
}

// NewRoomState returns an empty room.
func NewRoomState() *RoomState {
	return &RoomState{
		ActiveConnections: make(map[string]struct{}),
		Participants:      make(map[string]*ParticipantRecord),
		Waiting:           make(map[string]WaitingEntry),
		QuizStats:         make(map[string]*QuizAggregate),
	}
}

// ActiveCount returns the number of connections counted as in the room
// (the teacher connection is tracked separately).
func (s *RoomState) ActiveCount() int { return len(s.ActiveConnections) }

// Empty reports whether the room qualifies for auto-end: no active
// connections and no teacher connection.
func (s *RoomState) Empty() bool {
	return len(s.ActiveConnections) == 0 && s.TeacherConnID == ""
}

// WaitingListItem is one row of the teacher-facing waiting list.
type WaitingListItem struct {
	ConnID        string `json:"connectionId"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

// WaitingList returns the waiting entries in a stable order for display.
func (s *RoomState) WaitingList() []WaitingListItem {
	list := make([]WaitingListItem, 0, len(s.Waiting))
	for connID, e := range s.Waiting {
		list = append(list, WaitingListItem{ConnID: connID, ParticipantID: e.ParticipantID, Name: e.Name})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ConnID < list[j].ConnID })
	return list
}

// LeaderboardRow is one ranked entry of the points leaderboard.
type LeaderboardRow struct {
	Rank   int      `json:"rank"`
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Points int      `json:"points"`
	Badges []string `json:"badges,omitempty"`
}

// Leaderboard returns the top n participants by points, descending,
// ties broken by participant id for a deterministic order.
func (s *RoomState) Leaderboard(n int) []LeaderboardRow {
	all := make([]*ParticipantRecord, 0, len(s.Participants))
	for _, p := range s.Participants {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Points != all[j].Points {
			return all[i].Points > all[j].Points
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > n {
		all = all[:n]
	}
	rows := make([]LeaderboardRow, len(all))
	for i, p := range all {
		rows[i] = LeaderboardRow{Rank: i + 1, ID: p.ID, Name: p.Name, Points: p.Points, Badges: p.Badges}
	}
	return rows
}

// ParticipantList returns all participant records in a stable order
// (full state sync payload for a joining connection).
func (s *RoomState) ParticipantList() []*ParticipantRecord {
	list := make([]*ParticipantRecord, 0, len(s.Participants))
	for _, p := range s.Participants {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// roomStateJSON is the wire form stored under room:<classId>. Sets are
// flattened to arrays; everything else maps to plain JSON objects.
type roomStateJSON struct {
	ActiveConnections []string                      `json:"activeConnections"`
	Participants      map[string]*ParticipantRecord `json:"participants"`
	Waiting           map[string]WaitingEntry       `json:"waiting"`
	TeacherConnID     string                        `json:"teacherConnectionId,omitempty"`
	QuizStats         map[string]*QuizAggregate     `json:"quizStats"`
}

// MarshalJSON serializes the room state to its store representation.
func (s *RoomState) MarshalJSON() ([]byte, error) {
	conns := make([]string, 0, len(s.ActiveConnections))
	for c := range s.ActiveConnections {
		conns = append(conns, c)
	}
	sort.Strings(conns)
	return json.Marshal(roomStateJSON{
		ActiveConnections: conns,
		Participants:      s.Participants,
		Waiting:           s.Waiting,
		TeacherConnID:     s.TeacherConnID,
		QuizStats:         s.QuizStats,
	})
}

// UnmarshalJSON rehydrates the room state from its store representation.
func (s *RoomState) UnmarshalJSON(data []byte) error {
	var raw roomStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ActiveConnections = make(map[string]struct{}, len(raw.ActiveConnections))
	for _, c := range raw.ActiveConnections {
		s.ActiveConnections[c] = struct{}{}
	}
	s.Participants = raw.Participants
	if s.Participants == nil {
		s.Participants = make(map[string]*ParticipantRecord)
	}
	s.Waiting = raw.Waiting
	if s.Waiting == nil {
		s.Waiting = make(map[string]WaitingEntry)
	}
	s.TeacherConnID = raw.TeacherConnID
	s.QuizStats = raw.QuizStats
	if s.QuizStats == nil {
		s.QuizStats = make(map[string]*QuizAggregate)
	}
	return nil
}

// RoomStore loads and saves RoomState under room:<classId>.
//
// Concurrent load-mutate-save cycles from multiple processes are
// last-writer-wins: there is no distributed lock or version check, and
// an overlapping cycle can lose an update. This is the accepted
// tradeoff for lock-free horizontal scaling.
type RoomStore struct {
	store  Store
	logger *zap.Logger
}

// NewRoomStore creates a room store over the given KV store.
func NewRoomStore(store Store, logger *zap.Logger) *RoomStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomStore{store: store, logger: logger}
}

func roomKey(classID uuid.UUID) string { return roomKeyPrefix + classID.String() }

// Load returns the room state for a class, or nil when absent. Store
// and decode failures are logged and reported as absent so callers
// always have a safe default-construction path.
func (rs *RoomStore) Load(ctx context.Context, classID uuid.UUID) *RoomState {
	raw, err := rs.store.Get(ctx, roomKey(classID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			rs.logger.Error("load room state failed", zap.String("class_id", classID.String()), zap.Error(err))
		}
		return nil
	}
	st := NewRoomState()
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		rs.logger.Error("decode room state failed", zap.String("class_id", classID.String()), zap.Error(err))
		return nil
	}
	return st
}

// Save persists the room state. Failures are logged, not returned: the
// in-memory mutation proceeds and state becomes consistent on the next
// successful save.
func (rs *RoomStore) Save(ctx context.Context, classID uuid.UUID, st *RoomState) {
	raw, err := json.Marshal(st)
	if err != nil {
		rs.logger.Error("encode room state failed", zap.String("class_id", classID.String()), zap.Error(err))
		return
	}
	if err := rs.store.Set(ctx, roomKey(classID), string(raw)); err != nil {
		rs.logger.Error("save room state failed", zap.String("class_id", classID.String()), zap.Error(err))
	}
}

// Delete removes the persisted room state. Deleting an absent room is
// not an error.
func (rs *RoomStore) Delete(ctx context.Context, classID uuid.UUID) {
	if err := rs.store.Del(ctx, roomKey(classID)); err != nil && !errors.Is(err, ErrNotFound) {
		rs.logger.Error("delete room state failed", zap.String("class_id", classID.String()), zap.Error(err))
	}
}
