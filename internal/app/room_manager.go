package app

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
)

// RoomIndex marks room code liveness in a shared store (Redis). Implementations
// are best-effort; the manager works without one.
type RoomIndex interface {
	MarkLive(code string)
	Clear(code string)
}

// Timings holds the state machine phase delays. Tests inject short values.
type Timings struct {
	StartDelay       time.Duration
	RevealDelay      time.Duration
	LeaderboardDelay time.Duration
	TickPeriod       time.Duration
}

// DefaultTimings returns the production phase delays.
func DefaultTimings() Timings {
	return Timings{
		StartDelay:       3 * time.Second,
		RevealDelay:      3 * time.Second,
		LeaderboardDelay: 5 * time.Second,
		TickPeriod:       time.Second,
	}
}

// RoomConfig is the input for creating a room.
type RoomConfig struct {
	Title           string
	Description     string
	MaxPlayers      int
	TimePerQuestion int
	Questions       []domain.Question
	IsFixed         bool
	Grade           string
	Code            string // pre-assigned code for fixed rooms; generated if empty
}

// RoomSummary is the list view of a room with its live player count.
type RoomSummary struct {
	Room        domain.Room `json:"room"`
	PlayerCount int         `json:"playerCount"`
}

// RoomManager owns every room and its run-time state. It is injected into
// handlers rather than kept as package state, so lifetime and test isolation
// stay explicit.
type RoomManager struct {
	timings Timings
	index   RoomIndex
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	rooms map[string]*roomState // keyed by room ID
	codes map[string]string     // room code -> room ID
	rnd   *rand.Rand
}

func NewRoomManager(timings Timings, index RoomIndex, logger *slog.Logger) *RoomManager {
	return newRoomManagerWithClock(timings, index, logger, time.Now)
}

// newRoomManagerWithClock allows deterministic timestamps in tests.
func newRoomManagerWithClock(timings Timings, index RoomIndex, logger *slog.Logger, now func() time.Time) *RoomManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomManager{
		timings: timings,
		index:   index,
		logger:  logger,
		now:     now,
		rooms:   make(map[string]*roomState),
		codes:   make(map[string]string),
		rnd:     rand.New(rand.NewSource(now().UnixNano())),
	}
}

// CreateRoom registers a new room. The question list may be empty at creation
// and populated later; capacity must be positive.
func (m *RoomManager) CreateRoom(cfg RoomConfig) (domain.Room, error) {
	if cfg.MaxPlayers <= 0 {
		return domain.Room{}, fmt.Errorf("%w: maxPlayers must be positive", domain.ErrInvalidConfig)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	code := cfg.Code
	if code == "" {
		code = m.generateCodeLocked()
	} else if _, taken := m.codes[code]; taken {
		return domain.Room{}, fmt.Errorf("room code %q already in use", code)
	}

	room := &domain.Room{
		ID:              uuid.NewString(),
		Code:            code,
		Title:           cfg.Title,
		Description:     cfg.Description,
		MaxPlayers:      cfg.MaxPlayers,
		TimePerQuestion: cfg.TimePerQuestion,
		Questions:       cfg.Questions,
		Status:          domain.RoomWaiting,
		IsFixed:         cfg.IsFixed,
		Grade:           cfg.Grade,
		CreatedAt:       m.now(),
	}

	rs := newRoomState(room, m.timings, m.index, m.now)
	m.rooms[room.ID] = rs
	m.codes[code] = room.ID

	if m.index != nil {
		m.index.MarkLive(code)
	}
	m.logger.Info("room created", "roomId", room.ID, "code", code, "fixed", room.IsFixed)
	return *room, nil
}

// Join adds a player to the room identified by code. Names are unique within
// a room, compared case-sensitively.
func (m *RoomManager) Join(code, playerName string) (domain.Player, domain.Room, int, error) {
	rs, err := m.stateByCode(code)
	if err != nil {
		return domain.Player{}, domain.Room{}, 0, err
	}
	return rs.join(playerName)
}

// ListRooms returns a snapshot of every room with live player counts.
func (m *RoomManager) ListRooms() []RoomSummary {
	m.mu.RLock()
	states := make([]*roomState, 0, len(m.rooms))
	for _, rs := range m.rooms {
		states = append(states, rs)
	}
	m.mu.RUnlock()

	out := make([]RoomSummary, 0, len(states))
	for _, rs := range states {
		room, count := rs.snapshot()
		out = append(out, RoomSummary{Room: room, PlayerCount: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Room.CreatedAt.Before(out[j].Room.CreatedAt)
	})
	return out
}

// RoomByCode returns a snapshot of the room with the given code.
func (m *RoomManager) RoomByCode(code string) (domain.Room, int, error) {
	rs, err := m.stateByCode(code)
	if err != nil {
		return domain.Room{}, 0, err
	}
	room, count := rs.snapshot()
	return room, count, nil
}

// Start begins the game session for a room. It rejects rooms with no
// questions loaded and rooms whose session is already running.
func (m *RoomManager) Start(roomID string) (playerCount, questionCount int, err error) {
	rs, err := m.state(roomID)
	if err != nil {
		return 0, 0, err
	}
	return rs.startGame()
}

// Stop cancels the pending phase transition and marks the session finished.
func (m *RoomManager) Stop(roomID string) error {
	rs, err := m.state(roomID)
	if err != nil {
		return err
	}
	rs.stopGame()
	return nil
}

// Status returns the poll view of a room.
func (m *RoomManager) Status(roomID string) (Status, error) {
	rs, err := m.state(roomID)
	if err != nil {
		return Status{}, err
	}
	return rs.status(), nil
}

// SubmitAnswer scores a submission against the room's current question.
func (m *RoomManager) SubmitAnswer(roomID, playerID string, selected []int, responseTime float64) (domain.AnswerResult, error) {
	rs, err := m.state(roomID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return rs.submitAnswer(playerID, selected, responseTime)
}

// Leaderboard returns the ranked standings for a room.
func (m *RoomManager) Leaderboard(roomID string) ([]domain.LeaderboardEntry, error) {
	rs, err := m.state(roomID)
	if err != nil {
		return nil, err
	}
	return rs.leaderboard(), nil
}

// Analytics returns the session aggregate, or ErrSessionNotStarted if the
// room was never started.
func (m *RoomManager) Analytics(roomID string) (domain.SessionAnalytics, error) {
	rs, err := m.state(roomID)
	if err != nil {
		return domain.SessionAnalytics{}, err
	}
	return rs.aggregate()
}

// ReplaceQuestions recycles a room for a new competition: the question list is
// swapped, the roster and analytics are cleared, any running session is
// cancelled, and a fresh code is assigned. Used to reuse fixed class rooms.
func (m *RoomManager) ReplaceQuestions(roomID string, questions []domain.Question) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}

	oldCode := rs.code()
	newCode := m.generateCodeLocked()
	delete(m.codes, oldCode)
	m.codes[newCode] = roomID

	room := rs.reset(questions, newCode)

	if m.index != nil {
		m.index.Clear(oldCode)
		m.index.MarkLive(newCode)
	}
	m.logger.Info("room recycled", "roomId", roomID, "code", newCode, "questions", len(questions))
	return room, nil
}

func (m *RoomManager) state(roomID string) (*roomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return rs, nil
}

func (m *RoomManager) stateByCode(code string) (*roomState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codes[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return m.rooms[id], nil
}

// generateCodeLocked picks an unused 6-digit code. Caller holds m.mu.
func (m *RoomManager) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%06d", m.rnd.Intn(1000000))
		if _, taken := m.codes[code]; !taken {
			return code
		}
	}
}
