package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizroom-service/internal/domain"
)

// gameSession is the run-time progression of one room through its questions.
// The state machine is its sole writer; it owns at most one pending timer at
// any moment, so teardown only ever has a single handle to cancel.
type gameSession struct {
	state         domain.GameState
	currentIndex  int
	timeRemaining int
	isActive      bool
	timer         *time.Timer
}

// roomState bundles a room with everything mutable that belongs to it: the
// roster, the running session, and the answer log. One mutex serializes
// submissions against phase transitions, so a submission racing the
// question -> answer_reveal flip observes either the old or the new phase,
// never a half-applied one.
type roomState struct {
	timings Timings
	index   RoomIndex
	now     func() time.Time

	mu        sync.Mutex
	room      *domain.Room
	players   map[string]*domain.Player // by player ID
	session   *gameSession
	analytics *recorder
	answered  map[string]struct{} // playerID + "#" + question index
}

func newRoomState(room *domain.Room, timings Timings, index RoomIndex, now func() time.Time) *roomState {
	return &roomState{
		timings:  timings,
		index:    index,
		now:      now,
		room:     room,
		players:  make(map[string]*domain.Player),
		answered: make(map[string]struct{}),
	}
}

func (rs *roomState) code() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.room.Code
}

func (rs *roomState) snapshot() (domain.Room, int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return *rs.room, len(rs.players)
}

func (rs *roomState) join(playerName string) (domain.Player, domain.Room, int, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, p := range rs.players {
		if p.Name == playerName {
			return domain.Player{}, domain.Room{}, 0, domain.ErrNameTaken
		}
	}
	if len(rs.players) >= rs.room.MaxPlayers {
		return domain.Player{}, domain.Room{}, 0, domain.ErrRoomFull
	}

	player := &domain.Player{
		ID:        uuid.NewString(),
		Name:      playerName,
		JoinedAt:  rs.now(),
		Connected: true,
	}
	rs.players[player.ID] = player
	return *player, *rs.room, len(rs.players), nil
}

// startGame enters the starting phase and schedules the first question.
func (rs *roomState) startGame() (playerCount, questionCount int, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.session != nil && rs.session.isActive {
		return 0, 0, domain.ErrGameAlreadyStarted
	}
	if len(rs.room.Questions) == 0 {
		return 0, 0, domain.ErrNoQuestions
	}

	sess := &gameSession{state: domain.StateStarting, isActive: true}
	rs.session = sess
	rs.room.Status = domain.RoomActive
	rs.analytics = newRecorder(rs.room.ID, rs.now())
	rs.answered = make(map[string]struct{})

	sess.timer = time.AfterFunc(rs.timings.StartDelay, func() {
		rs.beginQuestion(sess, 0)
	})
	return len(rs.players), len(rs.room.Questions), nil
}

// stopGame cancels the pending transition and finishes the session. It is a
// no-op for rooms without a running session.
func (rs *roomState) stopGame() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	sess := rs.session
	if sess == nil || !sess.isActive {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	rs.finishLocked(sess)
}

func (rs *roomState) beginQuestion(sess *gameSession, index int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.current(sess) || index >= len(rs.room.Questions) {
		return
	}
	sess.state = domain.StateQuestion
	sess.currentIndex = index
	sess.timeRemaining = rs.room.Questions[index].TimeLimit
	rs.analytics.questionAsked()

	sess.timer = time.AfterFunc(rs.timings.TickPeriod, func() {
		rs.tick(sess)
	})
}

// tick decrements the server-authoritative countdown once per period and
// flips to answer_reveal when it hits zero.
func (rs *roomState) tick(sess *gameSession) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.current(sess) || sess.state != domain.StateQuestion {
		return
	}
	sess.timeRemaining--
	if sess.timeRemaining > 0 {
		sess.timer = time.AfterFunc(rs.timings.TickPeriod, func() {
			rs.tick(sess)
		})
		return
	}
	sess.timeRemaining = 0
	sess.state = domain.StateAnswerReveal
	sess.timer = time.AfterFunc(rs.timings.RevealDelay, func() {
		rs.afterReveal(sess)
	})
}

func (rs *roomState) afterReveal(sess *gameSession) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if !rs.current(sess) || sess.state != domain.StateAnswerReveal {
		return
	}
	if sess.currentIndex+1 >= len(rs.room.Questions) {
		rs.finishLocked(sess)
		return
	}
	sess.state = domain.StateLeaderboard
	next := sess.currentIndex + 1
	sess.timer = time.AfterFunc(rs.timings.LeaderboardDelay, func() {
		rs.beginQuestion(sess, next)
	})
}

// finishLocked is terminal: leaderboard freezes and analytics get an end
// timestamp. Caller holds rs.mu.
func (rs *roomState) finishLocked(sess *gameSession) {
	sess.state = domain.StateFinished
	sess.isActive = false
	sess.timer = nil
	rs.room.Status = domain.RoomFinished
	if rs.analytics != nil {
		rs.analytics.finish(rs.now())
	}
	if rs.index != nil {
		rs.index.Clear(rs.room.Code)
	}
}

// current reports whether sess is still the room's live session. Timer
// callbacks check this so a callback firing against a recycled or stopped
// room degrades to a no-op instead of corrupting the new session.
func (rs *roomState) current(sess *gameSession) bool {
	return rs.session == sess && sess.isActive
}

func (rs *roomState) submitAnswer(playerID string, selected []int, responseTime float64) (domain.AnswerResult, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	sess := rs.session
	if sess == nil || sess.state != domain.StateQuestion {
		return domain.AnswerResult{}, domain.ErrAnswersClosed
	}
	player, ok := rs.players[playerID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrPlayerNotFound
	}

	question := rs.room.Questions[sess.currentIndex]
	if len(selected) == 0 {
		return domain.AnswerResult{}, domain.ErrInvalidSelection
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(question.Options) {
			return domain.AnswerResult{}, domain.ErrInvalidSelection
		}
	}

	key := playerID + "#" + strconv.Itoa(sess.currentIndex)
	if _, dup := rs.answered[key]; dup {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}
	rs.answered[key] = struct{}{}

	correct := sameSet(selected, question.CorrectAnswers)
	points := 0
	if correct {
		points = Score(question.Points, question.TimeLimit, responseTime)
		player.TotalScore += points
		player.CorrectAnswers++
	}
	player.LastResponseTime = responseTime

	rs.analytics.record(domain.AnswerEvent{
		PlayerID:      playerID,
		PlayerName:    player.Name,
		QuestionID:    question.ID,
		QuestionIndex: sess.currentIndex,
		Selected:      append([]int(nil), selected...),
		ResponseTime:  responseTime,
		Correct:       correct,
		Points:        points,
		SubmittedAt:   rs.now(),
	})

	return domain.AnswerResult{
		IsCorrect:      correct,
		CorrectAnswers: append([]int(nil), question.CorrectAnswers...),
		PointsEarned:   points,
	}, nil
}

func (rs *roomState) leaderboard() []domain.LeaderboardEntry {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.leaderboardLocked()
}

func (rs *roomState) aggregate() (domain.SessionAnalytics, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.analytics == nil {
		return domain.SessionAnalytics{}, domain.ErrSessionNotStarted
	}
	return rs.analytics.aggregate(rs.room.Questions), nil
}

// reset reinstalls the room for a new competition: fresh question set, fresh
// code, empty roster, no session. A pending timer on the old session is
// cancelled; its callbacks see a stale session and no-op.
func (rs *roomState) reset(questions []domain.Question, newCode string) domain.Room {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.session != nil && rs.session.timer != nil {
		rs.session.timer.Stop()
		rs.session.isActive = false
	}
	rs.session = nil
	rs.analytics = nil
	rs.players = make(map[string]*domain.Player)
	rs.answered = make(map[string]struct{})
	rs.room.Questions = questions
	rs.room.Code = newCode
	rs.room.Status = domain.RoomWaiting
	return *rs.room
}
