package app

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

func testTimings() Timings {
	return Timings{
		StartDelay:       20 * time.Millisecond,
		RevealDelay:      40 * time.Millisecond,
		LeaderboardDelay: 40 * time.Millisecond,
		TickPeriod:       25 * time.Millisecond,
	}
}

func newTestManager() *RoomManager {
	return NewRoomManager(testTimings(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "Exercise 1: first", Options: []string{"a", "b", "c"}, CorrectAnswers: []int{1}, TimeLimit: 10, Points: 100},
		{ID: "q2", Text: "Exercise 1: second", Options: []string{"a", "b"}, CorrectAnswers: []int{0}, TimeLimit: 10, Points: 100},
	}
}

func createTestRoom(t *testing.T, m *RoomManager, questions []domain.Question) domain.Room {
	t.Helper()
	room, err := m.CreateRoom(RoomConfig{Title: "Test", MaxPlayers: 10, TimePerQuestion: 10, Questions: questions})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func waitForState(t *testing.T, m *RoomManager, roomID string, state domain.GameState, timeout time.Duration) Status {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := m.Status(roomID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if st.GameState == state {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	st, _ := m.Status(roomID)
	t.Fatalf("timed out waiting for state %s, last state %s", state, st.GameState)
	return Status{}
}

func TestCreateRoomRejectsNonPositiveCapacity(t *testing.T) {
	m := newTestManager()
	if _, err := m.CreateRoom(RoomConfig{Title: "bad", MaxPlayers: 0}); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestCreateRoomAllowsEmptyQuestionList(t *testing.T) {
	m := newTestManager()
	room, err := m.CreateRoom(RoomConfig{Title: "later", MaxPlayers: 5})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Status != domain.RoomWaiting {
		t.Fatalf("expected waiting room, got %s", room.Status)
	}
	if len(room.Code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", room.Code)
	}
}

func TestJoinErrors(t *testing.T) {
	m := newTestManager()

	if _, _, _, err := m.Join("000000", "Anna"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room not found, got %v", err)
	}

	room, err := m.CreateRoom(RoomConfig{Title: "small", MaxPlayers: 2})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, _, _, err := m.Join(room.Code, "Anna"); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, _, count, err := m.Join(room.Code, "Béla")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 players, got %d", count)
	}

	if _, _, _, err := m.Join(room.Code, "Anna"); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("expected name taken, got %v", err)
	}
	if _, count, _ := m.RoomByCode(room.Code); count != 2 {
		t.Fatalf("rejected join must leave roster unchanged, got %d players", count)
	}

	if _, _, _, err := m.Join(room.Code, "Cili"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
}

func TestListRoomsReportsPlayerCounts(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())
	if _, _, _, err := m.Join(room.Code, "Anna"); err != nil {
		t.Fatalf("join: %v", err)
	}

	rooms := m.ListRooms()
	if len(rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(rooms))
	}
	if rooms[0].PlayerCount != 1 {
		t.Fatalf("expected live player count 1, got %d", rooms[0].PlayerCount)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	m := newTestManager()
	room, err := m.CreateRoom(RoomConfig{Title: "empty", MaxPlayers: 5})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, _, err := m.Start(room.ID); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func TestSubmitOutsideQuestionStateIsConflictAndMutatesNothing(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())
	player, _, _, err := m.Join(room.Code, "Anna")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := m.SubmitAnswer(room.ID, player.ID, []int{1}, 1); !errors.Is(err, domain.ErrAnswersClosed) {
		t.Fatalf("expected answers closed, got %v", err)
	}
	if _, err := m.Analytics(room.ID); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Fatalf("expected session not started, got %v", err)
	}
	lb, err := m.Leaderboard(room.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb[0].TotalScore != 0 || lb[0].CorrectAnswers != 0 {
		t.Fatalf("rejected submission must not mutate player state: %+v", lb[0])
	}
}

func TestGameFlowScoringAndLeaderboard(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())

	anna, _, _, err := m.Join(room.Code, "Anna")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	bela, _, _, err := m.Join(room.Code, "Béla")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	playerCount, questionCount, err := m.Start(room.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if playerCount != 2 || questionCount != 2 {
		t.Fatalf("expected 2 players / 2 questions, got %d/%d", playerCount, questionCount)
	}

	st := waitForState(t, m, room.ID, domain.StateQuestion, 2*time.Second)
	if st.CurrentQuestionIndex != 0 {
		t.Fatalf("expected first question, got index %d", st.CurrentQuestionIndex)
	}
	if st.CurrentQuestion == nil {
		t.Fatalf("expected current question in question state")
	}
	if len(st.CurrentQuestion.Options) == 0 {
		t.Fatalf("expected options in question view")
	}

	// Anna answers correctly after 2 of 10 seconds: round(100*(0.5+0.5*0.8)) = 90.
	result, err := m.SubmitAnswer(room.ID, anna.ID, []int{1}, 2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.IsCorrect || result.PointsEarned != 90 {
		t.Fatalf("expected correct answer worth 90, got %+v", result)
	}
	if len(result.CorrectAnswers) != 1 || result.CorrectAnswers[0] != 1 {
		t.Fatalf("expected answer key {1} revealed after submission, got %v", result.CorrectAnswers)
	}

	// Resubmission for the same question is rejected.
	if _, err := m.SubmitAnswer(room.ID, anna.ID, []int{1}, 1); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	// Béla answers incorrectly: zero points regardless of speed.
	result, err = m.SubmitAnswer(room.ID, bela.ID, []int{0}, 0.5)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.IsCorrect || result.PointsEarned != 0 {
		t.Fatalf("expected incorrect answer worth 0, got %+v", result)
	}

	st = waitForState(t, m, room.ID, domain.StateFinished, 5*time.Second)
	if st.IsActive {
		t.Fatalf("finished session must not be active")
	}
	if st.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index to end on last question, got %d", st.CurrentQuestionIndex)
	}
	if len(st.Leaderboard) != 2 {
		t.Fatalf("expected leaderboard in finished state, got %v", st.Leaderboard)
	}
	if st.Leaderboard[0].Name != "Anna" || st.Leaderboard[0].TotalScore != 90 {
		t.Fatalf("expected Anna leading with 90, got %+v", st.Leaderboard[0])
	}
	if st.Leaderboard[0].Rank != 1 || st.Leaderboard[1].Rank != 2 {
		t.Fatalf("expected ranks 1 and 2, got %d and %d", st.Leaderboard[0].Rank, st.Leaderboard[1].Rank)
	}

	analytics, err := m.Analytics(room.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if analytics.QuestionsAsked != 2 || analytics.TotalAnswers != 2 || analytics.TotalCorrect != 1 {
		t.Fatalf("unexpected aggregate: %+v", analytics)
	}
	if analytics.EndedAt == nil {
		t.Fatalf("expected analytics finalized with end timestamp")
	}
	q1 := analytics.Questions[0]
	if q1.AnswerCount != 2 || q1.CorrectCount != 1 || q1.CorrectRate != 0.5 {
		t.Fatalf("unexpected question stats: %+v", q1)
	}

	// A submission after finish stays a conflict.
	if _, err := m.SubmitAnswer(room.ID, anna.ID, []int{0}, 1); !errors.Is(err, domain.ErrAnswersClosed) {
		t.Fatalf("expected answers closed after finish, got %v", err)
	}
}

func TestSubmitInvalidSelection(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())
	player, _, _, err := m.Join(room.Code, "Anna")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := m.Start(room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForState(t, m, room.ID, domain.StateQuestion, 2*time.Second)

	if _, err := m.SubmitAnswer(room.ID, player.ID, []int{7}, 1); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("expected invalid selection, got %v", err)
	}
	if _, err := m.SubmitAnswer(room.ID, player.ID, nil, 1); !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("expected invalid selection for empty set, got %v", err)
	}
	if _, err := m.SubmitAnswer(room.ID, "nobody", []int{1}, 1); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected player not found, got %v", err)
	}
}

func TestStopCancelsPendingTransition(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())
	if _, _, err := m.Start(room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(room.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}

	st, err := m.Status(room.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.GameState != domain.StateFinished || st.IsActive {
		t.Fatalf("expected finished inactive session, got %s active=%v", st.GameState, st.IsActive)
	}

	// The cancelled start timer must not resurrect the session.
	time.Sleep(testTimings().StartDelay + 30*time.Millisecond)
	st, _ = m.Status(room.ID)
	if st.GameState != domain.StateFinished {
		t.Fatalf("stale timer callback revived session into %s", st.GameState)
	}

	if _, _, err := m.Start(room.ID); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestReplaceQuestionsRecyclesRoom(t *testing.T) {
	m := newTestManager()
	room, err := m.CreateRoom(RoomConfig{Title: "Class 5A", MaxPlayers: 30, IsFixed: true, Grade: "5", Code: "500001", Questions: twoQuestions()})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, _, _, err := m.Join(room.Code, "Anna"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, err := m.Start(room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	fresh := []domain.Question{{ID: "n1", Text: "Exercise 1: new", Options: []string{"x", "y"}, CorrectAnswers: []int{0}, TimeLimit: 10, Points: 100}}
	recycled, err := m.ReplaceQuestions(room.ID, fresh)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if recycled.Code == room.Code {
		t.Fatalf("expected a fresh code on recycle")
	}
	if recycled.Status != domain.RoomWaiting {
		t.Fatalf("expected waiting status, got %s", recycled.Status)
	}

	if _, _, _, err := m.Join(room.Code, "Béla"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("old code must be retired, got %v", err)
	}
	_, count, err := m.RoomByCode(recycled.Code)
	if err != nil {
		t.Fatalf("room by new code: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty roster after recycle, got %d", count)
	}

	// Timers of the old session must not touch the recycled room.
	time.Sleep(100 * time.Millisecond)
	st, _ := m.Status(room.ID)
	if st.GameState != domain.StateWaiting {
		t.Fatalf("expected recycled room to stay waiting, got %s", st.GameState)
	}
}

func TestLeaderboardDenseRanks(t *testing.T) {
	rs := newRoomState(&domain.Room{ID: "r"}, testTimings(), nil, time.Now)
	rs.players = map[string]*domain.Player{
		"p1": {ID: "p1", Name: "Anna", TotalScore: 90, CorrectAnswers: 1},
		"p2": {ID: "p2", Name: "Béla", TotalScore: 90, CorrectAnswers: 1},
		"p3": {ID: "p3", Name: "Cili", TotalScore: 90, CorrectAnswers: 0},
		"p4": {ID: "p4", Name: "Dani", TotalScore: 40, CorrectAnswers: 1},
	}

	entries := rs.leaderboard()
	wantRanks := []int{1, 1, 2, 3}
	for i, want := range wantRanks {
		if entries[i].Rank != want {
			t.Fatalf("entry %d (%s): rank %d, want %d", i, entries[i].Name, entries[i].Rank, want)
		}
	}
	if entries[0].Name != "Anna" || entries[1].Name != "Béla" {
		t.Fatalf("ties must order deterministically by name, got %s/%s", entries[0].Name, entries[1].Name)
	}
}

func TestExportCSVBeforeAnswers(t *testing.T) {
	m := newTestManager()
	room := createTestRoom(t, m, twoQuestions())

	out, err := m.ExportCSV(room.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	tables := strings.Split(strings.TrimRight(out, "\n"), "\n\n")
	if len(tables) != 2 {
		t.Fatalf("expected two tables, got %d:\n%s", len(tables), out)
	}
	if !strings.HasPrefix(tables[0], "name,") {
		t.Fatalf("unexpected player header: %q", tables[0])
	}
	if !strings.HasPrefix(tables[1], "question,") {
		t.Fatalf("unexpected question header: %q", tables[1])
	}
	for _, table := range tables {
		if lines := strings.Split(table, "\n"); len(lines) != 1 {
			t.Fatalf("expected header-only table before any answers, got %d lines", len(lines))
		}
	}

	again, err := m.ExportCSV(room.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if again != out {
		t.Fatalf("export must be idempotent with no intervening answers")
	}
}
