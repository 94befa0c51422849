package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no room matches the given code or id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when the roster has reached the room's capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrNameTaken is returned when the player name is already present in the room.
	ErrNameTaken = errors.New("player name already taken")
	// ErrPlayerNotFound is returned when a submission names an unknown player.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNoQuestions is returned when a game is started with an empty question list.
	ErrNoQuestions = errors.New("room has no questions loaded")
	// ErrGameAlreadyStarted is returned when start is issued twice.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrAnswersClosed is returned for submissions outside the question phase.
	ErrAnswersClosed = errors.New("answers are not being accepted")
	// ErrAlreadyAnswered is returned on a repeat submission for the same question.
	ErrAlreadyAnswered = errors.New("answer already submitted for this question")
	// ErrInvalidSelection is returned when a selected option index is out of range.
	ErrInvalidSelection = errors.New("invalid option selection")
	// ErrInvalidConfig is returned when a room configuration fails validation.
	ErrInvalidConfig = errors.New("invalid room configuration")
	// ErrSessionNotStarted is returned when analytics are requested before start.
	ErrSessionNotStarted = errors.New("game session has not started")
	// ErrExerciseNotFound indicates the exercise content could not be loaded.
	ErrExerciseNotFound = errors.New("exercise not found")
)
