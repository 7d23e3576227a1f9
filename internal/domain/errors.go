package domain

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoJSON means the model's free-text response contained no JSON
	// object to extract. Surfaced as-is so the API layer can report it
	// distinctly from a transport failure.
	ErrNoJSON = errors.New("no JSON object in model response")

	// ErrTurnInProgress means a chat turn for the session is still being
	// processed; only one utterance may be in flight per session.
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
)
