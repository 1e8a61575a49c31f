package tui

import (
	"time"

	"github.com/verte-zerg/prompter/internal/model"
)

type frameMsg time.Time

type startedMsg struct{ err error }

type stoppedMsg struct {
	take model.Take
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

type takesLoadedMsg struct {
	takes []model.Take
	err   error
}

type clearErrorMsg struct{ seq int }
