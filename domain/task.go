package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
// Characters are Unicode code points, so an emoji outside the BMP counts once
// rather than as the two UTF-16 code units some clients report.
const MaxTitleLength = 200

// Task represents a single todo record.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"isCompleted"`
}

// TaskInput carries the client supplied fields for create and update.
// ID is accepted on the wire but never used; the service assigns or
// takes the id from the URL.
type TaskInput struct {
	ID          string  `json:"id,omitempty"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"isCompleted"`
}

// Validate checks the title constraints shared by create and update.
func (in TaskInput) Validate() error {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(*in.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func (in TaskInput) toTask(id string) Task {
	t := Task{ID: id, IsCompleted: in.IsCompleted}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	return t
}
