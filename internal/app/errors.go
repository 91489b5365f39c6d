package service

import "errors"

// Sentinel kinds for container errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrPanelNotFound  = errors.New("panel not found")
	ErrInvalidBeatmap = errors.New("invalid beatmap")
	ErrUnknownRuleset = errors.New("unknown ruleset")
)
