package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRank is returned when a rank label cannot be parsed.
var ErrUnknownRank = errors.New("unknown rank")

// ScoreRank is the grade awarded to a score. Higher values are better grades.
// The zero value means no grade has been assigned yet.
type ScoreRank int

// Grades in ascending order.
const (
	RankNone ScoreRank = iota
	RankF
	RankD
	RankC
	RankB
	RankA
	RankS
	RankSH
	RankX
	RankXH
)

var rankLabels = map[ScoreRank]string{
	RankF:  "F",
	RankD:  "D",
	RankC:  "C",
	RankB:  "B",
	RankA:  "A",
	RankS:  "S",
	RankSH: "SH",
	RankX:  "X",
	RankXH: "XH",
}

func (r ScoreRank) String() string {
	if s, ok := rankLabels[r]; ok {
		return s
	}
	return fmt.Sprintf("ScoreRank(%d)", int(r))
}

// Valid reports whether r is a known grade.
func (r ScoreRank) Valid() bool {
	_, ok := rankLabels[r]
	return ok
}

// ParseRank parses a grade label such as "SH" (case-insensitive).
func ParseRank(s string) (ScoreRank, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r, label := range rankLabels {
		if label == s {
			return r, nil
		}
	}
	return RankNone, fmt.Errorf("%w: %q", ErrUnknownRank, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r ScoreRank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRank, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ScoreRank) UnmarshalText(b []byte) error {
	v, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
