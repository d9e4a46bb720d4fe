package model

import (
	"fmt"
	"time"
)

type DraftKey struct {
	ProblemID int64
	Language  string
}

// String is the storage key, e.g. problem_1001_cpp.
func (k DraftKey) String() string {
	return fmt.Sprintf("problem_%d_%s", k.ProblemID, k.Language)
}

type Draft struct {
	ProblemID int64     `json:"problem_id"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	SavedAt   time.Time `json:"saved_at"`
}

func (d Draft) Key() DraftKey {
	return DraftKey{ProblemID: d.ProblemID, Language: d.Language}
}
