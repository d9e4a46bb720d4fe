package service_test

import (
	"fmt"
	"oj_workbench/internal/app/service"
	"oj_workbench/internal/domain/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_KeepsFiveNewestFirst(t *testing.T) {
	h := service.NewHistory(0)
	require.Equal(t, service.DefaultHistoryLimit, h.Limit())

	for i := 1; i <= 6; i++ {
		h.Prepend(model.Submission{ID: fmt.Sprintf("s%d", i), Verdict: model.VerdictWrongAnswer})
	}

	items := h.List()
	require.Len(t, items, 5)
	assert.Equal(t, "s6", items[0].ID)
	assert.Equal(t, "s2", items[4].ID)
	for _, s := range items {
		assert.NotEqual(t, "s1", s.ID)
	}
}

func TestHistory_ListIsACopy(t *testing.T) {
	h := service.NewHistory(2)
	ms := int64(10)
	h.Prepend(model.Submission{ID: "a", Verdict: model.VerdictAccepted, ExecutionTimeMs: &ms})

	items := h.List()
	*items[0].ExecutionTimeMs = 999
	items[0].ID = "mutated"

	again := h.List()
	assert.Equal(t, "a", again[0].ID)
	assert.Equal(t, int64(10), *again[0].ExecutionTimeMs)
	assert.Equal(t, 1, h.Len())
}
