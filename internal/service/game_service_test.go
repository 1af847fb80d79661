package service

import (
	"testing"

	"reader_study_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBlockAssignsCases(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	bcc := env.createTerm(t, "Basal cell carcinoma")
	env.createCase(t, &melanoma.ID)
	env.createCase(t, &bcc.ID)

	assignments, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	assert.Equal(t, 0, assignments[0].BlockIndex)
	assert.Equal(t, 0, assignments[0].DisplayOrder)
	assert.Equal(t, 1, assignments[1].DisplayOrder)
	assert.False(t, assignments[0].StartedAt.IsZero())
	assert.Nil(t, assignments[0].CompletedPreAt)
	assert.Nil(t, assignments[0].CompletedPostAt)
}

func TestStartBlockIdempotentWhileActive(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	for i := 0; i < 4; i++ {
		env.createCase(t, nil)
	}

	first, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
}

func TestStartBlockSkipsDuplicateGroundTruths(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	// 池中全部病例共享同一金标准，区块内不应出现重复
	for i := 0; i < 5; i++ {
		env.createCase(t, &melanoma.ID)
	}

	assignments, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
}

func TestStartBlockAcceptsMultipleNullGroundTruths(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	env.createCase(t, nil)
	env.createCase(t, nil)

	assignments, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
}

func TestStartBlockNeverReassignsCases(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	bcc := env.createTerm(t, "Basal cell carcinoma")
	sk := env.createTerm(t, "Seborrheic keratosis")
	ak := env.createTerm(t, "Actinic keratosis")
	for _, term := range []*model.DiagnosisTerm{melanoma, bcc, sk, ak} {
		env.createCase(t, &term.ID)
	}

	first, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	env.completeBlock(t, user.ID, first, melanoma.ID)

	second, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, 1, second[0].BlockIndex)

	seen := map[uint]bool{}
	for _, a := range append(first, second...) {
		assert.False(t, seen[a.CaseID], "case %d assigned twice", a.CaseID)
		seen[a.CaseID] = true
	}
}

func TestStartBlockEmptyWhenPoolExhausted(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	env.createCase(t, &melanoma.ID)

	first, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	env.completeBlock(t, user.ID, first, melanoma.ID)

	second, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestActiveBlockEmptyAfterCompletion(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	env.createCase(t, nil)
	env.createCase(t, nil)

	assignments, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)

	active, err := env.Game.ActiveBlock(user.ID)
	require.NoError(t, err)
	assert.Len(t, active, len(assignments))

	env.completeBlock(t, user.ID, assignments, melanoma.ID)

	active, err = env.Game.ActiveBlock(user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestNextAssignmentStatuses(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	env.createCase(t, nil)
	env.createCase(t, nil)

	// 无活跃区块时开新块
	result, err := env.Game.NextAssignment(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "started", result.Status)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, 0, result.Assignment.DisplayOrder)

	// 完成第一个分配后继续同一区块
	env.submitPhase(t, user.ID, result.Assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	env.submitPhase(t, user.ID, result.Assignment.ID, "POST", entryByID(melanoma.ID, 1))

	result, err = env.Game.NextAssignment(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "continuing", result.Status)
	require.NotNil(t, result.Assignment)
	assert.Equal(t, 1, result.Remaining)
	assert.Equal(t, 1, result.Assignment.DisplayOrder)

	// 区块完成且池已耗尽
	env.submitPhase(t, user.ID, result.Assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	env.submitPhase(t, user.ID, result.Assignment.ID, "POST", entryByID(melanoma.ID, 1))

	result, err = env.Game.NextAssignment(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "exhausted", result.Status)
	assert.Nil(t, result.Assignment)
}

func TestProgressCounts(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	for i := 0; i < 4; i++ {
		env.createCase(t, nil)
	}

	assignments, err := env.Game.StartBlock(user.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	// 第一例完成两阶段，第二例仅完成 PRE
	env.submitPhase(t, user.ID, assignments[0].ID, "PRE", entryByID(melanoma.ID, 1))
	env.submitPhase(t, user.ID, assignments[0].ID, "POST", entryByID(melanoma.ID, 1))
	env.submitPhase(t, user.ID, assignments[1].ID, "PRE", entryByID(melanoma.ID, 1))

	progress, err := env.Game.Progress(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), progress.TotalCases)
	assert.Equal(t, int64(2), progress.AssignedCases)
	assert.Equal(t, int64(1), progress.CompletedCases)
	assert.Equal(t, int64(1), progress.InProgressCases)
	assert.Equal(t, int64(3), progress.RemainingCases)
	assert.Equal(t, int64(2), progress.UnassignedCases)
}
