package service

import (
	"testing"
	"time"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSingleCaseBlock(t *testing.T, env *testEnv, userID uint, groundTruthID *uint) model.CaseAssignment {
	t.Helper()
	env.createCase(t, groundTruthID)
	assignments, err := env.Game.StartBlock(userID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	return assignments[0]
}

func TestSubmitCreatesAssessmentWithEntries(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	bcc := env.createTerm(t, "Basal cell carcinoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	result, err := env.Assessment.Submit(user.ID, &AssessmentInput{
		AssignmentID: assignment.ID,
		Phase:        "PRE",
		DiagnosisEntries: []DiagnosisEntryInput{
			{Rank: 1, RawText: "melanoma", DiagnosisTermID: &melanoma.ID},
			{Rank: 2, RawText: "bcc", DiagnosisTermID: &bcc.ID},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Assessment.ID)
	assert.Equal(t, model.PhasePre, result.Assessment.Phase)
	require.Len(t, result.Assessment.DiagnosisEntries, 2)
	assert.Equal(t, 1, result.Assessment.DiagnosisEntries[0].Rank)
	assert.False(t, result.BlockComplete)
	assert.Equal(t, 1, result.RemainingInBlock)
}

func TestSubmitPhaseIsLowercaseTolerant(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	result, err := env.Assessment.Submit(user.ID, &AssessmentInput{
		AssignmentID:     assignment.ID,
		Phase:            "pre",
		DiagnosisEntries: []DiagnosisEntryInput{entryByID(melanoma.ID, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PhasePre, result.Assessment.Phase)
}

func TestSubmitUpsertsByAssignmentAndPhase(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	bcc := env.createTerm(t, "Basal cell carcinoma")
	sk := env.createTerm(t, "Seborrheic keratosis")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	first := env.submitPhase(t, user.ID, assignment.ID, "PRE",
		entryByID(bcc.ID, 1), entryByID(sk.ID, 2), entryByID(melanoma.ID, 3))

	// 重复提交：rank 1 更新，rank 2 保留，rank 3 删除
	second := env.submitPhase(t, user.ID, assignment.ID, "PRE",
		entryByID(melanoma.ID, 1), entryByID(sk.ID, 2))

	assert.Equal(t, first.Assessment.ID, second.Assessment.ID)
	require.Len(t, second.Assessment.DiagnosisEntries, 2)
	assert.Equal(t, melanoma.ID, *second.Assessment.DiagnosisEntries[0].DiagnosisTermID)
	assert.Equal(t, sk.ID, *second.Assessment.DiagnosisEntries[1].DiagnosisTermID)

	var count int64
	env.DB.Model(&model.Assessment{}).Where("assignment_id = ?", assignment.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSubmitFreeTextResolution(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma", "malignant melanoma", "MM")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	result := env.submitPhase(t, user.ID, assignment.ID, "PRE",
		DiagnosisEntryInput{Rank: 1, RawText: "MELANOMA"},
		DiagnosisEntryInput{Rank: 2, RawText: "mm"},
		DiagnosisEntryInput{Rank: 3, RawText: "something unheard of"},
	)

	entries := result.Assessment.DiagnosisEntries
	require.Len(t, entries, 3)
	require.NotNil(t, entries[0].DiagnosisTermID)
	assert.Equal(t, melanoma.ID, *entries[0].DiagnosisTermID)
	require.NotNil(t, entries[1].DiagnosisTermID)
	assert.Equal(t, melanoma.ID, *entries[1].DiagnosisTermID)
	assert.Nil(t, entries[2].DiagnosisTermID)
	assert.Equal(t, "something unheard of", entries[2].RawText)
}

func TestSubmitRejectsDuplicateRanks(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	_, err := env.Assessment.Submit(user.ID, &AssessmentInput{
		AssignmentID: assignment.ID,
		Phase:        "PRE",
		DiagnosisEntries: []DiagnosisEntryInput{
			entryByID(melanoma.ID, 1),
			entryByID(melanoma.ID, 1),
		},
	})
	assert.ErrorIs(t, err, util.ErrDuplicateRank)
}

func TestSubmitRejectsPostBeforePre(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	_, err := env.Assessment.Submit(user.ID, &AssessmentInput{
		AssignmentID:     assignment.ID,
		Phase:            "POST",
		DiagnosisEntries: []DiagnosisEntryInput{entryByID(melanoma.ID, 1)},
	})
	assert.ErrorIs(t, err, util.ErrPreRequired)
}

func TestSubmitRejectsInvalidPhase(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	_, err := env.Assessment.Submit(user.ID, &AssessmentInput{
		AssignmentID: assignment.ID,
		Phase:        "MID",
	})
	assert.ErrorIs(t, err, util.ErrInvalidPhase)
}

func TestSubmitRejectsForeignAssignment(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	intruder := env.createUser(t, "intruder@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, owner.ID, &melanoma.ID)

	_, err := env.Assessment.Submit(intruder.ID, &AssessmentInput{
		AssignmentID:     assignment.ID,
		Phase:            "PRE",
		DiagnosisEntries: []DiagnosisEntryInput{entryByID(melanoma.ID, 1)},
	})
	assert.ErrorIs(t, err, util.ErrAssignmentNotFound)
}

func TestCorrectnessFlags(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	bcc := env.createTerm(t, "Basal cell carcinoma")
	sk := env.createTerm(t, "Seborrheic keratosis")
	ak := env.createTerm(t, "Actinic keratosis")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	// 金标准在第 1 位
	result := env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	require.NotNil(t, result.Assessment.Top1Correct)
	assert.True(t, *result.Assessment.Top1Correct)
	assert.True(t, *result.Assessment.Top3Correct)
	require.NotNil(t, result.Assessment.RankOfTruth)
	assert.Equal(t, 1, *result.Assessment.RankOfTruth)

	// 金标准在第 3 位
	result = env.submitPhase(t, user.ID, assignment.ID, "PRE",
		entryByID(bcc.ID, 1), entryByID(sk.ID, 2), entryByID(melanoma.ID, 3))
	assert.False(t, *result.Assessment.Top1Correct)
	assert.True(t, *result.Assessment.Top3Correct)
	assert.Equal(t, 3, *result.Assessment.RankOfTruth)

	// 金标准未出现
	result = env.submitPhase(t, user.ID, assignment.ID, "PRE",
		entryByID(bcc.ID, 1), entryByID(sk.ID, 2), entryByID(ak.ID, 3))
	assert.False(t, *result.Assessment.Top1Correct)
	assert.False(t, *result.Assessment.Top3Correct)
	assert.Nil(t, result.Assessment.RankOfTruth)
}

func TestCorrectnessNullWithoutGroundTruth(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, nil)

	result := env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	assert.Nil(t, result.Assessment.Top1Correct)
	assert.Nil(t, result.Assessment.Top3Correct)
	assert.Nil(t, result.Assessment.RankOfTruth)
}

func TestCompletionTimestampsAreMonotonic(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	after, err := env.Assignment.FindByID(assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, after.CompletedPreAt)
	firstStamp := *after.CompletedPreAt

	time.Sleep(10 * time.Millisecond)
	env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))

	after, err = env.Assignment.FindByID(assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, after.CompletedPreAt)
	assert.Equal(t, firstStamp.Unix(), after.CompletedPreAt.Unix())
	assert.True(t, after.CompletedPreAt.Equal(firstStamp))
}

func TestSubmitMarksBlockCompleteAndFinalizes(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	result := env.submitPhase(t, user.ID, assignment.ID, "POST", entryByID(melanoma.ID, 1))

	assert.True(t, result.BlockComplete)
	assert.True(t, result.ReportAvailable)
	assert.Equal(t, 0, result.RemainingInBlock)

	// 提前终结应已写入成绩单
	fb, err := env.Feedback.FindByUserAndBlock(user.ID, assignment.BlockIndex)
	require.NoError(t, err)
	assert.Equal(t, assignment.BlockIndex, fb.BlockIndex)
}

func TestAssessmentsForAssignment(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com")
	melanoma := env.createTerm(t, "Melanoma")
	assignment := startSingleCaseBlock(t, env, user.ID, &melanoma.ID)

	env.submitPhase(t, user.ID, assignment.ID, "PRE", entryByID(melanoma.ID, 1))
	env.submitPhase(t, user.ID, assignment.ID, "POST", entryByID(melanoma.ID, 1))

	assessments, err := env.Assessment.AssessmentsForAssignment(user.ID, assignment.ID)
	require.NoError(t, err)
	require.Len(t, assessments, 2)

	phases := map[model.AssessmentPhase]bool{}
	for _, a := range assessments {
		phases[a.Phase] = true
		assert.Len(t, a.DiagnosisEntries, 1)
	}
	assert.True(t, phases[model.PhasePre])
	assert.True(t, phases[model.PhasePost])
}
