package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTermByName(t *testing.T) {
	env := newTestEnv(t)
	melanoma := env.createTerm(t, "Melanoma")

	id, err := env.Vocabulary.ResolveTerm("melanoma")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, melanoma.ID, *id)

	id, err = env.Vocabulary.ResolveTerm("  MELANOMA  ")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, melanoma.ID, *id)
}

func TestResolveTermBySynonym(t *testing.T) {
	env := newTestEnv(t)
	bcc := env.createTerm(t, "Basal cell carcinoma", "BCC", "basalioma")

	id, err := env.Vocabulary.ResolveTerm("bcc")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, bcc.ID, *id)
}

func TestResolveTermNamePrecedesSynonym(t *testing.T) {
	env := newTestEnv(t)
	nevus := env.createTerm(t, "Melanocytic nevus")
	env.createTerm(t, "Melanoma", "melanocytic nevus lookalike")

	id, err := env.Vocabulary.ResolveTerm("Melanocytic nevus")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, nevus.ID, *id)
}

func TestResolveTermUnresolved(t *testing.T) {
	env := newTestEnv(t)
	env.createTerm(t, "Melanoma")

	id, err := env.Vocabulary.ResolveTerm("not a known diagnosis")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = env.Vocabulary.ResolveTerm("   ")
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestSuggestRanksExactAndPrefixFirst(t *testing.T) {
	env := newTestEnv(t)
	melanoma := env.createTerm(t, "Melanoma", "MM")
	env.createTerm(t, "Melanocytic nevus")
	env.createTerm(t, "Amelanotic melanoma")

	suggestions, err := env.Vocabulary.Suggest(context.Background(), "melanoma", 10)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	// 完全相等的术语排在最前
	assert.Equal(t, melanoma.ID, suggestions[0].TermID)
	assert.Equal(t, "Melanoma", suggestions[0].Name)
	assert.Contains(t, suggestions[0].Synonyms, "MM")
}

func TestSuggestDedupsAcrossNameAndSynonym(t *testing.T) {
	env := newTestEnv(t)
	env.createTerm(t, "Melanoma", "malignant melanoma", "melanoma maligna")

	suggestions, err := env.Vocabulary.Suggest(context.Background(), "melanoma", 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Len(t, suggestions[0].Synonyms, 2)
}

func TestSuggestHonorsLimitAndEmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	env.createTerm(t, "Melanoma")
	env.createTerm(t, "Melanocytic nevus")
	env.createTerm(t, "Amelanotic melanoma")

	suggestions, err := env.Vocabulary.Suggest(context.Background(), "mela", 2)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)

	suggestions, err = env.Vocabulary.Suggest(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestLimitIsPerCall(t *testing.T) {
	env := newTestEnv(t)
	env.createTerm(t, "Melanoma")
	env.createTerm(t, "Melanocytic nevus")
	env.createTerm(t, "Amelanotic melanoma")

	// 小 limit 的查询不得影响后续同一查询拿到完整结果
	narrow, err := env.Vocabulary.Suggest(context.Background(), "mela", 1)
	require.NoError(t, err)
	require.Len(t, narrow, 1)

	wide, err := env.Vocabulary.Suggest(context.Background(), "mela", 10)
	require.NoError(t, err)
	require.Len(t, wide, 3)
	assert.Equal(t, narrow[0].TermID, wide[0].TermID)
}

func TestCreateSynonymRequiresTerm(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Vocabulary.CreateSynonym(999, "ghost")
	assert.Error(t, err)
}
