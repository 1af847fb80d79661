package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/util"
	"reader_study_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// VocabularyService 诊断词汇：自由文本解析、联想建议与管理端维护
type VocabularyService struct {
	TermRepo *repository.DiagnosisTermRepository
	Redis    *redis.Client
}

func NewVocabularyService(termRepo *repository.DiagnosisTermRepository, rdb *redis.Client) *VocabularyService {
	return &VocabularyService{
		TermRepo: termRepo,
		Redis:    rdb,
	}
}

const suggestCacheKeyPrefix = "vocab_suggest:"
const suggestCacheTTL = 5 * time.Minute

// TermSuggestion 联想建议条目
type TermSuggestion struct {
	TermID   uint     `json:"termId"`
	Name     string   `json:"name"`
	Synonyms []string `json:"synonyms"`
	Matched  string   `json:"matched"`
	Score    int      `json:"score"`
}

// ResolveTerm 自由文本到规范术语：先精确匹配术语名，再精确匹配同义词，均不分大小写
// 无法解析时返回 nil，不报错
func (s *VocabularyService) ResolveTerm(freeText string) (*uint, error) {
	text := strings.TrimSpace(freeText)
	if text == "" {
		return nil, nil
	}

	term, err := s.TermRepo.FindTermByName(text)
	if err == nil {
		return &term.ID, nil
	}

	term, err = s.TermRepo.FindTermBySynonym(text)
	if err == nil {
		return &term.ID, nil
	}

	return nil, nil
}

func (s *VocabularyService) TermExists(id uint) (bool, error) {
	return s.TermRepo.TermExists(id)
}

// Suggest 前缀/子串联想，结果带同义词列表并按匹配度排序，命中 Redis 缓存时直接返回
func (s *VocabularyService) Suggest(ctx context.Context, query string, limit int) ([]TermSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []TermSuggestion{}, nil
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	cacheKey := suggestCacheKeyPrefix + strings.ToLower(query)
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached []TermSuggestion
			if json.Unmarshal([]byte(val), &cached) == nil {
				if len(cached) > limit {
					cached = cached[:limit]
				}
				return cached, nil
			}
		}
	}

	terms, err := s.TermRepo.SearchTerms(query)
	if err != nil {
		return nil, err
	}
	synonyms, err := s.TermRepo.SearchSynonyms(query)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(query)
	byTerm := make(map[uint]*TermSuggestion)

	for _, t := range terms {
		byTerm[t.ID] = &TermSuggestion{
			TermID:  t.ID,
			Name:    t.Name,
			Matched: t.Name,
			Score:   matchScore(t.Name, lower),
		}
	}

	for _, syn := range synonyms {
		score := matchScore(syn.Synonym, lower)
		existing, ok := byTerm[syn.DiagnosisTermID]
		if ok {
			if score > existing.Score {
				existing.Score = score
				existing.Matched = syn.Synonym
			}
			continue
		}
		name := syn.Synonym
		if syn.Term != nil {
			name = syn.Term.Name
		}
		byTerm[syn.DiagnosisTermID] = &TermSuggestion{
			TermID:  syn.DiagnosisTermID,
			Name:    name,
			Matched: syn.Synonym,
			Score:   score,
		}
	}

	if len(byTerm) == 0 {
		return []TermSuggestion{}, nil
	}

	// 为每个命中的术语补全同义词列表
	termIDs := make([]uint, 0, len(byTerm))
	for id := range byTerm {
		termIDs = append(termIDs, id)
	}
	allSyns, err := s.TermRepo.ListSynonymsByTermIDs(termIDs)
	if err != nil {
		return nil, err
	}
	for _, syn := range allSyns {
		if sg, ok := byTerm[syn.DiagnosisTermID]; ok {
			sg.Synonyms = append(sg.Synonyms, syn.Synonym)
		}
	}

	suggestions := make([]TermSuggestion, 0, len(byTerm))
	for _, sg := range byTerm {
		suggestions = append(suggestions, *sg)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	// 缓存完整列表，limit 只在返回前截断，避免小 limit 的结果污染缓存
	if s.Redis != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, data, suggestCacheTTL).Err(); err != nil {
				logger.Log.Warn("Failed to cache vocabulary suggestions", zap.Error(err))
			}
		}
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// matchScore 匹配度：完全相等 > 前缀 > 子串
func matchScore(candidate, lowerQuery string) int {
	c := strings.ToLower(candidate)
	switch {
	case c == lowerQuery:
		return 100
	case strings.HasPrefix(c, lowerQuery):
		return 50
	case strings.Contains(c, lowerQuery):
		return 10
	default:
		return 0
	}
}

func (s *VocabularyService) CreateTerm(name string) (*model.DiagnosisTerm, error) {
	term := &model.DiagnosisTerm{Name: strings.TrimSpace(name)}
	if err := s.TermRepo.CreateTerm(term); err != nil {
		return nil, err
	}
	s.invalidateSuggestCache()
	return term, nil
}

func (s *VocabularyService) ListTerms(page, limit int) ([]model.DiagnosisTerm, int64, error) {
	return s.TermRepo.ListTerms(page, limit)
}

func (s *VocabularyService) CreateSynonym(termID uint, synonym string) (*model.DiagnosisSynonym, error) {
	exists, err := s.TermRepo.TermExists(termID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrTermNotFound
	}
	syn := &model.DiagnosisSynonym{DiagnosisTermID: termID, Synonym: strings.TrimSpace(synonym)}
	if err := s.TermRepo.CreateSynonym(syn); err != nil {
		return nil, err
	}
	s.invalidateSuggestCache()
	return syn, nil
}

func (s *VocabularyService) ListSynonyms(termID uint) ([]model.DiagnosisSynonym, error) {
	return s.TermRepo.ListSynonyms(termID)
}

// 术语或同义词变更后清空联想缓存
func (s *VocabularyService) invalidateSuggestCache() {
	if s.Redis == nil {
		return
	}
	ctx := context.Background()
	iter := s.Redis.Scan(ctx, 0, suggestCacheKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		s.Redis.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("Failed to invalidate vocabulary suggestion cache", zap.Error(err))
	}
}
