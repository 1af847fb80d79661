package service

import (
	"errors"
	"strings"
	"time"

	"reader_study_backend/internal/config"
	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/util"
	"reader_study_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssessmentService 诊断提交：按 (assignment, phase) 原地更新，诊断条目按 rank 差量调和
type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
	AssignmentRepo *repository.AssignmentRepository
	Vocabulary     *VocabularyService
	Game           *GameService
	Cfg            *config.Config
	DB             *gorm.DB
}

func NewAssessmentService(
	assessmentRepo *repository.AssessmentRepository,
	assignmentRepo *repository.AssignmentRepository,
	vocabulary *VocabularyService,
	game *GameService,
	cfg *config.Config,
	db *gorm.DB,
) *AssessmentService {
	return &AssessmentService{
		AssessmentRepo: assessmentRepo,
		AssignmentRepo: assignmentRepo,
		Vocabulary:     vocabulary,
		Game:           game,
		Cfg:            cfg,
		DB:             db,
	}
}

// DiagnosisEntryInput 提交的单条诊断；未给出术语 id 时按自由文本解析
type DiagnosisEntryInput struct {
	Rank            int    `json:"rank" binding:"required,min=1"`
	RawText         string `json:"rawText"`
	DiagnosisTermID *uint  `json:"diagnosisTermId"`
}

// AssessmentInput 一次阶段性提交的全部字段
type AssessmentInput struct {
	AssignmentID            uint                  `json:"assignmentId" binding:"required"`
	Phase                   string                `json:"phase" binding:"required"`
	DiagnosticConfidence    *int                  `json:"diagnosticConfidence"`
	ManagementConfidence    *int                  `json:"managementConfidence"`
	BiopsyRecommended       *bool                 `json:"biopsyRecommended"`
	ReferralRecommended     *bool                 `json:"referralRecommended"`
	ChangedPrimaryDiagnosis *bool                 `json:"changedPrimaryDiagnosis"`
	ChangedManagementPlan   *bool                 `json:"changedManagementPlan"`
	AIUsefulness            string                `json:"aiUsefulness"`
	DiagnosisEntries        []DiagnosisEntryInput `json:"diagnosisEntries"`
}

// SubmitResult 提交结果：评估本体加上区块完成状态
type SubmitResult struct {
	Assessment       *model.Assessment `json:"assessment"`
	BlockIndex       int               `json:"blockIndex"`
	BlockComplete    bool              `json:"blockComplete"`
	ReportAvailable  bool              `json:"reportAvailable"`
	RemainingInBlock int               `json:"remainingInBlock"`
}

// Submit 创建或更新一条阶段评估并重算正确性标志
func (s *AssessmentService) Submit(userID uint, input *AssessmentInput) (*SubmitResult, error) {
	phase := model.AssessmentPhase(strings.ToUpper(strings.TrimSpace(input.Phase)))
	if phase != model.PhasePre && phase != model.PhasePost {
		return nil, util.ErrInvalidPhase
	}

	seenRanks := make(map[int]bool, len(input.DiagnosisEntries))
	for _, e := range input.DiagnosisEntries {
		if seenRanks[e.Rank] {
			return nil, util.ErrDuplicateRank
		}
		seenRanks[e.Rank] = true
	}

	assignment, err := s.AssignmentRepo.FindByIDForUser(input.AssignmentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}

	// 术语解析在事务外完成，事务内只做写入
	resolved := make([]model.DiagnosisEntry, 0, len(input.DiagnosisEntries))
	for _, e := range input.DiagnosisEntries {
		termID := e.DiagnosisTermID
		if termID == nil {
			termID, err = s.Vocabulary.ResolveTerm(e.RawText)
			if err != nil {
				return nil, err
			}
		}
		resolved = append(resolved, model.DiagnosisEntry{
			Rank:            e.Rank,
			RawText:         e.RawText,
			DiagnosisTermID: termID,
		})
	}

	var assessment *model.Assessment
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if phase == model.PhasePost {
			if _, err := s.AssessmentRepo.FindByAssignmentAndPhase(tx, assignment.ID, model.PhasePre); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return util.ErrPreRequired
				}
				return err
			}
		}

		assessment, err = s.upsertAssessment(tx, assignment.ID, phase, input)
		if err != nil {
			return err
		}

		entries, err := s.reconcileEntries(tx, assessment.ID, resolved)
		if err != nil {
			return err
		}

		s.recomputeCorrectness(assessment, assignment, entries)
		if err := s.AssessmentRepo.Save(tx, assessment); err != nil {
			return err
		}
		assessment.DiagnosisEntries = entries

		now := time.Now()
		if phase == model.PhasePre {
			return s.AssignmentRepo.MarkPreCompleted(tx, assignment.ID, now)
		}
		return s.AssignmentRepo.MarkPostCompleted(tx, assignment.ID, now)
	})
	if err != nil {
		return nil, err
	}

	block, err := s.AssignmentRepo.ListByUserAndBlock(userID, assignment.BlockIndex)
	if err != nil {
		return nil, err
	}
	remaining := 0
	for _, a := range block {
		if a.CompletedPostAt == nil {
			remaining++
		}
	}
	blockComplete := remaining == 0

	if blockComplete {
		if _, err := s.Game.FinalizeBlockIfComplete(userID, assignment.BlockIndex); err != nil {
			logger.Log.Error("Eager block finalization failed",
				zap.Uint("userID", userID),
				zap.Int("blockIndex", assignment.BlockIndex),
				zap.Error(err))
		}
	}

	return &SubmitResult{
		Assessment:       assessment,
		BlockIndex:       assignment.BlockIndex,
		BlockComplete:    blockComplete,
		ReportAvailable:  blockComplete,
		RemainingInBlock: remaining,
	}, nil
}

// AssessmentsForAssignment 返回该分配下的全部阶段评估及条目
func (s *AssessmentService) AssessmentsForAssignment(userID, assignmentID uint) ([]model.Assessment, error) {
	if _, err := s.AssignmentRepo.FindByIDForUser(assignmentID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}
	return s.AssessmentRepo.ListByAssignmentIDs([]uint{assignmentID})
}

func (s *AssessmentService) upsertAssessment(tx *gorm.DB, assignmentID uint, phase model.AssessmentPhase, input *AssessmentInput) (*model.Assessment, error) {
	assessment, err := s.AssessmentRepo.FindByAssignmentAndPhase(tx, assignmentID, phase)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		assessment = &model.Assessment{
			AssignmentID: assignmentID,
			Phase:        phase,
		}
	}

	assessment.DiagnosticConfidence = input.DiagnosticConfidence
	assessment.ManagementConfidence = input.ManagementConfidence
	assessment.BiopsyRecommended = input.BiopsyRecommended
	assessment.ReferralRecommended = input.ReferralRecommended
	assessment.ChangedPrimaryDiagnosis = input.ChangedPrimaryDiagnosis
	assessment.ChangedManagementPlan = input.ChangedManagementPlan
	assessment.AIUsefulness = input.AIUsefulness

	if assessment.ID == "" {
		if err := s.AssessmentRepo.Create(tx, assessment); err != nil {
			// 并发首次提交：读回已存在的一行再继续更新
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				existing, ferr := s.AssessmentRepo.FindByAssignmentAndPhase(tx, assignmentID, phase)
				if ferr != nil {
					return nil, ferr
				}
				existing.DiagnosticConfidence = input.DiagnosticConfidence
				existing.ManagementConfidence = input.ManagementConfidence
				existing.BiopsyRecommended = input.BiopsyRecommended
				existing.ReferralRecommended = input.ReferralRecommended
				existing.ChangedPrimaryDiagnosis = input.ChangedPrimaryDiagnosis
				existing.ChangedManagementPlan = input.ChangedManagementPlan
				existing.AIUsefulness = input.AIUsefulness
				return existing, nil
			}
			return nil, err
		}
	}
	return assessment, nil
}

// reconcileEntries 按 rank 差量调和：已有名次原地更新，新名次插入，缺失名次删除
// 绝不先删后插同一名次，避免触碰 (assessment_id, rank) 唯一约束
func (s *AssessmentService) reconcileEntries(tx *gorm.DB, assessmentID string, incoming []model.DiagnosisEntry) ([]model.DiagnosisEntry, error) {
	existing, err := s.AssessmentRepo.ListEntries(tx, assessmentID)
	if err != nil {
		return nil, err
	}
	byRank := make(map[int]*model.DiagnosisEntry, len(existing))
	for i := range existing {
		byRank[existing[i].Rank] = &existing[i]
	}

	incomingRanks := make(map[int]bool, len(incoming))
	for _, e := range incoming {
		incomingRanks[e.Rank] = true
		if current, ok := byRank[e.Rank]; ok {
			current.RawText = e.RawText
			current.DiagnosisTermID = e.DiagnosisTermID
			if err := s.AssessmentRepo.SaveEntry(tx, current); err != nil {
				return nil, err
			}
			continue
		}
		entry := model.DiagnosisEntry{
			AssessmentID:    assessmentID,
			Rank:            e.Rank,
			RawText:         e.RawText,
			DiagnosisTermID: e.DiagnosisTermID,
		}
		if err := s.AssessmentRepo.CreateEntry(tx, &entry); err != nil {
			return nil, err
		}
	}

	for rank := range byRank {
		if !incomingRanks[rank] {
			if err := s.AssessmentRepo.DeleteEntry(tx, byRank[rank]); err != nil {
				return nil, err
			}
		}
	}

	return s.AssessmentRepo.ListEntries(tx, assessmentID)
}

// recomputeCorrectness 金标准存在时按名次重算命中标志；病例无金标准时全部置空
func (s *AssessmentService) recomputeCorrectness(assessment *model.Assessment, assignment *model.CaseAssignment, entries []model.DiagnosisEntry) {
	if assignment.Case == nil || assignment.Case.GroundTruthDiagnosisID == nil {
		assessment.Top1Correct = nil
		assessment.Top3Correct = nil
		assessment.RankOfTruth = nil
		return
	}

	gtID := *assignment.Case.GroundTruthDiagnosisID
	var foundRank *int
	for _, e := range entries {
		if e.DiagnosisTermID != nil && *e.DiagnosisTermID == gtID {
			rank := e.Rank
			foundRank = &rank
			break
		}
	}

	if foundRank == nil {
		f := false
		assessment.Top1Correct = &f
		top3 := false
		assessment.Top3Correct = &top3
		assessment.RankOfTruth = nil
		return
	}

	top1 := *foundRank == 1
	top3 := *foundRank <= 3
	assessment.Top1Correct = &top1
	assessment.Top3Correct = &top3
	assessment.RankOfTruth = foundRank
}
