package service

import (
	"errors"
	"fmt"
	"sort"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/util"

	"gorm.io/gorm"
)

// ReportService 区块成绩报告的组装与查询
type ReportService struct {
	FeedbackRepo   *repository.BlockFeedbackRepository
	AssignmentRepo *repository.AssignmentRepository
	AssessmentRepo *repository.AssessmentRepository
	CaseRepo       *repository.CaseRepository
	Game           *GameService
}

func NewReportService(
	feedbackRepo *repository.BlockFeedbackRepository,
	assignmentRepo *repository.AssignmentRepository,
	assessmentRepo *repository.AssessmentRepository,
	caseRepo *repository.CaseRepository,
	game *GameService,
) *ReportService {
	return &ReportService{
		FeedbackRepo:   feedbackRepo,
		AssignmentRepo: assignmentRepo,
		AssessmentRepo: assessmentRepo,
		CaseRepo:       caseRepo,
		Game:           game,
	}
}

// CaseSummary 报告中的单病例摘要，供前端做详情跳转
type CaseSummary struct {
	AssignmentID           uint    `json:"assignmentId"`
	CaseID                 uint    `json:"caseId"`
	GroundTruthDiagnosisID *uint   `json:"groundTruthDiagnosisId"`
	PreAssessmentID        *string `json:"preAssessmentId"`
	PostAssessmentID       *string `json:"postAssessmentId"`
}

// BlockReport 成绩单加病例列表
type BlockReport struct {
	model.BlockFeedback
	TotalCases int           `json:"totalCases"`
	Cases      []CaseSummary `json:"cases"`
}

// BlockIncompleteInfo 区块未完成时的诊断信息
type BlockIncompleteInfo struct {
	Error               string `json:"error"`
	RequestedBlockIndex int    `json:"requestedBlockIndex"`
	RemainingCases      int    `json:"remainingCases,omitempty"`
	ExistingBlocks      []int  `json:"existingBlockIndices,omitempty"`
	Message             string `json:"message"`
}

// ReportAvailability /report-available 的轻量检查结果
type ReportAvailability struct {
	Available  bool   `json:"available"`
	BlockIndex int    `json:"blockIndex"`
	Reason     string `json:"reason,omitempty"`
}

// BuildReport 组装指定区块的报告；必要时先尝试终结
// 区块不存在返回 ErrBlockNotFound，未完成返回 ErrBlockIncomplete，info 均携带细节
func (s *ReportService) BuildReport(userID uint, blockIndex int) (*BlockReport, *BlockIncompleteInfo, error) {
	feedback, err := s.FeedbackRepo.FindByUserAndBlock(userID, blockIndex)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		feedback, err = s.Game.FinalizeBlockIfComplete(userID, blockIndex)
		if err != nil {
			return nil, nil, err
		}
	}

	if feedback == nil {
		assignments, err := s.AssignmentRepo.ListByUserAndBlock(userID, blockIndex)
		if err != nil {
			return nil, nil, err
		}
		if len(assignments) == 0 {
			existing, err := s.AssignmentRepo.DistinctBlockIndexes(userID)
			if err != nil {
				return nil, nil, err
			}
			return nil, &BlockIncompleteInfo{
				Error:               "block_not_found",
				RequestedBlockIndex: blockIndex,
				ExistingBlocks:      existing,
				Message:             "Requested block_index does not exist for this user.",
			}, util.ErrBlockNotFound
		}
		remaining := 0
		for _, a := range assignments {
			if a.CompletedPostAt == nil {
				remaining++
			}
		}
		return nil, &BlockIncompleteInfo{
			Error:               "block_incomplete",
			RequestedBlockIndex: blockIndex,
			RemainingCases:      remaining,
			Message:             "Block not yet complete; finish all POST assessments then retry.",
		}, util.ErrBlockIncomplete
	}

	report, err := s.assembleReport(userID, feedback)
	if err != nil {
		return nil, nil, err
	}
	return report, nil, nil
}

// ListReports 按 block_index 升序返回用户全部已终结报告
func (s *ReportService) ListReports(userID uint) ([]BlockReport, error) {
	rows, err := s.FeedbackRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	reports := make([]BlockReport, 0, len(rows))
	for i := range rows {
		r, err := s.assembleReport(userID, &rows[i])
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func (s *ReportService) LatestReport(userID uint) (*BlockReport, error) {
	row, err := s.FeedbackRepo.FindLatest(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNoReports
		}
		return nil, err
	}
	return s.assembleReport(userID, row)
}

// CanViewReport 前端点卡片前的可用性检查
func (s *ReportService) CanViewReport(userID uint, blockIndex int) (*ReportAvailability, error) {
	if _, err := s.FeedbackRepo.FindByUserAndBlock(userID, blockIndex); err == nil {
		return &ReportAvailability{Available: true, BlockIndex: blockIndex}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	finalized, err := s.Game.FinalizeBlockIfComplete(userID, blockIndex)
	if err != nil {
		return nil, err
	}
	if finalized != nil {
		return &ReportAvailability{Available: true, BlockIndex: blockIndex}, nil
	}

	assignments, err := s.AssignmentRepo.ListByUserAndBlock(userID, blockIndex)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return &ReportAvailability{Available: false, BlockIndex: blockIndex, Reason: "Block not found"}, nil
	}
	remaining := 0
	for _, a := range assignments {
		if a.CompletedPostAt == nil {
			remaining++
		}
	}
	return &ReportAvailability{
		Available:  false,
		BlockIndex: blockIndex,
		Reason:     fmt.Sprintf("%d cases pending", remaining),
	}, nil
}

func (s *ReportService) assembleReport(userID uint, feedback *model.BlockFeedback) (*BlockReport, error) {
	assignments, err := s.AssignmentRepo.ListByUserAndBlock(userID, feedback.BlockIndex)
	if err != nil {
		return nil, err
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].DisplayOrder < assignments[j].DisplayOrder
	})

	caseIDs := make([]uint, len(assignments))
	assignmentIDs := make([]uint, len(assignments))
	for i, a := range assignments {
		caseIDs[i] = a.CaseID
		assignmentIDs[i] = a.ID
	}

	gtMap := make(map[uint]*uint, len(caseIDs))
	if len(caseIDs) > 0 {
		cases, err := s.CaseRepo.ListByIDs(caseIDs)
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			gtMap[c.ID] = c.GroundTruthDiagnosisID
		}
	}

	assessments, err := s.AssessmentRepo.ListByAssignmentIDs(assignmentIDs)
	if err != nil {
		return nil, err
	}
	preByAssignment := make(map[uint]string)
	postByAssignment := make(map[uint]string)
	for _, ass := range assessments {
		switch ass.Phase {
		case model.PhasePre:
			preByAssignment[ass.AssignmentID] = ass.ID
		case model.PhasePost:
			postByAssignment[ass.AssignmentID] = ass.ID
		}
	}

	summaries := make([]CaseSummary, 0, len(assignments))
	for _, a := range assignments {
		summary := CaseSummary{
			AssignmentID:           a.ID,
			CaseID:                 a.CaseID,
			GroundTruthDiagnosisID: gtMap[a.CaseID],
		}
		if id, ok := preByAssignment[a.ID]; ok {
			summary.PreAssessmentID = &id
		}
		if id, ok := postByAssignment[a.ID]; ok {
			summary.PostAssessmentID = &id
		}
		summaries = append(summaries, summary)
	}

	return &BlockReport{
		BlockFeedback: *feedback,
		TotalCases:    len(summaries),
		Cases:         summaries,
	}, nil
}
