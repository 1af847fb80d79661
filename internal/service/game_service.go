package service

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"reader_study_backend/internal/config"
	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/pkg/logger"
	"reader_study_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GameService 阅读研究的分块分配与区块终结
type GameService struct {
	AssignmentRepo *repository.AssignmentRepository
	CaseRepo       *repository.CaseRepository
	AssessmentRepo *repository.AssessmentRepository
	FeedbackRepo   *repository.BlockFeedbackRepository
	Cfg            *config.Config
	DB             *gorm.DB
}

func NewGameService(
	assignmentRepo *repository.AssignmentRepository,
	caseRepo *repository.CaseRepository,
	assessmentRepo *repository.AssessmentRepository,
	feedbackRepo *repository.BlockFeedbackRepository,
	cfg *config.Config,
	db *gorm.DB,
) *GameService {
	return &GameService{
		AssignmentRepo: assignmentRepo,
		CaseRepo:       caseRepo,
		AssessmentRepo: assessmentRepo,
		FeedbackRepo:   feedbackRepo,
		Cfg:            cfg,
		DB:             db,
	}
}

// NextAssignmentResult /game/next 的返回：status 为 continuing/started/exhausted
type NextAssignmentResult struct {
	Status     string                `json:"status"`
	BlockIndex *int                  `json:"blockIndex"`
	Assignment *model.CaseAssignment `json:"assignment"`
	Remaining  int                   `json:"remaining"`
}

// GameProgress 用户整体进度统计
type GameProgress struct {
	TotalCases      int64 `json:"totalCases"`
	AssignedCases   int64 `json:"assignedCases"`
	CompletedCases  int64 `json:"completedCases"`
	InProgressCases int64 `json:"inProgressCases"`
	RemainingCases  int64 `json:"remainingCases"`
	UnassignedCases int64 `json:"unassignedCases"`
}

func (s *GameService) blockSize() int {
	size := s.Cfg.Game.BlockSize
	if size < 1 {
		size = 1
	}
	return size
}

// StartBlock 开启新区块；存在未完成区块时幂等返回该区块
// 从未分配病例池随机选取，跳过与本区块已选病例金标准重复的病例（无金标准的病例不受限制）
func (s *GameService) StartBlock(userID uint) ([]model.CaseAssignment, error) {
	active, err := s.ActiveBlock(userID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return active, nil
	}

	maxIdx, err := s.AssignmentRepo.MaxBlockIndex(userID)
	if err != nil {
		return nil, err
	}
	blockIndex := maxIdx + 1

	pool, err := s.CaseRepo.ListUnassigned(userID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	size := s.blockSize()
	seenTruths := make(map[uint]bool)
	selected := make([]model.Case, 0, size)
	for _, c := range pool {
		if c.GroundTruthDiagnosisID != nil {
			if seenTruths[*c.GroundTruthDiagnosisID] {
				continue
			}
			seenTruths[*c.GroundTruthDiagnosisID] = true
		}
		selected = append(selected, c)
		if len(selected) == size {
			break
		}
	}

	now := time.Now()
	assignments := make([]model.CaseAssignment, 0, len(selected))
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for idx, c := range selected {
			a := model.CaseAssignment{
				UserID:       userID,
				CaseID:       c.ID,
				BlockIndex:   blockIndex,
				DisplayOrder: idx,
				StartedAt:    now,
			}
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			assignments = append(assignments, a)
		}
		return nil
	})
	if err != nil {
		// 并发起块时唯一索引 (user_id, case_id) 兜底，读回已有区块
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.ActiveBlock(userID)
		}
		return nil, err
	}

	logger.Log.Info("Started new block",
		zap.Uint("userID", userID),
		zap.Int("blockIndex", blockIndex),
		zap.Int("cases", len(assignments)))

	return assignments, nil
}

// ActiveBlock 最近区块内仍有未完成 POST 的分配时返回整个区块，否则返回空
func (s *GameService) ActiveBlock(userID uint) ([]model.CaseAssignment, error) {
	block, err := s.AssignmentRepo.LatestBlock(userID)
	if err != nil {
		return nil, err
	}
	if len(block) == 0 {
		return nil, nil
	}
	for _, a := range block {
		if a.CompletedPostAt == nil {
			return block, nil
		}
	}
	return nil, nil
}

// NextAssignment 返回活跃区块中展示顺序最小的未完成分配；区块已完成则尝试开新块
func (s *GameService) NextAssignment(userID uint) (*NextAssignmentResult, error) {
	block, err := s.ActiveBlock(userID)
	if err != nil {
		return nil, err
	}

	continuing := len(block) > 0
	if !continuing {
		block, err = s.StartBlock(userID)
		if err != nil {
			return nil, err
		}
		if len(block) == 0 {
			return &NextAssignmentResult{Status: "exhausted"}, nil
		}
	}

	var next *model.CaseAssignment
	remaining := 0
	for i := range block {
		if block[i].CompletedPostAt == nil {
			remaining++
			if next == nil {
				next = &block[i]
			}
		}
	}
	if next == nil {
		return &NextAssignmentResult{Status: "exhausted"}, nil
	}

	status := "started"
	if continuing {
		status = "continuing"
	}
	blockIndex := next.BlockIndex
	return &NextAssignmentResult{
		Status:     status,
		BlockIndex: &blockIndex,
		Assignment: next,
		Remaining:  remaining,
	}, nil
}

func (s *GameService) Progress(userID uint) (*GameProgress, error) {
	total, err := s.CaseRepo.Count()
	if err != nil {
		return nil, err
	}
	assigned, err := s.AssignmentRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.AssignmentRepo.CountCompletedByUser(userID)
	if err != nil {
		return nil, err
	}
	inProgress, err := s.AssignmentRepo.CountInProgressByUser(userID)
	if err != nil {
		return nil, err
	}

	remaining := total - completed
	if remaining < 0 {
		remaining = 0
	}
	unassigned := total - assigned
	if unassigned < 0 {
		unassigned = 0
	}

	return &GameProgress{
		TotalCases:      total,
		AssignedCases:   assigned,
		CompletedCases:  completed,
		InProgressCases: inProgress,
		RemainingCases:  remaining,
		UnassignedCases: unassigned,
	}, nil
}

// FinalizeBlockIfComplete 区块全部完成 POST 后生成成绩单，幂等；未完成或区块不存在时返回 nil
func (s *GameService) FinalizeBlockIfComplete(userID uint, blockIndex int) (*model.BlockFeedback, error) {
	assignments, err := s.AssignmentRepo.ListByUserAndBlock(userID, blockIndex)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	complete := true
	for _, a := range assignments {
		if a.CompletedPostAt == nil {
			complete = false
			break
		}
	}

	existing, err := s.FeedbackRepo.FindByUserAndBlock(userID, blockIndex)
	if err == nil && complete {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !complete {
		return nil, nil
	}

	caseGT, err := s.groundTruthsFor(assignments)
	if err != nil {
		return nil, err
	}

	assignmentIDs := make([]uint, len(assignments))
	caseByAssignment := make(map[uint]uint, len(assignments))
	for i, a := range assignments {
		assignmentIDs[i] = a.ID
		caseByAssignment[a.ID] = a.CaseID
	}
	assessments, err := s.AssessmentRepo.ListByAssignmentIDs(assignmentIDs)
	if err != nil {
		return nil, err
	}

	var pre1, pre3, post1, post3 []float64
	for _, ass := range assessments {
		gtID, ok := caseGT[caseByAssignment[ass.AssignmentID]]
		if !ok || gtID == nil {
			continue
		}
		if len(ass.DiagnosisEntries) == 0 {
			continue
		}
		top1, top3 := correctnessFlags(ass.DiagnosisEntries, *gtID)
		f1, f3 := 0.0, 0.0
		if top1 {
			f1 = 1
		}
		if top3 {
			f3 = 1
		}
		switch ass.Phase {
		case model.PhasePre:
			pre1 = append(pre1, f1)
			pre3 = append(pre3, f3)
		case model.PhasePost:
			post1 = append(post1, f1)
			post3 = append(post3, f3)
		}
	}

	fb := &model.BlockFeedback{
		UserID:           userID,
		BlockIndex:       blockIndex,
		Top1AccuracyPre:  mean(pre1),
		Top1AccuracyPost: mean(post1),
		Top3AccuracyPre:  mean(pre3),
		Top3AccuracyPost: mean(post3),
	}
	fb.DeltaTop1 = delta(fb.Top1AccuracyPre, fb.Top1AccuracyPost)
	fb.DeltaTop3 = delta(fb.Top3AccuracyPre, fb.Top3AccuracyPost)

	if err := s.fillPeerAverages(fb, userID, blockIndex); err != nil {
		return nil, err
	}

	if err := s.FeedbackRepo.Create(s.DB, fb); err != nil {
		// 并发终结：读回先插入成功的一行
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.FeedbackRepo.FindByUserAndBlock(userID, blockIndex)
		}
		return nil, err
	}

	monitoring.BlocksFinalized.Inc()
	logger.Log.Info("Finalized block",
		zap.Uint("userID", userID),
		zap.Int("blockIndex", blockIndex))

	return fb, nil
}

func (s *GameService) groundTruthsFor(assignments []model.CaseAssignment) (map[uint]*uint, error) {
	caseIDs := make([]uint, len(assignments))
	for i, a := range assignments {
		caseIDs[i] = a.CaseID
	}
	cases, err := s.CaseRepo.ListByIDs(caseIDs)
	if err != nil {
		return nil, err
	}
	gt := make(map[uint]*uint, len(cases))
	for _, c := range cases {
		gt[c.ID] = c.GroundTruthDiagnosisID
	}
	return gt, nil
}

// 同 block_index 下其他用户的成绩均值；尚无同伴数据时写入配置的占位值
func (s *GameService) fillPeerAverages(fb *model.BlockFeedback, userID uint, blockIndex int) error {
	peers, err := s.FeedbackRepo.ListPeers(userID, blockIndex)
	if err != nil {
		return err
	}

	if len(peers) == 0 {
		p := s.Cfg.Game.PeerPlaceholder
		fb.PeerAvgTop1Pre = &p
		fb.PeerAvgTop1Post = &p
		fb.PeerAvgTop3Pre = &p
		fb.PeerAvgTop3Post = &p
		return nil
	}

	fb.PeerAvgTop1Pre = roundedMeanPtr(peers, func(p model.BlockFeedback) *float64 { return p.Top1AccuracyPre })
	fb.PeerAvgTop1Post = roundedMeanPtr(peers, func(p model.BlockFeedback) *float64 { return p.Top1AccuracyPost })
	fb.PeerAvgTop3Pre = roundedMeanPtr(peers, func(p model.BlockFeedback) *float64 { return p.Top3AccuracyPre })
	fb.PeerAvgTop3Post = roundedMeanPtr(peers, func(p model.BlockFeedback) *float64 { return p.Top3AccuracyPost })
	return nil
}

// correctnessFlags 按名次判断 top1/top3 命中，条目须已按 rank 升序排列
func correctnessFlags(entries []model.DiagnosisEntry, gtID uint) (bool, bool) {
	top1, top3 := false, false
	for i, e := range entries {
		if e.DiagnosisTermID == nil || *e.DiagnosisTermID != gtID {
			continue
		}
		if i == 0 {
			top1 = true
		}
		if i < 3 {
			top3 = true
		}
		break
	}
	return top1, top3
}

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func delta(pre, post *float64) *float64 {
	if pre == nil || post == nil {
		return nil
	}
	d := *post - *pre
	return &d
}

func roundedMeanPtr(peers []model.BlockFeedback, pick func(model.BlockFeedback) *float64) *float64 {
	var vals []float64
	for _, p := range peers {
		if v := pick(p); v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := math.Round(sum/float64(len(vals))*10000) / 10000
	return &m
}
