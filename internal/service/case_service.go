package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/internal/util"

	"gorm.io/gorm"
)

// CaseService 病例读取与管理端维护
// AI 预测仅在读者完成该病例的 PRE 阶段后展示
type CaseService struct {
	CaseRepo       *repository.CaseRepository
	AssignmentRepo *repository.AssignmentRepository
	TermRepo       *repository.DiagnosisTermRepository
	Storage        *StorageService
}

func NewCaseService(
	caseRepo *repository.CaseRepository,
	assignmentRepo *repository.AssignmentRepository,
	termRepo *repository.DiagnosisTermRepository,
	storage *StorageService,
) *CaseService {
	return &CaseService{
		CaseRepo:       caseRepo,
		AssignmentRepo: assignmentRepo,
		TermRepo:       termRepo,
		Storage:        storage,
	}
}

// CaseView 读者视角的病例：金标准永不下发，AI 输出按阶段揭示
type CaseView struct {
	ID         uint              `json:"id"`
	Images     []model.CaseImage `json:"images"`
	AIRevealed bool              `json:"aiRevealed"`
	AIOutputs  []model.AIOutput  `json:"aiOutputs,omitempty"`
}

// CaseInput 管理端创建病例
type CaseInput struct {
	GroundTruthDiagnosisID *uint           `json:"groundTruthDiagnosisId"`
	AIPredictions          json.RawMessage `json:"aiPredictions"`
}

// AIOutputInput 管理端录入单条 AI 排名输出
type AIOutputInput struct {
	CaseID          uint     `json:"caseId" binding:"required"`
	Rank            int      `json:"rank" binding:"required,min=1"`
	PredictionID    uint     `json:"predictionId" binding:"required"`
	ConfidenceScore *float64 `json:"confidenceScore"`
}

// GetCaseForReader 读者访问病例；is admin 时 AI 输出直接可见
func (s *CaseService) GetCaseForReader(userID, caseID uint, isAdmin bool) (*CaseView, error) {
	c, err := s.CaseRepo.FindByID(caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCaseNotFound
		}
		return nil, err
	}

	view := &CaseView{
		ID:     c.ID,
		Images: c.Images,
	}

	revealed := isAdmin
	if !revealed {
		assignment, err := s.AssignmentRepo.FindByUserAndCase(userID, caseID)
		if err == nil && assignment.CompletedPreAt != nil {
			revealed = true
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if revealed {
		outputs, err := s.CaseRepo.ListAIOutputs(caseID)
		if err != nil {
			return nil, err
		}
		view.AIRevealed = true
		view.AIOutputs = outputs
	}

	return view, nil
}

func (s *CaseService) CreateCase(input *CaseInput) (*model.Case, error) {
	if input.GroundTruthDiagnosisID != nil {
		exists, err := s.TermRepo.TermExists(*input.GroundTruthDiagnosisID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, util.ErrTermNotFound
		}
	}

	c := &model.Case{
		GroundTruthDiagnosisID: input.GroundTruthDiagnosisID,
		AIPredictions:          input.AIPredictions,
	}
	if err := s.CaseRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CaseService) AddAIOutput(input *AIOutputInput) (*model.AIOutput, error) {
	if _, err := s.CaseRepo.FindByID(input.CaseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCaseNotFound
		}
		return nil, err
	}
	exists, err := s.TermRepo.TermExists(input.PredictionID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrTermNotFound
	}

	out := &model.AIOutput{
		CaseID:          input.CaseID,
		Rank:            input.Rank,
		PredictionID:    input.PredictionID,
		ConfidenceScore: input.ConfidenceScore,
	}
	if err := s.CaseRepo.AddAIOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadImage 上传病例图片并登记 URL
func (s *CaseService) UploadImage(ctx context.Context, caseID uint, file *multipart.FileHeader) (*model.CaseImage, error) {
	if _, err := s.CaseRepo.FindByID(caseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCaseNotFound
		}
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	filename := fmt.Sprintf("cases/%d/%s%s", caseID, time.Now().Format("20060102150405"), ext)

	url, err := s.Storage.Upload(ctx, filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	img := &model.CaseImage{CaseID: caseID, ImageURL: url}
	if err := s.CaseRepo.AddImage(img); err != nil {
		return nil, err
	}
	return img, nil
}
