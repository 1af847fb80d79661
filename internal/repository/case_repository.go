package repository

import (
	"reader_study_backend/internal/model"

	"gorm.io/gorm"
)

type CaseRepository struct {
	DB *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{DB: db}
}

func (r *CaseRepository) Create(c *model.Case) error {
	return r.DB.Create(c).Error
}

func (r *CaseRepository) FindByID(id uint) (*model.Case, error) {
	var c model.Case
	err := r.DB.Preload("Images").First(&c, id).Error
	return &c, err
}

// FindByIDWithAIOutputs POST 阶段展示用：附带按名次排序的 AI 预测
func (r *CaseRepository) FindByIDWithAIOutputs(id uint) (*model.Case, error) {
	var c model.Case
	err := r.DB.Preload("Images").
		Preload("AIOutputs", func(db *gorm.DB) *gorm.DB {
			return db.Order("ai_outputs.`rank` asc")
		}).
		Preload("AIOutputs.Prediction").
		First(&c, id).Error
	return &c, err
}

func (r *CaseRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.Case{}).Count(&count).Error
	return count, err
}

// ListUnassigned 返回从未分配给该用户的病例（候选池）
func (r *CaseRepository) ListUnassigned(userID uint) ([]model.Case, error) {
	var cases []model.Case
	sub := r.DB.Model(&model.CaseAssignment{}).Select("case_id").Where("user_id = ?", userID)
	err := r.DB.Where("id NOT IN (?)", sub).Find(&cases).Error
	return cases, err
}

func (r *CaseRepository) ListByIDs(ids []uint) ([]model.Case, error) {
	var cases []model.Case
	if len(ids) == 0 {
		return cases, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&cases).Error
	return cases, err
}

func (r *CaseRepository) AddImage(img *model.CaseImage) error {
	return r.DB.Create(img).Error
}

func (r *CaseRepository) AddAIOutput(out *model.AIOutput) error {
	return r.DB.Create(out).Error
}

func (r *CaseRepository) ListAIOutputs(caseID uint) ([]model.AIOutput, error) {
	var outputs []model.AIOutput
	err := r.DB.Where("case_id = ?", caseID).Order("`rank` asc").
		Preload("Prediction").Find(&outputs).Error
	return outputs, err
}
