package repository

import (
	"reader_study_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(tx *gorm.DB, assessment *model.Assessment) error {
	return tx.Create(assessment).Error
}

// Save 只写评估本体，诊断条目由差量调和单独维护
func (r *AssessmentRepository) Save(tx *gorm.DB, assessment *model.Assessment) error {
	return tx.Omit(clause.Associations).Save(assessment).Error
}

func (r *AssessmentRepository) FindByAssignmentAndPhase(tx *gorm.DB, assignmentID uint, phase model.AssessmentPhase) (*model.Assessment, error) {
	var a model.Assessment
	err := tx.Where("assignment_id = ? AND phase = ?", assignmentID, phase).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByAssignmentIDs 批量取多个分配的全部评估及其诊断条目
func (r *AssessmentRepository) ListByAssignmentIDs(assignmentIDs []uint) ([]model.Assessment, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	var as []model.Assessment
	err := r.DB.Where("assignment_id IN ?", assignmentIDs).
		Preload("DiagnosisEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("diagnosis_entries.`rank` asc")
		}).
		Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) ListEntries(tx *gorm.DB, assessmentID string) ([]model.DiagnosisEntry, error) {
	var entries []model.DiagnosisEntry
	err := tx.Where("assessment_id = ?", assessmentID).Order("`rank` asc").Find(&entries).Error
	return entries, err
}

func (r *AssessmentRepository) CreateEntry(tx *gorm.DB, entry *model.DiagnosisEntry) error {
	return tx.Create(entry).Error
}

func (r *AssessmentRepository) SaveEntry(tx *gorm.DB, entry *model.DiagnosisEntry) error {
	return tx.Save(entry).Error
}

// DeleteEntry 物理删除，避免软删除行占用 (assessment_id, rank) 唯一索引
func (r *AssessmentRepository) DeleteEntry(tx *gorm.DB, entry *model.DiagnosisEntry) error {
	return tx.Unscoped().Delete(entry).Error
}
