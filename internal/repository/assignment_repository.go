package repository

import (
	"time"

	"reader_study_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) FindByID(id uint) (*model.CaseAssignment, error) {
	var a model.CaseAssignment
	err := r.DB.Preload("Case").First(&a, id).Error
	return &a, err
}

func (r *AssignmentRepository) FindByIDForUser(id, userID uint) (*model.CaseAssignment, error) {
	var a model.CaseAssignment
	err := r.DB.Preload("Case").Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	return &a, err
}

func (r *AssignmentRepository) FindByUserAndCase(userID, caseID uint) (*model.CaseAssignment, error) {
	var a model.CaseAssignment
	err := r.DB.Where("user_id = ? AND case_id = ?", userID, caseID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MaxBlockIndex 返回用户当前最大的 block_index，无分配时返回 -1
func (r *AssignmentRepository) MaxBlockIndex(userID uint) (int, error) {
	var a model.CaseAssignment
	err := r.DB.Where("user_id = ?", userID).Order("block_index desc").First(&a).Error
	if err == gorm.ErrRecordNotFound {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return a.BlockIndex, nil
}

func (r *AssignmentRepository) ListByUserAndBlock(userID uint, blockIndex int) ([]model.CaseAssignment, error) {
	var as []model.CaseAssignment
	err := r.DB.Where("user_id = ? AND block_index = ?", userID, blockIndex).
		Order("display_order asc").Find(&as).Error
	return as, err
}

// LatestBlock 返回用户最近一个区块的全部分配（按展示顺序）
func (r *AssignmentRepository) LatestBlock(userID uint) ([]model.CaseAssignment, error) {
	maxIdx, err := r.MaxBlockIndex(userID)
	if err != nil {
		return nil, err
	}
	if maxIdx < 0 {
		return nil, nil
	}
	return r.ListByUserAndBlock(userID, maxIdx)
}

func (r *AssignmentRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CaseAssignment{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *AssignmentRepository) CountCompletedByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CaseAssignment{}).
		Where("user_id = ? AND completed_post_at IS NOT NULL", userID).Count(&count).Error
	return count, err
}

func (r *AssignmentRepository) CountInProgressByUser(userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.CaseAssignment{}).
		Where("user_id = ? AND completed_pre_at IS NOT NULL AND completed_post_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *AssignmentRepository) DistinctBlockIndexes(userID uint) ([]int, error) {
	var indexes []int
	err := r.DB.Model(&model.CaseAssignment{}).Where("user_id = ?", userID).
		Distinct("block_index").Order("block_index asc").Pluck("block_index", &indexes).Error
	return indexes, err
}

// MarkPreCompleted 单向写入：已有时间戳时不再覆盖
func (r *AssignmentRepository) MarkPreCompleted(tx *gorm.DB, assignmentID uint, at time.Time) error {
	return tx.Model(&model.CaseAssignment{}).
		Where("id = ? AND completed_pre_at IS NULL", assignmentID).
		Update("completed_pre_at", at).Error
}

func (r *AssignmentRepository) MarkPostCompleted(tx *gorm.DB, assignmentID uint, at time.Time) error {
	return tx.Model(&model.CaseAssignment{}).
		Where("id = ? AND completed_post_at IS NULL", assignmentID).
		Update("completed_post_at", at).Error
}
