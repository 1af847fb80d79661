package repository

import (
	"reader_study_backend/internal/model"

	"gorm.io/gorm"
)

type BlockFeedbackRepository struct {
	DB *gorm.DB
}

func NewBlockFeedbackRepository(db *gorm.DB) *BlockFeedbackRepository {
	return &BlockFeedbackRepository{DB: db}
}

func (r *BlockFeedbackRepository) Create(tx *gorm.DB, fb *model.BlockFeedback) error {
	return tx.Create(fb).Error
}

func (r *BlockFeedbackRepository) FindByUserAndBlock(userID uint, blockIndex int) (*model.BlockFeedback, error) {
	var fb model.BlockFeedback
	err := r.DB.Where("user_id = ? AND block_index = ?", userID, blockIndex).First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *BlockFeedbackRepository) ListByUser(userID uint) ([]model.BlockFeedback, error) {
	var fbs []model.BlockFeedback
	err := r.DB.Where("user_id = ?", userID).Order("block_index asc").Find(&fbs).Error
	return fbs, err
}

func (r *BlockFeedbackRepository) FindLatest(userID uint) (*model.BlockFeedback, error) {
	var fb model.BlockFeedback
	err := r.DB.Where("user_id = ?", userID).Order("block_index desc").First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// ListPeers 取同一 block_index 下除本人外的全部成绩单
func (r *BlockFeedbackRepository) ListPeers(userID uint, blockIndex int) ([]model.BlockFeedback, error) {
	var fbs []model.BlockFeedback
	err := r.DB.Where("block_index = ? AND user_id <> ?", blockIndex, userID).Find(&fbs).Error
	return fbs, err
}
