package repository

import (
	"strings"

	"reader_study_backend/internal/model"

	"gorm.io/gorm"
)

type DiagnosisTermRepository struct {
	DB *gorm.DB
}

func NewDiagnosisTermRepository(db *gorm.DB) *DiagnosisTermRepository {
	return &DiagnosisTermRepository{DB: db}
}

func (r *DiagnosisTermRepository) CreateTerm(term *model.DiagnosisTerm) error {
	return r.DB.Create(term).Error
}

func (r *DiagnosisTermRepository) FindTermByID(id uint) (*model.DiagnosisTerm, error) {
	var t model.DiagnosisTerm
	err := r.DB.First(&t, id).Error
	return &t, err
}

// FindTermByName 大小写不敏感的精确匹配
func (r *DiagnosisTermRepository) FindTermByName(name string) (*model.DiagnosisTerm, error) {
	var t model.DiagnosisTerm
	err := r.DB.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&t).Error
	return &t, err
}

// FindTermBySynonym 大小写不敏感的同义词精确匹配
func (r *DiagnosisTermRepository) FindTermBySynonym(synonym string) (*model.DiagnosisTerm, error) {
	var s model.DiagnosisSynonym
	err := r.DB.Where("LOWER(synonym) = ?", strings.ToLower(strings.TrimSpace(synonym))).First(&s).Error
	if err != nil {
		return nil, err
	}
	var t model.DiagnosisTerm
	err = r.DB.First(&t, s.DiagnosisTermID).Error
	return &t, err
}

func (r *DiagnosisTermRepository) TermExists(id uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.DiagnosisTerm{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *DiagnosisTermRepository) ListTerms(page, limit int) ([]model.DiagnosisTerm, int64, error) {
	var terms []model.DiagnosisTerm
	var total int64
	query := r.DB.Model(&model.DiagnosisTerm{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("name asc").Offset(offset).Limit(limit).Find(&terms).Error
	return terms, total, err
}

func (r *DiagnosisTermRepository) CreateSynonym(syn *model.DiagnosisSynonym) error {
	return r.DB.Create(syn).Error
}

func (r *DiagnosisTermRepository) ListSynonyms(termID uint) ([]model.DiagnosisSynonym, error) {
	var syns []model.DiagnosisSynonym
	query := r.DB.Model(&model.DiagnosisSynonym{})
	if termID > 0 {
		query = query.Where("diagnosis_term_id = ?", termID)
	}
	err := query.Order("synonym asc").Find(&syns).Error
	return syns, err
}

func (r *DiagnosisTermRepository) ListSynonymsByTermIDs(termIDs []uint) ([]model.DiagnosisSynonym, error) {
	var syns []model.DiagnosisSynonym
	if len(termIDs) == 0 {
		return syns, nil
	}
	err := r.DB.Where("diagnosis_term_id IN ?", termIDs).Find(&syns).Error
	return syns, err
}

// SearchTerms 名称子串匹配（大小写不敏感），供联想接口打分
func (r *DiagnosisTermRepository) SearchTerms(query string) ([]model.DiagnosisTerm, error) {
	var terms []model.DiagnosisTerm
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.DB.Where("LOWER(name) LIKE ?", pattern).Find(&terms).Error
	return terms, err
}

// SearchSynonyms 同义词子串匹配（大小写不敏感）
func (r *DiagnosisTermRepository) SearchSynonyms(query string) ([]model.DiagnosisSynonym, error) {
	var syns []model.DiagnosisSynonym
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.DB.Where("LOWER(synonym) LIKE ?", pattern).Find(&syns).Error
	return syns, err
}
