package model

import "encoding/json"

// Case 病例：创建后不可变，金标准诊断在整个研究周期内固定
// swagger:model Case
type Case struct {
	BaseModel
	GroundTruthDiagnosisID *uint           `gorm:"index" json:"groundTruthDiagnosisId"`
	GroundTruthDiagnosis   *DiagnosisTerm  `gorm:"foreignKey:GroundTruthDiagnosisID" json:"groundTruthDiagnosis,omitempty"`
	AIPredictions          json.RawMessage `gorm:"type:json" json:"aiPredictions,omitempty"` // 完整概率向量 term_id -> score
	Images                 []CaseImage     `gorm:"foreignKey:CaseID" json:"images,omitempty"`
	AIOutputs              []AIOutput      `gorm:"foreignKey:CaseID" json:"aiOutputs,omitempty"`
}

func (Case) TableName() string {
	return "cases"
}

// swagger:model CaseImage
type CaseImage struct {
	BaseModel
	CaseID   uint   `gorm:"index;not null" json:"caseId"`
	ImageURL string `gorm:"size:512" json:"imageUrl"`
}

func (CaseImage) TableName() string {
	return "case_images"
}

// AIOutput AI 预测的 Top-N 排名输出，展示于 POST 阶段
// swagger:model AIOutput
type AIOutput struct {
	BaseModel
	CaseID          uint           `gorm:"not null;uniqueIndex:uix_case_rank" json:"caseId"`
	Rank            int            `gorm:"not null;uniqueIndex:uix_case_rank" json:"rank"`
	PredictionID    uint           `gorm:"index;not null" json:"predictionId"`
	Prediction      *DiagnosisTerm `gorm:"foreignKey:PredictionID" json:"prediction,omitempty"`
	ConfidenceScore *float64       `json:"confidenceScore"`
}

func (AIOutput) TableName() string {
	return "ai_outputs"
}
