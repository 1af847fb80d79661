package model

type AssessmentPhase string

const (
	PhasePre  AssessmentPhase = "PRE"
	PhasePost AssessmentPhase = "POST"
)

// Assessment 一次阶段性诊断提交（每个 assignment 的 PRE/POST 各一条，重复提交原地更新）
// swagger:model Assessment
type Assessment struct {
	UUIDBase
	AssignmentID uint            `gorm:"not null;uniqueIndex:uix_assignment_phase" json:"assignmentId"`
	Phase        AssessmentPhase `gorm:"size:10;not null;uniqueIndex:uix_assignment_phase" json:"phase"`

	DiagnosticConfidence *int  `json:"diagnosticConfidence"`
	ManagementConfidence *int  `json:"managementConfidence"`
	BiopsyRecommended    *bool `json:"biopsyRecommended"`
	ReferralRecommended  *bool `json:"referralRecommended"`

	// 仅 POST 阶段有意义
	ChangedPrimaryDiagnosis *bool  `json:"changedPrimaryDiagnosis"`
	ChangedManagementPlan   *bool  `json:"changedManagementPlan"`
	AIUsefulness            string `gorm:"size:50" json:"aiUsefulness"`

	// 正确性标志：由当前诊断条目重新计算，病例无金标准时保持 NULL
	Top1Correct *bool `json:"top1Correct"`
	Top3Correct *bool `json:"top3Correct"`
	RankOfTruth *int  `json:"rankOfTruth"`

	DiagnosisEntries []DiagnosisEntry `gorm:"foreignKey:AssessmentID" json:"diagnosisEntries"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// DiagnosisEntry 评估中按名次排列的诊断条目；(assessment_id, rank) 唯一
// swagger:model DiagnosisEntry
type DiagnosisEntry struct {
	UUIDBase
	AssessmentID    string         `gorm:"type:varchar(36);not null;uniqueIndex:uix_assessment_rank" json:"assessmentId"`
	Rank            int            `gorm:"not null;uniqueIndex:uix_assessment_rank" json:"rank"`
	RawText         string         `gorm:"size:255" json:"rawText"`
	DiagnosisTermID *uint          `gorm:"index" json:"diagnosisTermId"`
	DiagnosisTerm   *DiagnosisTerm `gorm:"foreignKey:DiagnosisTermID" json:"diagnosisTerm,omitempty"`
}

func (DiagnosisEntry) TableName() string {
	return "diagnosis_entries"
}
