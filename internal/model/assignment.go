package model

import "time"

// CaseAssignment 用户-病例-区块 分配记录
// 同一病例不会重复分配给同一用户；完成时间戳由提交流程单向写入
// swagger:model CaseAssignment
type CaseAssignment struct {
	BaseModel
	UserID          uint       `gorm:"not null;uniqueIndex:uix_user_case" json:"userId"`
	CaseID          uint       `gorm:"not null;uniqueIndex:uix_user_case" json:"caseId"`
	Case            *Case      `gorm:"foreignKey:CaseID" json:"case,omitempty"`
	BlockIndex      int        `gorm:"not null;index" json:"blockIndex"`
	DisplayOrder    int        `gorm:"not null" json:"displayOrder"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedPreAt  *time.Time `json:"completedPreAt"`
	CompletedPostAt *time.Time `json:"completedPostAt"`
}

func (CaseAssignment) TableName() string {
	return "case_assignments"
}
