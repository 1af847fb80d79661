package model

// DiagnosisTerm 诊断术语表（金标准与读者录入共用的规范词汇）
// swagger:model DiagnosisTerm
type DiagnosisTerm struct {
	BaseModel
	Name string `gorm:"size:255;unique;not null;index" json:"name"`
}

func (DiagnosisTerm) TableName() string {
	return "diagnosis_terms"
}

// DiagnosisSynonym 术语同义词，自由文本解析时在术语名之后匹配
// swagger:model DiagnosisSynonym
type DiagnosisSynonym struct {
	BaseModel
	DiagnosisTermID uint           `gorm:"index;not null" json:"diagnosisTermId"`
	Term            *DiagnosisTerm `gorm:"foreignKey:DiagnosisTermID" json:"term,omitempty"`
	Synonym         string         `gorm:"size:255;unique;not null;index" json:"synonym"`
}

func (DiagnosisSynonym) TableName() string {
	return "diagnosis_synonyms"
}
