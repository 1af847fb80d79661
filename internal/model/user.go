package model

import (
	"time"
)

type UserRole string

const (
	Reader UserRole = "reader"
	Admin  UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'reader'" json:"role"`
	Hospital  string    `gorm:"size:255" json:"hospital"`           // 所属医院/单位
	Specialty string    `gorm:"size:100" json:"specialty"`          // 专业方向（皮肤科/全科等）
	YearsOfXP int       `gorm:"default:0" json:"yearsOfExperience"` // 从业年限
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
	LastSeen  time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
