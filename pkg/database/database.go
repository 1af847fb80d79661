package database

import (
	"fmt"
	"log"

	"reader_study_backend/internal/config"
	"reader_study_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if MigrateOnStartup(cfg) {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
		seedVocabulary(db)
	}

	return db, nil
}

// MigrateOnStartup release 模式下迁移需用 --migrate / --migrate-only 显式触发
func MigrateOnStartup(cfg *config.Config) bool {
	return cfg.Server.Mode != "release" || cfg.ForceMigrate
}

// Migrate 一次性建表/加列；核心逻辑不做任何运行时表结构探测
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.DiagnosisTerm{},
		&model.DiagnosisSynonym{},
		&model.Case{},
		&model.CaseImage{},
		&model.AIOutput{},
		&model.CaseAssignment{},
		&model.Assessment{},
		&model.DiagnosisEntry{},
		&model.BlockFeedback{},
	)
}

// 默认诊断词汇（仅在词汇表为空时插入，便于本地联调）
func seedVocabulary(db *gorm.DB) {
	var count int64
	db.Model(&model.DiagnosisTerm{}).Count(&count)
	if count > 0 {
		return
	}

	seed := map[string][]string{
		"Melanoma":             {"malignant melanoma", "MM"},
		"Basal cell carcinoma": {"BCC", "basalioma"},
		"Seborrheic keratosis": {"SK", "seborrheic wart"},
		"Melanocytic nevus":    {"mole", "nevus"},
		"Actinic keratosis":    {"AK", "solar keratosis"},
		"Dermatofibroma":       {"fibrous histiocytoma"},
	}

	for name, synonyms := range seed {
		term := &model.DiagnosisTerm{Name: name}
		if err := db.Create(term).Error; err != nil {
			continue
		}
		for _, s := range synonyms {
			db.Create(&model.DiagnosisSynonym{DiagnosisTermID: term.ID, Synonym: s})
		}
	}
}
