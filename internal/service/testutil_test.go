package service

import (
	"testing"

	"reader_study_backend/internal/config"
	"reader_study_backend/internal/model"
	"reader_study_backend/internal/repository"
	"reader_study_backend/pkg/database"
	"reader_study_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Vocabulary *VocabularyService
	Game       *GameService
	Assessment *AssessmentService
	Report     *ReportService
	Cases      *CaseService
	TermRepo   *repository.DiagnosisTermRepository
	Assignment *repository.AssignmentRepository
	Feedback   *repository.BlockFeedbackRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{}
	cfg.Game.BlockSize = 2
	cfg.Game.PeerPlaceholder = 0.60

	termRepo := repository.NewDiagnosisTermRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	feedbackRepo := repository.NewBlockFeedbackRepository(db)

	vocabulary := NewVocabularyService(termRepo, nil)
	game := NewGameService(assignmentRepo, caseRepo, assessmentRepo, feedbackRepo, cfg, db)
	assessment := NewAssessmentService(assessmentRepo, assignmentRepo, vocabulary, game, cfg, db)
	report := NewReportService(feedbackRepo, assignmentRepo, assessmentRepo, caseRepo, game)
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &cfg.Storage}}
	cases := NewCaseService(caseRepo, assignmentRepo, termRepo, storage)

	return &testEnv{
		DB:         db,
		Cfg:        cfg,
		Vocabulary: vocabulary,
		Game:       game,
		Assessment: assessment,
		Report:     report,
		Cases:      cases,
		TermRepo:   termRepo,
		Assignment: assignmentRepo,
		Feedback:   feedbackRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "Reader", Email: email, Password: "hashed", Role: model.Reader}
	require.NoError(t, e.DB.Create(user).Error)
	return user
}

func (e *testEnv) createTerm(t *testing.T, name string, synonyms ...string) *model.DiagnosisTerm {
	t.Helper()
	term := &model.DiagnosisTerm{Name: name}
	require.NoError(t, e.DB.Create(term).Error)
	for _, s := range synonyms {
		require.NoError(t, e.DB.Create(&model.DiagnosisSynonym{DiagnosisTermID: term.ID, Synonym: s}).Error)
	}
	return term
}

func (e *testEnv) createCase(t *testing.T, groundTruthID *uint) *model.Case {
	t.Helper()
	c := &model.Case{GroundTruthDiagnosisID: groundTruthID}
	require.NoError(t, e.DB.Create(c).Error)
	return c
}

// submitPhase 提交一条仅含诊断条目的阶段评估
func (e *testEnv) submitPhase(t *testing.T, userID, assignmentID uint, phase string, entries ...DiagnosisEntryInput) *SubmitResult {
	t.Helper()
	result, err := e.Assessment.Submit(userID, &AssessmentInput{
		AssignmentID:     assignmentID,
		Phase:            phase,
		DiagnosisEntries: entries,
	})
	require.NoError(t, err)
	return result
}

func entryByID(termID uint, rank int) DiagnosisEntryInput {
	return DiagnosisEntryInput{Rank: rank, DiagnosisTermID: &termID}
}

// completeBlock 将区块内全部分配的 PRE/POST 以给定术语提交完
func (e *testEnv) completeBlock(t *testing.T, userID uint, assignments []model.CaseAssignment, termID uint) {
	t.Helper()
	for _, a := range assignments {
		e.submitPhase(t, userID, a.ID, "PRE", entryByID(termID, 1))
		e.submitPhase(t, userID, a.ID, "POST", entryByID(termID, 1))
	}
}
