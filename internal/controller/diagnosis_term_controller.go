package controller

import (
	"errors"
	"strconv"

	"reader_study_backend/internal/service"
	"reader_study_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DiagnosisTermController struct {
	VocabularyService *service.VocabularyService
}

func NewDiagnosisTermController(vocabularyService *service.VocabularyService) *DiagnosisTermController {
	return &DiagnosisTermController{VocabularyService: vocabularyService}
}

// TermRequest 创建术语请求
type TermRequest struct {
	Name string `json:"name" binding:"required"`
}

// SynonymRequest 创建同义词请求
type SynonymRequest struct {
	Synonym string `json:"synonym" binding:"required"`
}

// Suggest godoc
// @Summary 诊断术语联想
// @Description 按前缀/子串匹配术语名与同义词，带评分排序
// @Tags 词汇
// @Produce  json
// @Security BearerAuth
// @Param   q query string true "查询文本"
// @Param   limit query int false "返回上限，默认 10"
// @Success 200 {object} util.Response{data=[]service.TermSuggestion}
// @Router /api/diagnosis-terms/suggest [get]
func (c *DiagnosisTermController) Suggest(ctx *gin.Context) {
	query := ctx.Query("q")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	suggestions, err := c.VocabularyService.Suggest(ctx.Request.Context(), query, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, suggestions)
}

// ListTerms godoc
// @Summary 术语列表
// @Tags 词汇
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/diagnosis-terms [get]
func (c *DiagnosisTermController) ListTerms(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))

	terms, total, err := c.VocabularyService.ListTerms(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  terms,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// CreateTerm godoc
// @Summary 创建术语
// @Tags 词汇管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body TermRequest true "术语"
// @Success 201 {object} util.Response{data=model.DiagnosisTerm}
// @Router /api/admin/diagnosis-terms [post]
func (c *DiagnosisTermController) CreateTerm(ctx *gin.Context) {
	var req TermRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	term, err := c.VocabularyService.CreateTerm(req.Name)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, term)
}

// ListSynonyms godoc
// @Summary 某术语的同义词
// @Tags 词汇
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "术语 ID"
// @Success 200 {object} util.Response{data=[]model.DiagnosisSynonym}
// @Router /api/diagnosis-terms/{id}/synonyms [get]
func (c *DiagnosisTermController) ListSynonyms(ctx *gin.Context) {
	termID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid term id")
		return
	}

	synonyms, err := c.VocabularyService.ListSynonyms(uint(termID))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, synonyms)
}

// CreateSynonym godoc
// @Summary 为术语添加同义词
// @Tags 词汇管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "术语 ID"
// @Param   body body SynonymRequest true "同义词"
// @Success 201 {object} util.Response{data=model.DiagnosisSynonym}
// @Failure 404 {object} util.Response "术语不存在"
// @Router /api/admin/diagnosis-terms/{id}/synonyms [post]
func (c *DiagnosisTermController) CreateSynonym(ctx *gin.Context) {
	termID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid term id")
		return
	}
	var req SynonymRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	syn, err := c.VocabularyService.CreateSynonym(uint(termID), req.Synonym)
	if err != nil {
		if errors.Is(err, util.ErrTermNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, syn)
}
