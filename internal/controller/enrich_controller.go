package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"logsight-backend/internal/model"
	"logsight-backend/internal/service"
)

type EnrichController struct {
	pipeline service.PipelineService
}

func NewEnrichController(pipeline service.PipelineService) *EnrichController {
	return &EnrichController{
		pipeline: pipeline,
	}
}

func RegisterEnrichRoutes(router *gin.Engine, controller *EnrichController) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/enrich", controller.Enrich)
	}
	router.GET("/health", controller.Health)
}

// Enrich godoc
// @Summary      Enrich an uploaded log file
// @Description  Parses an SSH auth log or Apache access log, enriches source IPs with geolocation data, and returns the encoded document.
// @Accept       plain
// @Produce      plain
// @Param        format  query  string  false  "Output encoding (keyvalue or json, default keyvalue)"
// @Router       /api/v1/enrich [post]
func (c *EnrichController) Enrich(ctx *gin.Context) {
	encoding, err := model.ParseEncoding(ctx.Query("format"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	rawText, err := readUpload(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded log file")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Failed to read uploaded log file", nil))
		return
	}

	result, err := c.pipeline.Run(ctx.Request.Context(), rawText, encoding)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyInput), errors.Is(err, service.ErrUnknownLogType):
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		default:
			log.Error().Err(err).Msg("Enrichment pipeline failed")
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to process log file", nil))
		}
		return
	}

	ctx.Header("X-Events-Parsed", fmt.Sprintf("%d", result.EventsParsed))
	ctx.Header("X-Unique-Ips", fmt.Sprintf("%d", result.UniqueIPs))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=enriched%s", result.Extension))
	ctx.Data(http.StatusOK, result.ContentType, result.Document)
}

func (c *EnrichController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, model.NewResponse("ok", nil))
}

// readUpload accepts either a multipart "file" field or the raw request body.
func readUpload(ctx *gin.Context) (string, error) {
	if fileHeader, err := ctx.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open multipart file: %w", err)
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("failed to read multipart file: %w", err)
		}
		return string(content), nil
	}

	content, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	return string(content), nil
}
