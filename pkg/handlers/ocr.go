package handlers

import (
	_ "embed"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"gopkg.in/yaml.v3"
)

const (
	// maxUploadSize 登机牌图片上限
	maxUploadSize = 10 << 20
	ocrEngineName = "Mock OCR (Demo)"
)

//go:embed boarding_passes.yaml
var boardingPassesYAML []byte

var (
	samplePasses     []models.BoardingPass
	samplePassesErr  error
	samplePassesOnce sync.Once
)

func loadSamplePasses() ([]models.BoardingPass, error) {
	samplePassesOnce.Do(func() {
		if err := yaml.Unmarshal(boardingPassesYAML, &samplePasses); err != nil {
			samplePassesErr = fmt.Errorf("parse boarding pass samples: %w", err)
			return
		}
		if len(samplePasses) == 0 {
			samplePassesErr = errors.New("no boarding pass samples")
		}
	})
	return samplePasses, samplePassesErr
}

// ExtractBoardingPass 模拟识别：同一张图片总是得到同一个结果
func ExtractBoardingPass(image []byte) (models.BoardingPass, error) {
	passes, err := loadSamplePasses()
	if err != nil {
		return models.BoardingPass{}, err
	}
	h := fnv.New32a()
	h.Write(image)
	return passes[int(h.Sum32()%uint32(len(passes)))], nil
}

type OCRHandler struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewOCRHandler(logger *slog.Logger) *OCRHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRHandler{logger: logger, now: time.Now}
}

// POST /api/ocr/boarding-pass
func (h *OCRHandler) BoardingPass(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.WriteBadRequestResponse(w, "No boarding pass image provided", "expected a multipart/form-data upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("boardingPass")
	if err != nil {
		utils.WriteBadRequestResponse(w, "No boarding pass image provided", "missing form field boardingPass")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "OCR processing failed", err.Error())
		return
	}
	if len(image) == 0 {
		utils.WriteBadRequestResponse(w, "No boarding pass image provided", "uploaded file is empty")
		return
	}

	extracted, err := ExtractBoardingPass(image)
	if err != nil {
		h.logger.Error("ocr extraction failed", "error", err)
		utils.WriteInternalServerErrorResponse(w, "OCR processing failed", err.Error())
		return
	}

	h.logger.Info("boarding pass processed", "file", header.Filename, "bytes", len(image), "flight", extracted.FlightNumber)
	utils.WriteSuccessResponse(w, models.BoardingPassResponse{
		Success:        true,
		Extracted:      extracted,
		FileName:       header.Filename,
		FileSize:       int64(len(image)),
		ProcessingTime: fmt.Sprintf("%.1fs", h.now().Sub(start).Seconds()),
		OCREngine:      ocrEngineName,
		Timestamp:      h.now().UTC(),
	})
}
