package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/http/response"
	"github.com/yungbote/travelog-backend/internal/pkg/opt"
	"github.com/yungbote/travelog-backend/internal/services"
)

const (
	formPayload = "payload"
	formImages  = "images"
)

type createRecordPayload struct {
	PlanID   uuid.UUID             `json:"plan_id"`
	Title    string                `json:"title"`
	Content  string                `json:"content"`
	IsPublic bool                  `json:"is_public"`
	Review   *services.ReviewInput `json:"review"`
}

// ReplaceImages with no attached files clears the image set.
type updateRecordPayload struct {
	Title         opt.Value[string]     `json:"title"`
	Content       opt.Value[string]     `json:"content"`
	IsPublic      bool                  `json:"is_public"`
	ReplaceImages bool                  `json:"replace_images"`
	Review        *services.ReviewInput `json:"review"`
}

type RecordHandler struct {
	records       services.RecordService
	maxImageBytes int64
}

func NewRecordHandler(records services.RecordService, maxImageBytes int64) *RecordHandler {
	return &RecordHandler{records: records, maxImageBytes: maxImageBytes}
}

// POST /api/records (multipart: payload JSON + images files)
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	var p createRecordPayload
	images, ok := h.readMultipart(c, &p)
	if !ok {
		return
	}
	view, err := h.records.Create(c.Request.Context(), services.CreateRecordInput{
		PlanID:   p.PlanID,
		Title:    p.Title,
		Content:  p.Content,
		IsPublic: p.IsPublic,
		Images:   images,
		Review:   p.Review,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"record": view})
}

// PATCH /api/records/:id (multipart)
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	recordID, ok := pathID(c, "invalid_record_id")
	if !ok {
		return
	}
	var p updateRecordPayload
	images, ok := h.readMultipart(c, &p)
	if !ok {
		return
	}
	in := services.UpdateRecordInput{
		Title:    p.Title,
		Content:  p.Content,
		IsPublic: p.IsPublic,
		Review:   p.Review,
	}
	if p.ReplaceImages || len(images) > 0 {
		if images == nil {
			images = []services.ImageUpload{}
		}
		in.Images = opt.Some(images)
	}
	view, err := h.records.Update(c.Request.Context(), recordID, in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"record": view})
}

// DELETE /api/records/:id
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	recordID, ok := pathID(c, "invalid_record_id")
	if !ok {
		return
	}
	if err := h.records.Delete(c.Request.Context(), recordID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	recordID, ok := pathID(c, "invalid_record_id")
	if !ok {
		return
	}
	view, err := h.records.GetByID(c.Request.Context(), recordID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"record": view})
}

// GET /api/records
func (h *RecordHandler) ListMyRecords(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	h.respondList(c, func() ([]*services.RecordView, error) {
		return h.records.ListByUser(c.Request.Context(), userID)
	})
}

// GET /api/plans/:id/records
func (h *RecordHandler) ListPlanRecords(c *gin.Context) {
	planID, ok := pathID(c, "invalid_plan_id")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*services.RecordView, error) {
		return h.records.ListByPlan(c.Request.Context(), planID)
	})
}

// GET /api/public/users/:id/records
func (h *RecordHandler) ListPublicUserRecords(c *gin.Context) {
	userID, ok := pathID(c, "invalid_user_id")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*services.RecordView, error) {
		return h.records.ListPublicByUser(c.Request.Context(), userID)
	})
}

// GET /api/public/plans/:id/records
func (h *RecordHandler) ListPublicPlanRecords(c *gin.Context) {
	planID, ok := pathID(c, "invalid_plan_id")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*services.RecordView, error) {
		return h.records.ListPublicByPlan(c.Request.Context(), planID)
	})
}

func (h *RecordHandler) respondList(c *gin.Context, list func() ([]*services.RecordView, error)) {
	views, err := list()
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"records": views})
}

// readMultipart decodes the payload field into dst and reads every attached
// image. It writes the 400 itself and reports false on failure.
func (h *RecordHandler) readMultipart(c *gin.Context, dst any) ([]services.ImageUpload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart", err)
		return nil, false
	}
	raw := form.Value[formPayload]
	if len(raw) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("missing payload field"))
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw[0]), dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("payload: %w", err))
		return nil, false
	}
	files := form.File[formImages]
	if len(files) == 0 {
		return nil, true
	}
	images := make([]services.ImageUpload, 0, len(files))
	for _, fh := range files {
		data, err := h.readFile(fh)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_image", err)
			return nil, false
		}
		images = append(images, services.ImageUpload{Filename: fh.Filename, Data: data})
	}
	return images, true
}

func (h *RecordHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if h.maxImageBytes > 0 && fh.Size > h.maxImageBytes {
		return nil, fmt.Errorf("%s: %d bytes exceeds limit of %d", fh.Filename, fh.Size, h.maxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	defer f.Close()
	var r io.Reader = f
	if h.maxImageBytes > 0 {
		r = io.LimitReader(f, h.maxImageBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fh.Filename, err)
	}
	if h.maxImageBytes > 0 && int64(len(data)) > h.maxImageBytes {
		return nil, fmt.Errorf("%s exceeds limit of %d bytes", fh.Filename, h.maxImageBytes)
	}
	return data, nil
}
