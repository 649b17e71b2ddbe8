package handler

import (
	"encoding/json"

	"kycengine/internal/cases/models"
	"kycengine/internal/submission"
)

// PageResponse is a page of cases in the shape the case list UI pages with.
type PageResponse struct {
	Content          []*models.Case `json:"content"`
	TotalElements    int            `json:"totalElements"`
	TotalPages       int            `json:"totalPages"`
	Size             int            `json:"size"`
	Number           int            `json:"number"`
	NumberOfElements int            `json:"numberOfElements"`
	First            bool           `json:"first"`
	Last             bool           `json:"last"`
	Empty            bool           `json:"empty"`
}

func toPageResponse(p models.Page) *PageResponse {
	content := p.Content
	if content == nil {
		content = []*models.Case{}
	}
	pages := p.TotalPages()
	return &PageResponse{
		Content:          content,
		TotalElements:    p.TotalElements,
		TotalPages:       pages,
		Size:             p.Size,
		Number:           p.Number,
		NumberOfElements: p.NumberOfElements(),
		First:            p.Number == 0,
		Last:             p.Number >= pages-1,
		Empty:            len(content) == 0,
	}
}

// ConvertResponse previews the downstream document.
type ConvertResponse struct {
	ProcessID string          `json:"processId"`
	Digest    string          `json:"digest"`
	Payload   json.RawMessage `json:"payload"`
}

func toConvertResponse(d *submission.Document) *ConvertResponse {
	return &ConvertResponse{ProcessID: d.ProcessID(), Digest: d.Digest, Payload: json.RawMessage(d.Bytes)}
}
