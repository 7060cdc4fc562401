package service

import (
	"fmt"

	"cardsystem/internal/config"
	"cardsystem/internal/repository"
)

const defaultSortField = "created_at"

// PageRequest is a zero based page request.
type PageRequest struct {
	Page    int    `form:"page" json:"page"`
	Size    int    `form:"size" json:"size"`
	SortBy  string `form:"sort_by" json:"sort_by"`
	SortDir string `form:"sort_dir" json:"sort_dir"`
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

func newPage[T any](content []T, req PageRequest, total int64) *Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return &Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// resolvePage fills defaults, clamps the size and whitelists the sort field.
func resolvePage(req PageRequest, columns repository.SortColumns, cfg config.BusinessConfig) (PageRequest, repository.PageQuery, error) {
	if req.Page < 0 {
		return req, repository.PageQuery{}, fmt.Errorf("%w: page must not be negative", ErrInvalidInput)
	}
	if req.Size < 0 {
		return req, repository.PageQuery{}, fmt.Errorf("%w: size must not be negative", ErrInvalidInput)
	}
	if req.Size == 0 {
		req.Size = cfg.DefaultPageSize
	}
	if req.Size > cfg.MaxPageSize {
		req.Size = cfg.MaxPageSize
	}
	if req.SortBy == "" {
		req.SortBy = defaultSortField
	}
	if req.SortDir == "" {
		req.SortDir = "desc"
	}

	order, ok := columns.Resolve(req.SortBy, req.SortDir)
	if !ok {
		return req, repository.PageQuery{}, fmt.Errorf("%w: unsupported sort field %q", ErrInvalidInput, req.SortBy)
	}

	return req, repository.PageQuery{
		Offset: req.Page * req.Size,
		Limit:  req.Size,
		Order:  order,
	}, nil
}
