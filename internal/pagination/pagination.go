// Package pagination presents the active set, optionally merged with the
// archive, as one newest-first paged view.
package pagination

import (
	"github.com/igoorng/webhook/internal/store"
)

// Source supplies the unsorted message set to page over.
type Source interface {
	Collect(includeArchived bool) []store.Message
}

type Info struct {
	CurrentPage   int  `json:"current_page"`
	TotalPages    int  `json:"total_pages"`
	TotalMessages int  `json:"total_messages"`
	PageSize      int  `json:"page_size"`
	HasPrev       bool `json:"has_prev"`
	HasNext       bool `json:"has_next"`
}

type Page struct {
	Messages   []store.Message `json:"messages"`
	Pagination Info            `json:"pagination"`
}

type Engine struct {
	source          Source
	defaultPageSize int
}

func NewEngine(source Source, defaultPageSize int) *Engine {
	if defaultPageSize < 1 {
		defaultPageSize = 1
	}
	return &Engine{source: source, defaultPageSize: defaultPageSize}
}

// GetPage returns page number page (1-based). A non-positive pageSize uses
// the engine default. Pages outside [1, TotalPages] are empty.
func (e *Engine) GetPage(page, pageSize int, includeArchived bool) Page {
	if pageSize < 1 {
		pageSize = e.defaultPageSize
	}

	all := e.source.Collect(includeArchived)
	store.SortNewestFirst(all)

	total := len(all)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if totalPages < 1 {
		totalPages = 1
	}

	messages := []store.Message{}
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if page >= 1 && page <= totalPages && total > 0 {
		start := (page - 1) * pageSize
		end := start + pageSize
		if end > total {
			end = total
		}
		messages = all[start:end]
	}

	return Page{
		Messages: messages,
		Pagination: Info{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalMessages: total,
			PageSize:      pageSize,
			HasPrev:       page > 1,
			HasNext:       page < totalPages,
		},
	}
}
