package store

import (
	"fmt"
	"time"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

// ExportHistory collects the whole local history for JSON export.
func (s *Store) ExportHistory() (*model.HistoryExport, error) {
	url, err := s.BackendURL()
	if err != nil {
		return nil, fmt.Errorf("get backend url: %w", err)
	}
	gens, err := s.ListGenerations(0)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	papers, err := s.ListPapers()
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	downloads, err := s.ListDownloads()
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	grades, err := s.ListGrades("")
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}

	return &model.HistoryExport{
		ExportedAt:  time.Now().UTC(),
		BackendURL:  url,
		Generations: gens,
		Papers:      papers,
		Downloads:   downloads,
		Grades:      grades,
	}, nil
}
