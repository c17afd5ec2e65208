// Package store keeps a local SQLite history of what this client submitted
// to and fetched from the backend.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Nagarajan13172/qpgen/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotCached is returned when a paper or answer key has no local snapshot.
var ErrNotCached = errors.New("not in local history; fetch it online first")

// ErrScoreOutOfRange is returned when a marker's score is negative or above
// the question's marks.
var ErrScoreOutOfRange = errors.New("score out of range")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared between goroutines.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		syllabus_id TEXT NOT NULL,
		total_marks INTEGER NOT NULL,
		request_json TEXT NOT NULL,
		paper_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'submitted',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		syllabus_id TEXT NOT NULL DEFAULT '',
		course_name TEXT NOT NULL DEFAULT '',
		total_marks INTEGER NOT NULL DEFAULT 0,
		total_questions INTEGER NOT NULL DEFAULT 0,
		paper_json TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS answer_keys (
		paper_id TEXT PRIMARY KEY,
		key_json TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		paper_id TEXT NOT NULL,
		include_answers INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		paper_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		llm_score REAL NOT NULL DEFAULT 0,
		max_marks INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		marker_score REAL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grades_paper ON grades(paper_id, question_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordGeneration stores a generation request before it is submitted.
func (s *Store) RecordGeneration(req model.GenerationRequest) (int64, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO generations (syllabus_id, total_marks, request_json, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.SyllabusID, req.TotalMarks, string(data), model.GenerationSubmitted, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CompleteGeneration records the outcome of a generation. A nil genErr marks
// it succeeded with paperID.
func (s *Store) CompleteGeneration(id int64, paperID string, genErr error) error {
	status, msg := model.GenerationSucceeded, ""
	if genErr != nil {
		status, msg = model.GenerationFailed, genErr.Error()
	}
	_, err := s.db.Exec(
		`UPDATE generations SET status = ?, paper_id = ?, error = ? WHERE id = ?`,
		status, paperID, msg, id,
	)
	return err
}

// ListGenerations returns recorded generations, newest first. limit <= 0
// returns all of them.
func (s *Store) ListGenerations(limit int) ([]model.Generation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, syllabus_id, total_marks, request_json, paper_id, status, error, created_at
		 FROM generations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	gens := []model.Generation{}
	for rows.Next() {
		var g model.Generation
		var reqJSON string
		if err := rows.Scan(&g.ID, &g.SyllabusID, &g.TotalMarks, &reqJSON, &g.PaperID, &g.Status, &g.Error, &g.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(reqJSON), &g.Request); err != nil {
			return nil, fmt.Errorf("decode generation %d: %w", g.ID, err)
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// SavePaper upserts the snapshot of a fetched paper.
func (s *Store) SavePaper(p *model.Paper) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode paper: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO papers (id, syllabus_id, course_name, total_marks, total_questions, paper_json, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET syllabus_id = excluded.syllabus_id, course_name = excluded.course_name,
		   total_marks = excluded.total_marks, total_questions = excluded.total_questions,
		   paper_json = excluded.paper_json, fetched_at = excluded.fetched_at`,
		p.ID, p.SyllabusID, p.CourseName, p.TotalMarks, len(p.Questions), string(data), time.Now(),
	)
	return err
}

// GetPaper returns the cached paper, or ErrNotCached.
func (s *Store) GetPaper(id string) (*model.Paper, error) {
	var data string
	err := s.db.QueryRow(`SELECT paper_json FROM papers WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	var p model.Paper
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode paper %s: %w", id, err)
	}
	return &p, nil
}

// DeletePaper removes a paper and its answer key from local history.
func (s *Store) DeletePaper(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM papers WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM answer_keys WHERE paper_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListPapers returns summaries of the cached papers, most recently fetched first.
func (s *Store) ListPapers() ([]model.PaperSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.course_name, p.syllabus_id, p.total_marks, p.total_questions, p.fetched_at,
		        k.paper_id IS NOT NULL
		 FROM papers p LEFT JOIN answer_keys k ON k.paper_id = p.id
		 ORDER BY p.fetched_at DESC, p.rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	papers := []model.PaperSnapshot{}
	for rows.Next() {
		var p model.PaperSnapshot
		if err := rows.Scan(&p.PaperID, &p.CourseName, &p.SyllabusID, &p.TotalMarks, &p.TotalQuestions, &p.FetchedAt, &p.HasAnswerKey); err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// SaveAnswerKey upserts the snapshot of a fetched answer key.
func (s *Store) SaveAnswerKey(paperID string, k *model.AnswerKey) error {
	data, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("encode answer key: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO answer_keys (paper_id, key_json, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET key_json = excluded.key_json, fetched_at = excluded.fetched_at`,
		paperID, string(data), time.Now(),
	)
	return err
}

// GetAnswerKey returns the cached answer key, or ErrNotCached.
func (s *Store) GetAnswerKey(paperID string) (*model.AnswerKey, error) {
	var data string
	err := s.db.QueryRow(`SELECT key_json FROM answer_keys WHERE paper_id = ?`, paperID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	var k model.AnswerKey
	if err := json.Unmarshal([]byte(data), &k); err != nil {
		return nil, fmt.Errorf("decode answer key %s: %w", paperID, err)
	}
	return &k, nil
}

// RecordDownload stores a PDF download.
func (s *Store) RecordDownload(d model.Download) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO downloads (paper_id, include_answers, path, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.PaperID, d.IncludeAnswers, d.Path, d.SizeBytes, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListDownloads returns recorded downloads, newest first.
func (s *Store) ListDownloads() ([]model.Download, error) {
	rows, err := s.db.Query(`SELECT id, paper_id, include_answers, path, size_bytes, created_at FROM downloads ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	downloads := []model.Download{}
	for rows.Next() {
		var d model.Download
		if err := rows.Scan(&d.ID, &d.PaperID, &d.IncludeAnswers, &d.Path, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// AddGrade stores a suggested mark.
func (s *Store) AddGrade(g model.Grade) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO grades (paper_id, question_id, answer, llm_score, max_marks, feedback, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.PaperID, g.QuestionID, g.Answer, g.LLMScore, g.MaxMarks, g.Feedback, g.Model, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SetMarkerScore overrides a suggested mark with the human marker's score.
// The score must lie between zero and the grade's max marks.
func (s *Store) SetMarkerScore(id int64, score float64) error {
	if score < 0 {
		return fmt.Errorf("%w: %g is negative", ErrScoreOutOfRange, score)
	}
	var maxMarks int
	if err := s.db.QueryRow(`SELECT max_marks FROM grades WHERE id = ?`, id).Scan(&maxMarks); err != nil {
		return err
	}
	if maxMarks > 0 && score > float64(maxMarks) {
		return fmt.Errorf("%w: %g exceeds %d marks", ErrScoreOutOfRange, score, maxMarks)
	}

	res, err := s.db.Exec(`UPDATE grades SET marker_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListGrades returns the marks recorded for a paper, or for every paper when
// paperID is empty.
func (s *Store) ListGrades(paperID string) ([]model.Grade, error) {
	query := `SELECT id, paper_id, question_id, answer, llm_score, max_marks, feedback, model, marker_score, created_at FROM grades`
	var args []any
	if paperID != "" {
		query += ` WHERE paper_id = ?`
		args = append(args, paperID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grades := []model.Grade{}
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.PaperID, &g.QuestionID, &g.Answer, &g.LLMScore, &g.MaxMarks, &g.Feedback, &g.Model, &g.MarkerScore, &g.CreatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
