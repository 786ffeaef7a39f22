package quizcoach

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB stores generated quizzes, their questions, and evaluation results.
type DB struct {
	db *sql.DB
}

// OpenDB opens a quiz database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{db: db}, nil
}

// CloseDB closes the database connection.
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the schema if it doesn't exist.
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			concept TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			quiz_id TEXT NOT NULL,
			question_num INTEGER NOT NULL,
			text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer INTEGER NOT NULL,
			explanation TEXT,
			PRIMARY KEY (quiz_id, question_num),
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			quiz_id TEXT PRIMARY KEY,
			overall_score REAL NOT NULL,
			relevance REAL NOT NULL,
			clarity REAL NOT NULL,
			correctness REAL NOT NULL,
			personalization REAL NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
		)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// SaveQuiz stores a quiz and its questions in one transaction.
func (db *DB) SaveQuiz(quiz *Quiz) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO quizzes (id, concept, title, description, created_at) VALUES (?, ?, ?, ?, ?)",
		quiz.ID, quiz.Concept, quiz.Title, quiz.Description, quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz: %w", err)
	}

	for i, q := range quiz.Questions {
		optionsJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}
		_, err = tx.Exec(
			"INSERT INTO questions (quiz_id, question_num, text, options, correct_answer, explanation) VALUES (?, ?, ?, ?, ?, ?)",
			quiz.ID, i+1, q.Text, string(optionsJSON), q.CorrectAnswer, q.Explanation,
		)
		if err != nil {
			return fmt.Errorf("failed to save question %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quiz: %w", err)
	}
	return nil
}

// GetQuiz retrieves a quiz with its questions by ID.
func (db *DB) GetQuiz(id string) (*Quiz, error) {
	var quiz Quiz
	err := db.db.QueryRow(
		"SELECT id, concept, title, description, created_at FROM quizzes WHERE id = ?",
		id,
	).Scan(&quiz.ID, &quiz.Concept, &quiz.Title, &quiz.Description, &quiz.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("quiz not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	rows, err := db.db.Query(
		"SELECT text, options, correct_answer, explanation FROM questions WHERE quiz_id = ? ORDER BY question_num",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		var optionsJSON string
		if err := rows.Scan(&q.Text, &optionsJSON, &q.CorrectAnswer, &q.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
		q.Concept = quiz.Concept
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	quiz.TotalQuestions = len(quiz.Questions)
	return &quiz, nil
}

// ListQuizzes retrieves quizzes newest-first, optionally limited.
// Questions are not loaded.
func (db *DB) ListQuizzes(limit int) ([]Quiz, error) {
	query := "SELECT id, concept, title, description, created_at FROM quizzes ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []Quiz
	for rows.Next() {
		var quiz Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Concept, &quiz.Title, &quiz.Description, &quiz.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quizzes: %w", err)
	}
	return quizzes, nil
}

// SaveEvaluation stores the judge's aggregate scores for a quiz.
func (db *DB) SaveEvaluation(quizID string, eval *QuizEvaluation) error {
	_, err := db.db.Exec(
		`INSERT OR REPLACE INTO evaluations
			(quiz_id, overall_score, relevance, clarity, correctness, personalization, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		quizID, eval.OverallScore,
		eval.Evaluation.Relevance, eval.Evaluation.Clarity,
		eval.Evaluation.Correctness, eval.Evaluation.Personalization,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// GetEvaluation retrieves the stored aggregate evaluation for a quiz.
func (db *DB) GetEvaluation(quizID string) (*QuizEvaluation, error) {
	var eval QuizEvaluation
	err := db.db.QueryRow(
		"SELECT overall_score, relevance, clarity, correctness, personalization FROM evaluations WHERE quiz_id = ?",
		quizID,
	).Scan(&eval.OverallScore,
		&eval.Evaluation.Relevance, &eval.Evaluation.Clarity,
		&eval.Evaluation.Correctness, &eval.Evaluation.Personalization)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("evaluation not found for quiz: %s", quizID)
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return &eval, nil
}
