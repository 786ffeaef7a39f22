package main

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"quizcoach"

	"github.com/gorilla/sessions"
)

const sessionName = "quizcoach-session"

// Server exposes the coaching pipeline over a JSON API. The cookie session
// holds the user's profile; the display name in it also drives fingerprint
// redaction during generation.
type Server struct {
	coach *quizcoach.Coach
	db    *quizcoach.DB
	store *sessions.CookieStore
}

func init() {
	gob.Register(quizcoach.UserContext{})
}

func main() {
	quizcoach.SetVerbose(os.Getenv("QUIZCOACH_VERBOSE") != "")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable is required")
	}

	dbPath := os.Getenv("QUIZCOACH_DB")
	if dbPath == "" {
		dbPath = "./quizcoach.db"
	}
	db, err := quizcoach.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.CloseDB()
	if err := db.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "dev-only-session-secret"
	}

	server := &Server{
		coach: quizcoach.NewCoach(apiKey),
		db:    db,
		store: sessions.NewCookieStore([]byte(secret)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/profile", server.handleGetProfile)
	mux.HandleFunc("POST /api/profile", server.handleSetProfile)
	mux.HandleFunc("GET /api/quizzes", server.handleListQuizzes)
	mux.HandleFunc("POST /api/quizzes", server.handleGenerateQuizzes)
	mux.HandleFunc("GET /api/quizzes/{id}", server.handleGetQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/answers", server.handleSubmitAnswers)

	addr := os.Getenv("QUIZCOACH_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("Listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func (s *Server) userContext(r *http.Request) quizcoach.UserContext {
	session, _ := s.store.Get(r, sessionName)
	if user, ok := session.Values["user"].(quizcoach.UserContext); ok {
		return user
	}
	return quizcoach.UserContext{}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.userContext(r))
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var user quizcoach.UserContext
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile payload")
		return
	}

	session, _ := s.store.Get(r, sessionName)
	session.Values["user"] = user
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.db.ListQuizzes(50)
	if err != nil {
		log.Printf("Failed to list quizzes: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list quizzes")
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (s *Server) handleGenerateQuizzes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Concepts []string `json:"concepts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Concepts) == 0 {
		writeError(w, http.StatusBadRequest, "concepts are required")
		return
	}

	user := s.userContext(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	quizzes, err := s.coach.GenerateCoachingQuizzes(ctx, req.Concepts, user)
	if err != nil {
		log.Printf("Quiz generation failed: %v", err)
		writeError(w, http.StatusBadGateway, "quiz generation failed, please try again")
		return
	}

	for _, quiz := range quizzes {
		if err := s.db.SaveQuiz(quiz); err != nil {
			log.Printf("Failed to save quiz %s: %v", quiz.ID, err)
			writeError(w, http.StatusInternalServerError, "could not save quizzes")
			return
		}
	}

	// Evaluation is advisory: run it, store what we get, never fail the
	// response over it.
	for i, eval := range s.coach.EvaluateQuizzes(ctx, quizzes, user) {
		if err := s.db.SaveEvaluation(quizzes[i].ID, eval); err != nil {
			log.Printf("Failed to save evaluation for quiz %s: %v", quizzes[i].ID, err)
		}
	}

	writeJSON(w, http.StatusOK, quizzes)
}

// takeQuestion is the player-facing question view, without the answer key.
type takeQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.db.GetQuiz(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}

	questions := make([]takeQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		questions[i] = takeQuestion{Text: q.Text, Options: q.Options}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          quiz.ID,
		"concept":     quiz.Concept,
		"title":       quiz.Title,
		"description": quiz.Description,
		"questions":   questions,
	})
}

func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.db.GetQuiz(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "quiz not found")
		return
	}

	var req struct {
		Answers []int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Answers) != len(quiz.Questions) {
		writeError(w, http.StatusBadRequest, "one answer per question is required")
		return
	}

	type result struct {
		Correct       bool   `json:"correct"`
		CorrectAnswer int    `json:"correct_answer"`
		Explanation   string `json:"explanation"`
	}
	results := make([]result, len(quiz.Questions))
	score := 0
	for i, q := range quiz.Questions {
		correct := req.Answers[i] == q.CorrectAnswer
		if correct {
			score++
		}
		results[i] = result{
			Correct:       correct,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}

	session, _ := s.store.Get(r, sessionName)
	completed, _ := session.Values["completed"].(int)
	session.Values["completed"] = completed + 1
	if err := session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"score":   score,
		"total":   len(quiz.Questions),
		"results": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
