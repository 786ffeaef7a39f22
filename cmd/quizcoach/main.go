package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"quizcoach"
)

func main() {
	var (
		concepts   = flag.String("concepts", "", "Comma-separated financial concepts to quiz on (required)")
		userName   = flag.String("user", "", "User display name for personalization")
		goals      = flag.String("goals", "", "Comma-separated financial goals")
		spending   = flag.String("spending", "", "Recent spending summary to personalize against")
		outputFile = flag.String("output", "", "Output file for quiz JSON (default: stdout)")
		dbPath     = flag.String("db", "", "SQLite database path to store quizzes (optional)")
		apiKey     = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		evaluate   = flag.Bool("evaluate", false, "Run judge evaluation on generated quizzes")
		logDir     = flag.String("log-dir", "log", "Directory for per-request LLM logs")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	quizcoach.SetVerbose(*verbose)

	if *concepts == "" {
		log.Fatal("Concepts are required. Use -concepts flag.")
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
		if *apiKey == "" {
			log.Fatal("OpenAI API key is required. Use -api-key flag or set OPENAI_API_KEY environment variable.")
		}
	}

	user := quizcoach.UserContext{
		DisplayName:     *userName,
		SpendingSummary: *spending,
	}
	for _, goal := range strings.Split(*goals, ",") {
		if goal = strings.TrimSpace(goal); goal != "" {
			user.FinancialGoals = append(user.FinancialGoals, goal)
		}
	}

	var conceptList []string
	for _, c := range strings.Split(*concepts, ",") {
		if c = strings.TrimSpace(c); c != "" {
			conceptList = append(conceptList, c)
		}
	}

	coach := quizcoach.NewCoach(*apiKey)

	requestID := fmt.Sprintf("coach-%d", time.Now().Unix())
	logger, err := quizcoach.NewLLMLogger(*logDir, requestID, user)
	if err != nil {
		log.Printf("Failed to create LLM logger: %v", err)
	} else {
		coach.SetLogger(logger)
		defer logger.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	quizzes, err := coach.GenerateCoachingQuizzes(ctx, conceptList, user)
	if err != nil {
		log.Fatalf("Failed to generate quizzes: %v", err)
	}

	type quizWithEval struct {
		Quiz       *quizcoach.Quiz           `json:"quiz"`
		Evaluation *quizcoach.QuizEvaluation `json:"evaluation,omitempty"`
	}
	results := make([]quizWithEval, len(quizzes))
	for i, quiz := range quizzes {
		results[i].Quiz = quiz
	}

	if *evaluate {
		evaluations := coach.EvaluateQuizzes(ctx, quizzes, user)
		for i, eval := range evaluations {
			results[i].Evaluation = eval
			log.Printf("Quiz %q scored %.2f overall", quizzes[i].Title, eval.OverallScore)
		}
	}

	if *dbPath != "" {
		db, err := quizcoach.OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.CloseDB()
		if err := db.CreateTables(); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		for _, r := range results {
			if err := db.SaveQuiz(r.Quiz); err != nil {
				log.Fatalf("Failed to save quiz %s: %v", r.Quiz.ID, err)
			}
			if r.Evaluation != nil {
				if err := db.SaveEvaluation(r.Quiz.ID, r.Evaluation); err != nil {
					log.Fatalf("Failed to save evaluation for quiz %s: %v", r.Quiz.ID, err)
				}
			}
		}
		log.Printf("Saved %d quizzes to %s", len(results), *dbPath)
	}

	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal quizzes: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Quizzes saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}
