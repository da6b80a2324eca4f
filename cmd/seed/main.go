package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/database"
	"github.com/invigilo/proctor-backend/internal/logger"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/question"
	"github.com/invigilo/proctor-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// seedPassword is the shared initial password for seeded accounts.
const seedPassword = "changeme123"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Question Bank ────────────────────────────────────────────────
	bank := question.NewPostgresStore(pool)
	if err := bank.EnsureSeeded(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed question bank")
	}
	fmt.Println("Question bank seeded")

	// ─── Student Roster ───────────────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash seed password")
	}

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
	}

	fmt.Printf("=== Seeding %d Students ===\n", len(names))

	successCount := 0
	for i, name := range names {
		student := &model.Student{
			StudentID:    fmt.Sprintf("S%04d", i+1),
			Name:         name,
			Email:        fmt.Sprintf("student%d@example.edu", i+1),
			PasswordHash: string(hash),
		}

		if err := studentRepo.Create(ctx, student); err != nil {
			if errors.Is(err, repository.ErrDuplicateStudentID) {
				continue // already seeded
			}
			fmt.Printf("Error creating student %s (%s): %v\n", student.Name, student.StudentID, err)
			continue
		}
		successCount++
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, len(names))
}
