package service

import (
	"context"
	"errors"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

// StudentService owns the roster and login orchestration for both sides
// of the console.
type StudentService struct {
	students *repository.StudentRepository
	admins   *repository.AdminRepository
	auth     *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(students *repository.StudentRepository, admins *repository.AdminRepository, auth *AuthService) *StudentService {
	return &StudentService{students: students, admins: admins, auth: auth}
}

// Login authenticates a student and issues a single-device token.
func (s *StudentService) Login(ctx context.Context, req model.StudentLoginRequest) (string, *model.Student, error) {
	student, err := s.students.GetByStudentID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := s.auth.CheckPassword(student.PasswordHash, req.Password); err != nil {
		return "", nil, err
	}

	token, err := s.auth.GenerateStudentToken(ctx, student)
	if err != nil {
		return "", nil, err
	}
	return token, student, nil
}

// AdminLogin authenticates a proctor console account.
func (s *StudentService) AdminLogin(ctx context.Context, req model.AdminLoginRequest) (string, *model.Admin, error) {
	admin, err := s.admins.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return "", nil, err
	}

	token, err := s.auth.GenerateAdminToken(admin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// Logout releases a student's single-device login.
func (s *StudentService) Logout(ctx context.Context, studentID string) error {
	return s.auth.ResetStudentLogin(ctx, studentID)
}

// List returns the full roster.
func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	return s.students.List(ctx)
}

// Add creates a roster entry with a hashed password.
func (s *StudentService) Add(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		StudentID:    req.StudentID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Remove deletes a roster entry and releases any active login.
func (s *StudentService) Remove(ctx context.Context, studentID string) (bool, error) {
	removed, err := s.students.Delete(ctx, studentID)
	if err != nil {
		return false, err
	}
	if removed {
		// Best-effort: a dangling login key expires on its own.
		_ = s.auth.ResetStudentLogin(ctx, studentID)
	}
	return removed, nil
}
