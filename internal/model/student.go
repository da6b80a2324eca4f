package model

import "time"

// Student is a roster entry owned by the identity layer.
type Student struct {
	ID           int       `json:"id"`
	StudentID    string    `json:"student_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentLoginRequest is the payload for a student login.
type StudentLoginRequest struct {
	StudentID string `json:"student_id" binding:"required,min=3,max=32"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
}

// CreateStudentRequest is the payload for adding a roster entry.
type CreateStudentRequest struct {
	StudentID string `json:"student_id" binding:"required,min=3,max=32"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
}
