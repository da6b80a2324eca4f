package service

import (
	"context"
	"errors"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

var ErrReportNotFound = errors.New("no exam log for session")

// ReportService builds integrity reports on demand from stored exam logs.
// Reports are a read model; nothing here is persisted separately.
type ReportService struct {
	examLogs *repository.ExamLogRepository
	students *repository.StudentRepository
}

// NewReportService creates a new ReportService.
func NewReportService(examLogs *repository.ExamLogRepository, students *repository.StudentRepository) *ReportService {
	return &ReportService{examLogs: examLogs, students: students}
}

// Get builds the integrity report for one finished session.
func (s *ReportService) Get(ctx context.Context, sessionID string) (model.IntegrityReport, error) {
	examLog, err := s.examLogs.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.IntegrityReport{}, ErrReportNotFound
		}
		return model.IntegrityReport{}, err
	}
	return s.build(ctx, *examLog), nil
}

// ListRecent builds reports for the newest finished sessions.
func (s *ReportService) ListRecent(ctx context.Context, limit int) ([]model.IntegrityReport, error) {
	logs, err := s.examLogs.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	reports := make([]model.IntegrityReport, 0, len(logs))
	for _, examLog := range logs {
		reports = append(reports, s.build(ctx, examLog))
	}
	return reports, nil
}

// FromLog builds a report directly from an in-memory exam log, for
// sessions whose persistence is still in flight.
func (s *ReportService) FromLog(ctx context.Context, examLog model.ExamLog) model.IntegrityReport {
	return s.build(ctx, examLog)
}

func (s *ReportService) build(ctx context.Context, examLog model.ExamLog) model.IntegrityReport {
	report := model.IntegrityReport{
		SessionID:       examLog.SessionID,
		StudentID:       examLog.StudentID,
		ExamDate:        examLog.StartTime,
		DurationSeconds: examLog.ExamDurationSeconds,
		Accuracy:        examLog.Accuracy,
		IntegrityScore:  examLog.IntegrityScore,
		Recommendation:  examLog.Recommendation,
		Flags:           examLog.BehaviorFlags,
	}

	// Name lookup is decoration; the report stands without it.
	if student, err := s.students.GetByStudentID(ctx, examLog.StudentID); err == nil {
		report.StudentName = student.Name
	}
	return report
}
