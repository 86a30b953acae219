package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/classpulse/interaction-service/internal/models"
	"github.com/classpulse/interaction-service/internal/repositories"
)

// ===== ROSTER IMPORT =====

// RosterEntry is one row of an enrollment roster. Username is required;
// unknown usernames create a new student account on the fly.
type RosterEntry struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	StudentNumber string `json:"student_number"`
}

type RosterImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type RosterImportResult struct {
	TotalRows       int                 `json:"total_rows"`
	CreatedUsers    int                 `json:"created_users"`
	EnrolledCount   int                 `json:"enrolled_count"`
	AlreadyEnrolled int                 `json:"already_enrolled"`
	ErrorCount      int                 `json:"error_count"`
	Errors          []RosterImportError `json:"errors,omitempty"`
}

func (s *courseService) ImportRoster(ctx context.Context, courseID uint, entries []RosterEntry, actorID uint) (_ *RosterImportResult, err error) {
	timer := s.opLogger.StartOperation("course.import_roster", actorID, courseID, "enrollment")
	defer func() { timer.End(ctx, err) }()

	if err = s.requireOwner(ctx, courseID, actorID, "import_roster"); err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, NewValidationError("entries", "roster must contain at least one row", nil)
	}

	txRepo, err := s.repo.(repositories.TransactionRepository).Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			txRepo.(repositories.TransactionRepository).Rollback(ctx)
		}
	}()

	result := &RosterImportResult{TotalRows: len(entries)}

	for i, entry := range entries {
		row := i + 1
		username := strings.TrimSpace(entry.Username)
		if username == "" {
			result.Errors = append(result.Errors, RosterImportError{Row: row, Field: "username", Message: "username is required"})
			continue
		}

		student, lookupErr := s.findOrCreateStudent(ctx, txRepo, entry, username)
		if lookupErr != nil {
			result.Errors = append(result.Errors, RosterImportError{Row: row, Field: "username", Message: lookupErr.Error()})
			continue
		}
		if student.created {
			result.CreatedUsers++
		}

		enrolled, checkErr := txRepo.Enrollment().IsEnrolled(ctx, courseID, student.user.ID)
		if checkErr != nil {
			err = fmt.Errorf("failed to check enrollment: %w", checkErr)
			return nil, err
		}
		if enrolled {
			result.AlreadyEnrolled++
			continue
		}

		enrollment := &models.Enrollment{CourseID: courseID, StudentID: student.user.ID}
		if createErr := txRepo.Enrollment().Create(ctx, enrollment); createErr != nil {
			err = fmt.Errorf("failed to enroll student %q: %w", username, createErr)
			return nil, err
		}
		result.EnrolledCount++
	}

	result.ErrorCount = len(result.Errors)

	if err = txRepo.(repositories.TransactionRepository).Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Roster imported",
		"course_id", courseID,
		"total", result.TotalRows,
		"enrolled", result.EnrolledCount,
		"created_users", result.CreatedUsers,
		"errors", result.ErrorCount)
	return result, nil
}

func (s *courseService) ImportRosterFromFile(ctx context.Context, courseID uint, file io.Reader, filename string, actorID uint) (*RosterImportResult, error) {
	s.logger.Info("Starting roster file import", "filename", filename, "course_id", courseID)

	var (
		entries []RosterEntry
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		entries, err = parseRosterCSV(file)
	case ".xlsx", ".xls":
		entries, err = parseRosterExcel(file)
	default:
		return nil, NewValidationError("file", "unsupported file format", ext)
	}
	if err != nil {
		return nil, err
	}

	return s.ImportRoster(ctx, courseID, entries, actorID)
}

type resolvedStudent struct {
	user    *models.User
	created bool
}

// findOrCreateStudent resolves a roster row to a user, creating a student
// account when the username is unknown. Existing non-student accounts are
// rejected rather than silently enrolled.
func (s *courseService) findOrCreateStudent(ctx context.Context, repo repositories.Repository, entry RosterEntry, username string) (*resolvedStudent, error) {
	user, err := repo.User().GetByUsername(ctx, username)
	if err == nil {
		if user.Role != models.RoleStudent {
			return nil, fmt.Errorf("user %q is not a student", username)
		}
		return &resolvedStudent{user: user}, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &models.User{
		Username: username,
		Role:     models.RoleStudent,
	}
	if email := strings.TrimSpace(entry.Email); email != "" {
		user.Email = &email
	}
	if number := strings.TrimSpace(entry.StudentNumber); number != "" {
		user.StudentNumber = &number
	}

	if err := repo.User().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &resolvedStudent{user: user, created: true}, nil
}

// ===== FILE PARSING =====

func parseRosterCSV(reader io.Reader) ([]RosterEntry, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rosterRowsToEntries(records)
}

func parseRosterExcel(reader io.Reader) ([]RosterEntry, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rosterRowsToEntries(rows)
}

func rosterRowsToEntries(rows [][]string) ([]RosterEntry, error) {
	if len(rows) < 2 {
		return nil, NewValidationError("file", "roster must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	if _, ok := headerMap["username"]; !ok {
		return nil, NewValidationError("headers", "missing required column: username", nil)
	}

	cell := func(row []string, column string) string {
		idx, ok := headerMap[column]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	entries := make([]RosterEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entries = append(entries, RosterEntry{
			Username:      cell(row, "username"),
			Email:         cell(row, "email"),
			StudentNumber: cell(row, "student_number"),
		})
	}
	return entries, nil
}
