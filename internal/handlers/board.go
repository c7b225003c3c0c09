package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/klurigast/griffel/internal/reconcile"
	"github.com/klurigast/griffel/internal/sheet"
)

func (h *GradeHandler) HandleBoardUpload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	names, ok := h.compositionNames(w, classroomID)
	if !ok {
		return
	}

	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	rows, err := sheet.ParseBoard(data, names)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	result, err := h.engine.SyncGradeBoard(classroomID, rows)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Board sync for classroom %d: %d ok, %d failed",
		classroomID, len(result.Success), len(result.Failed),
	)
	writeJSON(w, result)
}

func (h *GradeHandler) HandleBoardView(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	rows, err := h.engine.GradeBoard(classroomID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"rows": rows,
	})
}

// HandleBoardMe serves the caller's own board row, finalized grades only.
// The caller's roster identity is the email passed as a query parameter and
// must belong to a student member.
func (h *GradeHandler) HandleBoardMe(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	student, err := h.service.IsStudent(classroomID, userID)
	if err != nil {
		logger.Error.Printf("Role lookup failed: %v", err)
		http.Error(w, "Failed to check permissions", http.StatusInternalServerError)
		return
	}
	if !student {
		http.Error(w, "Student role required", http.StatusForbidden)
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "Missing email query parameter", http.StatusBadRequest)
		return
	}

	row, err := h.engine.StudentGradeBoard(classroomID, email)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, row)
}

func (h *GradeHandler) HandleBoardDownload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	names, ok := h.compositionNames(w, classroomID)
	if !ok {
		return
	}

	board, err := h.engine.GradeBoard(classroomID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	rows := make([]sheet.BoardRow, 0, len(board))
	for _, row := range board {
		cells := make(map[string]string, len(row.Grades))
		for _, cell := range row.Grades {
			if cell.Grade != nil {
				cells[cell.Name] = strconv.FormatFloat(*cell.Grade, 'f', -1, 64)
			}
		}
		rows = append(rows, sheet.BoardRow{
			Name:      row.Name,
			StudentID: row.StudentID,
			Email:     row.Email,
			Grades:    cells,
		})
	}

	data, err := sheet.WriteBoard(rows, names)
	if err != nil {
		logger.Error.Printf("Failed to render board sheet: %v", err)
		http.Error(w, "Failed to render sheet", http.StatusInternalServerError)
		return
	}
	writeXLSX(w, "grade_board.xlsx", data)
}

func (h *GradeHandler) HandleReviewCreate(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	userID, ok := h.identify(w, r)
	if !ok {
		return
	}
	student, err := h.service.IsStudent(classroomID, userID)
	if err != nil {
		logger.Error.Printf("Role lookup failed: %v", err)
		http.Error(w, "Failed to check permissions", http.StatusInternalServerError)
		return
	}
	if !student {
		http.Error(w, "Student role required", http.StatusForbidden)
		return
	}

	var input reconcile.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	review, err := h.engine.CreateGradeReview(classroomID, userID, input)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Grade review filed for classroom %d composition %d by member %d",
		classroomID, input.GradeCategory, userID,
	)
	writeJSON(w, review)
}

func (h *GradeHandler) compositionNames(w http.ResponseWriter, classroomID int64) ([]string, bool) {
	comps, err := h.service.Store.ListCompositions(classroomID)
	if err != nil {
		logger.Error.Printf("Failed to list compositions: %v", err)
		http.Error(w, "Failed to fetch compositions", http.StatusInternalServerError)
		return nil, false
	}
	names := make([]string, 0, len(comps))
	for _, comp := range comps {
		names = append(names, comp.Name)
	}
	return names, true
}
