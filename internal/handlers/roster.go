package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/klurigast/griffel/internal/reconcile"
	"github.com/klurigast/griffel/internal/sheet"
)

func (h *GradeHandler) HandleRosterUpload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	rows, err := sheet.ParseRoster(data)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	result, err := h.engine.SyncRoster(classroomID, rows)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Roster sync for classroom %d: %d ok, %d failed",
		classroomID, len(result.Success), len(result.Failed),
	)
	writeJSON(w, result)
}

func (h *GradeHandler) HandleRosterList(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	roster, err := h.service.Store.ListRoster(classroomID)
	if err != nil {
		logger.Error.Printf("Failed to list roster: %v", err)
		http.Error(w, "Failed to fetch roster", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"rows": roster,
	})
}

func (h *GradeHandler) HandleRosterDownload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	roster, err := h.service.Store.ListRoster(classroomID)
	if err != nil {
		logger.Error.Printf("Failed to list roster: %v", err)
		http.Error(w, "Failed to fetch roster", http.StatusInternalServerError)
		return
	}

	rows := make([]sheet.RosterRow, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, sheet.RosterRow{
			Name:      entry.Name,
			StudentID: entry.StudentID,
			Email:     entry.Email,
		})
	}

	data, err := sheet.WriteRoster(rows)
	if err != nil {
		logger.Error.Printf("Failed to render roster sheet: %v", err)
		http.Error(w, "Failed to render sheet", http.StatusInternalServerError)
		return
	}
	writeXLSX(w, "student_list.xlsx", data)
}

func (h *GradeHandler) HandleRosterRemap(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	var inputs []reconcile.RemapInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.RemapStudentIDs(classroomID, inputs)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Student id remap for classroom %d: %d ok, %d failed",
		classroomID, len(result.Success), len(result.Failed),
	)
	writeJSON(w, result)
}
