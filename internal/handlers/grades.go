package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/klurigast/griffel/internal/reconcile"
	"github.com/klurigast/griffel/internal/sheet"
)

func (h *GradeHandler) HandleCompositionList(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	if _, ok := h.identify(w, r); !ok {
		return
	}

	comps, err := h.service.Store.ListCompositions(classroomID)
	if err != nil {
		logger.Error.Printf("Failed to list compositions: %v", err)
		http.Error(w, "Failed to fetch compositions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"rows": comps,
	})
}

func (h *GradeHandler) HandleCompositionEdit(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	userID, ok := h.requireTeacher(w, r, classroomID)
	if !ok {
		return
	}

	var inputs []reconcile.CompositionInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comps, err := h.engine.EditCompositions(classroomID, userID, inputs)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Composition edit for classroom %d by member %d: %d compositions",
		classroomID, userID, len(comps),
	)
	writeJSON(w, map[string]interface{}{
		"rows": comps,
	})
}

func (h *GradeHandler) HandleGradesUpload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	compositionID, ok := h.compositionID(w, r)
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
	rows, err := sheet.ParseGrades(data)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	result, err := h.engine.SyncGradesForComposition(classroomID, compositionID, rows)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	logger.Info.Printf(
		"Grade sync for classroom %d composition %d: %d ok, %d failed",
		classroomID, compositionID, len(result.Success), len(result.Failed),
	)
	writeJSON(w, result)
}

func (h *GradeHandler) HandleGradesList(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	compositionID, ok := h.compositionID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	grades, err := h.service.Store.ListCompositionGrades(classroomID, compositionID)
	if err != nil {
		logger.Error.Printf("Failed to list grades: %v", err)
		http.Error(w, "Failed to fetch grades", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"rows": grades,
	})
}

func (h *GradeHandler) HandleGradesDownload(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	compositionID, ok := h.compositionID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	grades, err := h.service.Store.ListCompositionGrades(classroomID, compositionID)
	if err != nil {
		logger.Error.Printf("Failed to list grades: %v", err)
		http.Error(w, "Failed to fetch grades", http.StatusInternalServerError)
		return
	}
	roster, err := h.service.Store.ListRoster(classroomID)
	if err != nil {
		logger.Error.Printf("Failed to list roster: %v", err)
		http.Error(w, "Failed to fetch roster", http.StatusInternalServerError)
		return
	}

	type identity struct{ name, email string }
	who := make(map[string]identity, len(roster))
	for _, entry := range roster {
		who[entry.StudentID] = identity{entry.Name, entry.Email}
	}

	rows := make([]sheet.GradeRow, 0, len(grades))
	for _, g := range grades {
		id := who[g.StudentID]
		rows = append(rows, sheet.GradeRow{
			Name:      id.name,
			StudentID: g.StudentID,
			Email:     id.email,
			Grade:     strconv.FormatFloat(g.Grade, 'f', -1, 64),
		})
	}

	data, err := sheet.WriteGrades(rows)
	if err != nil {
		logger.Error.Printf("Failed to render grade sheet: %v", err)
		http.Error(w, "Failed to render sheet", http.StatusInternalServerError)
		return
	}
	writeXLSX(w, "grade_list.xlsx", data)
}

func (h *GradeHandler) HandleGradesEdit(w http.ResponseWriter, r *http.Request) {
	classroomID, ok := h.classroomID(w, r)
	if !ok {
		return
	}
	compositionID, ok := h.compositionID(w, r)
	if !ok {
		return
	}
	if _, ok := h.requireTeacher(w, r, classroomID); !ok {
		return
	}

	var inputs []reconcile.GradeInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.EditGrades(classroomID, compositionID, inputs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, result)
}
