package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/seedlane/outreach/internal/infra/importer"
)

// ImportHandler carrega uma planilha de leads já presente no disco do
// servidor (volume compartilhado com o exportador de planilhas).
type ImportHandler struct {
	excel *importer.ExcelImporter
}

func NewImportHandler(excel *importer.ExcelImporter) *ImportHandler {
	return &ImportHandler{excel: excel}
}

type ImportFileRequest struct {
	Path string `json:"path"`
}

func (h *ImportHandler) HandleImportFile(w http.ResponseWriter, r *http.Request) {
	var req ImportFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}

	result, err := h.excel.ImportFile(r.Context(), req.Path)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
