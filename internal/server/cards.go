package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/cardmate/internal/common"
	"github.com/joseph-ayodele/cardmate/internal/extract"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type attemptSummary struct {
	Stage             extract.Stage `json:"stage"`
	Lines             int           `json:"lines"`
	AverageConfidence float64       `json:"average_confidence"`
}

func summarize(attempts []extract.Attempt) []attemptSummary {
	out := make([]attemptSummary, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptSummary{Stage: a.Stage, Lines: len(a.Lines), AverageConfidence: a.AverageConfidence})
	}
	return out
}

// handleOCR extracts a contact from the uploaded image without storing it.
func (s *HTTPServer) handleOCR(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	defer cleanup()

	res, err := s.deps.Cards.Preview(r.Context(), path)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     res.Record,
		"attempts": summarize(res.Attempts),
		"text":     res.Text(),
	})
}

func (s *HTTPServer) handleScan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "Missing user")
		return
	}
	path, cleanup, err := s.saveUpload(w, r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	defer cleanup()

	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_duplicates"))
	out, err := s.deps.Cards.Scan(r.Context(), userID, path, cards.ScanOptions{SkipDuplicates: skip})
	if err != nil {
		s.logger.Warn("scan failed", "user_id", userID, "error", err)
		writeServiceErr(w, err)
		return
	}
	code := http.StatusCreated
	if out.Duplicate {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"data":      out.Card,
		"job_id":    out.JobID,
		"duplicate": out.Duplicate,
		"attempts":  summarize(out.Attempts),
	})
}

func parseCardFilter(r *http.Request) (repo.CardFilter, error) {
	q := r.URL.Query()
	f := repo.CardFilter{
		Query: strings.TrimSpace(q.Get("q")),
		Tag:   strings.ToLower(strings.TrimSpace(q.Get("tag"))),
	}
	for key, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: %s must be a non-negative integer", common.ErrInvalidInput, key)
		}
		*dst = n
	}
	return f, nil
}

func (s *HTTPServer) handleListCards(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	f, err := parseCardFilter(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	list, err := s.deps.Cards.List(r.Context(), userID, f)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list, "count": len(list)})
}

func (s *HTTPServer) handleGetCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	card, err := s.deps.Cards.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": card})
}

func (s *HTTPServer) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxJSONBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	card, err := s.deps.Cards.Update(r.Context(), userID, id, raw)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": card})
}

func (s *HTTPServer) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if err := s.deps.Cards.Delete(r.Context(), userID, id); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Card deleted successfully"})
}

func (s *HTTPServer) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	if err := s.deps.Cards.SetOwner(r.Context(), userID, id); err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Card set as owner"})
}

func (s *HTTPServer) handleClearCards(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	n, err := s.deps.Cards.Clear(r.Context(), userID)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "All your cards cleared successfully", "deleted": n})
}

func (s *HTTPServer) handleCardVCard(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	text, err := s.deps.Cards.VCard(r.Context(), userID, id)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+".vcf"))
	_, _ = io.WriteString(w, text)
}

func (s *HTTPServer) handleCardQR(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		if size, err = strconv.Atoi(v); err != nil {
			writeErr(w, http.StatusBadRequest, "validation_failed", "size must be an integer")
			return
		}
	}
	png, err := s.deps.Cards.QRCode(r.Context(), userID, id, size)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *HTTPServer) handleExportCards(w http.ResponseWriter, r *http.Request) {
	userID, _ := currentUser(r)
	f, err := parseCardFilter(r)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	data, err := s.deps.Export.ExportCardsXLSX(r.Context(), userID, f)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="cards.xlsx"`)
	_, _ = w.Write(data)
}
