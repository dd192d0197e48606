package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/couchcryptid/weather-type-service/internal/form"
	"github.com/couchcryptid/weather-type-service/internal/session"
)

const maxBodyBytes = 64 << 10

type sessionResponse struct {
	ID    string            `json:"id"`
	State domain.InputState `json:"state"`
}

type predictionResponse struct {
	Code    int    `json:"code"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.forms.Options())
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.forms.Presets())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, state, err := s.forms.NewSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+id)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: state})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := s.forms.State(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: state})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch domain.InputPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	id := r.PathValue("id")
	state, err := s.forms.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: state})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.forms.EndSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectPreset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	state, err := s.forms.SelectPreset(r.Context(), id, r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: state})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p, err := s.forms.Predict(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{
		Code:    p.Code,
		Label:   p.Label,
		Message: "Предсказанный тип погоды: " + p.Label,
	})
}

// writeError maps service errors onto status codes. Internal failures are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation      *domain.ValidationError
		unknownCategory *domain.UnknownCategoryError
	)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, form.ErrUnknownPreset):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Fields: problemFields(validation),
		})
	case errors.As(err, &unknownCategory):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Fields: []string{unknownCategory.Field},
		})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func problemFields(v *domain.ValidationError) []string {
	fields := make([]string, 0, len(v.Problems))
	for _, p := range v.Problems {
		var (
			oor     *domain.OutOfRangeError
			unknown *domain.UnknownCategoryError
		)
		switch {
		case errors.As(p, &oor):
			fields = append(fields, oor.Field)
		case errors.As(p, &unknown):
			fields = append(fields, unknown.Field)
		}
	}
	return fields
}
