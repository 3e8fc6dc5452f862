package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/castgraph/pkg/dataset"
	"github.com/matzehuels/castgraph/pkg/errors"
)

// PathRequest is the body of a shortest-path query.
type PathRequest struct {
	Start string `json:"start" validate:"required,max=256"`
	End   string `json:"end" validate:"required,max=256"`
}

func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dataset().Network())
}

func (s *Server) initial(w http.ResponseWriter, r *http.Request) {
	g, err := s.Dataset().Init(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) expand(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dataset().Expand(chi.URLParam(r, "id")))
}

func (s *Server) characters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dataset().Names())
}

func (s *Server) allNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dataset().Nodes())
}

func (s *Server) allLinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dataset().Links())
}

func (s *Server) shortestPath(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	p, err := s.Dataset().ShortestPath(strings.TrimSpace(req.Start), strings.TrimSpace(req.End))
	switch {
	case stderrors.Is(err, dataset.ErrUnknownCharacter), stderrors.Is(err, dataset.ErrNoPath):
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.logger.Error("shortest path", "start", req.Start, "end", req.End, "error", err)
		writeDetail(w, http.StatusInternalServerError, errors.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, e.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
