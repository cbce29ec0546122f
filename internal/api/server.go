// Package api is the pipeline's front door: it accepts submissions and
// exposes job status lookups. Submissions are acknowledged immediately;
// the caller learns about the outcome by email.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/titledoctor/pipeline-service/internal/domain/port"
	"github.com/titledoctor/pipeline-service/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router *mux.Router
	submit *usecase.SubmitUseCase
	repo   port.JobRepository
	logger *zap.Logger
}

func NewServer(submit *usecase.SubmitUseCase, repo port.JobRepository, logger *zap.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		submit: submit,
		repo:   repo,
		logger: logger,
	}
	s.router.HandleFunc("/submit", s.handleSubmit).Methods(http.MethodPost)
	s.router.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type submitRequest struct {
	Channel string `json:"channel"`
	Email   string `json:"email"`
}

type submitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	job, err := s.submit.Execute(r.Context(), req.Channel, req.Email)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
			return
		}
		s.logger.Error("submission failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		JobID:   job.ID.String(),
		Message: "Your request has been queued; you will get an email with improved title suggestions for your videos.",
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid job id"})
		return
	}

	job, err := s.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, port.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
			return
		}
		s.logger.Error("job lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
