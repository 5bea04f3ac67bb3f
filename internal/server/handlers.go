package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PMO-Assistant/Tender-Backend-sub001/internal/domain"
)

const maxRequestBody = 16 << 10

type searchRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

type historyRecord struct {
	SearchID             int64           `json:"searchId"`
	SubjectKey           string          `json:"subjectKey"`
	SubjectName          string          `json:"subjectName"`
	Organization         string          `json:"organization"`
	Candidate            json.RawMessage `json:"candidate"`
	ConfidenceScore      int             `json:"confidenceScore"`
	RegionLabel          string          `json:"regionLabel"`
	OrganizationVerified bool            `json:"organizationVerified"`
	CreatedAt            time.Time       `json:"createdAt"`
}

type historyResponse struct {
	SubjectKey string          `json:"subjectKey"`
	Records    []historyRecord `json:"records"`
}

// searchFailure - провал провайдера: пустой список и объяснение, без догадок.
type searchFailure struct {
	Profiles []domain.CandidateProfile `json:"profiles"`
	Cached   bool                      `json:"cached"`
	Message  string                    `json:"message"`
}

type rateLimitedResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be a JSON object with name and organization")
		return
	}

	subject := domain.SearchSubject{
		Name:         req.Name,
		Organization: req.Organization,
		SubjectKey:   chi.URLParam(r, "subjectKey"),
	}

	resp, err := s.finder.Search(r.Context(), subject)
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}

	if resp.Profiles == nil {
		resp.Profiles = []domain.CandidateProfile{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *domain.RateLimitedError

	switch {
	case domain.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())

	case errors.As(err, &rl):
		seconds := rl.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
			Error:             "rate_limited",
			Message:           "a search for this contact was just made, try again later",
			RetryAfterSeconds: seconds,
		})

	case errors.Is(err, domain.ErrSearchFailed):
		writeJSON(w, http.StatusBadGateway, searchFailure{
			Profiles: []domain.CandidateProfile{},
			Cached:   false,
			Message:  "profile search is temporarily unavailable, no results were returned",
		})

	case r.Context().Err() != nil:
		// клиент ушел, отвечать некому
		s.logger.Debug("client went away", zap.String("request_id", GetRequestID(r.Context())))

	default:
		s.logger.Error("profile search failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	subjectKey := chi.URLParam(r, "subjectKey")

	records, err := s.finder.History(r.Context(), subjectKey)
	if err != nil {
		if domain.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		s.logger.Error("history lookup failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("subject_key", subjectKey),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	out := historyResponse{SubjectKey: subjectKey, Records: make([]historyRecord, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, historyRecord{
			SearchID:             rec.SearchID,
			SubjectKey:           rec.SubjectKey,
			SubjectName:          rec.SubjectName,
			Organization:         rec.Organization,
			Candidate:            json.RawMessage(rec.SerializedCandidate),
			ConfidenceScore:      rec.ConfidenceScore,
			RegionLabel:          rec.RegionLabel,
			OrganizationVerified: rec.OrganizationVerified,
			CreatedAt:            rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
