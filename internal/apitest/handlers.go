package apitest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/trademate-dev/trademate/pkg/models"
)

type authRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[req.Username]
	if !ok || acct.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.issueLocked(req.Username)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[req.Username]; taken {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	s.users[req.Username] = account{email: req.Email, password: req.Password}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.issueLocked(req.Username)})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.sortedClientsLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextIDLocked()
	c.CreatedAt = models.NewLocalTime(s.now())
	s.clients[c.ID] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[id]
	if !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt
	s.clients[id] = c
	// jobs embed the client
	for jid, j := range s.jobs {
		if j.Client != nil && j.Client.ID == id {
			j.Client = models.ForClient(c)
			s.jobs[jid] = j
		}
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	delete(s.clients, id)
	for jid, j := range s.jobs {
		if j.Client != nil && j.Client.ID == id {
			j.Client = nil
			s.jobs[jid] = j
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.sortedJobsLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// jobRequest is the write shape: the client is referenced by id.
type jobRequest struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Status        models.Status     `json:"status"`
	ScheduledDate *models.LocalTime `json:"scheduledDate"`
	Address       string            `json:"address"`
	Notes         string            `json:"notes"`
	Client        *struct {
		ID int64 `json:"id"`
	} `json:"client"`
}

// toJob resolves the request against the stored clients. It returns a
// message when the request is not acceptable.
func (s *Server) toJobLocked(req jobRequest) (models.Job, string) {
	if strings.TrimSpace(req.Title) == "" {
		return models.Job{}, "title is required"
	}
	if !req.Status.IsValid() {
		return models.Job{}, "invalid status"
	}
	j := models.Job{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		ScheduledDate: req.ScheduledDate,
		Address:       req.Address,
		Notes:         req.Notes,
	}
	if req.Client != nil {
		c, ok := s.clients[req.Client.ID]
		if !ok {
			return models.Job{}, "client not found"
		}
		j.Client = models.ForClient(c)
	}
	return j, ""
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, msg := s.toJobLocked(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	j.ID = s.nextIDLocked()
	now := models.NewLocalTime(s.now())
	j.CreatedAt, j.UpdatedAt = now, now
	s.jobs[j.ID] = j
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[id]
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	j, msg := s.toJobLocked(req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	j.ID = id
	j.CreatedAt = existing.CreatedAt
	j.UpdatedAt = models.NewLocalTime(s.now())
	s.jobs[id] = j
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	delete(s.jobs, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	stats := models.DashboardStats{TodayJobs: []models.Job{}}
	for _, j := range s.sortedJobsLocked() {
		stats.TotalJobs++
		switch j.DisplayStatus() {
		case models.StatusPending:
			stats.PendingJobs++
		case models.StatusCompleted:
			stats.CompletedJobs++
		}
		if j.ScheduledDate != nil && j.ScheduledDate.SameDay(now) {
			stats.TodayJobs = append(stats.TodayJobs, j)
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
