package fakebackend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/go-medapp/users"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"tokenType"`
	ExpiresIn int64      `json:"expiresIn"`
	User      users.User `json:"user"`
}

type appointment struct {
	ID          uint           `json:"id"`
	DoctorID    uint           `json:"doctorId"`
	PatientID   uint           `json:"patientId"`
	ScheduledAt time.Time      `json:"scheduledAt"`
	DurationMin int            `json:"durationMin"`
	Status      string         `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Doctor      *users.Summary `json:"doctor,omitempty"`
	Patient     *users.Summary `json:"patient,omitempty"`
}

type disease struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

type medicalInfo struct {
	ID        uint           `json:"id"`
	PatientID uint           `json:"patientId"`
	DoctorID  uint           `json:"doctorId"`
	Gender    string         `json:"gender"`
	AgeGroup  string         `json:"ageGroup"`
	Diseases  []disease      `json:"diseases"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Doctor    *users.Summary `json:"doctor,omitempty"`
}

type patient struct {
	ID          uint         `json:"id"`
	FullName    string       `json:"fullName"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	MedicalInfo *medicalInfo `json:"medicalInfo,omitempty"`
}

type video struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	FileURL     string         `json:"fileUrl"`
	Public      bool           `json:"public"`
	CreatedAt   time.Time      `json:"createdAt"`
	Uploader    *users.Summary `json:"uploader,omitempty"`
	size        int64
}

// AddVideo seeds a public video
func (b *Backend) AddVideo(title, fileURL string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videos = append(b.videos, &video{
		ID:        uint(len(b.videos) + 1),
		Title:     title,
		FileURL:   fileURL,
		Public:    true,
		CreatedAt: time.Now().UTC(),
	})
}

// VideoSize reports the number of bytes received for an uploaded video
func (b *Backend) VideoSize(title string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.videos {
		if v.Title == title {
			return v.size
		}
	}
	return -1
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	b.mu.Lock()
	id, ok := b.emails[strings.ToLower(req.Email)]
	var acc *account
	if ok {
		acc = b.accounts[id]
	}
	b.mu.Unlock()

	if acc == nil || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, b.authResponse(acc.user))
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName       string                `json:"fullName"`
		Email          string                `json:"email"`
		Password       string                `json:"password"`
		Phone          string                `json:"phone"`
		Role           string                `json:"role"`
		DoctorProfile  *users.DoctorProfile  `json:"doctorProfile"`
		PatientProfile *users.PatientProfile `json:"patientProfile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FullName == "" || req.Email == "" || len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid registration",
			"errors": map[string]string{"password": "min 6 characters"},
		})
		return
	}
	role := users.Role(strings.ToLower(req.Role))
	if role != users.RoleDoctor && role != users.RolePatient {
		writeError(w, http.StatusBadRequest, "role must be doctor or patient")
		return
	}
	if role == users.RoleDoctor && req.DoctorProfile == nil {
		writeError(w, http.StatusBadRequest, "doctor profile is required for doctor accounts")
		return
	}

	b.mu.Lock()
	_, exists := b.emails[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if exists {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	u := users.User{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		Role:          role,
		DoctorProfile: req.DoctorProfile,
	}
	if role == users.RolePatient {
		u.PatientProfile = req.PatientProfile
		if u.PatientProfile == nil {
			u.PatientProfile = &users.PatientProfile{}
		}
	}
	u = b.AddUser(u, req.Password)
	writeJSON(w, http.StatusCreated, b.authResponse(u))
}

func (b *Backend) authResponse(u users.User) authResponse {
	return authResponse{
		Token:     b.IssueToken(u.ID, u.Role),
		TokenType: "Bearer",
		ExpiresIn: int64(tokenTTL.Seconds()),
		User:      u,
	}
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"user": b.currentUser(r)})
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var c claims
		tok, err := jwtlib.ParseWithClaims(raw, &c, func(*jwtlib.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		b.mu.Lock()
		acc := b.accounts[c.UserID]
		b.mu.Unlock()
		if acc == nil {
			writeError(w, http.StatusUnauthorized, "user not found")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, acc.user)))
	}
}

func (b *Backend) doctorOnly(next http.HandlerFunc) http.HandlerFunc {
	return b.authed(func(w http.ResponseWriter, r *http.Request) {
		if b.currentUser(r).Role != users.RoleDoctor {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}

func (b *Backend) summary(id uint) *users.Summary {
	acc := b.accounts[id]
	if acc == nil {
		return nil
	}
	return &users.Summary{ID: id, FullName: acc.user.FullName, Email: acc.user.Email, Role: acc.user.Role}
}

func (b *Backend) listAppointments(w http.ResponseWriter, r *http.Request) {
	u := b.currentUser(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*appointment, 0)
	for _, a := range b.appointments {
		if u.Role == users.RoleAdmin || a.DoctorID == u.ID || a.PatientID == u.ID {
			out = append(out, a)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createAppointment(w http.ResponseWriter, r *http.Request) {
	u := b.currentUser(r)
	if u.Role != users.RolePatient {
		writeError(w, http.StatusForbidden, "only patients can book appointments")
		return
	}
	var req struct {
		DoctorID    uint   `json:"doctorId"`
		ScheduledAt string `json:"scheduledAt"`
		DurationMin int    `json:"durationMin"`
		Reason      string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DoctorID == 0 {
		writeError(w, http.StatusBadRequest, "doctorId and scheduledAt are required")
		return
	}
	at, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scheduledAt")
		return
	}
	if req.DurationMin == 0 {
		req.DurationMin = 30
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	doc := b.accounts[req.DoctorID]
	if doc == nil || doc.user.Role != users.RoleDoctor {
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	}
	now := time.Now().UTC()
	a := &appointment{
		ID:          uint(len(b.appointments) + 1),
		DoctorID:    req.DoctorID,
		PatientID:   u.ID,
		ScheduledAt: at.UTC(),
		DurationMin: req.DurationMin,
		Status:      "pending",
		Reason:      req.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
		Doctor:      b.summary(req.DoctorID),
		Patient:     b.summary(u.ID),
	}
	b.appointments = append(b.appointments, a)
	writeJSON(w, http.StatusCreated, a)
}

func (b *Backend) updateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	u := b.currentUser(r)
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var req struct {
		Status string  `json:"status"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if id < 1 || id > len(b.appointments) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	a := b.appointments[id-1]
	status := strings.ToLower(req.Status)

	allowed := false
	switch u.Role {
	case users.RoleDoctor:
		allowed = a.DoctorID == u.ID && (status == "confirmed" || status == "completed" || status == "cancelled")
	case users.RolePatient:
		allowed = a.PatientID == u.ID && status == "cancelled"
	case users.RoleAdmin:
		allowed = true
	}
	if !allowed {
		writeError(w, http.StatusBadRequest, "status change not permitted")
		return
	}
	a.Status = status
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	a.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, a)
}

func (b *Backend) usersByRole(role users.Role) []users.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]users.User, 0)
	for _, acc := range b.accounts {
		if acc.user.Role == role {
			out = append(out, acc.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *Backend) listDoctors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.usersByRole(users.RoleDoctor))
}

func (b *Backend) listPatientUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.usersByRole(users.RolePatient))
}

func (b *Backend) listPatients(w http.ResponseWriter, r *http.Request) {
	doctor := b.currentUser(r)
	filter := r.URL.Query().Get("filter")
	if filter == "" {
		filter = "my"
	}
	if filter != "my" && filter != "all" {
		writeError(w, http.StatusBadRequest, "filter must be all or my")
		return
	}

	all := b.usersByRole(users.RolePatient)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]patient, 0, len(all))
	for _, u := range all {
		if filter == "my" && !b.assignments[doctor.ID][u.ID] {
			continue
		}
		out = append(out, patient{
			ID:          u.ID,
			FullName:    u.FullName,
			Email:       u.Email,
			Phone:       u.Phone,
			MedicalInfo: b.medicalInfo[u.ID],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listDiseases(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.diseases)
}

func (b *Backend) assignPatient(w http.ResponseWriter, r *http.Request) {
	doctor := b.currentUser(r)
	var req struct {
		PatientID uint `json:"patientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PatientID == 0 {
		writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accounts[req.PatientID]
	if acc == nil || acc.user.Role != users.RolePatient {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	if b.assignments[doctor.ID][req.PatientID] {
		writeError(w, http.StatusBadRequest, "patient already assigned to this doctor")
		return
	}
	if b.assignments[doctor.ID] == nil {
		b.assignments[doctor.ID] = make(map[uint]bool)
	}
	b.assignments[doctor.ID][req.PatientID] = true
	writeJSON(w, http.StatusCreated, map[string]any{
		"doctorId":  doctor.ID,
		"patientId": req.PatientID,
		"patient":   b.summary(req.PatientID),
		"createdAt": time.Now().UTC(),
	})
}

func (b *Backend) updateMedicalInfo(w http.ResponseWriter, r *http.Request) {
	doctor := b.currentUser(r)
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var req struct {
		Gender     string `json:"gender"`
		AgeGroup   string `json:"ageGroup"`
		DiseaseIDs []uint `json:"diseaseIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Gender == "" || req.AgeGroup == "" {
		writeError(w, http.StatusBadRequest, "gender and ageGroup are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc := b.accounts[uint(id)]
	if acc == nil || acc.user.Role != users.RolePatient {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	selected := make([]disease, 0, len(req.DiseaseIDs))
	for _, d := range b.diseases {
		for _, want := range req.DiseaseIDs {
			if d.ID == want {
				selected = append(selected, d)
			}
		}
	}
	info := &medicalInfo{
		ID:        uint(id),
		PatientID: uint(id),
		DoctorID:  doctor.ID,
		Gender:    req.Gender,
		AgeGroup:  req.AgeGroup,
		Diseases:  selected,
		UpdatedAt: time.Now().UTC(),
		Doctor:    b.summary(doctor.ID),
	}
	b.medicalInfo[uint(id)] = info
	writeJSON(w, http.StatusOK, info)
}

func (b *Backend) listVideos(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*video, 0, len(b.videos))
	for _, v := range b.videos {
		if v.Public {
			out = append(out, v)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) uploadVideo(w http.ResponseWriter, r *http.Request) {
	u := b.currentUser(r)
	if u.Role == users.RolePatient {
		writeError(w, http.StatusForbidden, "only doctors can upload videos")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)

	title := r.FormValue("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	v := &video{
		ID:          uint(len(b.videos) + 1),
		Title:       title,
		Description: r.FormValue("description"),
		FileURL:     "/uploads/" + header.Filename,
		Public:      true,
		CreatedAt:   time.Now().UTC(),
		Uploader:    b.summary(u.ID),
		size:        size,
	}
	b.videos = append(b.videos, v)
	writeJSON(w, http.StatusCreated, v)
}

func (b *Backend) predictSymptoms(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fever    bool `json:"fever"`
		Cough    bool `json:"cough"`
		Headache bool `json:"headache"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, confidence := "No significant illness", 0.9
	switch {
	case req.Fever && req.Cough:
		prediction, confidence = "Likely influenza", 0.82
	case req.Fever || req.Headache:
		prediction, confidence = "Possible common cold", 0.64
	}
	writeJSON(w, http.StatusOK, map[string]any{"prediction": prediction, "confidence": confidence})
}
