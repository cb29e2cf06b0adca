package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// FakeFlowAPI is an in-process Flow API backed by httptest.
// Configure the exported fields before issuing requests.
type FakeFlowAPI struct {
	Server *httptest.Server

	// Token is required as a bearer credential on every request but /login.
	Token      string
	Samples    map[string][]model.Sample
	Executions map[string]*model.PrepExecution
	// Versions maps pipeline id to version label to version id.
	Versions map[string]map[string]string
	// FailSubmission makes the n-th submission (1-based) answer 500.
	FailSubmission map[int]bool

	mu          sync.Mutex
	PageCalls   []int
	Submissions []SubmittedRun
}

// SubmittedRun is one request received on the run endpoint.
type SubmittedRun struct {
	VersionID string
	Request   model.ExecutionRequest
}

// NewFakeFlowAPI starts the server and registers its shutdown with t.
func NewFakeFlowAPI(t testing.TB) *FakeFlowAPI {
	f := &FakeFlowAPI{
		Token:          "test-token",
		Samples:        map[string][]model.Sample{},
		Executions:     map[string]*model.PrepExecution{},
		Versions:       map[string]map[string]string{},
		FailSubmission: map[int]bool{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the server.
func (f *FakeFlowAPI) URL() string {
	return f.Server.URL
}

// SubmissionCount returns how many runs were posted.
func (f *FakeFlowAPI) SubmissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submissions)
}

func (f *FakeFlowAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	if path == "login" && r.Method == http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"token": f.Token})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	switch {
	case len(parts) == 2 && parts[0] == "executions" && r.Method == http.MethodGet:
		ex, ok := f.Executions[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "execution not found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(EncodeExecution(ex))

	case len(parts) == 3 && parts[0] == "projects" && parts[2] == "samples" && r.Method == http.MethodGet:
		f.serveSamples(w, r, parts[1])

	case len(parts) == 2 && parts[0] == "pipelines" && r.Method == http.MethodGet:
		var versions []map[string]string
		for label, id := range f.Versions[parts[1]] {
			versions = append(versions, map[string]string{"id": id, "name": label})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})

	case len(parts) == 4 && parts[0] == "pipelines" && parts[1] == "versions" && parts[3] == "run" && r.Method == http.MethodPost:
		f.serveRun(w, r, parts[2])

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no route for " + r.URL.Path})
	}
}

func (f *FakeFlowAPI) serveSamples(w http.ResponseWriter, r *http.Request, project string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	f.mu.Lock()
	f.PageCalls = append(f.PageCalls, page)
	f.mu.Unlock()

	all := f.Samples[project]
	start := (page - 1) * count
	if page < 1 || count < 1 || start >= len(all) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"samples": []interface{}{}})
		return
	}
	end := start + count
	if end > len(all) {
		end = len(all)
	}
	records := make([]map[string]interface{}, 0, end-start)
	for _, s := range all[start:end] {
		records = append(records, map[string]interface{}{"id": s.ID, "name": s.Name})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"samples": records})
}

func (f *FakeFlowAPI) serveRun(w http.ResponseWriter, r *http.Request, versionID string) {
	var req model.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	f.Submissions = append(f.Submissions, SubmittedRun{VersionID: versionID, Request: req})
	n := len(f.Submissions)
	f.mu.Unlock()

	if f.FailSubmission[n] {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "scheduler unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": 9000 + n})
}

// EncodeExecution renders an execution the way the API does, keeping the
// order of data_params.
func EncodeExecution(ex *model.PrepExecution) []byte {
	var b bytes.Buffer
	b.WriteString(`{"id":`)
	mustEncode(&b, ex.ID.String())
	b.WriteString(`,"data_params":{`)
	for i, p := range ex.DataParams {
		if i > 0 {
			b.WriteByte(',')
		}
		mustEncode(&b, p.Name)
		b.WriteByte(':')
		if len(p.Files) == 1 {
			mustEncode(&b, p.Files[0])
		} else {
			mustEncode(&b, p.Files)
		}
	}
	b.WriteString(`},"process_executions":`)
	procs := ex.ProcessExecutions
	if procs == nil {
		procs = []model.ProcessExecution{}
	}
	mustEncode(&b, procs)
	b.WriteString(`,"fileset":`)
	mustEncode(&b, ex.Fileset)
	b.WriteByte('}')
	return b.Bytes()
}

func mustEncode(b *bytes.Buffer, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("encode %T: %v", v, err))
	}
	b.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
