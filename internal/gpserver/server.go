// Package gpserver is a scripted geoprocessing job server used by tests. It
// speaks the submitJob, job status and result parameter endpoints over a Fiber
// app hosted on httptest.
package gpserver

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"yqhp/geoanalysis/common/utils"
	"yqhp/geoanalysis/pkg/types"
)

// Job scripts one server-side job.
type Job struct {
	// ID is the job id handed out by submitJob. Empty means generated.
	ID string

	// OmitJobID makes submitJob answer without a job id.
	OmitJobID bool

	// Snapshots are served one per status poll; the last one repeats.
	Snapshots []types.JobSnapshot

	// Values maps a paramUrl to the value served for it.
	Values map[string]any

	// Failures maps a paramUrl to an HTTP status served instead of the value.
	Failures map[string]int
}

type jobState struct {
	job     Job
	polls   int
	fetches map[string]int
}

// Server is a fake geoprocessing service.
type Server struct {
	URL string

	mu      sync.Mutex
	queued  map[string][]Job
	jobs    map[string]*jobState
	forms   map[string][]map[string]string
	counter int
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		queued: make(map[string][]Job),
		jobs:   make(map[string]*jobState),
		forms:  make(map[string][]map[string]string),
	}

	// route params become map keys and must outlive the request buffer
	app := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		JSONEncoder:           utils.Marshal,
		JSONDecoder:           utils.Unmarshal,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Post("/:task/submitJob", s.submit)
	app.Post("/:task/jobs/:job", s.status)
	app.Post("/:task/jobs/:job/*", s.result)

	server := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(server.Close)

	s.URL = server.URL
	return s
}

// Enqueue scripts the job started by the next submission of task.
func (s *Server) Enqueue(task string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[task] = append(s.queued[task], job)
}

// Submissions returns the form fields of every submission of task.
func (s *Server) Submissions(task string) []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.forms[task]...)
}

// Polls returns how many status requests a job received.
func (s *Server) Polls(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.jobs[jobID]; ok {
		return st.polls
	}
	return 0
}

// Fetches returns how many times a job's output parameter was requested.
func (s *Server) Fetches(jobID, paramURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.jobs[jobID]; ok {
		return st.fetches[paramURL]
	}
	return 0
}

func (s *Server) submit(c *fiber.Ctx) error {
	task := c.Params("task")

	form := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		form[string(k)] = string(v)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.forms[task] = append(s.forms[task], form)

	queue := s.queued[task]
	if len(queue) == 0 {
		return c.JSON(fiber.Map{"error": fiber.Map{
			"code":    400,
			"message": fmt.Sprintf("no job scripted for task %s", task),
		}})
	}
	job := queue[0]
	s.queued[task] = queue[1:]

	if job.OmitJobID {
		return c.JSON(fiber.Map{"jobStatus": types.JobStatusSubmitted})
	}

	if job.ID == "" {
		s.counter++
		job.ID = fmt.Sprintf("j%d", s.counter)
	}
	s.jobs[job.ID] = &jobState{job: job, fetches: make(map[string]int)}

	return c.JSON(fiber.Map{"jobId": job.ID, "jobStatus": types.JobStatusSubmitted})
}

func (s *Server) status(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[c.Params("job")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fiber.Map{"code": 404, "message": "job not found"}})
	}

	st.polls++
	snaps := st.job.Snapshots
	if len(snaps) == 0 {
		return c.JSON(fiber.Map{"jobId": st.job.ID})
	}
	idx := st.polls - 1
	if idx >= len(snaps) {
		idx = len(snaps) - 1
	}
	snap := snaps[idx]
	snap.JobID = st.job.ID
	return c.JSON(snap)
}

func (s *Server) result(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.jobs[c.Params("job")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fiber.Map{"code": 404, "message": "job not found"}})
	}

	param := strings.TrimPrefix(c.Params("*"), "/")
	st.fetches[param]++

	if code, ok := st.job.Failures[param]; ok {
		return c.SendStatus(code)
	}
	v, ok := st.job.Values[param]
	if !ok {
		return c.JSON(fiber.Map{"paramName": param})
	}
	return c.JSON(fiber.Map{"paramName": param, "value": v})
}
