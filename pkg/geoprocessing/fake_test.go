package geoprocessing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"yqhp/geoanalysis/common/utils"
)

const testServiceURL = "https://analysis.example.com/arcgis/rest/services/tasks/GPServer"

type fakeResponse struct {
	body string
	err  error
}

type fakeCall struct {
	url    string
	params map[string]any
}

// fakeConn answers each URL from a queue of scripted responses. The last
// response of a queue repeats.
type fakeConn struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	calls     []fakeCall
}

func newFakeConn() *fakeConn {
	return &fakeConn{responses: make(map[string][]fakeResponse)}
}

func (f *fakeConn) on(url string, bodies ...string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bodies {
		f.responses[url] = append(f.responses[url], fakeResponse{body: b})
	}
	return f
}

func (f *fakeConn) fail(url string, err error) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = append(f.responses[url], fakeResponse{err: err})
	return f
}

func (f *fakeConn) Post(ctx context.Context, url string, params map[string]any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fakeCall{url: url, params: params})
	if err := ctx.Err(); err != nil {
		return err
	}

	q := f.responses[url]
	if len(q) == 0 {
		return fmt.Errorf("unexpected request to %s", url)
	}
	r := q[0]
	if len(q) > 1 {
		f.responses[url] = q[1:]
	}
	if r.err != nil {
		return r.err
	}
	if out == nil {
		return nil
	}
	return utils.Unmarshal([]byte(r.body), out)
}

func (f *fakeConn) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.url == url {
			n++
		}
	}
	return n
}

func (f *fakeConn) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func testHandle(task, jobID string) JobHandle {
	return JobHandle{
		InvocationID: "inv-1",
		Task:         task,
		TaskURL:      testServiceURL + "/" + task,
		JobID:        jobID,
	}
}
