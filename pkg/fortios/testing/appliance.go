package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/cmon-dev/cmon/pkg/fortios"
)

// ProcessEntry is one row of a scripted running-processes payload.
type ProcessEntry struct {
	PID           int
	Name          string
	MemoryBytes   int64
	MemoryPercent *float64
	CPUTicks      int64
}

// Appliance simulates the FortiOS monitor API over httptest.
// Requests must carry "Authorization: Bearer <APIKey>" or get a 401.
type Appliance struct {
	Server *httptest.Server
	APIKey string

	mu          sync.Mutex
	statusBody  string
	processBody string
	statusCode  int
	latency     time.Duration
	requests    map[string]int
}

// NewAppliance starts a fake appliance with a healthy default payload:
// 10% CPU and 50% of 8 GiB memory with three processes.
func NewAppliance(apiKey string) *Appliance {
	a := &Appliance{
		APIKey:     apiKey,
		statusCode: http.StatusOK,
		requests:   make(map[string]int),
	}
	a.statusBody = StatusPayload(90, 4<<30, 8<<30)
	a.processBody = ProcessPayload(
		ProcessEntry{PID: 1, Name: "init", MemoryBytes: 1 << 20},
		ProcessEntry{PID: 210, Name: "/bin/ipsengine", MemoryBytes: 300 << 20},
		ProcessEntry{PID: 180, Name: "cmdbsvr", MemoryBytes: 120 << 20},
	)

	mux := http.NewServeMux()
	mux.HandleFunc(fortios.PerformanceStatusPath, a.handler(func() string { return a.statusBody }))
	mux.HandleFunc(fortios.RunningProcessesPath, a.handler(func() string { return a.processBody }))
	a.Server = httptest.NewServer(mux)
	return a
}

func (a *Appliance) handler(body func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.requests[r.URL.Path]++
		latency := a.latency
		code := a.statusCode
		payload := body()
		a.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}

		if r.Header.Get("Authorization") != "Bearer "+a.APIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"error","http_status":401}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(payload))
	}
}

// URL returns the base URL to configure as the device host.
func (a *Appliance) URL() string {
	return a.Server.URL
}

// Close shuts the server down.
func (a *Appliance) Close() {
	a.Server.Close()
}

// SetStatusBody replaces the performance/status payload.
func (a *Appliance) SetStatusBody(body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusBody = body
}

// SetProcessBody replaces the running-processes payload.
func (a *Appliance) SetProcessBody(body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processBody = body
}

// SetStatusCode makes both endpoints answer with code.
func (a *Appliance) SetStatusCode(code int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statusCode = code
}

// SetLatency delays every response by d.
func (a *Appliance) SetLatency(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = d
}

// Requests returns how many requests hit path.
func (a *Appliance) Requests(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[path]
}

// StatusPayload builds a performance/status body in the appliance's shape.
func StatusPayload(cpuIdle float64, usedBytes, totalBytes int64) string {
	payload := map[string]interface{}{
		"http_method": "GET",
		"status":      "success",
		"http_status": 200,
		"results": map[string]interface{}{
			"cpu": map[string]interface{}{
				"idle":  cpuIdle,
				"cores": []map[string]float64{{"idle": cpuIdle}, {"idle": cpuIdle}},
			},
			"mem": map[string]int64{
				"used":  usedBytes,
				"total": totalBytes,
			},
		},
	}
	return mustJSON(payload)
}

// ProcessPayload builds a running-processes body.
func ProcessPayload(entries ...ProcessEntry) string {
	list := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		row := map[string]interface{}{
			"pid":       e.PID,
			"name":      e.Name,
			"pss":       e.MemoryBytes,
			"cpu_usage": map[string]int64{"user": e.CPUTicks, "kernel": 0},
		}
		if e.MemoryPercent != nil {
			row["memory_percent"] = *e.MemoryPercent
		}
		list = append(list, row)
	}
	return mustJSON(map[string]interface{}{
		"status":      "success",
		"http_status": 200,
		"results":     map[string]interface{}{"processes": list},
	})
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal fake payload: %v", err))
	}
	return string(data)
}
