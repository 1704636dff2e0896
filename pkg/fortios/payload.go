package fortios

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
)

// kibThreshold: totals below this are reported in KiB rather than bytes.
const kibThreshold = 100_000_000

// PerformanceStatus is the fixed-shape view of performance/status.
type PerformanceStatus struct {
	CPUPercent       float64
	Cores            int
	MemoryPercent    float64
	MemoryUsedBytes  int64
	MemoryTotalBytes int64 // 0 when the appliance only reported a percentage
}

// Process is the fixed-shape view of one running-processes entry.
type Process struct {
	PID  int
	Name string

	// CPUPercent is set when the appliance reports a ready-made percentage.
	CPUPercent *float64
	// CPUTicks is the cumulative user+kernel tick count, when reported.
	CPUTicks int64
	HasTicks bool

	MemoryBytes int64
	// MemoryPercent is the appliance's own percentage, nil if absent.
	MemoryPercent *float64
}

// envelope is the common FortiOS response wrapper.
type envelope struct {
	Results    json.RawMessage `json:"results"`
	Status     string          `json:"status"`
	HTTPStatus int             `json:"http_status"`
}

// decodeEnvelope checks the wrapper and returns the results payload.
func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	if env.Status == "error" {
		kind := KindMalformed
		if env.HTTPStatus == 401 || env.HTTPStatus == 403 {
			kind = KindAuth
		}
		return nil, &APIError{Kind: kind, StatusCode: env.HTTPStatus, Err: fmt.Errorf("appliance returned status=error")}
	}
	if isNull(env.Results) {
		return nil, fmt.Errorf("missing required field %q", "results")
	}
	return env.Results, nil
}

// DecodePerformanceStatus parses a performance/status body.
// CPU may be a number or an object with "idle"; memory may be an object
// with "used"/"total" or a bare percentage.
func DecodePerformanceStatus(body []byte) (*PerformanceStatus, error) {
	raw, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var results map[string]json.RawMessage
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("results is not an object: %w", err)
	}

	status := &PerformanceStatus{}

	cpuRaw := firstPresent(results, "cpu", "CPU")
	if cpuRaw == nil {
		return nil, fmt.Errorf("missing required field %q", "results.cpu")
	}
	if err := decodeCPU(cpuRaw, status); err != nil {
		return nil, err
	}

	memRaw := firstPresent(results, "mem", "Memory", "memory")
	if memRaw == nil {
		return nil, fmt.Errorf("missing required field %q", "results.mem")
	}
	if err := decodeMemory(memRaw, status); err != nil {
		return nil, err
	}

	return status, nil
}

func decodeCPU(raw json.RawMessage, status *PerformanceStatus) error {
	if v, ok, err := number(raw); ok {
		status.CPUPercent = v
		return nil
	} else if err == nil {
		return fmt.Errorf("results.cpu is null")
	} else if errors.Is(err, errNotFinite) {
		return fmt.Errorf("results.cpu: %w", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("results.cpu is neither a number nor an object")
	}

	idle, ok, err := number(obj["idle"])
	if err != nil {
		return fmt.Errorf("results.cpu.idle: %w", err)
	}
	if !ok {
		return fmt.Errorf("missing required field %q", "results.cpu.idle")
	}
	status.CPUPercent = 100 - idle

	if cores := obj["cores"]; !isNull(cores) {
		var list []json.RawMessage
		if err := json.Unmarshal(cores, &list); err == nil {
			status.Cores = len(list)
		}
	}
	return nil
}

func decodeMemory(raw json.RawMessage, status *PerformanceStatus) error {
	if v, ok, err := number(raw); ok {
		status.MemoryPercent = v
		return nil
	} else if err == nil {
		return fmt.Errorf("results.mem is null")
	} else if errors.Is(err, errNotFinite) {
		return fmt.Errorf("results.mem: %w", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("results.mem is neither a number nor an object")
	}

	total, hasTotal, err := number(obj["total"])
	if err != nil {
		return fmt.Errorf("results.mem.total: %w", err)
	}
	used, hasUsed, err := number(obj["used"])
	if err != nil {
		return fmt.Errorf("results.mem.used: %w", err)
	}

	if hasTotal && hasUsed && total > 0 {
		if total < kibThreshold {
			total *= 1024
			used *= 1024
		}
		status.MemoryTotalBytes = int64(total)
		status.MemoryUsedBytes = int64(used)
		status.MemoryPercent = math.Round(used/total*1000) / 10
		return nil
	}

	// Without a usable total, fall back to a reported percentage.
	pct, ok, err := number(firstPresent(obj, "percent", "usage"))
	if err != nil {
		return fmt.Errorf("results.mem.percent: %w", err)
	}
	if !ok {
		return fmt.Errorf("results.mem needs used and a non-zero total")
	}
	if hasUsed {
		status.MemoryUsedBytes = int64(used)
	}
	status.MemoryPercent = pct
	return nil
}

// DecodeProcesses parses a running-processes body. Results may be an array
// or an object holding "processes" or "process_list".
func DecodeProcesses(body []byte) ([]Process, error) {
	raw, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("results is neither an array nor an object")
		}
		list := firstPresent(obj, "processes", "process_list")
		if list == nil {
			return nil, fmt.Errorf("missing required field %q", "results.processes")
		}
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, fmt.Errorf("results.processes is not an array")
		}
	}

	procs := make([]Process, 0, len(entries))
	for i, entry := range entries {
		p, err := decodeProcess(entry)
		if err != nil {
			return nil, fmt.Errorf("process %d: %w", i, err)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func decodeProcess(raw json.RawMessage) (Process, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Process{}, fmt.Errorf("entry is not an object")
	}

	pid, ok, err := number(firstPresent(obj, "pid", "process_id"))
	if err != nil {
		return Process{}, fmt.Errorf("pid: %w", err)
	}
	if !ok {
		return Process{}, fmt.Errorf("missing required field %q", "pid")
	}

	p := Process{
		PID:  int(pid),
		Name: processName(obj),
	}

	if pct, ok, err := number(obj["cpu_percent"]); err != nil {
		return Process{}, fmt.Errorf("cpu_percent: %w", err)
	} else if ok {
		p.CPUPercent = &pct
	}

	if cpuRaw := firstPresent(obj, "cpu_usage", "cpu"); cpuRaw != nil {
		ticks, ok, err := decodeTicks(cpuRaw)
		if err != nil {
			return Process{}, err
		}
		p.CPUTicks, p.HasTicks = ticks, ok
	}

	// pss is preferred: it splits shared pages proportionally.
	if memRaw := firstPresent(obj, "pss", "memory", "mem"); memRaw != nil {
		mem, err := decodeMemoryBytes(memRaw)
		if err != nil {
			return Process{}, err
		}
		if mem > 0 {
			p.MemoryBytes = int64(mem)
		}
	}

	if pct, ok, err := number(firstPresent(obj, "memory_percent", "mem_percent")); err != nil {
		return Process{}, fmt.Errorf("memory_percent: %w", err)
	} else if ok {
		p.MemoryPercent = &pct
	}

	return p, nil
}

func decodeTicks(raw json.RawMessage) (int64, bool, error) {
	if v, ok, err := number(raw); err == nil {
		return int64(v), ok, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, false, fmt.Errorf("cpu: neither a number nor an object")
	}
	user, _, err := number(obj["user"])
	if err != nil {
		return 0, false, fmt.Errorf("cpu.user: %w", err)
	}
	kernel, _, err := number(firstPresent(obj, "kernel", "system"))
	if err != nil {
		return 0, false, fmt.Errorf("cpu.kernel: %w", err)
	}
	return int64(user + kernel), true, nil
}

func decodeMemoryBytes(raw json.RawMessage) (float64, error) {
	if v, _, err := number(raw); err == nil {
		return v, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, fmt.Errorf("memory: neither a number nor an object")
	}
	used, _, err := number(obj["used"])
	if err != nil {
		return 0, fmt.Errorf("memory.used: %w", err)
	}
	return used, nil
}

// processName picks the first string name field and strips any path.
func processName(obj map[string]json.RawMessage) string {
	for _, key := range []string{"name", "process_name", "comm", "cmd", "command"} {
		var s string
		if err := json.Unmarshal(obj[key], &s); err == nil && s != "" {
			s = strings.ReplaceAll(s, `\`, "/")
			return path.Base(s)
		}
	}
	return "Unknown"
}

// number decodes raw as a float. ok is false for absent or null values;
// err is set when a value is present but not numeric.
var errNotFinite = errors.New("expected a finite number")

func number(raw json.RawMessage) (float64, bool, error) {
	if isNull(raw) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			// ParseFloat accepts "NaN" and "Inf"; neither can be logged as JSON.
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, false, fmt.Errorf("%w, got %s", errNotFinite, truncate(raw, 40))
			}
			return f, true, nil
		}
	}
	return 0, false, fmt.Errorf("expected a number, got %s", truncate(raw, 40))
}

func firstPresent(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok && !isNull(v) {
			return v
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
