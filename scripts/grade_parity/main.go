// Command grade_parity cross-checks computed grades between the legacy portal
// backend and this API during cutover. It fetches the grade breakdown for each
// configured cadet from both bases and reports field-level drift; numeric
// fields compare within a tolerance, the transmuted grade must match exactly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type cadetTarget struct {
	CadetID  string `json:"cadet_id"`
	Critical bool   `json:"critical"`
}

type rosterConfig struct {
	Cadets []cadetTarget `json:"cadets"`
}

type gradePayload struct {
	CadetID         string  `json:"cadet_id"`
	AttendanceScore float64 `json:"attendanceScore"`
	AptitudeScore   float64 `json:"aptitudeScore"`
	SubjectScore    float64 `json:"subjectScore"`
	FinalGrade      float64 `json:"finalGrade"`
	TransmutedGrade string  `json:"transmutedGrade"`
	Remarks         string  `json:"remarks"`
}

type comparison struct {
	Target   cadetTarget
	Drifts   []string
	Error    error
	Duration time.Duration
}

func main() {
	var (
		apiBase    string
		legacyBase string
		rosterPath string
		token      string
		tolerance  float64
		timeout    time.Duration
	)

	flag.StringVar(&apiBase, "api-base", "http://localhost:8080/api/v1", "grading API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "legacy portal base URL")
	flag.StringVar(&rosterPath, "roster", filepath.Join("scripts", "grade_parity", "roster.json"), "path to JSON roster file")
	flag.StringVar(&token, "token", os.Getenv("PARITY_TOKEN"), "bearer token sent to both backends")
	flag.Float64Var(&tolerance, "tolerance", 0.01, "maximum numeric drift before a field counts as a diff")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	cadets, err := loadRoster(rosterPath)
	if err != nil {
		log.Fatalf("failed to load roster: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0
	informational := 0
	results := make([]comparison, 0, len(cadets))

	for _, target := range cadets {
		comp := compareCadet(client, apiBase, legacyBase, token, tolerance, target)
		if comp.Error != nil || len(comp.Drifts) > 0 {
			if target.Critical {
				breaking++
			} else {
				informational++
			}
		}
		results = append(results, comp)
	}

	printReport(results)
	fmt.Printf("Breaking diffs: %d, Informational diffs: %d\n", breaking, informational)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadRoster(path string) ([]cadetTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg rosterConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Cadets) == 0 {
		return nil, fmt.Errorf("no cadets defined in %s", path)
	}
	return cfg.Cadets, nil
}

func compareCadet(client *http.Client, apiBase, legacyBase, token string, tolerance float64, target cadetTarget) comparison {
	comp := comparison{Target: target}
	start := time.Now()

	current, err := fetchGrades(client, apiBase, token, target.CadetID)
	if err != nil {
		comp.Error = fmt.Errorf("grading api: %w", err)
		return comp
	}
	legacy, err := fetchGrades(client, legacyBase, token, target.CadetID)
	if err != nil {
		comp.Error = fmt.Errorf("legacy portal: %w", err)
		return comp
	}
	comp.Duration = time.Since(start)

	comp.Drifts = diffGrades(current, legacy, tolerance)
	return comp
}

func fetchGrades(client *http.Client, base, token, cadetID string) (*gradePayload, error) {
	url := strings.TrimRight(base, "/") + "/cadets/" + cadetID + "/grades"
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// The grading API wraps payloads in an envelope; the legacy portal
	// returns the object bare. Try the envelope first.
	var wrapped struct {
		Data *gradePayload `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.CadetID != "" {
		return wrapped.Data, nil
	}
	var payload gradePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode grades: %w", err)
	}
	return &payload, nil
}

func diffGrades(current, legacy *gradePayload, tolerance float64) []string {
	drifts := make([]string, 0)
	numeric := []struct {
		name    string
		current float64
		legacy  float64
	}{
		{"attendanceScore", current.AttendanceScore, legacy.AttendanceScore},
		{"aptitudeScore", current.AptitudeScore, legacy.AptitudeScore},
		{"subjectScore", current.SubjectScore, legacy.SubjectScore},
		{"finalGrade", current.FinalGrade, legacy.FinalGrade},
	}
	for _, field := range numeric {
		if math.Abs(field.current-field.legacy) > tolerance {
			drifts = append(drifts, fmt.Sprintf("%s: api=%.2f legacy=%.2f", field.name, field.current, field.legacy))
		}
	}
	if current.TransmutedGrade != legacy.TransmutedGrade {
		drifts = append(drifts, fmt.Sprintf("transmutedGrade: api=%q legacy=%q", current.TransmutedGrade, legacy.TransmutedGrade))
	}
	if current.Remarks != legacy.Remarks {
		drifts = append(drifts, fmt.Sprintf("remarks: api=%q legacy=%q", current.Remarks, legacy.Remarks))
	}
	return drifts
}

func printReport(results []comparison) {
	fmt.Println("Grade Parity Report")
	fmt.Println("===================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Drifts) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] cadet %s (critical: %t)\n", status, res.Target.CadetID, res.Target.Critical)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Round trip: %s\n", res.Duration)
		for _, drift := range res.Drifts {
			fmt.Printf("  %s\n", drift)
		}
	}
}
