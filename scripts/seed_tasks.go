// seed_tasks.go: standalone script to parse a markdown follow-up list and seed
// open tasks via the planner API.
//
// Usage:
//
//	go run scripts/seed_tasks.go -list followups.md -api http://localhost:8700 -agent alice
//
// Each unchecked item becomes a task. Inline tokens are optional:
//
//	## Acme Corp
//	- [ ] 🔴 Renewal call @2026-10-20 ~1.5h $1200 60%
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type taskInput struct {
	Title               string   `json:"title"`
	Notes               string   `json:"notes,omitempty"`
	DueDate             string   `json:"due_date,omitempty"`
	Priority            int      `json:"priority"`
	EffortHours         float64  `json:"effort_hours"`
	EstimatedCommission string   `json:"estimated_commission"`
	Probability         *float64 `json:"probability,omitempty"`
}

// Priority emoji to task priority
var priorityMap = map[string]int{
	"🔴": 3,
	"🟠": 2,
	"🟡": 1,
	"🟢": 0,
}

// parseItem pulls the inline tokens out of one list item.
func parseItem(text, section string) (taskInput, error) {
	item := taskInput{EffortHours: 1, EstimatedCommission: "0"}
	if section != "" {
		item.Notes = "client: " + section
	}

	for emoji, p := range priorityMap {
		if strings.Contains(text, emoji) {
			item.Priority = p
			text = strings.ReplaceAll(text, emoji, "")
			break
		}
	}

	var words []string
	for _, w := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(w, "@") && len(w) > 1:
			if _, err := time.Parse("2006-01-02", w[1:]); err != nil {
				return item, fmt.Errorf("bad due date %q", w)
			}
			item.DueDate = w[1:]
		case strings.HasPrefix(w, "~") && strings.HasSuffix(w, "h"):
			h, err := strconv.ParseFloat(strings.TrimSuffix(w[1:], "h"), 64)
			if err != nil {
				return item, fmt.Errorf("bad effort %q", w)
			}
			item.EffortHours = h
		case strings.HasPrefix(w, "$") && len(w) > 1:
			item.EstimatedCommission = strings.ReplaceAll(w[1:], ",", "")
		case strings.HasSuffix(w, "%") && len(w) > 1:
			pct, err := strconv.ParseFloat(strings.TrimSuffix(w, "%"), 64)
			if err != nil {
				return item, fmt.Errorf("bad probability %q", w)
			}
			p := pct / 100
			item.Probability = &p
		default:
			words = append(words, w)
		}
	}
	item.Title = strings.Join(words, " ")
	if item.Title == "" {
		return item, fmt.Errorf("empty title")
	}
	return item, nil
}

func main() {
	listPath := flag.String("list", "followups.md", "path to the markdown follow-up list")
	apiURL := flag.String("api", "http://localhost:8700", "planner API base URL")
	agentID := flag.String("agent", "", "X-Agent-ID header value")
	dryRun := flag.Bool("dry-run", false, "print tasks without posting")
	flag.Parse()

	if *agentID == "" && !*dryRun {
		log.Fatal("-agent is required")
	}

	f, err := os.Open(*listPath)
	if err != nil {
		log.Fatalf("open %s: %v", *listPath, err)
	}
	defer f.Close()

	var items []taskInput
	var section string
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") {
			section = strings.TrimSpace(strings.TrimLeft(line, "# "))
			continue
		}

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- [ ] ") {
			continue
		}

		item, err := parseItem(strings.TrimPrefix(trimmed, "- [ ] "), section)
		if err != nil {
			log.Printf("line %d: %v", lineNo, err)
			continue
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("scan %s: %v", *listPath, err)
	}

	log.Printf("parsed %d tasks from %s", len(items), *listPath)

	if *dryRun {
		for i, item := range items {
			due := "undated"
			if item.DueDate != "" {
				due = item.DueDate
			}
			fmt.Printf("[%d] %s (due=%s, priority=%d, hours=%.2f, commission=%s)\n",
				i+1, item.Title, due, item.Priority, item.EffortHours, item.EstimatedCommission)
		}
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	created, skipped := 0, 0
	for _, item := range items {
		body, _ := json.Marshal(item)
		req, err := http.NewRequest("POST", *apiURL+"/api/v1/tasks", bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %q: %v", item.Title, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Agent-ID", *agentID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %q: %v", item.Title, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			created++
		} else {
			log.Printf("skip %q: status %d", item.Title, resp.StatusCode)
			skipped++
		}
	}

	log.Printf("done: %d created, %d skipped", created, skipped)
}
