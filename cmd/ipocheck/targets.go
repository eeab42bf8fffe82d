package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"ipocheck/internal/check"
)

// loadTargets reads one BOID per line, with an optional comma-separated
// label. Blank lines and #-comments are skipped. Malformed BOIDs are
// rejected here so the orchestrator never sees them.
func loadTargets(path string) ([]check.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer f.Close()

	var (
		targets []check.Target
		bad     []string
		seen    = make(map[string]bool)
	)

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		boid, label, _ := strings.Cut(raw, ",")
		boid = strings.TrimSpace(boid)
		label = strings.TrimSpace(label)

		if !check.ValidBOID(boid) {
			bad = append(bad, fmt.Sprintf("line %d: %q", line, boid))
			continue
		}
		if seen[boid] {
			continue
		}
		seen[boid] = true
		targets = append(targets, check.Target{BOID: boid, Label: label})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid BOIDs (must be 16 digits starting with 13):\n  %s",
			strings.Join(bad, "\n  "))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets in %s", path)
	}
	return targets, nil
}
