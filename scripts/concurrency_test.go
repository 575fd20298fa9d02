//go:build ignore
// +build ignore

// Package main is a manual stress test for the rent endpoint.
//
// Usage:
//
//	TOKEN=<jwt> BOOK_ID=<uuid> [N=20] go run ./scripts/concurrency_test.go
//
// It fires N simultaneous POST /api/books/{id}/rent requests with the same
// user's token. Exactly one must come back 201; the rest must be 409.
//
// Prerequisites:
//   - Server running against a migrated database.
//   - The user behind TOKEN holds no RENTED loan for BOOK_ID.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const defaultServerURL = "http://localhost:8080"

type rentResult struct {
	StatusCode int
	Body       string
	Err        error
}

func main() {
	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	token := os.Getenv("TOKEN")
	bookID := os.Getenv("BOOK_ID")
	if token == "" || bookID == "" {
		log.Fatal("Usage: TOKEN=<jwt> BOOK_ID=<uuid> [N=20] go run ./scripts/concurrency_test.go")
	}
	n := 20
	if raw := os.Getenv("N"); raw != "" {
		var err error
		if n, err = strconv.Atoi(raw); err != nil || n < 2 {
			log.Fatal("N must be an integer >= 2")
		}
	}

	fmt.Printf("=== Rent Concurrency Test ===\n")
	fmt.Printf("Server   : %s\n", serverURL)
	fmt.Printf("Book     : %s\n", bookID)
	fmt.Printf("Requests : %d\n\n", n)

	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/api/books/%s/rent", serverURL, bookID)

	results := make([]rentResult, n)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = attemptRent(client, url, token)
		}(i)
	}

	close(start)
	wg.Wait()

	var created, conflicts, failures int
	for i, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] #%02d err=%v\n", i, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [RENT] #%02d %s\n", i, r.Body)
		case r.StatusCode == http.StatusConflict:
			conflicts++
		default:
			failures++
			fmt.Printf("  [FAIL] #%02d status=%d body=%s\n", i, r.StatusCode, r.Body)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Created   : %d\n", created)
	fmt.Printf("Conflicts : %d\n", conflicts)
	fmt.Printf("Failures  : %d\n", failures)

	if created != 1 || failures > 0 {
		fmt.Println("\n[FAIL] expected exactly one open loan and no failures")
		os.Exit(1)
	}
	fmt.Println("\n[OK] one RENTED loan, every other attempt rejected")
}

func attemptRent(client *http.Client, url, token string) rentResult {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return rentResult{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return rentResult{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return rentResult{StatusCode: resp.StatusCode, Body: string(raw)}
}
