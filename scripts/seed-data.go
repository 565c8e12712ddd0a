//go:build ignore
// +build ignore

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Seeds a running server with demo mediation sessions and, when
// SEED_IMAGE_DIR is set, scans for every image in that directory.
//
//	API_URL=http://localhost:8111 go run scripts/seed-data.go
func main() {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}
	resolve := os.Getenv("SEED_RESOLVE") == "true"

	log.Printf("Seeding demo data into %s", apiURL)

	client := &http.Client{Timeout: 90 * time.Second}
	ctx := context.Background()

	if err := seedSessions(ctx, client, apiURL, resolve); err != nil {
		log.Fatalf("Failed to seed sessions: %v", err)
	}
	if dir := os.Getenv("SEED_IMAGE_DIR"); dir != "" {
		if err := seedScans(ctx, client, apiURL, dir); err != nil {
			log.Fatalf("Failed to seed scans: %v", err)
		}
	}

	log.Println("Seeding complete")
}

type participant struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Perspective string `json:"perspective"`
}

type sessionRequest struct {
	RelationshipContext string        `json:"relationshipContext"`
	ArgumentCategory    string        `json:"argumentCategory"`
	Participants        []participant `json:"participants"`
}

var demoSessions = []sessionRequest{
	{
		RelationshipContext: "roommates",
		ArgumentCategory:    "household",
		Participants: []participant{
			{Name: "Alex", Perspective: "I take the bins out every week and nobody notices."},
			{Name: "Sam", Perspective: "I cook for both of us most nights, which takes far longer."},
		},
	},
	{
		RelationshipContext: "romantic",
		ArgumentCategory:    "financial",
		Participants: []participant{
			{Name: "Jordan", Role: "Partner", Perspective: "We should be saving for a deposit on a house."},
			{Name: "Riley", Role: "Partner", Perspective: "We work hard and deserve one proper holiday this year."},
		},
	},
	{
		RelationshipContext: "workplace",
		ArgumentCategory:    "communication",
		Participants: []participant{
			{Name: "Priya", Role: "Team lead", Perspective: "Status updates keep arriving after the deadline."},
			{Name: "Tom", Role: "Engineer", Perspective: "Deadlines change without anyone telling me."},
			{Name: "Mei", Role: "Designer", Perspective: "I am never sure who owns the final sign-off."},
		},
	},
}

func seedSessions(ctx context.Context, client *http.Client, apiURL string, resolve bool) error {
	for _, s := range demoSessions {
		body, err := json.Marshal(s)
		if err != nil {
			return err
		}
		var created struct {
			ID int `json:"id"`
		}
		if err := do(ctx, client, http.MethodPost, apiURL+"/api/sessions", "application/json", bytes.NewReader(body), &created); err != nil {
			return fmt.Errorf("create %s/%s session: %w", s.RelationshipContext, s.ArgumentCategory, err)
		}
		log.Printf("  created session %d (%s, %s)", created.ID, s.RelationshipContext, s.ArgumentCategory)

		if !resolve {
			continue
		}
		url := fmt.Sprintf("%s/api/sessions/%d/resolve", apiURL, created.ID)
		if err := do(ctx, client, http.MethodPost, url, "application/json", nil, nil); err != nil {
			return fmt.Errorf("resolve session %d: %w", created.ID, err)
		}
		log.Printf("  resolved session %d", created.ID)
	}
	return nil
}

func seedScans(ctx context.Context, client *http.Client, apiURL, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		contentType := map[string]string{".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png", ".webp": "image/webp"}[ext]
		if e.IsDir() || contentType == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, e.Name()))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
		if err := mw.Close(); err != nil {
			return err
		}

		var scan struct {
			ID       int    `json:"id"`
			FoodName string `json:"foodName"`
			IsVegan  bool   `json:"isVegan"`
		}
		if err := do(ctx, client, http.MethodPost, apiURL+"/api/analyze", mw.FormDataContentType(), &buf, &scan); err != nil {
			return fmt.Errorf("analyze %s: %w", e.Name(), err)
		}
		log.Printf("  scan %d: %s (vegan: %v)", scan.ID, scan.FoodName, scan.IsVegan)
	}
	return nil
}

func do(ctx context.Context, client *http.Client, method, url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
