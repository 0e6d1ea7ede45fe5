// Package main provides a viewer-command simulator for testing. It
// sends the same requests the chat bot would issue on a viewer's
// behalf.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("kentobot-viewercli", "Kentobot viewer client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Bot token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	day    = app.Flag("day", "Stream day (YYYY-MM-DD, default: today)").String()

	// request command
	requestCmd  = app.Command("request", "Request a song (!sr)")
	requestUser = requestCmd.Arg("user", "Viewer name").Required().String()
	requestSong = requestCmd.Arg("song-id", "Song ID or URL").Required().String()

	// join-shuffle command
	joinCmd  = app.Command("join-shuffle", "Enter the shuffle lottery (!join)")
	joinUser = joinCmd.Arg("user", "Viewer name").Required().String()

	// event command
	eventCmd  = app.Command("event", "Simulate a platform event (sub, giftedsub, bits, raid)")
	eventType = eventCmd.Arg("type", "Event type").Required().String()
	eventUser = eventCmd.Arg("user", "Viewer name").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}
	if *day == "" {
		*day = time.Now().Format("2006-01-02")
	}

	switch command {
	case requestCmd.FullCommand():
		data := post("/api/streams/"+*day+"/songs",
			map[string]any{"user": *requestUser, "song_id": *requestSong})
		var resp struct {
			Entry struct {
				Title string `json:"title"`
			} `json:"entry"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &resp); err == nil && resp.Entry.Title != "" {
			fmt.Printf("Queued: %s\n", resp.Entry.Title)
		} else {
			fmt.Println("Queued")
		}
	case joinCmd.FullCommand():
		post("/api/streams/"+*day+"/shuffle/entries", map[string]any{"user": *joinUser})
		fmt.Println("Entered the shuffle")
	case eventCmd.FullCommand():
		data := post("/api/events/platform",
			map[string]any{"day": *day, "type": *eventType, "user": *eventUser})
		var resp struct {
			Bumped bool   `json:"bumped"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(data, &resp); err == nil && !resp.Bumped {
			fmt.Printf("No bump applied (%s)\n", resp.Reason)
		} else {
			fmt.Println("Song bumped")
		}
	}
}

// post sends a request and exits on any error response.
func post(path string, body any) []byte {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, *server+path, &buf)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", *token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error.Code != "" {
			fmt.Printf("Error [%s]: %s\n", envelope.Error.Code, envelope.Error.Message)
		} else {
			fmt.Printf("Error: HTTP %d\n", resp.StatusCode)
		}
		os.Exit(1)
	}

	return data
}
