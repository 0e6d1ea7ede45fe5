// Package main provides the admin CLI entry point.
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
	app    = kingpin.New("kentobot-admincli", "Kentobot song request admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	day    = app.Flag("day", "Stream day (YYYY-MM-DD, default: today)").String()

	// start-stream command
	startCmd = app.Command("start-stream", "Create the aggregate for a stream day")

	// status command
	statusCmd = app.Command("status", "Show the stream's full state")

	// queue command
	queueCmd = app.Command("queue", "Show the song queue")

	// remove command
	removeCmd  = app.Command("remove", "Remove a song from the queue")
	removeSong = removeCmd.Arg("song-id", "Song ID").Required().String()

	// move command
	moveCmd      = app.Command("move", "Move a song to a new position")
	moveSong     = moveCmd.Arg("song-id", "Song ID").Required().String()
	movePosition = moveCmd.Arg("position", "Target position (0-based)").Required().Int()

	// bump command
	bumpCmd      = app.Command("bump", "Bump a user's song")
	bumpUser     = bumpCmd.Arg("user", "Viewer name").Required().String()
	bumpCategory = bumpCmd.Flag("category", "Bump category").Default("bean").String()
	bumpOverride = bumpCmd.Flag("override", "Bypass the eligibility ledger").Bool()

	// played command
	playedCmd  = app.Command("played", "Mark a song as played")
	playedSong = playedCmd.Arg("song-id", "Song ID").Required().String()

	// reset-bumps command
	resetBumpsCmd = app.Command("reset-bumps", "Restore the free bump pools")

	// shuffle commands
	shuffleOpenCmd   = app.Command("shuffle-open", "Open the shuffle lottery")
	shuffleCloseCmd  = app.Command("shuffle-close", "Close the shuffle lottery")
	shuffleWinnerCmd = app.Command("shuffle-winner", "Close the lottery and pick a winner")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}
	if *day == "" {
		*day = time.Now().Format("2006-01-02")
	}

	client := &apiClient{base: *server, token: *token}

	switch command {
	case startCmd.FullCommand():
		startStream(client, *day)
	case statusCmd.FullCommand():
		status(client, *day)
	case queueCmd.FullCommand():
		showQueue(client, *day)
	case removeCmd.FullCommand():
		client.do(http.MethodDelete, "/api/streams/"+*day+"/songs/"+*removeSong, nil)
		fmt.Println("Song removed")
	case moveCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/songs/"+*moveSong+"/move",
			map[string]any{"position": *movePosition})
		fmt.Println("Song moved")
	case bumpCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/bumps",
			map[string]any{"user": *bumpUser, "category": *bumpCategory, "mod_override": *bumpOverride})
		fmt.Println("Song bumped")
	case playedCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/songs/"+*playedSong+"/played", nil)
		fmt.Println("Song marked as played")
	case resetBumpsCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/bumps/reset", nil)
		fmt.Println("Bump pools reset")
	case shuffleOpenCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/shuffle/open", nil)
		fmt.Println("Shuffle opened")
	case shuffleCloseCmd.FullCommand():
		client.do(http.MethodPost, "/api/streams/"+*day+"/shuffle/close", nil)
		fmt.Println("Shuffle closed")
	case shuffleWinnerCmd.FullCommand():
		shuffleWinner(client, *day)
	}
}

type apiClient struct {
	base  string
	token string
}

// do performs a request and exits on any error response.
func (c *apiClient) do(method, path string, body any) []byte {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", c.token)

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

type entry struct {
	SongID      string `json:"song_id"`
	RequestedBy string `json:"requested_by"`
	Title       string `json:"title"`
	DurationSec int    `json:"duration_sec"`
	Status      string `json:"status"`
}

type streamState struct {
	Day                    string  `json:"day"`
	Revision               int64   `json:"revision"`
	Queue                  []entry `json:"queue"`
	History                []entry `json:"history"`
	BeanRemaining          int     `json:"bean_remaining"`
	ChannelPointsRemaining int     `json:"channel_points_remaining"`
}

func startStream(c *apiClient, day string) {
	c.do(http.MethodPost, "/api/streams", map[string]any{"day": day})
	fmt.Printf("Stream created for %s\n", day)
}

func status(c *apiClient, day string) {
	data := c.do(http.MethodGet, "/api/streams/"+day, nil)

	var s streamState
	if err := json.Unmarshal(data, &s); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== STREAM %s ===\n", s.Day)
	fmt.Printf("Revision: %d\n", s.Revision)
	fmt.Printf("Bean bumps remaining: %d\n", s.BeanRemaining)
	fmt.Printf("Channel point bumps remaining: %d\n", s.ChannelPointsRemaining)
	fmt.Printf("Queued: %d, Played: %d\n", len(s.Queue), len(s.History))
	printEntries(s.Queue)
}

func showQueue(c *apiClient, day string) {
	data := c.do(http.MethodGet, "/api/streams/"+day+"/queue", nil)

	var resp struct {
		Queue []entry `json:"queue"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Queue (%d):\n", len(resp.Queue))
	printEntries(resp.Queue)
}

func printEntries(entries []entry) {
	for i, e := range entries {
		fmt.Printf("  %2d. %s - %s (%s, %d:%02d) [%s]\n",
			i, e.Title, e.RequestedBy, e.SongID, e.DurationSec/60, e.DurationSec%60, e.Status)
	}
}

func shuffleWinner(c *apiClient, day string) {
	data := c.do(http.MethodPost, "/api/streams/"+day+"/shuffle/winner", nil)

	var resp struct {
		Winner *struct {
			User   string `json:"user"`
			SongID string `json:"song_id"`
		} `json:"winner"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if resp.Winner == nil {
		fmt.Println("No entrants, shuffle closed")
		return
	}
	fmt.Printf("Winner: %s (%s)\n", resp.Winner.User, resp.Winner.SongID)
}
