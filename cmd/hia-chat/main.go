// hia-chat is a terminal client for the hia server: create or resume a
// session, upload a report, ask questions about it.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "hia server base URL")
	sessionID = flag.String("session", "", "Existing session ID to resume")
	title     = flag.String("title", "", "Title for a new session")
)

type apiClient struct {
	baseURL string
	client  *http.Client
}

type session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *apiClient) createSession(title string) (*session, error) {
	body, _ := json.Marshal(map[string]string{"title": title})
	resp, err := c.client.Post(c.baseURL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var out struct {
		Session session `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

func (c *apiClient) timeline(id string) (*session, []message, error) {
	resp, err := c.client.Get(c.baseURL + "/api/sessions/" + id)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, apiError(resp)
	}

	var out struct {
		Session  session   `json:"session"`
		Messages []message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, err
	}
	return &out.Session, out.Messages, nil
}

func (c *apiClient) sendMessage(id, text string) (string, error) {
	body, _ := json.Marshal(map[string]string{"text": text})
	resp, err := c.client.Post(c.baseURL+"/api/sessions/"+id+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var out struct {
		AssistantMessage message `json:"assistant_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AssistantMessage.Content, nil
}

func (c *apiClient) uploadReport(id, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	mw.Close()

	resp, err := c.client.Post(c.baseURL+"/api/sessions/"+id+"/report", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", apiError(resp)
	}

	var out struct {
		AnalysisMessage message `json:"analysis_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AnalysisMessage.Content, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s (status %d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

func main() {
	flag.Parse()

	// Handle interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		os.Exit(0)
	}()

	api := &apiClient{
		baseURL: strings.TrimRight(*serverURL, "/"),
		client:  &http.Client{Timeout: 300 * time.Second},
	}

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var (
		sess    *session
		history []message
		err     error
	)
	if *sessionID != "" {
		sess, history, err = api.timeline(*sessionID)
	} else {
		sess, err = api.createSession(*title)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Println("Make sure the server is running with: hia-server")
		os.Exit(1)
	}

	fmt.Println(boldGreen("hia - health report chat"))
	fmt.Printf("Session: %s (%s)\n", boldCyan(sess.Title), sess.ID)
	fmt.Println("Type a question and press Enter. '/upload <file>' sends a report, 'exit' quits.")
	fmt.Println()

	// Replay prior turns when resuming. System messages carry raw report
	// context and stay hidden, as in the chat window.
	for _, m := range history {
		switch m.Role {
		case "user":
			fmt.Printf("%s %s\n", boldGreen("You:"), m.Content)
		case "assistant":
			fmt.Printf("%s %s\n\n", boldCyan("Assistant:"), m.Content)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" {
			break
		}

		if path, ok := strings.CutPrefix(input, "/upload "); ok {
			fmt.Println("Uploading report...")
			analysis, err := api.uploadReport(sess.ID, strings.TrimSpace(path))
			if err != nil {
				fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
				continue
			}
			fmt.Printf("%s %s\n\n", boldCyan("Analysis:"), analysis)
			continue
		}

		reply, err := api.sendMessage(sess.ID, input)
		if err != nil {
			fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
			continue
		}
		fmt.Printf("%s %s\n\n", boldCyan("Assistant:"), reply)
	}
}
