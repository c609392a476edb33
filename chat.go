package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

func NewChatCommand() *cobra.Command {
	var (
		baseURL     string
		prefix      string
		assistantID string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an assistant through a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if assistantID == "" {
				return errors.New("--assistant is required")
			}
			c := &chatClient{
				endpoint: strings.TrimRight(baseURL, "/") + prefix + "/core/assistants/" + assistantID + "/chat",
				http:     &http.Client{Timeout: timeout},
			}
			return c.repl(os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "Server base URL")
	cmd.Flags().StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	cmd.Flags().StringVar(&assistantID, "assistant", "", "Assistant ID")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "Request timeout")
	return cmd
}

type chatClient struct {
	endpoint       string
	http           *http.Client
	conversationID string
}

func (c *chatClient) repl(in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Type a message and press Enter. /new starts a new conversation, /quit exits.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			c.conversationID = ""
			fmt.Fprintln(out, "Started a new conversation.")
			continue
		}

		reply, err := c.send(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\nAssistant: %s\n\n", reply)
	}
}

// send posts one user message and returns the assistant reply.
func (c *chatClient) send(content string) (string, error) {
	body, err := json.Marshal(domain.ChatRequest{
		ConversationID: c.conversationID,
		Message:        domain.ChatMessage{Content: content},
	})
	if err != nil {
		return "", err
	}

	resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	res := gjson.ParseBytes(data)
	if !res.Get("success").Bool() {
		if msg := res.Get("error").String(); msg != "" {
			return "", fmt.Errorf("%s (%d)", msg, resp.StatusCode)
		}
		return "", fmt.Errorf("unexpected response (%d)", resp.StatusCode)
	}
	c.conversationID = res.Get("data.conversation_id").String()
	return res.Get("data.message.content").String(), nil
}
