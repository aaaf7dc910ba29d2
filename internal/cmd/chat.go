package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/KeikaK/llmbroadhearing/internal/domain"
	"github.com/KeikaK/llmbroadhearing/internal/service"
)

var (
	chatAddr     string
	chatQuestion string
	chatNoSave   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Hold a hearing from the terminal",
	Long: `Connect to a running hearing server and chat over /chat/ws.

The conversation is kept locally and sent with every turn. Type /quit or
close stdin to finish; the hearing is then saved through /save.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newChatClient(chatAddr, chatQuestion, cmd.OutOrStdout())
		return client.run(cmd.Context(), cmd.InOrStdin(), !chatNoSave)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatAddr, "addr", "localhost:3000", "server host:port")
	chatCmd.Flags().StringVarP(&chatQuestion, "question", "q", "", "template id to start from")
	chatCmd.Flags().BoolVar(&chatNoSave, "no-save", false, "do not save the hearing on exit")
	rootCmd.AddCommand(chatCmd)
}

// chatClient drives one hearing against a server.
type chatClient struct {
	httpBase string
	wsURL    string
	question string
	out      io.Writer
	http     *http.Client

	template *domain.Template
	messages []domain.Message
}

func newChatClient(addr, question string, out io.Writer) *chatClient {
	return &chatClient{
		httpBase: (&url.URL{Scheme: "http", Host: addr}).String(),
		wsURL:    (&url.URL{Scheme: "ws", Host: addr, Path: "/chat/ws"}).String(),
		question: question,
		out:      out,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *chatClient) run(ctx context.Context, in io.Reader, save bool) error {
	if c.question != "" {
		if err := c.loadTemplate(ctx); err != nil {
			return err
		}
	}

	// The server seeds the opening turn from the template or its default.
	if err := c.turn(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			break
		}
		c.append(domain.RoleUser, input)
		if err := c.turn(ctx); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(c.out)

	if !save || !c.answered() {
		return nil
	}
	file, err := c.save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "saved %s\n", file)
	return nil
}

// loadTemplate fetches the template so later turns carry its prompt.
func (c *chatClient) loadTemplate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpBase+"/templates/"+url.PathEscape(c.question), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch template: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("template %q: status %d", c.question, resp.StatusCode)
	}

	var tpl domain.Template
	if err := json.NewDecoder(resp.Body).Decode(&tpl); err != nil {
		return fmt.Errorf("failed to decode template: %w", err)
	}
	tpl.ID = c.question
	c.template = &tpl
	return nil
}

// turn sends the conversation and prints the streamed reply.
func (c *chatClient) turn(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	req := domain.ChatRequest{Messages: c.history(), Question: domain.FlexString(c.question)}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write chat request: %w", err)
	}

	var reply strings.Builder
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return fmt.Errorf("read reply: %w", err)
		}
		chunk := string(data)
		if strings.HasPrefix(chunk, service.ErrorChunkPrefix) {
			fmt.Fprintln(c.out)
			return errors.New(strings.TrimPrefix(chunk, service.ErrorChunkPrefix))
		}
		reply.WriteString(chunk)
		fmt.Fprint(c.out, chunk)
	}
	fmt.Fprintln(c.out)

	c.append(domain.RoleAssistant, reply.String())
	return nil
}

// history is the request transcript: the template seed, if any, followed
// by the conversation so far. An empty history lets the server seed.
func (c *chatClient) history() []domain.Message {
	if len(c.messages) == 0 {
		return []domain.Message{}
	}
	out := make([]domain.Message, 0, len(c.messages)+2)
	if c.template != nil {
		if c.template.Prompt != "" {
			out = append(out, domain.Message{Role: domain.RoleSystem, Content: c.template.Prompt})
		}
		if c.template.FirstMessage != "" {
			out = append(out, domain.Message{Role: domain.RoleUser, Content: c.template.FirstMessage})
		}
	}
	return append(out, c.messages...)
}

func (c *chatClient) append(role domain.Role, content string) {
	c.messages = append(c.messages, domain.Message{
		Role:    role,
		Content: content,
		Time:    time.Now().Format("15:04"),
	})
}

func (c *chatClient) answered() bool {
	for _, m := range c.messages {
		if m.Role == domain.RoleUser {
			return true
		}
	}
	return false
}

// savePayload is the body posted to /save.
type savePayload struct {
	ExportedAt string           `json:"exportedAt"`
	Messages   []domain.Message `json:"messages"`
	Question   *domain.Template `json:"question"`
	Summary    *string          `json:"summary"`
}

func (c *chatClient) save(ctx context.Context) (string, error) {
	body, err := json.Marshal(savePayload{
		ExportedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Messages:   c.messages,
		Question:   c.template,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.httpBase+"/save", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to save hearing: %w", err)
	}
	defer resp.Body.Close()

	var result domain.SaveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode save response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		return "", fmt.Errorf("save failed: status %d", resp.StatusCode)
	}
	return result.File, nil
}
