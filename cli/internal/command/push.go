package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var (
		server    string
		sessionID string
		name      string
		keyEnv    string
		header    string
	)
	cmd := &cobra.Command{
		Use:   "push <file.csv>",
		Short: "Upload a table to a fitpoint-server session",
		Long: `Replace the rows of a server session with the contents of a CSV file.
Without --session a new session is created and its id printed.

Examples:
  fitctl push fit.csv --server http://localhost:8080 --name "Well 7 shoe"
  FITPOINT_API_KEY=... fitctl push fit.csv --server https://fit.example --session 4c0e...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read table: %w", err)
			}
			c := &apiClient{
				base:   strings.TrimRight(server, "/"),
				header: header,
				key:    os.Getenv(keyEnv),
				http:   &http.Client{Timeout: 30 * time.Second},
			}

			if sessionID == "" {
				if name == "" {
					name = args[0]
				}
				sessionID, err = c.createSession(cmd, name)
				if err != nil {
					return err
				}
			}

			var v struct {
				Version uint64 `json:"version"`
			}
			path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/csv"
			if err := c.send(cmd, http.MethodPut, path, "text/csv", data, &v); err != nil {
				return err
			}
			slog.Debug("fitctl: table pushed", "session", sessionID, "version", v.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %d\n", sessionID, v.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "fitpoint-server base URL")
	cmd.Flags().StringVar(&sessionID, "session", "", "existing session id")
	cmd.Flags().StringVar(&name, "name", "", "name for a new session (default: file name)")
	cmd.Flags().StringVar(&keyEnv, "key-env", "FITPOINT_API_KEY", "environment variable holding the API key")
	cmd.Flags().StringVar(&header, "key-header", "x-api-key", "header the API key is sent in")
	return cmd
}

type apiClient struct {
	base   string
	header string
	key    string
	http   *http.Client
}

func (c *apiClient) createSession(cmd *cobra.Command, name string) (string, error) {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", err
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.send(cmd, http.MethodPost, "/api/v1/sessions", "application/json", body, &created); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return created.ID, nil
}

func (c *apiClient) send(cmd *cobra.Command, method, path, contentType string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(cmd.Context(), method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.key != "" {
		req.Header.Set(c.header, c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s %s: %d", method, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
