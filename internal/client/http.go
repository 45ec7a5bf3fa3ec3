package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Client talks to a NeuroLog server. It implements Uploader.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates an API client for the given server base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		// No client-side timeout: video uploads can legitimately take minutes.
		httpc: &http.Client{},
	}
}

// Login exchanges credentials for a session token.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpc := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: %s", readErrorMessage(resp.Body))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	return out.Token, nil
}

// Upload sends one queued file to POST /api/media as a multipart form.
func (c *Client) Upload(ctx context.Context, file *QueuedFile) (*UploadResponse, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Path, err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if err = form.WriteField("type", string(file.Category)); err != nil {
			return
		}
		var part io.Writer
		if part, err = form.CreateFormFile("file", file.Name); err != nil {
			return
		}
		if _, err = io.Copy(part, src); err != nil {
			return
		}
		err = form.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server rejected upload: %s", readErrorMessage(resp.Body))
	}

	var out struct {
		URL      string `json:"url"`
		FileName string `json:"fileName"`
		Type     string `json:"type"`
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return &UploadResponse{
		URL:      out.URL,
		FileName: out.FileName,
		Type:     out.Type,
		FileType: out.FileType,
	}, nil
}

// NewCandidateFromFile stats a local file and sniffs its MIME type from
// content, producing a Candidate for the queue.
func NewCandidateFromFile(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	return Candidate{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mt.String(),
	}, nil
}

// readErrorMessage extracts the server's error message from a failed
// response body, falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err == nil && out.Error != "" {
		return out.Error
	}
	return string(bytes.TrimSpace(raw))
}
