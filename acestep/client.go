// Package acestep generates audio with the ACE-Step v1.5 REST API.
package acestep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/time/rate"

	"github.com/vsariola/tahti/tracker"
)

// Client submits generation tasks to ACE-Step and waits for their results. It
// implements tracker.Generator.
type Client struct {
	apiURL    string
	apiKey    string
	outputDir string // shared volume mount point
	http      *http.Client
	poll      *rate.Limiter

	InferenceSteps int
	AudioFormat    string
}

// NewClient creates an ACE-Step API client. Results are polled at most once
// per pollInterval.
func NewClient(apiURL, apiKey, outputDir string, pollInterval time.Duration) *Client {
	return &Client{
		apiURL:         apiURL,
		apiKey:         apiKey,
		outputDir:      outputDir,
		http:           &http.Client{Timeout: 30 * time.Second},
		poll:           rate.NewLimiter(rate.Every(pollInterval), 1),
		InferenceSteps: 8,
		AudioFormat:    "flac",
	}
}

// GenerateRequest contains parameters for music generation.
type GenerateRequest struct {
	Caption        string  `json:"caption"`
	Lyrics         string  `json:"lyrics"`
	Duration       float64 `json:"audio_duration"`
	InferenceSteps int     `json:"inference_steps"`
	Seed           int     `json:"seed"`
	BatchSize      int     `json:"batch_size"`
	AudioFormat    string  `json:"audio_format"`
}

type releaseResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data []taskResult `json:"data"`
	Code int          `json:"code"`
}

type taskResult struct {
	TaskID string `json:"task_id"`
	Status int    `json:"status"` // 0=running, 1=success, 2=failed
	Result string `json:"result"` // JSON string with file info
}

type resultItem struct {
	File   string `json:"file"`
	Status int    `json:"status"`
}

var (
	ErrTaskFailed = errors.New("generation task failed")
	ErrNoAudio    = errors.New("no audio file in result")
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// Generate runs a whole generation: the task is submitted, polled until done
// and the resulting audio resolved to a local path. Failures reported by the
// service are returned in the response; transport errors and cancellation
// are returned as errors.
func (c *Client) Generate(ctx context.Context, req tracker.GenerationRequest) (tracker.GenerationResponse, error) {
	start := time.Now()
	taskID, err := c.Submit(ctx, GenerateRequest{
		Caption:        req.Prompt,
		Duration:       math.Round(req.DurationMs) / 1000,
		InferenceSteps: c.InferenceSteps,
		Seed:           -1,
		BatchSize:      1,
		AudioFormat:    c.AudioFormat,
	})
	if err != nil {
		return tracker.GenerationResponse{}, err
	}
	path, err := c.PollUntilDone(ctx, taskID)
	if errors.Is(err, ErrTaskFailed) || errors.Is(err, ErrNoAudio) {
		return tracker.GenerationResponse{Error: err.Error()}, nil
	}
	if err != nil {
		return tracker.GenerationResponse{}, err
	}
	log.Printf("task %s done in %s: %s", taskID, durafmt.Parse(time.Since(start)).LimitFirstN(2).Format(shortUnits), path)
	return tracker.GenerationResponse{Success: true, AudioRef: path}, nil
}

// WaitForHealthy blocks until the ACE-Step API responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	log.Println("Waiting for ACE-Step API to be ready...")
	retry := rate.NewLimiter(rate.Every(5*time.Second), 1)
	for {
		if err := retry.Wait(ctx); err != nil {
			return err
		}
		httpReq, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		resp, err := c.http.Do(httpReq)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				log.Println("ACE-Step API is healthy")
				return nil
			}
		}
		log.Println("ACE-Step not ready, retrying in 5s...")
	}
}

// Submit submits a music generation task and returns the task ID.
func (c *Client) Submit(ctx context.Context, req GenerateRequest) (string, error) {
	var result releaseResp
	if err := c.post(ctx, "/release_task", req, &result); err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	if result.Code != 200 {
		return "", fmt.Errorf("API error (code %d): %s", result.Code, result.Error)
	}
	return result.Data.TaskID, nil
}

// PollUntilDone polls for task completion, returning the audio file path.
// Transient poll errors are logged and retried.
func (c *Client) PollUntilDone(ctx context.Context, taskID string) (string, error) {
	body := map[string][]string{"task_id_list": {taskID}}
	for {
		if err := c.poll.Wait(ctx); err != nil {
			return "", err
		}
		var result queryResp
		if err := c.post(ctx, "/query_result", body, &result); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("Poll error: %v, retrying...", err)
			continue
		}
		if len(result.Data) == 0 {
			continue
		}
		task := result.Data[0]
		switch task.Status {
		case 1:
			return c.extractAudioPath(ctx, task.Result)
		case 2:
			return "", fmt.Errorf("%w: %s", ErrTaskFailed, taskID)
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractAudioPath parses the result JSON and returns the local file path.
func (c *Client) extractAudioPath(ctx context.Context, resultJSON string) (string, error) {
	var items []resultItem
	if err := json.Unmarshal([]byte(resultJSON), &items); err != nil {
		return "", fmt.Errorf("parse result items: %w", err)
	}
	if len(items) == 0 || items[0].File == "" {
		return "", ErrNoAudio
	}
	fileRef := items[0].File

	// ACE-Step returns paths like "/v1/audio?path=outputs/task_xxx/0.mp3";
	// with a shared volume the file is already here
	if u, err := url.Parse(fileRef); err == nil && c.outputDir != "" {
		if relPath := u.Query().Get("path"); relPath != "" {
			localPath := filepath.Join(c.outputDir, relPath)
			if _, err := os.Stat(localPath); err == nil {
				return localPath, nil
			}
		}
	}
	return c.downloadAudio(ctx, fileRef)
}

// downloadAudio fetches the audio file from the API and saves it in a
// temporary file.
func (c *Client) downloadAudio(ctx context.Context, fileRef string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.apiURL+fileRef, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download audio: %s", resp.Status)
	}
	ext := filepath.Ext(fileRef)
	if u, err := url.Parse(fileRef); err == nil {
		if p := u.Query().Get("path"); p != "" {
			ext = filepath.Ext(p)
		}
	}
	tmpFile, err := os.CreateTemp("", "tahti-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return tmpFile.Name(), nil
}
