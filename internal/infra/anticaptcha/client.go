package anticaptcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"revenda-crm/internal/metrics"
)

// ErrTimeout is returned when the solving service did not produce a token
// within the configured poll budget.
var ErrTimeout = errors.New("anticaptcha: solve timed out")

// Challenge describes the puzzle a panel's login form presents.
type Challenge struct {
	PageURL string
	SiteKey string
}

// SolverError is a non-zero error code reported by the solving service on
// task submission. It is terminal for the owning authentication attempt.
type SolverError struct {
	Code        int
	Description string
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("anticaptcha: error %d: %s", e.Code, e.Description)
}

// Client talks to an anti-captcha compatible solving service.
type Client struct {
	apiURL       string
	clientKey    string
	pollInterval time.Duration
	maxPolls     int
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(apiURL, clientKey string, pollInterval time.Duration, maxPolls int, logger *slog.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxPolls <= 0 {
		maxPolls = 30
	}

	return &Client{
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		clientKey:    clientKey,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

type createTaskRequest struct {
	ClientKey string      `json:"clientKey"`
	Task      interface{} `json:"task"`
}

type hcaptchaTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int64  `json:"taskId"`
}

type getResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type getResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Token              string `json:"token"`
	} `json:"solution"`
}

// Solve submits the challenge and polls until the service returns a token.
// Each poll burns solving-service quota, so the attempt count is logged.
// Both *SolverError and ErrTimeout are hard failures for the caller; there
// is no retry at this layer.
func (c *Client) Solve(ctx context.Context, ch Challenge) (string, error) {
	taskID, err := c.createTask(ctx, ch)
	if err != nil {
		metrics.CaptchaSolvesTotal.WithLabelValues("error").Inc()
		return "", err
	}

	c.logger.Info("Challenge submitted to solving service",
		"task_id", taskID,
		"page_url", ch.PageURL)

	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			metrics.CaptchaSolvesTotal.WithLabelValues("error").Inc()
			return "", errors.Wrap(ctx.Err(), "anticaptcha: wait for poll")
		case <-time.After(c.pollInterval):
		}

		metrics.CaptchaPollsTotal.Inc()

		res, err := c.getTaskResult(ctx, taskID)
		if err != nil {
			metrics.CaptchaSolvesTotal.WithLabelValues("error").Inc()
			return "", err
		}

		if res.Status == "ready" {
			token := res.Solution.GRecaptchaResponse
			if token == "" {
				token = res.Solution.Token
			}
			c.logger.Info("Challenge solved",
				"task_id", taskID,
				"attempts", attempt)
			metrics.CaptchaSolvesTotal.WithLabelValues("solved").Inc()
			return token, nil
		}

		c.logger.Debug("Challenge still processing",
			"task_id", taskID,
			"attempt", attempt)
	}

	c.logger.Warn("Challenge solve exhausted poll budget",
		"task_id", taskID,
		"attempts", c.maxPolls)
	metrics.CaptchaSolvesTotal.WithLabelValues("timeout").Inc()
	return "", ErrTimeout
}

func (c *Client) createTask(ctx context.Context, ch Challenge) (int64, error) {
	reqBody := createTaskRequest{
		ClientKey: c.clientKey,
		Task: hcaptchaTask{
			Type:       "HCaptchaTaskProxyless",
			WebsiteURL: ch.PageURL,
			WebsiteKey: ch.SiteKey,
		},
	}

	var res createTaskResponse
	if err := c.post(ctx, "/createTask", reqBody, &res); err != nil {
		return 0, err
	}

	if res.ErrorID != 0 {
		return 0, &SolverError{Code: res.ErrorID, Description: res.ErrorDescription}
	}

	return res.TaskID, nil
}

func (c *Client) getTaskResult(ctx context.Context, taskID int64) (*getResultResponse, error) {
	reqBody := getResultRequest{ClientKey: c.clientKey, TaskID: taskID}

	var res getResultResponse
	if err := c.post(ctx, "/getTaskResult", reqBody, &res); err != nil {
		return nil, err
	}

	if res.ErrorID != 0 {
		return nil, &SolverError{Code: res.ErrorID, Description: res.ErrorDescription}
	}

	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}

	return nil
}
