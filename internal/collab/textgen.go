package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/videditor/jobrunner/internal/domain"
	"github.com/videditor/jobrunner/internal/jobserrors"
	"github.com/videditor/jobrunner/internal/pkg/httpx"
)

const maxOpenRouterAttempts = 3

// ShortSuggestion is one candidate short-clip boundary returned by the
// text-generation model.
type ShortSuggestion struct {
	SegmentID     string
	StartTime     float64
	EndTime       float64
	Transcription string
}

func (s ShortSuggestion) Duration() float64 { return s.EndTime - s.StartTime }

// TextGenerator turns a transcript into candidate short-clip suggestions.
type TextGenerator interface {
	SuggestShorts(ctx context.Context, segments []domain.Segment, shortsCount int, customPrompt string) ([]ShortSuggestion, error)
}

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// openRouterClient calls the OpenRouter chat-completions API, grounded on
// original_source's ai.py prompt template and tolerant-per-item parsing
// contract: the outer JSON array must parse; individual malformed entries
// are skipped rather than failing the whole call.
type openRouterClient struct {
	apiKey string
	model  string
	http   *http.Client
}

// NewOpenRouterClient builds a TextGenerator against the OpenRouter API. The
// connection is bounded to 120s, matching the source's httpx.AsyncClient timeout.
func NewOpenRouterClient(apiKey, model string) TextGenerator {
	if model == "" {
		model = "openai/gpt-4o"
	}
	return &openRouterClient{
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type rawSuggestion struct {
	SegmentID     string `json:"segment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Transcription string `json:"transcription"`
}

func (c *openRouterClient) SuggestShorts(ctx context.Context, segments []domain.Segment, shortsCount int, customPrompt string) ([]ShortSuggestion, error) {
	prompt := buildAnalysisPrompt(segments, shortsCount, customPrompt)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	respBody, err := c.doWithRetry(ctx, body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, jobserrors.Collaborator("openrouter", "invalid response format: "+excerpt(string(respBody)))
	}

	content := stripFencedCodeBlock(parsed.Choices[0].Message.Content)

	var rawSuggestions []rawSuggestion
	if err := json.Unmarshal([]byte(content), &rawSuggestions); err != nil {
		return nil, jobserrors.Collaborator("openrouter", "unparseable suggestion array: "+err.Error())
	}

	suggestions := make([]ShortSuggestion, 0, len(rawSuggestions))
	for _, rs := range rawSuggestions {
		start, err := ParseTimestamp(rs.StartTime)
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(rs.EndTime)
		if err != nil {
			continue
		}
		suggestions = append(suggestions, ShortSuggestion{
			SegmentID:     rs.SegmentID,
			StartTime:     start,
			EndTime:       end,
			Transcription: rs.Transcription,
		})
	}
	return suggestions, nil
}

// doWithRetry posts the chat-completion body, retrying transient failures
// (408, 429, 5xx, retryable transport errors). Transport errors back off
// with jitter; retryable statuses wait for Retry-After (or the fallback),
// capped at 30s.
func (c *openRouterClient) doWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxOpenRouterAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("HTTP-Referer", "https://videditor.app")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = jobserrors.Collaborator("openrouter", err.Error())
			if !httpx.IsRetryableError(err) || attempt == maxOpenRouterAttempts {
				return nil, lastErr
			}
			time.Sleep(httpx.JitterSleep(time.Duration(attempt) * time.Second))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, jobserrors.Collaborator("openrouter", "reading response: "+readErr.Error())
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = jobserrors.Collaborator("openrouter", fmt.Sprintf("status %d: %s", resp.StatusCode, excerpt(string(respBody))))
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) || attempt == maxOpenRouterAttempts {
			return nil, lastErr
		}
		time.Sleep(httpx.RetryAfterDuration(resp, time.Duration(attempt)*time.Second, 30*time.Second))
	}
	return nil, lastErr
}

// stripFencedCodeBlock removes a leading/trailing ```json or ``` fence, if present.
func stripFencedCodeBlock(content string) string {
	content = strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(content, "```json"):
		content = content[len("```json"):]
	case strings.HasPrefix(content, "```"):
		content = content[len("```"):]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// buildAnalysisPrompt formats the transcript with timestamps and the fixed
// instruction template, appending customPrompt when present.
func buildAnalysisPrompt(segments []domain.Segment, shortsCount int, customPrompt string) string {
	var transcript strings.Builder
	for _, seg := range segments {
		transcript.WriteString(formatTimeRange(seg.Start, seg.End))
		transcript.WriteString(": ")
		transcript.WriteString(strings.TrimSpace(seg.Text))
		transcript.WriteString("\n")
	}

	customSection := ""
	if strings.TrimSpace(customPrompt) != "" {
		customSection = "\n\nCustom Instructions:\n" + customPrompt + "\n"
	}

	return fmt.Sprintf(`You are analyzing a video transcript to find the best moments for creating %d short-form videos (ideally between 30 and 45 seconds, max 60 seconds if needed for message consistency).
%s
Criteria for selection:
- Engaging moments (exciting, funny, emotionally compelling)
- High information density (valuable tips, insights, key points)
- Complete thoughts (not cut off mid-sentence or mid-idea)
- Natural start and end points (speech pauses, topic transitions)
- Self-contained segments that feel like standalone content, not fragments

Transcript with timestamps:
%s
Please identify the %d best segments. Return your response as a JSON array with this exact format:
[
  {
    "segment_id": "001",
    "start_time": "00:01:23,456",
    "end_time": "00:02:05,789",
    "transcription": "The exact words spoken in this segment..."
  }
]

Return ONLY the JSON array, no other text.`, shortsCount, customSection, transcript.String(), shortsCount)
}

func formatTimeRange(start, end float64) string {
	return fmt.Sprintf("%s - %s", formatHMS(start), formatHMS(end))
}

func formatHMS(totalSeconds float64) string {
	total := int(totalSeconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseTimestamp converts "HH:MM:SS[,.]mmm" or "MM:SS[,.]mmm" into seconds.
func ParseTimestamp(timestamp string) (float64, error) {
	ts := strings.ReplaceAll(timestamp, ",", ".")

	timePart := ts
	msPart := "0"
	if idx := strings.Index(ts, "."); idx != -1 {
		timePart = ts[:idx]
		msPart = ts[idx+1:]
	}

	parts := strings.Split(timePart, ":")
	var totalSeconds int
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		s, err := strconv.Atoi(parts[2])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		totalSeconds = h*3600 + m*60 + s
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		s, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
		}
		totalSeconds = m*60 + s
	default:
		return 0, fmt.Errorf("invalid timestamp format: %q", timestamp)
	}

	msValue, err := strconv.ParseFloat("0."+msPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	return float64(totalSeconds) + msValue, nil
}
