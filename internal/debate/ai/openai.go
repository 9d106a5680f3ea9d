package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openpodium/podium/internal/debate/domain"
)

// OpenAIConfig configures the OpenAI responses endpoint and HTTP behavior.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

// OpenAIClient implements all three collaborators against the OpenAI
// responses API. Model output must be strict JSON; anything unparseable is
// surfaced as an error, never coerced into a plausible-looking result.
type OpenAIClient struct {
	cfg OpenAIConfig
}

// NewOpenAIClient builds an OpenAI-backed collaborator client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &OpenAIClient{cfg: cfg}, nil
}

const analyzeMotionPrompt = `You are an experienced British Parliamentary debate adjudicator.
Analyze the following debate motion and respond with JSON only, in the shape
{"language": "<BCP 47 tag of the motion language>", "criteria": ["..."], "background": "..."}.
Provide 3 to 5 motion-specific judging criteria and a short neutral background paragraph.

Motion: %s`

const evaluateSpeechPrompt = `You are an experienced British Parliamentary debate adjudicator.
Evaluate the captured speech below for the %s role and respond with JSON only, in the shape
{"transcription": "...", "score": <number between 0 and 20>, "feedback": "..."}.
Judge against the motion, the provided criteria, and the duties of the role.

Motion: %s
Criteria: %s
Background: %s
Audio reference: %s
Audio (base64): %s`

const rankTeamsPrompt = `You are the chair adjudicator of a British Parliamentary debate.
Rank the four teams and respond with JSON only, in the shape
{"rankings": [{"team": "OG|OO|CG|CO", "rank": 1, "reasoning": "..."}, ...exactly four entries...], "overall": "..."}.
Every team appears exactly once and ranks form a permutation of 1 to 4.
Base the decision on the speeches below; a speaker without a speech did not fulfil the role.

Motion: %s
Criteria: %s
Speakers:
%s`

// AnalyzeMotion derives a motion context from the motion text.
func (c *OpenAIClient) AnalyzeMotion(ctx context.Context, motion string) (domain.MotionContext, error) {
	output, err := c.invoke(ctx, fmt.Sprintf(analyzeMotionPrompt, motion))
	if err != nil {
		return domain.MotionContext{}, err
	}

	var payload struct {
		Language   string   `json:"language"`
		Criteria   []string `json:"criteria"`
		Background string   `json:"background"`
	}
	if err := decodeModelJSON(output, &payload); err != nil {
		return domain.MotionContext{}, fmt.Errorf("decode motion analysis: %w", err)
	}

	mc, err := domain.NormalizeMotionContext(domain.MotionContext{
		Language:   payload.Language,
		Criteria:   payload.Criteria,
		Background: payload.Background,
	})
	if err != nil {
		return domain.MotionContext{}, fmt.Errorf("motion analysis invalid: %w", err)
	}
	return mc, nil
}

// EvaluateSpeech transcribes and scores one captured speech.
func (c *OpenAIClient) EvaluateSpeech(ctx context.Context, req EvaluateSpeechRequest) (SpeechEvaluation, error) {
	audio := ""
	if len(req.Audio) > 0 {
		audio = base64.StdEncoding.EncodeToString(req.Audio)
	}
	prompt := fmt.Sprintf(evaluateSpeechPrompt,
		req.Role,
		req.Motion,
		strings.Join(req.MotionContext.Criteria, "; "),
		req.MotionContext.Background,
		req.AudioRef,
		audio,
	)
	output, err := c.invoke(ctx, prompt)
	if err != nil {
		return SpeechEvaluation{}, err
	}

	var payload struct {
		Transcription string  `json:"transcription"`
		Score         float64 `json:"score"`
		Feedback      string  `json:"feedback"`
	}
	if err := decodeModelJSON(output, &payload); err != nil {
		return SpeechEvaluation{}, fmt.Errorf("decode speech evaluation: %w", err)
	}
	if payload.Score < domain.MinScore || payload.Score > domain.MaxScore {
		return SpeechEvaluation{}, fmt.Errorf("speech evaluation score %v is out of range", payload.Score)
	}
	if strings.TrimSpace(payload.Transcription) == "" {
		return SpeechEvaluation{}, fmt.Errorf("speech evaluation missing transcription")
	}
	return SpeechEvaluation{
		Transcription: payload.Transcription,
		Score:         payload.Score,
		Feedback:      payload.Feedback,
	}, nil
}

// RankTeams produces the final adjudication for the debate.
func (c *OpenAIClient) RankTeams(ctx context.Context, req RankTeamsRequest) (Adjudication, error) {
	var speakerLines strings.Builder
	for _, sp := range req.Speakers {
		if sp.Completed {
			fmt.Fprintf(&speakerLines, "- %s (%s, %s): score %.1f, speech: %s\n", sp.Name, sp.Role, sp.Team, sp.Score, sp.Transcription)
			continue
		}
		fmt.Fprintf(&speakerLines, "- %s (%s, %s): no speech delivered\n", sp.Name, sp.Role, sp.Team)
	}
	prompt := fmt.Sprintf(rankTeamsPrompt,
		req.Motion,
		strings.Join(req.MotionContext.Criteria, "; "),
		speakerLines.String(),
	)
	output, err := c.invoke(ctx, prompt)
	if err != nil {
		return Adjudication{}, err
	}

	var payload struct {
		Rankings []struct {
			Team      string `json:"team"`
			Rank      int    `json:"rank"`
			Reasoning string `json:"reasoning"`
		} `json:"rankings"`
		Overall string `json:"overall"`
	}
	if err := decodeModelJSON(output, &payload); err != nil {
		return Adjudication{}, fmt.Errorf("decode adjudication: %w", err)
	}

	rankings := make([]domain.RankedTeam, 0, len(payload.Rankings))
	for _, r := range payload.Rankings {
		rankings = append(rankings, domain.RankedTeam{
			Team:      domain.Team(strings.ToUpper(strings.TrimSpace(r.Team))),
			Rank:      r.Rank,
			Reasoning: r.Reasoning,
		})
	}
	return Adjudication{Rankings: rankings, Summary: payload.Overall}, nil
}

// invoke sends one prompt to the responses endpoint and returns the output text.
func (c *OpenAIClient) invoke(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoke request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is
	// never echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read invoke error body: %w", err)
		}
		return "", fmt.Errorf("invoke request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode invoke response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", fmt.Errorf("invoke response missing output text")
	}
	return outputText, nil
}

// decodeModelJSON parses model output as strict JSON, tolerating a single
// markdown code fence around the document.
func decodeModelJSON(output string, target any) error {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
