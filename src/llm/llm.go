package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Error kinds the coordinator maps to distinct UI notifications.
var (
	// ErrQuotaExceeded covers HTTP 429 responses from the API.
	ErrQuotaExceeded = errors.New("api quota exceeded")
	// ErrUnauthorized covers missing or invalid credentials (HTTP 401/403).
	ErrUnauthorized = errors.New("api unauthorized")
	// ErrMalformedResponse means the model's output failed schema decoding
	// even after the fenced-markup retry.
	ErrMalformedResponse = errors.New("malformed api response")
)

// MalformedResponseError carries the raw model output for diagnosis.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed api response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return ErrMalformedResponse }

// Reasoning traces are bounded; anything past this is dropped on decode.
const maxThoughts = 5

const requestTemperature = 0.1

type Config struct {
	APIKey          string
	BaseURL         string
	ExtractionModel string
	SolutionModel   string
	DebuggingModel  string
}

// Client wraps the chat-completions API with the fixed JSON-schema response
// contracts for extraction, solving and debugging.
type Client struct {
	api *openai.Client
	cfg Config
}

func New(cfg Config) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(clientConfig), cfg: cfg}
}

// Ping validates key and connectivity with a cheap request at startup.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: API key is empty", ErrUnauthorized)
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// Example is one sample input/output pair from the problem statement.
type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ProblemInfo is the structured extraction result.
type ProblemInfo struct {
	Statement    string    `json:"problem_statement"`
	InputFormat  string    `json:"input_format"`
	OutputFormat string    `json:"output_format"`
	Constraints  []string  `json:"constraints"`
	Examples     []Example `json:"example_cases"`
}

// Solution is the structured solve/debug result.
type Solution struct {
	Thoughts        []string `json:"thoughts"`
	Code            string   `json:"code"`
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
}

const extractionPrompt = "Extract the coding problem from the provided input. " +
	"Report the problem statement, the input and output formats, the stated " +
	"constraints, and every example case exactly as given. Do not invent " +
	"details that are not present."

// ExtractFromImages runs the extraction call over captured screenshots.
func (c *Client) ExtractFromImages(ctx context.Context, images [][]byte) (*ProblemInfo, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to extract from")
	}
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: extractionPrompt,
	}}
	for _, img := range images {
		parts = append(parts, imagePart(img))
	}
	return c.extract(ctx, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}

// ExtractFromText runs the extraction call over a free-text problem query.
func (c *Client) ExtractFromText(ctx context.Context, query string) (*ProblemInfo, error) {
	return c.extract(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: extractionPrompt + "\n\nProblem text:\n" + query,
	})
}

func (c *Client) extract(ctx context.Context, msg openai.ChatCompletionMessage) (*ProblemInfo, error) {
	content, err := c.chat(ctx, c.cfg.ExtractionModel, []openai.ChatCompletionMessage{msg},
		"extracted_problem", problemSchema)
	if err != nil {
		return nil, err
	}
	var problem ProblemInfo
	if err := decodeStructured(content, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}

// Solve asks for a solution to an extracted problem.
func (c *Client) Solve(ctx context.Context, problem *ProblemInfo, language string) (*Solution, error) {
	problemJSON, err := json.Marshal(problem)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal problem: %w", err)
	}
	prompt := fmt.Sprintf("Solve this coding problem in %s. Walk through your "+
		"reasoning as a short ordered list of thoughts, then give the complete "+
		"code and its time and space complexity.\n\nProblem:\n%s",
		language, problemJSON)

	content, err := c.chat(ctx, c.cfg.SolutionModel, []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}}, "solution", solutionSchema)
	if err != nil {
		return nil, err
	}
	return decodeSolution(content)
}

// Debug asks for an improved version of prior code given fresh screenshots of
// its current state.
func (c *Client) Debug(ctx context.Context, problem *ProblemInfo, code, language string, images [][]byte) (*Solution, error) {
	problemJSON, err := json.Marshal(problem)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal problem: %w", err)
	}
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: fmt.Sprintf("The screenshots show the current state of a %s "+
			"solution, possibly with error messages or failing tests. Debug and "+
			"improve it. Report your reasoning, the corrected code and its time "+
			"and space complexity.\n\nProblem:\n%s\n\nPrevious code:\n%s",
			language, problemJSON, code),
	}}
	for _, img := range images {
		parts = append(parts, imagePart(img))
	}

	content, err := c.chat(ctx, c.cfg.DebuggingModel, []openai.ChatCompletionMessage{{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}}, "solution", solutionSchema)
	if err != nil {
		return nil, err
	}
	return decodeSolution(content)
}

func decodeSolution(content string) (*Solution, error) {
	var sol Solution
	if err := decodeStructured(content, &sol); err != nil {
		return nil, err
	}
	if len(sol.Thoughts) > maxThoughts {
		sol.Thoughts = sol.Thoughts[:maxThoughts]
	}
	return &sol, nil
}

func (c *Client) chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, schemaName string, schema json.RawMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: requestTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in api response")
	}
	return resp.Choices[0].Message.Content, nil
}

func imagePart(data []byte) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
			Detail: openai.ImageURLDetailAuto,
		},
	}
}

// classifyError maps API failures onto the coordinator's error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		}
		return fmt.Errorf("api error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err
}
