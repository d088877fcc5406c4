package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/username/smartflow/backend/src/logger"
	"github.com/username/smartflow/backend/src/models"
)

const extractionPrompt = `You are a Data Extraction API.
Extract the following fields from the user input:
- item (string): The product name.
- qty (integer): The quantity.
- client (string): The client/customer name.
- action (string): The action taken (e.g., sold, returned, ordered).

User Input: %q

Return ONLY raw JSON. Do not include markdown formatting or explanations.
Example Output: {"item": "iPhone 15", "qty": 5, "client": "Client A", "action": "sold"}`

// Structs for the generateContent API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// GeminiExtractor calls a Gemini-style generateContent endpoint to parse
// unstructured text into a payload.
type GeminiExtractor struct {
	httpClient http.Client
	endpoint   string
	model      string
	apiKey     string
}

func NewGeminiExtractor(endpoint, model, apiKey string, timeout time.Duration) *GeminiExtractor {
	return &GeminiExtractor{
		httpClient: http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
	}
}

func (e *GeminiExtractor) Extract(ctx context.Context, rawText string) (models.ExtractedPayload, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrExtractionFailed)
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: fmt.Sprintf(extractionPrompt, rawText)}}}},
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: error encoding request: %v", ErrExtractionFailed, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.endpoint, e.model, e.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: error building request: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.L.Debug("Sending extraction request to LLM", "model", e.model)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response body: %v", ErrExtractionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model API returned status %d", ErrExtractionFailed, resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: error decoding model response: %v", ErrExtractionFailed, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: model returned no candidates", ErrExtractionFailed)
	}

	return decodePayload(parsed.Candidates[0].Content.Parts[0].Text)
}

// decodePayload strips any markdown fencing the model wrapped around its
// output and decodes the JSON, preserving number representations so the
// validator can distinguish integers from floats.
func decodePayload(text string) (models.ExtractedPayload, error) {
	cleaned := cleanJSONString(text)

	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	var payload models.ExtractedPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: model output is not valid JSON: %v", ErrExtractionFailed, err)
	}
	return payload, nil
}

func cleanJSONString(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}
