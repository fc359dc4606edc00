package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/windfall/phonoecho_service/internal/errors"
)

const defaultWAVContentType = "audio/wav; codecs=audio/pcm; samplerate=16000"

// AzureSpeechClient wraps the Azure AI Speech short-audio REST API.
type AzureSpeechClient struct {
	apiKey  string
	region  string
	baseURL string
	client  *http.Client
}

// NewAzureSpeechClient creates a new Azure Speech client.
func NewAzureSpeechClient(apiKey, region string) *AzureSpeechClient {
	return &AzureSpeechClient{
		apiKey:  apiKey,
		region:  region,
		baseURL: fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the client at another endpoint, such as a test server.
func (c *AzureSpeechClient) WithBaseURL(baseURL string) *AzureSpeechClient {
	c.baseURL = baseURL
	return c
}

// assessmentParams is the Pronunciation-Assessment header payload.
type assessmentParams struct {
	ReferenceText           string `json:"ReferenceText"`
	GradingSystem           string `json:"GradingSystem"`
	Granularity             string `json:"Granularity"`
	Dimension               string `json:"Dimension"`
	EnableMiscue            bool   `json:"EnableMiscue"`
	EnableProsodyAssessment bool   `json:"EnableProsodyAssessment"`
	PhonemeAlphabet         string `json:"PhonemeAlphabet"`
	NBestPhonemeCount       int    `json:"NBestPhonemeCount"`
}

// AssessPronunciation scores audio against referenceText and returns the raw
// detailed JSON response. Phoneme granularity, miscue detection and prosody
// assessment are always requested. contentType defaults to 16 kHz PCM WAV.
func (c *AzureSpeechClient) AssessPronunciation(ctx context.Context, audio []byte, contentType, referenceText, language string) ([]byte, error) {
	if c.apiKey == "" || c.region == "" {
		return nil, errors.New(errors.ErrAIService, "Azure Speech credentials not configured")
	}
	if language == "" {
		language = "en-US"
	}
	if contentType == "" {
		contentType = defaultWAVContentType
	}

	u, err := url.Parse(c.baseURL + "/speech/recognition/conversation/cognitiveservices/v1")
	if err != nil {
		return nil, fmt.Errorf("invalid speech endpoint: %w", err)
	}
	q := u.Query()
	q.Set("language", language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	params, err := json.Marshal(assessmentParams{
		ReferenceText:           referenceText,
		GradingSystem:           "HundredMark",
		Granularity:             "Phoneme",
		Dimension:               "Comprehensive",
		EnableMiscue:            true,
		EnableProsodyAssessment: true,
		PhonemeAlphabet:         "IPA",
		NBestPhonemeCount:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json;text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "speech assessment request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "failed to read speech assessment", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrAIService, fmt.Sprintf("azure speech api error %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
