package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/phonoecho_service/internal/errors"
)

func TestAssessPronunciation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech/recognition/conversation/cognitiveservices/v1", r.URL.Path)
		assert.Equal(t, "en-GB", r.URL.Query().Get("language"))
		assert.Equal(t, "detailed", r.URL.Query().Get("format"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, defaultWAVContentType, r.Header.Get("Content-Type"))

		raw, err := base64.StdEncoding.DecodeString(r.Header.Get("Pronunciation-Assessment"))
		require.NoError(t, err)
		var params assessmentParams
		require.NoError(t, json.Unmarshal(raw, &params))
		assert.Equal(t, "Red rocket.", params.ReferenceText)
		assert.Equal(t, "Phoneme", params.Granularity)
		assert.True(t, params.EnableMiscue)
		assert.True(t, params.EnableProsodyAssessment)

		audio, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("RIFF"), audio)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"RecognitionStatus":"Success","NBest":[]}`))
	}))
	defer server.Close()

	c := NewAzureSpeechClient("test-key", "westus").WithBaseURL(server.URL)
	body, err := c.AssessPronunciation(context.Background(), []byte("RIFF"), "", "Red rocket.", "en-GB")
	require.NoError(t, err)
	assert.JSONEq(t, `{"RecognitionStatus":"Success","NBest":[]}`, string(body))
}

func TestAssessPronunciationErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewAzureSpeechClient("k", "westus").WithBaseURL(server.URL).
		AssessPronunciation(context.Background(), nil, "", "hi", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
	assert.Contains(t, err.Error(), "429")

	_, err = NewAzureSpeechClient("", "").AssessPronunciation(context.Background(), nil, "", "hi", "")
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
}
