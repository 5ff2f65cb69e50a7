package assessor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"Label-Scanner-Backend/domain"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionsURL = "https://openai.test/v1/chat/completions"

func newTestAssessor(t *testing.T) *openAIAssessor {
	t.Helper()
	a := newOpenAIAssessor(Config{APIKey: "sk-test", BaseURL: "https://openai.test/v1", Timeout: time.Second})
	httpmock.ActivateNonDefault(a.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return a
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
}

func TestAssess_Success(t *testing.T) {
	a := newTestAssessor(t)

	var captured map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, completionsURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return httpmock.NewJsonResponse(http.StatusOK, completion(`{
			"ingredients": ["Sugar", "Salt"],
			"harmfulIngredients": [{"name": " Sugar ", "riskLevel": "High", "reason": "Adds empty calories."}],
			"healthScore": 2,
			"recommendation": "Occasional treat.",
			"summaryNote": "High in sugar."
		}`))
	})

	got, err := a.Assess(context.Background(), "Ingredients: Sugar, Salt")
	require.NoError(t, err)

	assert.Equal(t, []string{"Sugar", "Salt"}, got.Ingredients)
	assert.Equal(t, 2, got.HealthScore)
	require.Len(t, got.HarmfulIngredients, 1)
	assert.Equal(t, domain.HarmfulIngredient{Name: "Sugar", RiskLevel: domain.RiskHigh, Reason: "Adds empty calories."}, got.HarmfulIngredients[0])

	assert.Equal(t, defaultModel, captured["model"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, captured["response_format"])
}

func TestAssess_TransportErrors(t *testing.T) {
	a := newTestAssessor(t)

	httpmock.RegisterResponder(http.MethodPost, completionsURL, httpmock.NewErrorResponder(errors.New("dial tcp: i/o timeout")))
	_, err := a.Assess(context.Background(), "text")
	require.ErrorIs(t, err, domain.ErrHealthScoreFetchFailed)
	assert.NotErrorIs(t, err, domain.ErrHealthDataNotReturned)

	httpmock.Reset()
	httpmock.RegisterResponder(http.MethodPost, completionsURL, httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":"rate limited"}`))
	_, err = a.Assess(context.Background(), "text")
	require.ErrorIs(t, err, domain.ErrHealthScoreFetchFailed)
}

func TestAssess_DataErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"no choices", map[string]interface{}{"choices": []interface{}{}}},
		{"null content", completion("null")},
		{"not json", completion("I cannot help with that.")},
		{"score out of range", completion(`{"ingredients":[],"harmfulIngredients":[],"healthScore":9}`)},
		{"unknown risk level", completion(`{"ingredients":[],"harmfulIngredients":[{"name":"E621","riskLevel":"extreme"}],"healthScore":2}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssessor(t)
			httpmock.RegisterResponder(http.MethodPost, completionsURL, httpmock.NewJsonResponderOrPanic(http.StatusOK, tt.body))

			got, err := a.Assess(context.Background(), "text")
			assert.Nil(t, got)
			require.ErrorIs(t, err, domain.ErrHealthDataNotReturned)
			assert.NotErrorIs(t, err, domain.ErrHealthScoreFetchFailed)
		})
	}
}

func TestParseAssessment_FencedJSON(t *testing.T) {
	got, err := ParseAssessment("```json\n{\"ingredients\":null,\"harmfulIngredients\":null,\"healthScore\":5,\"recommendation\":\" Fine \"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 5, got.HealthScore)
	assert.Equal(t, []string{}, got.Ingredients)
	assert.Equal(t, []domain.HarmfulIngredient{}, got.HarmfulIngredients)
	assert.Equal(t, "Fine", got.Recommendation)
}

func TestNewOpenAIAssessor_RequiresKey(t *testing.T) {
	_, err := NewOpenAIAssessor(Config{})
	assert.Error(t, err)
}
