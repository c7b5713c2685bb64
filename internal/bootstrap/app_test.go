package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-roaster/internal/analyses"
	"resume-roaster/internal/llm"
	"resume-roaster/internal/shared/config"
)

const reply = `{"feedback":"Fine.","score":64,"strengths":["Tidy"],"weaknesses":["Vague"],` +
	`"improvements":[{"priority":"medium","title":"Numbers","description":"Add metrics."}]}`

func devConfig() config.Config {
	return config.Config{
		Env: "dev",
		HTTP: config.HTTPConfig{
			RatePerSecond: 10,
			RateBurst:     10,
		},
		LLM: config.LLMConfig{
			Provider:    config.ProviderOpenAI,
			Model:       "test-model",
			Timeout:     time.Second,
			MaxAttempts: 3,
		},
		RateLimit: config.RateLimitConfig{HourlyCap: 5},
		Retention: config.RetentionConfig{Days: 30},
	}
}

func fakeClient() llm.Client {
	return llm.ClientFunc(func(context.Context, llm.Request) (string, error) { return reply, nil })
}

func TestBuildServesAnalyze(t *testing.T) {
	app, err := Build(context.Background(), devConfig(), Options{Client: fakeClient()})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Redis)
	assert.IsType(t, &analyses.MemoryRepo{}, app.AnalysesService.Recorder)

	body := `{"text":"Jane Doe\nBackend engineer with eight years of Go and Postgres experience.","tone":"mild"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"score":64`)
	assert.Equal(t, 1, app.Limiter.State(context.Background()).HourlyUsed)
}

func TestBuildUsesRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := devConfig()
	cfg.Redis.URL = "redis://" + mr.Addr()

	app, err := Build(context.Background(), cfg, Options{Client: fakeClient(), SkipRouter: true})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	require.NotNil(t, app.Redis)
	assert.Nil(t, app.Router)

	res := app.AnalysesService.Analyze(context.Background(), analyses.Request{
		Text: "Jane Doe\nBackend engineer with eight years of Go and Postgres experience.",
	})
	require.True(t, res.Success, res.ErrorCode)

	n, err := mr.ZMembers("roaster:llm:dispatches")
	require.NoError(t, err)
	assert.Len(t, n, 1)
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	_, err := Build(context.Background(), cfg, Options{Client: fakeClient()})
	assert.Error(t, err)
}

func TestBuildClient(t *testing.T) {
	c, err := buildClient(config.LLMConfig{Provider: config.ProviderAnthropic, Model: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	c, err = buildClient(config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	_, err = buildClient(config.LLMConfig{Provider: "bard", Model: "x", APIKey: "k"})
	assert.Error(t, err)
}
