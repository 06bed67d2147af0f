package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/okian/skillgrade/internal/domain/generative"
)

type fakeModels struct {
	genResp *genai.GenerateContentResponse
	genErr  error
	embResp *genai.EmbedContentResponse
	embErr  error

	gotModel  string
	gotConfig *genai.GenerateContentConfig
	gotEmbCfg *genai.EmbedContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel, f.gotConfig = model, cfg
	return f.genResp, f.genErr
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.gotModel, f.gotEmbCfg = model, cfg
	return f.embResp, f.embErr
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeneratorJoinsParts(t *testing.T) {
	fm := &fakeModels{genResp: textResponse(`{"score":`, ` 80}`)}
	g := &Generator{models: fm, modelName: "gemini-2.5-flash", temperature: 0.2}

	out, err := g.GenerateContent(context.Background(), "be strict", "score this")
	require.NoError(t, err)
	assert.Equal(t, "{\"score\":\n80}", out)
	assert.Equal(t, "gemini-2.5-flash", fm.gotModel)
	assert.Equal(t, "application/json", fm.gotConfig.ResponseMIMEType)
	require.NotNil(t, fm.gotConfig.SystemInstruction)
	assert.Equal(t, "gemini-2.5-flash", g.Model())
}

func TestGeneratorEmptyResponseIsSchemaError(t *testing.T) {
	g := &Generator{models: &fakeModels{genResp: textResponse("  ")}, modelName: "m"}
	_, err := g.GenerateContent(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, generative.ErrSchema)

	_, err = g.GenerateContent(context.Background(), "", " ")
	assert.Error(t, err)
}

func TestGeneratorQuotaClassification(t *testing.T) {
	quota := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	g := &Generator{models: &fakeModels{genErr: quota}, modelName: "m"}
	_, err := g.GenerateContent(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, generative.ErrQuota)

	g = &Generator{models: &fakeModels{genErr: errors.New("dial tcp")}, modelName: "m"}
	_, err = g.GenerateContent(context.Background(), "", "prompt")
	assert.NotErrorIs(t, err, generative.ErrQuota)
}

func TestEmbedder(t *testing.T) {
	fm := &fakeModels{embResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2}}},
	}}
	e := &Embedder{models: fm, modelName: "gemini-embedding-001"}

	v, err := e.Embed(context.Background(), "boolean string")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v)
	assert.Equal(t, embeddingTask, string(fm.gotEmbCfg.TaskType))

	e.models = &fakeModels{embResp: &genai.EmbedContentResponse{}}
	_, err = e.Embed(context.Background(), "x")
	assert.Error(t, err)
}
