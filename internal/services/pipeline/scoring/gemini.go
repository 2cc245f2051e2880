package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const resumeLimit = 12000

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiScorer asks a Gemini model to rate a resume against a job title.
type GeminiScorer struct {
	models contentGenerator
	model  string
}

// NewGeminiScorer creates a scorer backed by the Gemini API.
func NewGeminiScorer(ctx context.Context, apiKey, model string) (*GeminiScorer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiScorer(client.Models, model), nil
}

func newGeminiScorer(models contentGenerator, model string) *GeminiScorer {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &GeminiScorer{models: models, model: model}
}

// Model returns the configured model name.
func (g *GeminiScorer) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Score implements Scorer.
func (g *GeminiScorer) Score(ctx context.Context, req Request) (domain.SubScores, error) {
	assessment, err := g.Assess(ctx, req)
	if err != nil {
		return domain.SubScores{}, err
	}
	return assessment.Scores, nil
}

// Assess implements Assessor.
func (g *GeminiScorer) Assess(ctx context.Context, req Request) (Assessment, error) {
	if g == nil || g.models == nil {
		return Assessment{}, errors.New("gemini scorer is not initialized")
	}
	resume := strings.TrimSpace(req.ResumeText)
	if resume == "" {
		return Assessment{}, errors.New("resume text is required")
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(req.JobTitle, resume)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   assessmentSchema(),
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("generate content: %w", err)
	}
	return parseAssessment(responseText(resp))
}

var recommendations = []string{"Highly Recommended", "Recommended", "Consider", "Not Recommended"}

func assessmentSchema() *genai.Schema {
	percent := func(description string) *genai.Schema {
		low, high := 0.0, 100.0
		return &genai.Schema{Type: genai.TypeInteger, Description: description, Minimum: &low, Maximum: &high}
	}
	list := func(description string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Description: description, Items: &genai.Schema{Type: genai.TypeString}}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"skills_match":     percent("How well the candidate's skills match the role"),
			"experience_match": percent("How well the candidate's experience matches the role"),
			"education_match":  percent("How well the candidate's education matches the role"),
			"recommendation":   {Type: genai.TypeString, Enum: recommendations},
			"key_strengths":    list("Three to five specific strengths"),
			"areas_of_concern": list("Areas to explore in the interview"),
		},
		Required: []string{"skills_match", "experience_match", "education_match", "recommendation"},
	}
}

func buildPrompt(jobTitle, resume string) string {
	resume = clipUTF8(resume, resumeLimit)
	var b strings.Builder
	b.WriteString("Rate how well this resume fits the role of ")
	b.WriteString(strings.TrimSpace(jobTitle))
	b.WriteString(".\nAnswer with one JSON object and nothing else, using integer percentages from 0 to 100:\n")
	b.WriteString(`{"skills_match": <int>, "experience_match": <int>, "education_match": <int>, `)
	b.WriteString(`"recommendation": "` + strings.Join(recommendations, "|") + `", `)
	b.WriteString(`"key_strengths": [<string>], "areas_of_concern": [<string>]}`)
	b.WriteString("\n\nResume:\n")
	b.WriteString(resume)
	return b.String()
}

// clipUTF8 cuts s to at most limit bytes without splitting a rune.
func clipUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(strings.TrimSpace(part.Text))
		}
	}
	return b.String()
}

type scoreReply struct {
	Skills         *int     `json:"skills_match"`
	Experience     *int     `json:"experience_match"`
	Education      *int     `json:"education_match"`
	Recommendation string   `json:"recommendation"`
	Strengths      []string `json:"key_strengths"`
	Concerns       []string `json:"areas_of_concern"`
}

// parseAssessment reads the first JSON object in text. Models sometimes wrap
// the object in prose or a code fence.
func parseAssessment(text string) (Assessment, error) {
	raw := extractJSON(text)
	if raw == "" {
		return Assessment{}, errors.New("scorer reply has no json object")
	}
	var reply scoreReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Assessment{}, fmt.Errorf("decode scorer reply: %w", err)
	}
	if reply.Skills == nil || reply.Experience == nil || reply.Education == nil {
		return Assessment{}, errors.New("scorer reply is missing a sub-score")
	}
	scores := domain.SubScores{Skills: *reply.Skills, Experience: *reply.Experience, Education: *reply.Education}
	if err := scores.Validate(); err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Scores:         scores,
		Recommendation: strings.TrimSpace(reply.Recommendation),
		Strengths:      reply.Strengths,
		Concerns:       reply.Concerns,
	}, nil
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
