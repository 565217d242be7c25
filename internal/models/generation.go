package models

// GenerationKind selects what the provider is asked to produce
type GenerationKind string

const (
	// GenerationKindQuestions asks for a list of interview question/answer pairs
	GenerationKindQuestions GenerationKind = "questions"
	// GenerationKindExplanation asks for a titled explanation of one concept
	GenerationKindExplanation GenerationKind = "explanation"
)

// GenerationRequest is built per call from validated input and never persisted
type GenerationRequest struct {
	Kind            GenerationKind
	Role            string
	ExperienceLevel string
	Topics          string
	Count           int
	ConceptName     string
}

// QuestionAnswer is one generated interview question with its answer
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionSet is the ordered list of generated pairs
type QuestionSet []QuestionAnswer

// Explanation is a generated concept explanation
type Explanation struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// GenerationResult holds exactly one of Questions or Explanation
type GenerationResult struct {
	Kind        GenerationKind
	Questions   QuestionSet
	Explanation *Explanation

	// Requested is the count asked for; Dropped counts items rejected during validation
	Requested int
	Dropped   int
}

// CountMismatch reports whether a question set differs in length from what was requested
func (r *GenerationResult) CountMismatch() bool {
	return r.Kind == GenerationKindQuestions && r.Requested > 0 && len(r.Questions) != r.Requested
}

// GenerateQuestionsRequest is the body of POST /api/ai/generate-questions.
// The second name of each pair is what the browser client sends.
type GenerateQuestionsRequest struct {
	Role             string `json:"role"`
	ExperienceLevel  string `json:"experienceLevel"`
	Experience       string `json:"experience"`
	Topics           string `json:"topics"`
	TopicsToFocus    string `json:"topicsToFocus"`
	Count            *int   `json:"count"`
	NumberOfQuestion *int   `json:"numberOfQuestions"`
}

// GenerateExplanationRequest is the body of POST /api/ai/generate-explanation
type GenerateExplanationRequest struct {
	ConceptName string `json:"conceptName"`
	Question    string `json:"question"`
}

// ToGenerationRequest resolves aliases. Validation happens in the prompt builder.
func (r *GenerateQuestionsRequest) ToGenerationRequest() *GenerationRequest {
	req := &GenerationRequest{
		Kind:            GenerationKindQuestions,
		Role:            r.Role,
		ExperienceLevel: firstNonEmpty(r.ExperienceLevel, r.Experience),
		Topics:          firstNonEmpty(r.Topics, r.TopicsToFocus),
	}
	switch {
	case r.Count != nil:
		req.Count = *r.Count
	case r.NumberOfQuestion != nil:
		req.Count = *r.NumberOfQuestion
	}
	return req
}

// ToGenerationRequest resolves the question alias
func (r *GenerateExplanationRequest) ToGenerationRequest() *GenerationRequest {
	return &GenerationRequest{
		Kind:        GenerationKindExplanation,
		ConceptName: firstNonEmpty(r.ConceptName, r.Question),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
