package openaibatch

// ChatMessage is one message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestBody is the chat completion payload embedded in a batch request.
type RequestBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// BatchRequest is one line of the JSONL input artifact. CustomID is the
// caller-chosen correlation id linking the request to its outcome.
type BatchRequest struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     RequestBody `json:"body"`
}

// RequestCounts reports per-job progress from the batch API.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchStatus is the remote state of one batch job.
type BatchStatus struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	OutputFileID  string         `json:"output_file_id"`
	ErrorFileID   string         `json:"error_file_id"`
	RequestCounts *RequestCounts `json:"request_counts"`
}

// OutcomeError carries a per-request failure from the result artifact.
type OutcomeError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OutcomeChoice is one completion choice in an outcome body.
type OutcomeChoice struct {
	Message ChatMessage `json:"message"`
}

// OutcomeUsage reports token accounting for one outcome.
type OutcomeUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OutcomeBody is the chat completion payload inside an outcome response.
type OutcomeBody struct {
	Choices []OutcomeChoice `json:"choices"`
	Usage   OutcomeUsage    `json:"usage"`
}

// OutcomeResponse wraps the per-request HTTP response in the artifact.
type OutcomeResponse struct {
	StatusCode int         `json:"status_code"`
	Body       OutcomeBody `json:"body"`
}

// Outcome is one line of the JSONL output artifact, correlated to its
// request by CustomID.
type Outcome struct {
	ID       string           `json:"id"`
	CustomID string           `json:"custom_id"`
	Response *OutcomeResponse `json:"response"`
	Error    *OutcomeError    `json:"error"`
}

// Content returns the generated text of a successful outcome, or "" when
// the outcome carries no usable completion.
func (o *Outcome) Content() string {
	if o.Response == nil || len(o.Response.Body.Choices) == 0 {
		return ""
	}
	return o.Response.Body.Choices[0].Message.Content
}

// TotalTokens returns the token usage reported for this outcome, if any.
func (o *Outcome) TotalTokens() int {
	if o.Response == nil {
		return 0
	}
	return o.Response.Body.Usage.TotalTokens
}
