// Package unifiedllm executes single LLM jobs against three provider
// families behind one request shape.
//
// # Architecture
//
// The package is layered:
//
//   - Provider clients: OpenAIClient (openai-go), GeminiClient (genai) and
//     AnthropicClient (anthropic-sdk-go) turn a JobRequest into a provider
//     call and return the raw text. GollmClient is a text-only alternative
//     built on gollm.
//   - Router: maps an engine name to its family by substring and builds the
//     family client lazily from Credentials.
//   - Engine: runs a request through the router, validates each response and
//     retries with backoff on transport failures or with a higher temperature
//     on validation failures.
//
// # Quick Start
//
//	router := unifiedllm.NewRouter(unifiedllm.Credentials{OpenAI: os.Getenv("OPENAI_API_KEY")})
//	engine := unifiedllm.NewEngine(router)
//
//	result, err := engine.Execute(ctx, unifiedllm.JobRequest{
//	    Engine:           "gpt-4o",
//	    SystemPrompt:     "You transcribe historical letters.",
//	    UserPrompt:       "Transcribe: {text_to_process}",
//	    Text:             ocr,
//	    ValidationMarker: "TRANSCRIPTION:",
//	})
//	if err != nil {
//	    return err // configuration problem, stop the run
//	}
//	if result.Failed() {
//	    log.Printf("row %d: %v", result.RowIndex, result.Err)
//	}
//
// # Errors
//
// Provider failures are mapped onto a small taxonomy (AuthenticationError,
// RateLimitError, ServerError, NetworkError, ValidationError and so on).
// IsRetryable decides whether the Engine tries again. A row that cannot be
// completed carries a *JobError matching ErrJobFailed.
package unifiedllm
