package providers

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode"
)

const (
	MockTextName  = "mock-llm"
	MockImageName = "mock-image"
)

// MockText is a TextGenerator for tests and --mock runs.
// Prompts mentioning "outline" get a numbered outline; prompts mentioning
// "chapter" get a chapter body numbered after the first integer in the prompt.
type MockText struct {
	usageCounter

	// Configurable behavior
	ShouldFail bool
	FailTimes  int   // fail the first N calls, then succeed
	FailWith   error // error to fail with (default: transient connection error)
	Outline    string

	calls atomic.Int64
}

// NewMockText creates a mock text backend.
func NewMockText() *MockText {
	return &MockText{}
}

var _ TextGenerator = (*MockText)(nil)

// Name returns "mock-llm".
func (m *MockText) Name() string {
	return MockTextName
}

// Calls returns the number of Generate calls, including failed ones.
func (m *MockText) Calls() int {
	return int(m.calls.Load())
}

// Generate returns canned text.
func (m *MockText) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	n := m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ShouldFail || n <= int64(m.FailTimes) {
		return nil, m.failure()
	}

	in := len(strings.Fields(req.Prompt)) * 2
	lower := strings.ToLower(req.Prompt)

	var text string
	switch {
	case strings.Contains(lower, "outline"):
		text = m.outline()
	case strings.Contains(lower, "chapter"):
		text = mockChapter(firstNumber(req.Prompt))
	default:
		text = mockGeneric
	}

	out := len(strings.Fields(text)) * 2
	m.add(in, out)
	return &GenerateResult{Text: text, InputTokens: in, OutputTokens: out}, nil
}

func (m *MockText) failure() error {
	if m.FailWith != nil {
		return m.FailWith
	}
	return &BackendError{Backend: MockTextName, Kind: ErrConnection, Err: fmt.Errorf("mock failure")}
}

func (m *MockText) outline() string {
	if m.Outline != "" {
		return m.Outline
	}
	return `1. Introduction to Cloud Computing
2. Core Services
3. Architecture Design
4. Security
5. Real Projects`
}

func firstNumber(s string) string {
	for _, word := range strings.Fields(s) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsDigit(r) })
		if word != "" {
			return word
		}
	}
	return "1"
}

func mockChapter(num string) string {
	return fmt.Sprintf(`Chapter %[1]s covers the core concepts of cloud architecture in depth.
Cloud has become an essential element in modern application development, and part %[1]s explains why.

### Key Concepts

Cloud computing provides computing resources over the internet, as section %[1]s describes.
The main advantages discussed in chapter %[1]s include scalability, cost efficiency, and flexibility.

### Scalability

Resources in the chapter %[1]s scenario can be adjusted dynamically as needed.
When traffic increases in example %[1]s, servers are added automatically.

- Horizontal scaling for workload %[1]s
- Vertical scaling for workload %[1]s

### Practical Example

`+"```"+`
[User] -> [Load Balancer] -> [Web Server] -> [Database]
`+"```"+`

In summary, chapter %[1]s laid the groundwork for the material that follows.
`, num)
}

const mockGeneric = `Cloud computing is at the core of modern IT infrastructure.
Major cloud providers offer a wide range of managed services.
This lets companies reduce infrastructure burden and focus on their core business.`
