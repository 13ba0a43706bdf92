package file

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/pawclause/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `너는 펫보험 전문 상담사야. 아래 약관 내용을 바탕으로 정확하고 친절하게 답변해.

답변 규칙:
1. 제공된 약관 내용만을 근거로 답변
2. 약관에 없는 내용은 "약관에서 명시되지 않음"이라고 표시
3. 구체적인 조건, 한도, 기간 등을 포함하여 상세히 설명
4. 예외사항이나 주의사항도 함께 안내
5. 전문용어는 쉽게 풀어서 설명
6. 답변 끝에 출처 정보를 간략히 언급`,

	driven.PromptAnswerUser: `약관 내용:
%s

질문: %s

위 약관을 바탕으로 질문에 대해 정확하고 상세하게 답변해주세요.`,

	driven.PromptSummary: `다음 펫보험 정보를 사용자가 이해하기 쉽게 요약해주세요:

%s

다음 형식으로 작성하세요:

핵심 내용:
- (간단하고 명확한 요점 3가지)

주의사항:
- (주요 제한사항 및 면책사항)

실용적 조언:
- (구체적이고 실질적인 가이드)`,

	driven.PromptRecommendSystem: `너는 펫보험 전문가야. 사용자의 질문/답변 기록을 분석해서 종합적인 요약과 추천을 제공해.

분석 요구사항:
1. 회사별 보장 내용 차이점 비교
2. 사용자에게 가장 적합한 상위 %d개 회사 추천
3. 각 회사의 장단점 설명
4. 실용적인 가입 조언

답변 형식:
## 추천 보험사 순위
### 1위: [회사명] - 추천 이유
### 2위: [회사명] - 추천 이유

## 회사별 특징 비교
[각 회사의 주요 특징과 차이점]

## 가입 시 고려사항
[실용적인 조언과 주의사항]`,

	driven.PromptRecommendUser: `다음은 사용자의 펫보험 질문/답변 기록이야:

%s

위 내용을 바탕으로 종합 분석과 추천을 해줘.`,
}

// DefaultPrompt returns the embedded template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.pawclause/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	defaultPrompt, hasDefault := defaultPrompts[name]
	if err != nil {
		if hasDefault {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	if hasDefault && !slices.Equal(placeholders(prompt), placeholders(defaultPrompt)) {
		prompt = defaultPrompt
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# pawclause prompts

Templates used when answering questions about pet insurance policies.

## Files

- ` + "`answer_system.txt`" + ` - Consultant persona and answering rules
- ` + "`answer_user.txt`" + ` - Policy excerpts (` + "`%s`" + `) followed by the question (` + "`%s`" + `)
- ` + "`summary.txt`" + ` - Condenses an answer (` + "`%s`" + `) into key points, caveats and advice
- ` + "`recommend_system.txt`" + ` - Ranking instructions; ` + "`%d`" + ` is the number of insurers to rank
- ` + "`recommend_user.txt`" + ` - The question/answer record (` + "`%s`" + `)

## Customisation

Edit any file to change the wording. Changes take effect on the next command.
Keep the placeholders in the same order; a template with the wrong
placeholders is rejected and the built-in version is used instead.
`
	return os.WriteFile(path, []byte(content), 0600)
}

// placeholders lists the fmt verbs in a template in order, skipping "%%".
func placeholders(tmpl string) []byte {
	var verbs []byte
	for i := 0; i < len(tmpl)-1; i++ {
		if tmpl[i] != '%' {
			continue
		}
		i++
		if tmpl[i] != '%' {
			verbs = append(verbs, tmpl[i])
		}
	}
	return verbs
}
