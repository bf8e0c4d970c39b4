package prompt

import (
	"regexp"
	"sort"
)

// SecretType represents different types of secrets that can be detected
type SecretType string

const (
	SecretTypeOpenAIKey   SecretType = "openai_key"
	SecretTypeAWSKey      SecretType = "aws_key"
	SecretTypeGCPKey      SecretType = "gcp_key"
	SecretTypeGitHubToken SecretType = "github_token"
	SecretTypeJWT         SecretType = "jwt"
	SecretTypePrivateKey  SecretType = "private_key"
	SecretTypePassword    SecretType = "password"
	SecretTypeEmail       SecretType = "email"
)

// SecretDetection represents a detected secret instance
type SecretDetection struct {
	Type     SecretType
	StartPos int
	EndPos   int
}

type secretPattern struct {
	kind    SecretType
	re      *regexp.Regexp
	capture bool // redact only the first submatch
}

// Visitors of a public chatbot sometimes paste credentials or contact
// details into a question. These are redacted before questions are logged.
var secretPatterns = []secretPattern{
	{SecretTypeOpenAIKey, regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_\-]{20,}\b`), false},
	{SecretTypeAWSKey, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), false},
	{SecretTypeGCPKey, regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`), false},
	{SecretTypeGitHubToken, regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), false},
	{SecretTypeJWT, regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), false},
	{SecretTypePrivateKey, regexp.MustCompile(`-----BEGIN\s+(?:[A-Z]+\s+)?PRIVATE\s+KEY-----`), false},
	{SecretTypePassword, regexp.MustCompile(`(?i)(?:password|passwd|pwd)[:\s=]+['"]?([^\s'"]{6,})`), true},
	{SecretTypeEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), false},
}

// DetectSecrets returns non-overlapping detections ordered by position
func DetectSecrets(text string) []SecretDetection {
	var detections []SecretDetection
	for _, p := range secretPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if p.capture && len(m) >= 4 {
				start, end = m[2], m[3]
			}
			detections = append(detections, SecretDetection{Type: p.kind, StartPos: start, EndPos: end})
		}
	}

	sort.Slice(detections, func(i, j int) bool {
		if detections[i].StartPos != detections[j].StartPos {
			return detections[i].StartPos < detections[j].StartPos
		}
		return detections[i].EndPos > detections[j].EndPos
	})

	// Drop detections inside an earlier, wider one.
	out := detections[:0]
	lastEnd := -1
	for _, d := range detections {
		if d.StartPos < lastEnd {
			continue
		}
		out = append(out, d)
		lastEnd = d.EndPos
	}
	return out
}

// HasSecrets returns true if any secrets are detected
func HasSecrets(text string) bool {
	return len(DetectSecrets(text)) > 0
}

// RedactSecrets replaces every detection with a [REDACTED_<TYPE>] marker
func RedactSecrets(text string) string {
	detections := DetectSecrets(text)
	if len(detections) == 0 {
		return text
	}

	var out []byte
	prev := 0
	for _, d := range detections {
		out = append(out, text[prev:d.StartPos]...)
		out = append(out, "[REDACTED_"...)
		out = append(out, upper(string(d.Type))...)
		out = append(out, ']')
		prev = d.EndPos
	}
	out = append(out, text[prev:]...)
	return string(out)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
