package prompt

import "regexp"

// InjectionType names a family of prompt-injection phrasing
type InjectionType string

const (
	InjectionTypeSystemPromptLeak    InjectionType = "system_prompt_leak"
	InjectionTypeRoleManipulation    InjectionType = "role_manipulation"
	InjectionTypeInstructionOverride InjectionType = "instruction_override"
	InjectionTypeJailbreak           InjectionType = "jailbreak"
	InjectionTypeDelimiterAttack     InjectionType = "delimiter_attack"
)

var injectionPatterns = []struct {
	typ     InjectionType
	pattern *regexp.Regexp
}{
	{InjectionTypeSystemPromptLeak, regexp.MustCompile(`(?i)ignore\s+(previous|all|above|prior)\s+(instructions?|prompts?)`)},
	{InjectionTypeSystemPromptLeak, regexp.MustCompile(`(?i)(show|reveal|print|repeat)\s+(me\s+)?(your|the)\s+(system|original|initial|hidden)\s+(prompt|instructions?)`)},
	{InjectionTypeRoleManipulation, regexp.MustCompile(`(?i)from\s+now\s+on,?\s+you\s+(are|will)`)},
	{InjectionTypeRoleManipulation, regexp.MustCompile(`(?i)pretend\s+(to\s+)?be\s+(a|an)\s`)},
	{InjectionTypeInstructionOverride, regexp.MustCompile(`(?i)(disregard|override|forget)\s+(all|previous|above|any|everything)(\s+(instructions?|rules))?`)},
	{InjectionTypeJailbreak, regexp.MustCompile(`(?i)\b(DAN|developer|unrestricted|god)\s+mode\b|jailbreak`)},
	{InjectionTypeDelimiterAttack, regexp.MustCompile(`(?i)\[/?(SYSTEM|ASSISTANT)\]|<\|(system|assistant|end)\|>|###\s*(SYSTEM|INSTRUCTION)`)},
}

// DetectInjections returns the distinct injection types found in text, in
// table order. Questions are never rejected for this; the result only
// feeds logging.
func DetectInjections(text string) []InjectionType {
	var found []InjectionType
	seen := make(map[InjectionType]bool)
	for _, p := range injectionPatterns {
		if seen[p.typ] || !p.pattern.MatchString(text) {
			continue
		}
		seen[p.typ] = true
		found = append(found, p.typ)
	}
	return found
}
