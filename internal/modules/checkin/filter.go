package checkin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	RuleRedactPhrase       = "redact_phrase"
	RuleRemoveSentence     = "remove_sentence"
	RuleRegexReplace       = "regex_replace"
	RuleCollapseWhitespace = "collapse_whitespace"
	RuleMaxLength          = "max_length"

	defaultRedaction = "[redacted]"
	truncationMark   = "…"
)

type FilterRule struct {
	Kind        string `yaml:"kind" json:"kind"`
	Pattern     string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Limit       int    `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// FilterConfig is an ordered rule list. max_length rules always run last.
type FilterConfig struct {
	Rules []FilterRule `yaml:"rules" json:"rules"`
}

func (c FilterConfig) IsZero() bool { return len(c.Rules) == 0 }

// Validate reports the first rule that could not be applied.
func (c FilterConfig) Validate() error {
	for i, r := range c.Rules {
		name := fmt.Sprintf("%d:%s", i, r.Kind)
		switch strings.TrimSpace(r.Kind) {
		case RuleRedactPhrase, RuleRemoveSentence:
			if strings.TrimSpace(r.Pattern) == "" {
				return &FilterError{Rule: name, Err: fmt.Errorf("empty pattern")}
			}
		case RuleRegexReplace:
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return &FilterError{Rule: name, Err: err}
			}
		case RuleCollapseWhitespace:
		case RuleMaxLength:
			if r.Limit <= 0 {
				return &FilterError{Rule: name, Err: fmt.Errorf("limit must be > 0")}
			}
		default:
			return &FilterError{Rule: name, Err: fmt.Errorf("unknown rule kind %q", r.Kind)}
		}
	}
	return nil
}

// DefaultFilterConfig is used when a coach has no stored rules and no rules
// file is configured.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{Rules: []FilterRule{
		{Kind: RuleRemoveSentence, Pattern: "as an ai"},
		{Kind: RuleRemoveSentence, Pattern: "language model"},
		{Kind: RuleRegexReplace, Pattern: `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`, Replacement: "[email]"},
		{Kind: RuleCollapseWhitespace},
		{Kind: RuleMaxLength, Limit: 1500},
	}}
}

func LoadFilterConfigYAML(path string) (FilterConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FilterConfig{}, fmt.Errorf("read filter rules: %w", err)
	}
	var cfg FilterConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return FilterConfig{}, fmt.Errorf("parse filter rules %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return FilterConfig{}, err
	}
	return cfg, nil
}

// ParseFilterRulesJSON accepts either a bare rule array or {"rules": [...]}.
func ParseFilterRulesJSON(raw []byte) (FilterConfig, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return FilterConfig{}, nil
	}
	var cfg FilterConfig
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &cfg.Rules); err != nil {
			return FilterConfig{}, fmt.Errorf("parse filter rules: %w", err)
		}
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return FilterConfig{}, fmt.Errorf("parse filter rules: %w", err)
	}
	return cfg, nil
}

// Filter applies cfg to text. On any rule failure the original text is
// returned unchanged.
func Filter(text string, cfg FilterConfig) string {
	out, _ := ApplyFilter(text, cfg)
	return out
}

// ApplyFilter is Filter with the failure exposed as a *FilterError.
func ApplyFilter(text string, cfg FilterConfig) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = text
			err = &FilterError{Rule: "panic", Err: fmt.Errorf("%v", r)}
		}
	}()

	cur := text
	limit := 0
	for i, r := range cfg.Rules {
		name := fmt.Sprintf("%d:%s", i, r.Kind)
		switch strings.TrimSpace(r.Kind) {
		case RuleRedactPhrase:
			cur = redactPhrase(cur, r)
		case RuleRemoveSentence:
			cur = removeSentences(cur, r.Pattern)
		case RuleRegexReplace:
			re, cerr := regexp.Compile(r.Pattern)
			if cerr != nil {
				return text, &FilterError{Rule: name, Err: cerr}
			}
			cur = re.ReplaceAllString(cur, r.Replacement)
		case RuleCollapseWhitespace:
			cur = strings.Join(strings.Fields(cur), " ")
		case RuleMaxLength:
			if r.Limit <= 0 {
				return text, &FilterError{Rule: name, Err: fmt.Errorf("limit must be > 0")}
			}
			if limit == 0 || r.Limit < limit {
				limit = r.Limit
			}
		default:
			return text, &FilterError{Rule: name, Err: fmt.Errorf("unknown rule kind %q", r.Kind)}
		}
	}
	if limit > 0 {
		cur = truncateAtWord(cur, limit)
	}
	return cur, nil
}

func redactPhrase(text string, r FilterRule) string {
	phrase := strings.TrimSpace(r.Pattern)
	if phrase == "" {
		return text
	}
	repl := r.Replacement
	if repl == "" {
		repl = defaultRedaction
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
	return re.ReplaceAllLiteralString(text, repl)
}

var sentencePattern = regexp.MustCompile(`[^.!?]*(?:[.!?]+|$)\s*`)

func removeSentences(text, pattern string) string {
	needle := strings.ToLower(strings.TrimSpace(pattern))
	if needle == "" {
		return text
	}
	var b strings.Builder
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if strings.Contains(strings.ToLower(s), needle) {
			continue
		}
		b.WriteString(s)
	}
	return b.String()
}

// truncateAtWord keeps the result within limit runes, ellipsis included,
// cutting at the last whitespace when one exists.
func truncateAtWord(text string, limit int) string {
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	if limit == 1 {
		return truncationMark
	}
	head := r[:limit-1]
	cut := len(head)
	for i := len(head) - 1; i > 0; i-- {
		if head[i] == ' ' || head[i] == '\n' || head[i] == '\t' {
			cut = i
			break
		}
	}
	return strings.TrimRight(string(head[:cut]), " \n\t") + truncationMark
}
