package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DecisionPolicy tunes the turn decision step. The threshold for "answer needs
// deeper probing" is a judgment call delegated to the model; the policy text
// is injected into the evaluation contract rather than hard-coded.
type DecisionPolicy struct {
	// MaxFollowUps is the per-question follow-up cap. The decision engine
	// never probes the same question more than this many times.
	MaxFollowUps int `yaml:"max_follow_ups"`
	// HistoryWindow is how many recent turns are replayed into each
	// evaluation prompt.
	HistoryWindow int `yaml:"history_window"`
	// ProbeGuidance is free-form policy text describing when an answer
	// warrants a follow-up probe.
	ProbeGuidance string `yaml:"probe_guidance"`
	// RetrievalTopK is the knowledge-base hit count per lookup.
	RetrievalTopK int `yaml:"retrieval_top_k"`
}

// DefaultDecisionPolicy returns the policy used when no file is configured.
func DefaultDecisionPolicy() DecisionPolicy {
	return DecisionPolicy{
		MaxFollowUps:  1,
		HistoryWindow: 10,
		ProbeGuidance: "Probe when the answer is vague, misses the core of the question, " +
			"or hints at experience it does not substantiate. Do not probe answers " +
			"that are already complete, or explicit \"I don't know\" answers.",
		RetrievalTopK: 5,
	}
}

// LoadDecisionPolicy reads the YAML policy file at path, falling back to the
// default policy for any field left unset. An empty path returns the default.
func LoadDecisionPolicy(path string) (DecisionPolicy, error) {
	p := DefaultDecisionPolicy()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return DecisionPolicy{}, fmt.Errorf("op=config.LoadDecisionPolicy: %w", err)
	}
	var file DecisionPolicy
	if err := yaml.Unmarshal(b, &file); err != nil {
		return DecisionPolicy{}, fmt.Errorf("op=config.LoadDecisionPolicy: %w", err)
	}
	if file.MaxFollowUps > 0 {
		p.MaxFollowUps = file.MaxFollowUps
	}
	if file.HistoryWindow > 0 {
		p.HistoryWindow = file.HistoryWindow
	}
	if file.ProbeGuidance != "" {
		p.ProbeGuidance = file.ProbeGuidance
	}
	if file.RetrievalTopK > 0 {
		p.RetrievalTopK = file.RetrievalTopK
	}
	return p, nil
}
