package persona

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Profile is the per-tenant voice and safety policy.
type Profile struct {
	Persona         string   `json:"persona"`
	Tone            string   `json:"tone"`
	TemplateVersion string   `json:"template_version"`
	PromptTemplate  string   `json:"prompt_template"`
	BlockedTopics   []string `json:"blocked_topics,omitempty"`
	RefusalMessage  string   `json:"refusal_message,omitempty"`
	RedirectTo      string   `json:"redirect_to,omitempty"`
}

// Result is what the pipeline consumes. When SafetyFilter is set, Response
// is the complete answer and no provider is invoked.
type Result struct {
	Persona         string `json:"persona"`
	Tone            string `json:"tone"`
	TemplateVersion string `json:"template_version"`
	PromptTemplate  string `json:"prompt_template"`
	SafetyFilter    bool   `json:"safety_filter"`
	Response        string `json:"response,omitempty"`
	RedirectTo      string `json:"redirect_to,omitempty"`
}

type Stats struct {
	Resolutions int64 `json:"resolutions"`
	Refusals    int64 `json:"refusals"`
}

var defaultProfile = Profile{
	Persona:         "assistant",
	Tone:            "friendly",
	TemplateVersion: "v1",
	PromptTemplate:  "You are {persona}, a helpful assistant. Respond in a {tone} tone.",
	BlockedTopics:   []string{"password", "credit card", "social security"},
	RefusalMessage:  "I can't help with that topic. Is there something else I can do for you?",
}

type Resolver struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	stats    map[string]*Stats
	logger   *zap.Logger
}

func NewResolver(profiles map[string]Profile, logger *zap.Logger) *Resolver {
	if profiles == nil {
		profiles = make(map[string]Profile)
	}
	return &Resolver{
		profiles: profiles,
		stats:    make(map[string]*Stats),
		logger:   logger,
	}
}

// Resolve computes persona metadata for the tenant and runs the safety
// filter over the sanitized content. A tripped filter is a normal outcome,
// not an error: Response carries the complete refusal.
func (r *Resolver) Resolve(tenantID, content string, history []string) Result {
	profile := r.ProfileFor(tenantID)

	result := Result{
		Persona:         profile.Persona,
		Tone:            profile.Tone,
		TemplateVersion: profile.TemplateVersion,
		PromptTemplate:  profile.PromptTemplate,
	}

	lowered := strings.ToLower(content)
	for _, topic := range profile.BlockedTopics {
		if strings.Contains(lowered, topic) {
			result.SafetyFilter = true
			result.Response = profile.RefusalMessage
			result.RedirectTo = profile.RedirectTo
			r.record(tenantID, true)
			r.logger.Info("Safety filter tripped",
				zap.String("tenant_id", tenantID),
				zap.String("topic", topic),
			)
			return result
		}
	}

	r.record(tenantID, false)
	return result
}

// ProfileFor returns the tenant's profile, falling back to the default
// voice for unconfigured tenants. Empty fields inherit defaults.
func (r *Resolver) ProfileFor(tenantID string) Profile {
	r.mu.RLock()
	profile, ok := r.profiles[tenantID]
	r.mu.RUnlock()
	if !ok {
		return defaultProfile
	}

	if profile.Persona == "" {
		profile.Persona = defaultProfile.Persona
	}
	if profile.Tone == "" {
		profile.Tone = defaultProfile.Tone
	}
	if profile.TemplateVersion == "" {
		profile.TemplateVersion = defaultProfile.TemplateVersion
	}
	if profile.PromptTemplate == "" {
		profile.PromptTemplate = defaultProfile.PromptTemplate
	}
	if profile.RefusalMessage == "" {
		profile.RefusalMessage = defaultProfile.RefusalMessage
	}
	if profile.BlockedTopics == nil {
		profile.BlockedTopics = defaultProfile.BlockedTopics
	}
	return profile
}

// Validate checks a candidate profile, used by the introspection endpoint.
func (r *Resolver) Validate(profile Profile) error {
	if profile.Persona == "" {
		return fmt.Errorf("persona is required")
	}
	if profile.Tone == "" {
		return fmt.Errorf("tone is required")
	}
	if profile.PromptTemplate != "" && !strings.Contains(profile.PromptTemplate, "{persona}") {
		return fmt.Errorf("prompt_template must reference {persona}")
	}
	return nil
}

// StatsSnapshot returns per-tenant resolution counters.
func (r *Resolver) StatsSnapshot() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Stats, len(r.stats))
	for tenantID, s := range r.stats {
		out[tenantID] = *s
	}
	return out
}

func (r *Resolver) record(tenantID string, refused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[tenantID]
	if !ok {
		s = &Stats{}
		r.stats[tenantID] = s
	}
	s.Resolutions++
	if refused {
		s.Refusals++
	}
}
