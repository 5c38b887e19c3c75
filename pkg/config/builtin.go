package config

import (
	"sync"
	"time"
)

// BuiltinConfig holds all built-in configuration data.
// This provides default adapters, agent definitions, and masking patterns.
type BuiltinConfig struct {
	Adapters        map[string]AdapterConfig
	Agents          map[string]AgentDefinition
	MaskingPatterns map[string]MaskingPattern
	PatternGroups   map[string][]string
	PassiveTools    []string
}

// MaskingPattern is one regex-based secret masker applied to evidence and
// findings before persistence.
type MaskingPattern struct {
	Pattern     string
	Replacement string
	Description string
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized)
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Adapters:        initBuiltinAdapters(),
		Agents:          initBuiltinAgents(),
		MaskingPatterns: initBuiltinMaskingPatterns(),
		PatternGroups:   initBuiltinPatternGroups(),
		PassiveTools:    []string{"whois", "dns_lookup", "crtsh", "wayback"},
	}
}

func initBuiltinAdapters() map[string]AdapterConfig {
	return map[string]AdapterConfig{
		"nmap": {
			Backend: AdapterBackendProcess,
			Command: "nmap",
			Timeout: 10 * time.Minute,
			Options: map[string]any{
				"default_flags": "-sV -T4",
				"top_ports":     1000,
			},
		},
		"gobuster": {
			Backend: AdapterBackendProcess,
			Command: "gobuster",
			Timeout: 10 * time.Minute,
			Options: map[string]any{
				"wordlist": "/usr/share/wordlists/dirb/common.txt",
				"threads":  10,
			},
		},
		"whois": {
			Backend: AdapterBackendProcess,
			Command: "whois",
			Timeout: 30 * time.Second,
		},
		"dns_lookup": {
			Backend: AdapterBackendProcess,
			Command: "dig",
			Timeout: 30 * time.Second,
			Options: map[string]any{
				"record_types": []any{"A", "AAAA", "MX", "NS", "TXT"},
			},
		},
		"sqlmap": {
			Backend: AdapterBackendContainer,
			Image:   "ghcr.io/sqlmapproject/sqlmap:latest",
			Timeout: 20 * time.Minute,
			Options: map[string]any{
				"risk":  1,
				"level": 1,
			},
		},
		"nikto": {
			Backend: AdapterBackendContainer,
			Image:   "ghcr.io/sullo/nikto:latest",
			Timeout: 15 * time.Minute,
		},
		"crtsh": {
			Backend:        AdapterBackendNetwork,
			BaseURL:        "https://crt.sh",
			Timeout:        60 * time.Second,
			RateLimitRPM:   20,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			Options: map[string]any{
				"max_results": 100,
			},
		},
		"wayback": {
			Backend:        AdapterBackendNetwork,
			BaseURL:        "https://web.archive.org",
			Timeout:        60 * time.Second,
			RateLimitRPM:   15,
			MaxRetries:     3,
			RetryBaseDelay: 2 * time.Second,
			Options: map[string]any{
				"max_results": 200,
			},
		},
		"http_probe": {
			Backend:        AdapterBackendNetwork,
			Timeout:        30 * time.Second,
			MaxRetries:     2,
			RetryBaseDelay: 1 * time.Second,
		},
		"public_ip": {
			Backend: AdapterBackendNetwork,
			BaseURL: "https://api.ipify.org",
			Timeout: 15 * time.Second,
		},
	}
}

func initBuiltinAgents() map[string]AgentDefinition {
	return map[string]AgentDefinition{
		"planner": {
			Description: "Plans the next scan steps for the parent agent's toolset",
			Inputs: map[string]InputSpec{
				"objective": {
					Description: "The engagement objective the plan must serve",
					Type:        InputTypeString,
					Required:    true,
				},
				"context": {
					Description: "Summary of scan results gathered so far",
					Type:        InputTypeString,
					Required:    false,
				},
				"available_tools": {
					Description: "Catalogue of tools available to the PARENT agent; plan only with these",
					Type:        InputTypeString,
					Required:    true,
				},
			},
			Output: &OutputSpec{
				Name:        "scan_plan",
				Description: "Ordered scan steps for the parent agent",
				Schema: map[string]any{
					"type": "array",
					"items": map[string]any{
						"tool":       "string",
						"target":     "string",
						"parameters": "object",
						"priority":   "number",
						"rationale":  "string",
					},
				},
			},
			// The planner reasons over its inputs only; it calls no tools.
			AllowedTools: []string{},
			SystemPrompt: "You are a penetration-test planning specialist. " +
				"Given an objective, prior results, and the catalogue of tools available to the requesting agent, " +
				"produce a prioritized list of scan steps. Plan only with the tools in the catalogue. " +
				"Prefer low-impact steps first and never plan against targets outside the stated scope.",
			InitialQueryTemplate: "Objective: {{.objective}}\n\nContext:\n{{.context}}\n\nAvailable tools:\n{{.available_tools}}",
		},
		"recon": {
			Description: "Gathers passive intelligence about a target domain",
			Inputs: map[string]InputSpec{
				"target": {
					Description: "Domain or host to investigate",
					Type:        InputTypeString,
					Required:    true,
				},
			},
			Output: &OutputSpec{
				Name:        "recon_summary",
				Description: "What was learned about the target",
				Schema: map[string]any{
					"summary":    "string",
					"subdomains": "array",
					"records":    "object",
				},
			},
			AllowedTools: []string{"whois", "dns_lookup", "crtsh", "wayback", "http_probe", "public_ip"},
			SystemPrompt: "You are a reconnaissance specialist. Use the available tools to build a picture " +
				"of the target without sending intrusive traffic. Stop as soon as you can summarize " +
				"what an attacker would learn from public sources.",
			InitialQueryTemplate: "Investigate the target: {{.target}}",
		},
	}
}

func initBuiltinMaskingPatterns() map[string]MaskingPattern {
	return map[string]MaskingPattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-]{20,})["']?`,
			Replacement: `"api_key": "__MASKED_API_KEY__"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|passwd)["']?\s*[:=]\s*["']?([^"'\s\n]{6,})["']?`,
			Replacement: `"password": "__MASKED_PASSWORD__"`,
			Description: "Passwords",
		},
		"password_in_url": {
			Pattern:     `(?i)([a-z][a-z0-9+.-]*://[^/\s:@]+):([^@/\s]+)@`,
			Replacement: `$1:__MASKED__@`,
			Description: "Credentials embedded in URLs",
		},
		"authorization_header": {
			Pattern:     `(?i)authorization:\s*(?:bearer|basic)\s+[A-Za-z0-9+/_\-\.=]+`,
			Replacement: `Authorization: __MASKED_AUTHORIZATION__`,
			Description: "Authorization headers",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["']?\s*[:=]\s*["']?([A-Za-z0-9_\-\.]{20,})["']?`,
			Replacement: `"token": "__MASKED_TOKEN__"`,
			Description: "Access tokens",
		},
		"certificate": {
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `__MASKED_CERTIFICATE__`,
			Description: "PEM blocks (certificates, private keys)",
		},
		"ssh_key": {
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: `__MASKED_SSH_KEY__`,
			Description: "SSH public keys",
		},
		"email": {
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `__MASKED_EMAIL__`,
			Description: "Email addresses",
		},
		"aws_access_key": {
			Pattern:     `\bAKIA[A-Z0-9]{16}\b`,
			Replacement: `__MASKED_AWS_KEY__`,
			Description: "AWS access key IDs",
		},
		"aws_secret_key": {
			Pattern:     `(?i)(?:aws[_-]?secret[_-]?access[_-]?key)["']?\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`,
			Replacement: `"aws_secret_access_key": "__MASKED_AWS_SECRET__"`,
			Description: "AWS secret keys",
		},
		"github_token": {
			Pattern:     `\bgh[pousr]_[A-Za-z0-9_]{36,255}\b`,
			Replacement: `__MASKED_GITHUB_TOKEN__`,
			Description: "GitHub tokens",
		},
		"slack_token": {
			Pattern:     `(?i)xox[baprs]-[A-Za-z0-9-]{10,72}`,
			Replacement: `__MASKED_SLACK_TOKEN__`,
			Description: "Slack tokens",
		},
		"session_cookie": {
			Pattern:     `(?i)set-cookie:\s*[^=\s]+=[^;\s]+`,
			Replacement: `Set-Cookie: __MASKED_COOKIE__`,
			Description: "Session cookies in captured responses",
		},
	}
}

// initBuiltinPatternGroups returns predefined groups of masking patterns.
// The "evidence" group is the default applied to adapter output.
func initBuiltinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":    {"api_key", "password"},
		"secrets":  {"api_key", "password", "token", "authorization_header", "password_in_url"},
		"evidence": {"api_key", "password", "password_in_url", "authorization_header", "token", "certificate", "ssh_key", "session_cookie"},
		"cloud":    {"aws_access_key", "aws_secret_key", "api_key", "token"},
		"all":      {"api_key", "password", "password_in_url", "authorization_header", "token", "certificate", "ssh_key", "email", "aws_access_key", "aws_secret_key", "github_token", "slack_token", "session_cookie"},
	}
}
