package models

import "time"

// AssetKind classifies an authorized target
type AssetKind string

const (
	// AssetKindHost is a single host reachable by IP
	AssetKindHost AssetKind = "host"
	// AssetKindDomain is a DNS domain and its subdomains
	AssetKindDomain AssetKind = "domain"
	// AssetKindVM is a lab virtual machine
	AssetKindVM AssetKind = "vm"
)

// IsValid checks if the asset kind is valid
func (k AssetKind) IsValid() bool {
	return k == AssetKindHost || k == AssetKindDomain || k == AssetKindVM
}

// Asset is an authorized target for the engagement. Assets are unique by
// name and immutable after creation.
type Asset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      AssetKind `json:"kind"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// TargetRequest is the ephemeral asset shape handed to policy checks before
// a tool touches a target. Tool name and parameters travel with the target
// so violations can record what was attempted.
type TargetRequest struct {
	Target     string         `json:"target"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}
