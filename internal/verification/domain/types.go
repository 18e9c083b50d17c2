// Package domain contains the business logic for contract verification.
package domain

import (
	"github.com/pendergraft/contraconf/internal/config"
)

// VerifyRequest is the request to verify a deployed contract.
type VerifyRequest struct {
	Config          config.ResolvedConfig
	ProjectDir      string
	Address         string
	Contract        string            // "Token" or "src/Token.sol:Token"
	ConstructorArgs string            // ABI-encoded hex
	Libraries       map[string]string // fully qualified name -> address

	SkipBytecodeCheck bool // do not compare against on-chain code
	NoWait            bool // return after submission
}

// Status is the outcome of a verification run.
type Status string

const (
	StatusVerified        Status = "verified"
	StatusAlreadyVerified Status = "already_verified"
	StatusSubmitted       Status = "submitted"
)

// VerifyResult is the result of a verification.
type VerifyResult struct {
	Status    Status `json:"status"`
	Address   string `json:"address"`
	Contract  string `json:"contract"`            // fully qualified
	MatchType string `json:"matchType,omitempty"` // "full", "partial"; empty when skipped
	GUID      string `json:"guid,omitempty"`
	Message   string `json:"message,omitempty"`
	URL       string `json:"url,omitempty"`
}
