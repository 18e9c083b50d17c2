package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pendergraft/contraconf/internal/chains"
	"github.com/pendergraft/contraconf/internal/chains/evm"
	"github.com/pendergraft/contraconf/internal/config"
	"github.com/pendergraft/contraconf/internal/explorer"
	"github.com/pendergraft/contraconf/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrCompilerMismatch = errors.New("artifact compiler settings differ from the resolved configuration")
	ErrNoCode           = evm.ErrNoCode
	ErrBytecodeMismatch = errors.New("deployed bytecode does not match the artifact")
)

// SourceProvider reads build output for a contract.
type SourceProvider interface {
	ArtifactPath(dir, contract string) (string, error)
	Parse(artifactPath string) (*chains.Artifact, error)
	GetVerificationInput(dir, contractName, sourcePath string) (*chains.VerificationInput, error)
}

// Explorer is the source verification service.
type Explorer interface {
	IsVerified(ctx context.Context, address string) (bool, error)
	Submit(ctx context.Context, req explorer.SubmitRequest) (string, error)
	Wait(ctx context.Context, guid string) (explorer.Status, error)
}

// DeploymentChecker compares the code deployed at an address with an
// artifact.
type DeploymentChecker interface {
	VerifyDeployment(ctx context.Context, opts chains.VerifyOptions) (*chains.VerifyResult, error)
}

// Service runs the verification pipeline.
type Service struct {
	sources  SourceProvider
	explorer Explorer
	code     DeploymentChecker
	log      *slog.Logger
}

// NewService creates a new verification service.
func NewService(sources SourceProvider, exp Explorer, code DeploymentChecker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sources:  sources,
		explorer: exp,
		code:     code,
		log:      log,
	}
}

// Verify checks a deployed contract against its build artifact and submits
// its source to the explorer.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if err := validation.ValidateAddress(req.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	cfg := req.Config
	if !cfg.CanVerify() {
		return nil, fmt.Errorf("%w: network %s", config.ErrMissingAPIKey, cfg.Network.Name)
	}

	log := s.log.With("address", req.Address, "network", cfg.Network.Name)

	verified, err := s.explorer.IsVerified(ctx, req.Address)
	if err != nil {
		return nil, fmt.Errorf("checking verification status: %w", err)
	}
	if verified {
		log.Info("contract already verified")
		return &VerifyResult{
			Status:  StatusAlreadyVerified,
			Address: req.Address,
			Message: "Source code already verified",
			URL:     explorer.AddressURL(cfg.Verification.BrowserURL, req.Address),
		}, nil
	}

	path, err := s.sources.ArtifactPath(req.ProjectDir, req.Contract)
	if err != nil {
		return nil, err
	}
	artifact, err := s.sources.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	contract := artifact.Name
	if artifact.EVM.SourcePath != "" {
		contract = artifact.EVM.SourcePath + ":" + artifact.Name
	}
	log = log.With("contract", contract)

	if err := CheckCompiler(cfg.Compiler, artifact.EVM.Compiler); err != nil {
		return nil, err
	}

	result := &VerifyResult{Address: req.Address, Contract: contract}

	if !req.SkipBytecodeCheck {
		match, err := s.compareCode(ctx, cfg, req, artifact.EVM)
		if err != nil {
			return nil, err
		}
		result.MatchType = match.MatchType
		log.Debug("bytecode compared", "match", match.MatchType)
	}

	input, err := s.sources.GetVerificationInput(req.ProjectDir, artifact.Name, artifact.EVM.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("loading verification input: %w", err)
	}
	compilerVersion := input.SolcLongVersion
	if compilerVersion == "" {
		compilerVersion = artifact.EVM.Compiler.Version
	}

	guid, err := s.explorer.Submit(ctx, explorer.SubmitRequest{
		Address:         req.Address,
		ContractName:    contract,
		CompilerVersion: compilerVersion,
		StandardJSON:    input.StandardJSON,
		ConstructorArgs: req.ConstructorArgs,
	})
	if errors.Is(err, explorer.ErrAlreadyVerified) {
		result.Status = StatusAlreadyVerified
		result.Message = "Source code already verified"
		result.URL = explorer.AddressURL(cfg.Verification.BrowserURL, req.Address)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("submitting verification: %w", err)
	}
	result.GUID = guid
	log.Info("verification submitted", "guid", guid)

	if req.NoWait {
		result.Status = StatusSubmitted
		result.Message = "Submitted, check status later"
		return result, nil
	}

	st, err := s.explorer.Wait(ctx, guid)
	if err != nil {
		return nil, err
	}
	result.Status = StatusVerified
	if st.State == explorer.StateAlreadyVerified {
		result.Status = StatusAlreadyVerified
	}
	result.Message = st.Message
	result.URL = explorer.AddressURL(cfg.Verification.BrowserURL, req.Address)
	log.Info("verification finished", "status", result.Status)
	return result, nil
}

func (s *Service) compareCode(ctx context.Context, cfg config.ResolvedConfig, req VerifyRequest, art *chains.EVMArtifact) (*chains.VerifyResult, error) {
	match, err := s.code.VerifyDeployment(ctx, chains.VerifyOptions{
		RPC:          cfg.Network.RPCURL,
		Address:      req.Address,
		ExpectedCode: []byte(art.DeployedBytecode),
		Libraries:    req.Libraries,
		Immutables:   art.Immutables,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Network.Name, err)
	}
	if !match.Match {
		return nil, fmt.Errorf("%w: %s", ErrBytecodeMismatch, match.Message)
	}
	return match, nil
}

// CheckCompiler compares the settings an artifact was built with against
// the resolved compiler settings and lists every difference.
func CheckCompiler(want config.CompilerSettings, got chains.EVMCompiler) error {
	var diffs []string
	if got.Version != "" && validation.CompareVersions(got.Version, want.Version) != 0 {
		diffs = append(diffs, fmt.Sprintf("version %s, want %s", got.Version, want.Version))
	}
	if got.Optimizer.Enabled != want.OptimizerEnabled {
		diffs = append(diffs, fmt.Sprintf("optimizer %t, want %t", got.Optimizer.Enabled, want.OptimizerEnabled))
	} else if want.OptimizerEnabled && got.Optimizer.Runs != want.OptimizerRuns {
		diffs = append(diffs, fmt.Sprintf("optimizer runs %d, want %d", got.Optimizer.Runs, want.OptimizerRuns))
	}
	if got.ViaIR != want.ViaIR {
		diffs = append(diffs, fmt.Sprintf("via_ir %t, want %t", got.ViaIR, want.ViaIR))
	}
	if want.EVMVersion != "" && got.EVMVersion != "" && got.EVMVersion != want.EVMVersion {
		diffs = append(diffs, fmt.Sprintf("evm_version %s, want %s", got.EVMVersion, want.EVMVersion))
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%w: %s", ErrCompilerMismatch, strings.Join(diffs, "; "))
	}
	return nil
}
