package evm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pendergraft/contraconf/internal/chains"
)

// CBOR metadata marker (Solidity >=0.6.0) - "ipfs" in CBOR
var metadataMarker = []byte{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73}

// Library placeholder pattern: __$<34 hex chars>$__
var libraryPlaceholder = regexp.MustCompile(`__\$[a-f0-9]{34}\$__`)

// StripMetadata removes the CBOR metadata solc appends to bytecode.
// The trailing two bytes hold the big-endian length of the CBOR map.
func StripMetadata(bytecode []byte) []byte {
	if n := len(bytecode); n > 2 {
		size := int(binary.BigEndian.Uint16(bytecode[n-2:]))
		start := n - 2 - size
		// CBOR maps with 1-3 entries start with 0xa1-0xa3
		if size > 0 && start >= 0 && bytecode[start] >= 0xa1 && bytecode[start] <= 0xa3 {
			return bytecode[:start]
		}
	}

	idx := bytes.LastIndex(bytecode, metadataMarker)
	if idx == -1 {
		return bytecode
	}
	return bytecode[:idx]
}

// CompareBytecode compares deployed bytecode to artifact bytecode.
// artifact may be raw bytes or 0x-prefixed hex with unlinked library
// placeholders; libraries maps fully qualified names ("src/Lib.sol:Lib")
// to addresses. Immutable ranges are zeroed in the deployed code first.
func CompareBytecode(deployed, artifact []byte, libraries map[string]string, immutables []chains.ByteRange) *chains.VerifyResult {
	if bytes.HasPrefix(artifact, []byte("0x")) {
		linked := LinkLibraries(string(artifact[2:]), libraries)
		decoded, err := hex.DecodeString(linked)
		if err != nil {
			return &chains.VerifyResult{
				Match:     false,
				MatchType: "none",
				Message:   fmt.Sprintf("Artifact bytecode is not valid hex (unlinked libraries?): %v", err),
			}
		}
		artifact = decoded
	}

	deployed = MaskRanges(deployed, immutables)

	if bytes.Equal(deployed, artifact) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "full",
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	if bytes.Equal(StripMetadata(deployed), StripMetadata(artifact)) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	return &chains.VerifyResult{
		Match:     false,
		MatchType: "none",
		Message:   "Bytecode does not match",
	}
}

// LibraryPlaceholder returns the link placeholder solc emits for a fully
// qualified library name: the first 17 bytes of its keccak256 hash.
func LibraryPlaceholder(fullyQualifiedName string) string {
	sum := crypto.Keccak256([]byte(fullyQualifiedName))
	return "__$" + hex.EncodeToString(sum[:17]) + "$__"
}

// LinkLibraries replaces library placeholders in hex bytecode with addresses.
func LinkLibraries(code string, libraries map[string]string) string {
	for name, addr := range libraries {
		addr = strings.ToLower(strings.TrimPrefix(addr, "0x"))
		code = strings.ReplaceAll(code, LibraryPlaceholder(name), addr)
	}
	return code
}

// MaskRanges returns a copy of code with every range zeroed.
// Ranges outside the code are ignored.
func MaskRanges(code []byte, ranges []chains.ByteRange) []byte {
	if len(ranges) == 0 {
		return code
	}
	out := bytes.Clone(code)
	for _, r := range ranges {
		if r.Start < 0 || r.Length <= 0 || r.Start+r.Length > len(out) {
			continue
		}
		clear(out[r.Start : r.Start+r.Length])
	}
	return out
}

// HasLibraryPlaceholders checks if bytecode contains library placeholders
func HasLibraryPlaceholders(bytecode []byte) bool {
	return libraryPlaceholder.Match(bytecode)
}
