// Copyright 2025 3 Leaps, LLC
// Licensed under the Apache License, Version 2.0

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedisct1/go-minisign"
)

// SignatureSuffix is appended to a catalog path to locate its detached signature.
const SignatureSuffix = ".minisig"

// ErrUnsigned is returned when a public key is configured but the catalog has no signature.
var ErrUnsigned = errors.New("catalog signature not found")

// LoadVerifiedFile reads a catalog and its detached minisign signature
// (path + ".minisig") and parses the catalog only if the signature verifies
// against pubkey. An empty pubkey skips verification.
func LoadVerifiedFile(path, pubkey string) (Set, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}

	if pubkey != "" {
		sig, err := os.ReadFile(path + SignatureSuffix)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s%s", ErrUnsigned, path, SignatureSuffix)
			}
			return nil, fmt.Errorf("read catalog signature: %w", err)
		}
		if err := Verify(data, sig, pubkey); err != nil {
			return nil, fmt.Errorf("catalog signature verification failed: %w", err)
		}
	}

	return Parse(data)
}

// Verify checks a minisign signature over message.
// pubkey may be the bare base64 key or the contents of a .pub file.
func Verify(message, signature []byte, pubkey string) error {
	keyStr := PublicKeyLine(pubkey)
	if keyStr == "" {
		return errors.New("no minisign public key")
	}

	key, err := minisign.NewPublicKey(keyStr)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	sig, err := minisign.DecodeSignature(string(signature))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	valid, err := key.Verify(message, sig)
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	if !valid {
		return errors.New("invalid signature")
	}

	return nil
}

// PublicKeyLine extracts the key line from minisign public key file contents,
// skipping the "untrusted comment:" header and blank lines.
func PublicKeyLine(raw string) string {
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "untrusted comment:") {
			continue
		}
		return line
	}
	return ""
}
