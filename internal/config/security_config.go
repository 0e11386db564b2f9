package config

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

const (
	stateEncryptionKeyVar = "STATE_ENCRYPTION_KEY"
	verifyIDTokensVar     = "VERIFY_ID_TOKENS"
)

type SecurityConfig interface {
	GetStateEncryptionKey() ([]byte, error)
	GetVerifyIDTokens() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetStateEncryptionKey returns the base64 encoded master key protecting stored sessions.
func (Security) GetStateEncryptionKey() ([]byte, error) {
	value := GetEnv(stateEncryptionKeyVar, "")
	if value == "" {
		return nil, fmt.Errorf("%s is not set", stateEncryptionKeyVar)
	}
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", stateEncryptionKeyVar, err)
	}
	return key, nil
}

func (Security) GetVerifyIDTokens() bool {
	verify, err := strconv.ParseBool(GetEnv(verifyIDTokensVar, "true"))
	return err != nil || verify
}
