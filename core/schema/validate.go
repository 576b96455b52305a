package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
)

//go:embed wallet_config.schema.json
var walletConfigSchemaJSON []byte

var (
	compileOnce  sync.Once
	compiled     *jsonschema.Schema
	compileError error
)

func walletConfigSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiled, compileError = compiler.Compile(walletConfigSchemaJSON)
	})
	if compileError != nil {
		return nil, fmt.Errorf("compile wallet config schema: %w", compileError)
	}
	return compiled, nil
}

// ValidateConfigJSON validates a raw wallet config document before it is
// decoded, rejecting unknown properties and malformed identifiers at the
// boundary.
func ValidateConfigJSON(data []byte) error {
	schema, err := walletConfigSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return coreerrors.Classify(
		coreerrors.ErrInvalidConfig,
		fmt.Errorf("schema validation failed: %v", result.Errors),
		coreerrors.CategoryInvalidInput,
		"config_schema_invalid",
		"fix the wallet configuration fields reported by the schema errors",
		false,
	)
}

// ParseConfig validates and decodes a raw wallet config document.
func ParseConfig(data []byte) (WalletConfig, error) {
	if err := ValidateConfigJSON(data); err != nil {
		return WalletConfig{}, err
	}
	var config WalletConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return WalletConfig{}, coreerrors.Classify(
			coreerrors.ErrInvalidConfig, err,
			coreerrors.CategoryInvalidInput,
			"config_decode_failed",
			"wallet configuration is not valid JSON for the expected shape",
			false,
		)
	}
	return config, nil
}
