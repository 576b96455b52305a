// Package descriptor maps a wallet configuration and profile snapshot onto
// the pass.json payload the wallet platform defines.
package descriptor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MrDemonWolf/linkden-sub002/core/canon"
	coreerrors "github.com/MrDemonWolf/linkden-sub002/core/errors"
	"github.com/MrDemonWolf/linkden-sub002/core/schema"
)

// FormatVersion is the only pass.json format version the platform accepts.
const FormatVersion = 1

// serialNumberLength is the hex prefix of the derivation digest kept as the
// serial. 32 hex chars keeps serials short enough for the wallet UI while
// leaving collisions out of practical reach.
const serialNumberLength = 32

// Empty primary fields are allowed for generic passes; a pass with no fields
// in any group and no barcode is rejected as contentless.
const allowEmptyPrimaryFields = true

// Barcode holds the pass.json barcode object.
type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// FieldGroups is the generic pass layout: ordered field lists per slot.
type FieldGroups struct {
	HeaderFields    []schema.PassField `json:"headerFields,omitempty"`
	PrimaryFields   []schema.PassField `json:"primaryFields,omitempty"`
	SecondaryFields []schema.PassField `json:"secondaryFields,omitempty"`
	AuxiliaryFields []schema.PassField `json:"auxiliaryFields,omitempty"`
	BackFields      []schema.PassField `json:"backFields,omitempty"`
}

// PassDescriptor is the in-memory pass.json payload. It is created fresh per
// build and never mutated after handoff to the manifest builder.
type PassDescriptor struct {
	FormatVersion      int          `json:"formatVersion"`
	PassTypeIdentifier string       `json:"passTypeIdentifier"`
	SerialNumber       string       `json:"serialNumber"`
	TeamIdentifier     string       `json:"teamIdentifier"`
	OrganizationName   string       `json:"organizationName"`
	Description        string       `json:"description"`
	BackgroundColor    string       `json:"backgroundColor,omitempty"`
	ForegroundColor    string       `json:"foregroundColor,omitempty"`
	LabelColor         string       `json:"labelColor,omitempty"`
	Barcode            *Barcode     `json:"barcode,omitempty"`
	Barcodes           []Barcode    `json:"barcodes,omitempty"`
	Generic            *FieldGroups `json:"generic"`
}

var (
	passTypeIdentifierPattern = regexp.MustCompile(`^pass\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?)+$`)
	teamIdentifierPattern     = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)
)

var barcodeFormats = map[string]string{
	schema.BarcodeQR:      "PKBarcodeFormatQR",
	schema.BarcodePDF417:  "PKBarcodeFormatPDF417",
	schema.BarcodeAztec:   "PKBarcodeFormatAztec",
	schema.BarcodeCode128: "PKBarcodeFormatCode128",
}

// Map converts a validated config and profile snapshot into a fully
// populated descriptor. All identifier validation happens here, before any
// asset fetch or signing work.
func Map(config schema.WalletConfig, profile schema.ProfileSnapshot) (PassDescriptor, error) {
	if err := validateIdentifiers(config, profile); err != nil {
		return PassDescriptor{}, err
	}

	serial, err := SerialNumber(config, profile)
	if err != nil {
		return PassDescriptor{}, invalidConfig(fmt.Errorf("derive serial number: %w", err), "serial_derivation_failed", "wallet configuration could not be serialized")
	}

	groups := &FieldGroups{
		HeaderFields:    mapFields(config.HeaderFields),
		PrimaryFields:   mapFields(config.PrimaryFields),
		SecondaryFields: mapFields(config.SecondaryFields),
		AuxiliaryFields: mapFields(config.AuxiliaryFields),
		BackFields:      mapFields(config.BackFields),
	}
	applyProfileFields(groups, profile)

	pass := PassDescriptor{
		FormatVersion:      FormatVersion,
		PassTypeIdentifier: config.PassTypeIdentifier,
		SerialNumber:       serial,
		TeamIdentifier:     config.TeamIdentifier,
		OrganizationName:   config.OrganizationName,
		Description:        description(config),
		BackgroundColor:    config.Colors.Background,
		ForegroundColor:    config.Colors.Foreground,
		LabelColor:         config.Colors.Label,
		Generic:            groups,
	}

	if config.Barcode != nil {
		format, ok := barcodeFormats[config.Barcode.Format]
		if !ok {
			return PassDescriptor{}, invalidConfig(
				fmt.Errorf("unknown barcode format %q", config.Barcode.Format),
				"barcode_format_unknown",
				"barcode format must be one of QR, PDF417, AZTEC, CODE128",
			)
		}
		if strings.TrimSpace(config.Barcode.Message) == "" {
			return PassDescriptor{}, invalidConfig(
				fmt.Errorf("barcode message is empty"),
				"barcode_message_empty",
				"a configured barcode requires a non-empty message",
			)
		}
		barcode := Barcode{
			Format:          format,
			Message:         config.Barcode.Message,
			MessageEncoding: "iso-8859-1",
			AltText:         config.Barcode.AltText,
		}
		// Legacy single-barcode key plus the modern array form; older wallet
		// versions read only the former.
		pass.Barcode = &barcode
		pass.Barcodes = []Barcode{barcode}
	}

	if groups.empty() && pass.Barcode == nil {
		return PassDescriptor{}, coreerrors.Classify(
			coreerrors.ErrEmptyFieldSet,
			fmt.Errorf("no fields in any group and no barcode"),
			coreerrors.CategoryInvalidInput,
			"pass_contentless",
			"configure at least one field with a value or a barcode",
			false,
		)
	}

	return pass, nil
}

// SerialNumber derives the stable serial for a pass: a digest over the pass
// identity and the canonical configuration. Re-issuing an unchanged
// configuration yields the identical serial; any content change produces a
// new one. Signing identity is deliberately excluded so certificate rotation
// does not renumber passes.
func SerialNumber(config schema.WalletConfig, profile schema.ProfileSnapshot) (string, error) {
	payload := struct {
		PassID string              `json:"passId"`
		Config schema.WalletConfig `json:"config"`
	}{
		PassID: schema.PassID(config, profile),
		Config: config,
	}
	canonical, err := canon.MarshalCanonical(payload)
	if err != nil {
		return "", err
	}
	digest, err := canon.DigestSHA256(canonical)
	if err != nil {
		return "", err
	}
	return digest[:serialNumberLength], nil
}

func validateIdentifiers(config schema.WalletConfig, profile schema.ProfileSnapshot) error {
	if strings.TrimSpace(config.OrganizationName) == "" {
		return invalidConfig(fmt.Errorf("organization name is required"), "organization_name_missing", "set the organization name in wallet settings")
	}
	if !isASCII(config.PassTypeIdentifier) || !passTypeIdentifierPattern.MatchString(config.PassTypeIdentifier) {
		return invalidConfig(
			fmt.Errorf("pass type identifier %q is not reverse-DNS under pass.", config.PassTypeIdentifier),
			"pass_type_identifier_malformed",
			"pass type identifier must look like pass.com.example.card",
		)
	}
	if !teamIdentifierPattern.MatchString(config.TeamIdentifier) {
		return invalidConfig(
			fmt.Errorf("team identifier %q is malformed", config.TeamIdentifier),
			"team_identifier_malformed",
			"team identifier must be 1-10 uppercase letters or digits",
		)
	}
	if strings.TrimSpace(profile.ProfileID) == "" {
		return invalidConfig(fmt.Errorf("profile id is required"), "profile_id_missing", "profile snapshot must carry its identifier")
	}
	return nil
}

// mapFields copies a configured group, dropping entries whose value is empty
// rather than emitting malformed pass.json fields.
func mapFields(fields []schema.PassField) []schema.PassField {
	if len(fields) == 0 {
		return nil
	}
	mapped := make([]schema.PassField, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field.Value) == "" {
			continue
		}
		if strings.TrimSpace(field.Key) == "" {
			continue
		}
		mapped = append(mapped, field)
	}
	if len(mapped) == 0 {
		return nil
	}
	return mapped
}

// applyProfileFields fills slots the configuration left empty from the
// profile snapshot: the display name as the primary field and contact
// channels as back fields. Explicitly configured fields always win.
func applyProfileFields(groups *FieldGroups, profile schema.ProfileSnapshot) {
	if len(groups.PrimaryFields) == 0 && strings.TrimSpace(profile.DisplayName) != "" {
		groups.PrimaryFields = []schema.PassField{{Key: "name", Label: "Name", Value: profile.DisplayName}}
	}
	existing := make(map[string]struct{}, len(groups.BackFields))
	for _, field := range groups.BackFields {
		existing[field.Key] = struct{}{}
	}
	appendBack := func(key, label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if _, ok := existing[key]; ok {
			return
		}
		groups.BackFields = append(groups.BackFields, schema.PassField{Key: key, Label: label, Value: value})
	}
	appendBack("email", "Email", profile.Email)
	appendBack("phone", "Phone", profile.Phone)
	appendBack("website", "Website", profile.Website)
}

func (g *FieldGroups) empty() bool {
	if !allowEmptyPrimaryFields && len(g.PrimaryFields) == 0 {
		return true
	}
	return len(g.HeaderFields) == 0 &&
		len(g.PrimaryFields) == 0 &&
		len(g.SecondaryFields) == 0 &&
		len(g.AuxiliaryFields) == 0 &&
		len(g.BackFields) == 0
}

func description(config schema.WalletConfig) string {
	if strings.TrimSpace(config.Description) != "" {
		return config.Description
	}
	return config.OrganizationName + " contact card"
}

func isASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] > 127 {
			return false
		}
	}
	return true
}

func invalidConfig(cause error, code, hint string) error {
	return coreerrors.Classify(coreerrors.ErrInvalidConfig, cause, coreerrors.CategoryInvalidInput, code, hint, false)
}
