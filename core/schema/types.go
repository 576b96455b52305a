// Package schema defines the wallet configuration and profile inputs the
// pass pipeline consumes, plus their validation. Values are immutable
// snapshots: the pipeline never mutates them after intake.
package schema

// PassField is one {key,label,value} entry in a field group. Order within a
// group is significant and preserved end to end.
type PassField struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Barcode describes the machine-readable payload rendered by the wallet app.
type Barcode struct {
	Format  string `json:"format"`
	Message string `json:"message"`
	AltText string `json:"altText,omitempty"`
}

// Supported barcode formats, as configured by the admin UI.
const (
	BarcodeQR      = "QR"
	BarcodePDF417  = "PDF417"
	BarcodeAztec   = "AZTEC"
	BarcodeCode128 = "CODE128"
)

// ImageRef points at one image asset, either by URL or by an inline blob
// already resolved by the caller. At most one source is set.
type ImageRef struct {
	URL  string `json:"url,omitempty"`
	Blob []byte `json:"blob,omitempty"`
}

// IsZero reports whether the reference carries no source at all.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && len(r.Blob) == 0
}

// Colors holds the pass color scheme as CSS rgb() strings.
type Colors struct {
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
	Label      string `json:"label,omitempty"`
}

// WalletConfig is the immutable per-build snapshot of everything the admin
// subsystem configured for a pass.
type WalletConfig struct {
	OrganizationName   string `json:"organizationName"`
	PassTypeIdentifier string `json:"passTypeIdentifier"`
	TeamIdentifier     string `json:"teamIdentifier"`
	Description        string `json:"description,omitempty"`

	Icon      ImageRef `json:"icon,omitempty"`
	Logo      ImageRef `json:"logo,omitempty"`
	Strip     ImageRef `json:"strip,omitempty"`
	Thumbnail ImageRef `json:"thumbnail,omitempty"`

	Colors  Colors   `json:"colors,omitempty"`
	Barcode *Barcode `json:"barcode,omitempty"`

	HeaderFields    []PassField `json:"headerFields,omitempty"`
	PrimaryFields   []PassField `json:"primaryFields,omitempty"`
	SecondaryFields []PassField `json:"secondaryFields,omitempty"`
	AuxiliaryFields []PassField `json:"auxiliaryFields,omitempty"`
	BackFields      []PassField `json:"backFields,omitempty"`
}

// ProfileSnapshot is the already-resolved profile data a pass represents.
type ProfileSnapshot struct {
	ProfileID   string `json:"profileId"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
}

// PassID names the logical pass identity a cache entry and build lock are
// keyed by: one profile under one pass type.
func PassID(config WalletConfig, profile ProfileSnapshot) string {
	return config.PassTypeIdentifier + "/" + profile.ProfileID
}
