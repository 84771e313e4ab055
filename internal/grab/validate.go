package grab

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPolicy is returned for policy documents that fail decoding,
// schema validation or version format checks.
var ErrInvalidPolicy = errors.New("invalid policy document")

//go:embed policy.schema.json
var policySchemaJSON string

var policySchema = jsonschema.MustCompileString("policy.schema.json", policySchemaJSON)

// policyDocument is the wire form of a VersionPolicy.
type policyDocument struct {
	MinimumVersion      string   `json:"minimumVersion"`
	LatestVersion       string   `json:"latestVersion"`
	IsKillSwitchActive  bool     `json:"isKillSwitchActive"`
	DeprecatedVersions  []string `json:"deprecatedVersions"`
	ForceUpdateVersions []string `json:"forceUpdateVersions"`
	UpdateMessage       string   `json:"updateMessage"`
	DownloadURL         string   `json:"downloadUrl"`
	KillSwitchMessage   string   `json:"killSwitchMessage,omitempty"`
}

func newPolicyDocument(p VersionPolicy) policyDocument {
	return policyDocument{
		MinimumVersion:      p.MinimumVersion,
		LatestVersion:       p.LatestVersion,
		IsKillSwitchActive:  p.IsKillSwitchActive,
		DeprecatedVersions:  nonNil(p.DeprecatedVersions),
		ForceUpdateVersions: nonNil(p.ForceUpdateVersions),
		UpdateMessage:       p.UpdateMessage,
		DownloadURL:         p.DownloadURL,
		KillSwitchMessage:   p.KillSwitchMessage,
	}
}

func (d policyDocument) policy() VersionPolicy {
	return VersionPolicy{
		MinimumVersion:      d.MinimumVersion,
		LatestVersion:       d.LatestVersion,
		IsKillSwitchActive:  d.IsKillSwitchActive,
		DeprecatedVersions:  nonNil(d.DeprecatedVersions),
		ForceUpdateVersions: nonNil(d.ForceUpdateVersions),
		UpdateMessage:       d.UpdateMessage,
		DownloadURL:         d.DownloadURL,
		KillSwitchMessage:   d.KillSwitchMessage,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// ParsePolicyDocument decodes a policy document and validates it in full.
// The returned policy has a zero LastUpdated; the caller stamps it.
func ParsePolicyDocument(data []byte) (VersionPolicy, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return VersionPolicy{}, fmt.Errorf("%w: decoding json: %w", ErrInvalidPolicy, err)
	}

	if err := policySchema.Validate(raw); err != nil {
		return VersionPolicy{}, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	var doc policyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return VersionPolicy{}, fmt.Errorf("%w: decoding policy: %w", ErrInvalidPolicy, err)
	}

	if err := checkVersions(doc); err != nil {
		return VersionPolicy{}, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	return doc.policy(), nil
}

// MarshalPolicyDocument encodes p in the remote document format.
func MarshalPolicyDocument(p VersionPolicy) ([]byte, error) {
	return json.MarshalIndent(newPolicyDocument(p), "", "  ")
}

// checkVersions enforces strict MAJOR.MINOR.PATCH on every version field.
func checkVersions(doc policyDocument) error {
	if err := checkVersion("minimumVersion", doc.MinimumVersion); err != nil {
		return err
	}
	if err := checkVersion("latestVersion", doc.LatestVersion); err != nil {
		return err
	}
	for i, v := range doc.DeprecatedVersions {
		if err := checkVersion(fmt.Sprintf("deprecatedVersions[%d]", i), v); err != nil {
			return err
		}
	}
	for i, v := range doc.ForceUpdateVersions {
		if err := checkVersion(fmt.Sprintf("forceUpdateVersions[%d]", i), v); err != nil {
			return err
		}
	}
	return nil
}

func checkVersion(field, v string) error {
	parsed, err := semver.StrictNewVersion(v)
	if err != nil {
		return fmt.Errorf("%s %q: %w", field, v, err)
	}
	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return fmt.Errorf("%s %q: pre-release and build metadata are not supported", field, v)
	}
	return nil
}
